package dataset

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
)

// Phase is one stage of a project. Forms are collected during a phase.
type Phase struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Order     int      `json:"order" yaml:"order"`
	Level     int      `json:"level,omitempty" yaml:"level,omitempty"`
	ParentID  string   `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	FormCodes []string `json:"surveyIds,omitempty" yaml:"surveyIds,omitempty"`
	Deleted   bool     `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// Alias is the short phase label used in master titles, e.g. "p03".
func (p Phase) Alias() string {
	return fmt.Sprintf("p%02d", p.Order)
}

// Project groups forms into phases.
type Project struct {
	Phases []Phase `json:"phases,omitempty" yaml:"phases,omitempty"`
}

// Active returns the phases that are not deleted, by order then level.
func (p Project) Active() []Phase {
	out := make([]Phase, 0, len(p.Phases))
	for _, phase := range p.Phases {
		if !phase.Deleted {
			out = append(out, phase)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Level < out[j].Level
	})
	return out
}

// HasPhases reports whether any phase is active.
func (p Project) HasPhases() bool {
	return len(p.Active()) > 0
}

// PhaseOf returns the first active phase that collects form.
func (p Project) PhaseOf(form string) (Phase, bool) {
	for _, phase := range p.Active() {
		for _, code := range phase.FormCodes {
			if code == form {
				return phase, true
			}
		}
	}
	return Phase{}, false
}

// unassignedPhase holds forms that no active phase collects.
var unassignedPhase = Phase{ID: "0"}

// MasterField is a catalog record qualified by its project phase.
type MasterField struct {
	catalog.FieldRecord
	PhaseID     string `json:"phaseId,omitempty" yaml:"phaseId,omitempty"`
	PhaseAlias  string `json:"phaseAlias,omitempty" yaml:"phaseAlias,omitempty"`
	PhaseOrder  int    `json:"phaseOrder" yaml:"phaseOrder"`
	MasterCode  string `json:"masterCode" yaml:"masterCode"`
	MasterTitle string `json:"masterTitle" yaml:"masterTitle"`
}

// MasterPrefix is the column prefix of form within phase. Without phases
// the phase segment is left empty.
func (p Project) MasterPrefix(form string) string {
	if !p.HasPhases() {
		return "p.f" + form
	}
	phase, ok := p.PhaseOf(form)
	if !ok {
		phase = unassignedPhase
	}
	return "p" + phase.ID + ".f" + form
}

// MasterCatalog qualifies every record with its phase and sorts the result by
// phase, form, parent field, repetition and field order.
func MasterCatalog(cat catalog.Catalog, project Project) []MasterField {
	hasPhases := project.HasPhases()
	out := make([]MasterField, 0, len(cat))
	for _, rec := range cat {
		field := MasterField{FieldRecord: rec}
		field.MasterCode = project.MasterPrefix(rec.FormCode) + "." + rec.FieldCode
		field.MasterTitle = rec.FormName + " " + rec.FieldTitle
		if hasPhases {
			phase, ok := project.PhaseOf(rec.FormCode)
			if !ok {
				phase = unassignedPhase
			}
			field.PhaseID = phase.ID
			field.PhaseAlias = phase.Alias()
			field.PhaseOrder = phase.Order
			field.MasterTitle = field.PhaseAlias + " " + field.MasterTitle
		}
		out = append(out, field)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.PhaseOrder != b.PhaseOrder:
			return a.PhaseOrder < b.PhaseOrder
		case a.FormOrder != b.FormOrder:
			return a.FormOrder < b.FormOrder
		case a.ParentFieldOrder != b.ParentFieldOrder:
			return a.ParentFieldOrder < b.ParentFieldOrder
		case a.RepetitionIndex != b.RepetitionIndex:
			return a.RepetitionIndex < b.RepetitionIndex
		default:
			return a.FieldOrder < b.FieldOrder
		}
	})
	return out
}
