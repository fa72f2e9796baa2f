package dataset

import (
	"sort"
	"strconv"

	"github.com/goliatone/go-formcatalog/pkg/catalog"
)

// Shape names an export view.
type Shape string

const (
	ShapeMerged          Shape = "merged"
	ShapeSplit           Shape = "split"
	ShapeDuplicateMerged Shape = "duplicate-merged"
	ShapePhases          Shape = "phases"
)

// Shapes lists the supported views.
func Shapes() []Shape {
	return []Shape{ShapeMerged, ShapeSplit, ShapeDuplicateMerged, ShapePhases}
}

// View renders obs in the requested shape.
func View(obs Observations, shape Shape, project Project) ([]Table, error) {
	switch shape {
	case ShapeMerged, "":
		return []Table{Merged(obs)}, nil
	case ShapeSplit:
		return SplitByForm(obs), nil
	case ShapeDuplicateMerged:
		return []Table{DuplicateMerged(obs)}, nil
	case ShapePhases:
		return []Table{PhasePrefixed(obs, project)}, nil
	default:
		return nil, &UnknownShapeError{Shape: string(shape)}
	}
}

// UnknownShapeError reports a view name that is not supported.
type UnknownShapeError struct {
	Shape string
}

func (e *UnknownShapeError) Error() string {
	return "dataset: unknown shape " + strconv.Quote(e.Shape)
}

// SplitByForm returns one table per form with the key columns followed by
// the form's catalog fields.
func SplitByForm(obs Observations) []Table {
	var out []Table
	for _, form := range obs.Forms {
		fields := obs.Fields[form]
		table := Table{
			Name:    "form_" + form,
			Columns: append([]string{ColumnSubject, ColumnForm, ColumnFillTimestamp}, fields...),
		}
		for _, row := range obs.Rows {
			if row.FormCode != form {
				continue
			}
			cells := make([]any, 0, len(table.Columns))
			cells = append(cells, row.SubjectID, row.FormCode, row.FillTimestamp)
			cells = append(cells, row.Values...)
			table.Rows = append(table.Rows, cells)
		}
		out = append(out, table)
	}
	return out
}

// Merged returns one row per subject. For each form only the subject's latest
// fill is used. Forms are folded in fill order, so when forms share a field
// the latest non-nil answer wins. The fill timestamp column holds the latest
// fill overall.
func Merged(obs Observations) Table {
	type subjectForm struct{ subject, form string }
	latest := make(map[subjectForm]Row)
	for _, row := range obs.Rows {
		k := subjectForm{row.SubjectID, row.FormCode}
		if prev, ok := latest[k]; !ok || row.FillTimestamp >= prev.FillTimestamp {
			latest[k] = row
		}
	}

	cols := newColumnSet(ColumnSubject, ColumnFillTimestamp)
	for _, form := range obs.Forms {
		for _, field := range obs.Fields[form] {
			cols.add(field)
		}
	}

	keys := make([]subjectForm, 0, len(latest))
	for k := range latest {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].subject != keys[j].subject {
			return keys[i].subject < keys[j].subject
		}
		fi, fj := latest[keys[i]].FillTimestamp, latest[keys[j]].FillTimestamp
		if fi != fj {
			return fi < fj
		}
		return keys[i].form < keys[j].form
	})

	var cells []map[string]any
	index := make(map[string]int)
	for _, k := range keys {
		row := latest[k]
		pos, ok := index[k.subject]
		if !ok {
			pos = len(cells)
			index[k.subject] = pos
			cells = append(cells, map[string]any{ColumnSubject: k.subject})
		}
		cell := cells[pos]
		for i, field := range obs.Fields[row.FormCode] {
			if row.Values[i] == nil {
				if _, seen := cell[field]; seen {
					continue
				}
			}
			cell[field] = row.Values[i]
		}
		if prev, _ := cell[ColumnFillTimestamp].(string); row.FillTimestamp > prev {
			cell[ColumnFillTimestamp] = row.FillTimestamp
		}
	}
	return Table{Name: string(ShapeMerged), Columns: cols.names, Rows: rowsFrom(cols, cells)}
}

// DuplicateMerged returns one row per subject keeping every fill. Answers of
// the n-th fill of form are prefixed "f{form}_{n}_"; the registry form keeps
// its plain field codes.
func DuplicateMerged(obs Observations) Table {
	rows := append([]Row(nil), obs.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SubjectID != rows[j].SubjectID {
			return rows[i].SubjectID < rows[j].SubjectID
		}
		if rows[i].FormCode != rows[j].FormCode {
			return rows[i].FormCode < rows[j].FormCode
		}
		return rows[i].FillTimestamp < rows[j].FillTimestamp
	})

	type subjectForm struct{ subject, form string }
	occurrences := make(map[subjectForm]int)
	maxOccurrence := make(map[string]int)
	for _, row := range rows {
		k := subjectForm{row.SubjectID, row.FormCode}
		occurrences[k]++
		if occurrences[k] > maxOccurrence[row.FormCode] {
			maxOccurrence[row.FormCode] = occurrences[k]
		}
	}

	cols := newColumnSet(ColumnSubject)
	for _, form := range obs.Forms {
		if form == catalog.RegistryFormCode {
			cols.add(ColumnFillTimestamp)
			for _, field := range obs.Fields[form] {
				cols.add(field)
			}
			continue
		}
		for n := 1; n <= maxOccurrence[form]; n++ {
			prefix := repetitionPrefix(form, n)
			cols.add(prefix + ColumnFillTimestamp)
			for _, field := range obs.Fields[form] {
				cols.add(prefix + field)
			}
		}
	}

	clear(occurrences)
	var cells []map[string]any
	index := make(map[string]int)
	for _, row := range rows {
		pos, ok := index[row.SubjectID]
		if !ok {
			pos = len(cells)
			index[row.SubjectID] = pos
			cells = append(cells, map[string]any{ColumnSubject: row.SubjectID})
		}
		cell := cells[pos]
		prefix := ""
		if row.FormCode != catalog.RegistryFormCode {
			k := subjectForm{row.SubjectID, row.FormCode}
			occurrences[k]++
			prefix = repetitionPrefix(row.FormCode, occurrences[k])
		}
		cell[prefix+ColumnFillTimestamp] = row.FillTimestamp
		for i, field := range obs.Fields[row.FormCode] {
			cell[prefix+field] = row.Values[i]
		}
	}
	return Table{Name: "duplicate_merged", Columns: cols.names, Rows: rowsFrom(cols, cells)}
}

func repetitionPrefix(form string, n int) string {
	return "f" + form + "_" + strconv.Itoa(n) + "_"
}

// PhasePrefixed returns one row per subject with columns qualified by phase
// and form ("p{phase}.f{form}.{field}"), keeping each subject's latest fill
// per form. Columns follow phase order, then catalog form order.
func PhasePrefixed(obs Observations, project Project) Table {
	forms := append([]string(nil), obs.Forms...)
	phaseOrder := func(form string) int {
		if phase, ok := project.PhaseOf(form); ok {
			return phase.Order
		}
		return unassignedPhase.Order
	}
	sort.SliceStable(forms, func(i, j int) bool { return phaseOrder(forms[i]) < phaseOrder(forms[j]) })

	cols := newColumnSet(ColumnSubject)
	for _, form := range forms {
		prefix := project.MasterPrefix(form) + "."
		cols.add(prefix + ColumnFillTimestamp)
		for _, field := range obs.Fields[form] {
			cols.add(prefix + field)
		}
	}

	type subjectForm struct{ subject, form string }
	latest := make(map[subjectForm]Row)
	var subjects []string
	seen := make(map[string]struct{})
	for _, row := range obs.Rows {
		if _, ok := seen[row.SubjectID]; !ok {
			seen[row.SubjectID] = struct{}{}
			subjects = append(subjects, row.SubjectID)
		}
		k := subjectForm{row.SubjectID, row.FormCode}
		if prev, ok := latest[k]; !ok || row.FillTimestamp >= prev.FillTimestamp {
			latest[k] = row
		}
	}
	sort.Strings(subjects)

	cells := make([]map[string]any, 0, len(subjects))
	for _, subject := range subjects {
		cell := map[string]any{ColumnSubject: subject}
		for _, form := range forms {
			row, ok := latest[subjectForm{subject, form}]
			if !ok {
				continue
			}
			prefix := project.MasterPrefix(form) + "."
			cell[prefix+ColumnFillTimestamp] = row.FillTimestamp
			for i, field := range obs.Fields[form] {
				cell[prefix+field] = row.Values[i]
			}
		}
		cells = append(cells, cell)
	}
	return Table{Name: string(ShapePhases), Columns: cols.names, Rows: rowsFrom(cols, cells)}
}
