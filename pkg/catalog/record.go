package catalog

import (
	"strings"

	"github.com/goliatone/go-formcatalog/pkg/schema"
)

// DataType is the analytic type of a catalog field.
type DataType string

const (
	DataTypeNumeric    DataType = "numeric"
	DataTypeDatetime   DataType = "datetime"
	DataTypeJalaliDate DataType = "jalalidate"
	DataTypeString     DataType = "str"
	DataTypeCategory   DataType = "category"
	DataTypeBool       DataType = "bool"
)

// DataTypeFor derives the data type from a leaf element type and, for text
// fields, its input type. Unknown element types are treated as strings.
func DataTypeFor(kind schema.ElementType, inputType string) DataType {
	switch kind {
	case schema.TypeText:
		switch strings.ToLower(strings.TrimSpace(inputType)) {
		case "number":
			return DataTypeNumeric
		case "date":
			return DataTypeDatetime
		case "date-jalali":
			return DataTypeJalaliDate
		default:
			return DataTypeString
		}
	case schema.TypeExpression:
		return DataTypeNumeric
	case schema.TypeComment, schema.TypeHTML, schema.TypeFile:
		return DataTypeString
	case schema.TypeRadioGroup, schema.TypeDropdown, schema.TypeRating, schema.TypeBoolean:
		return DataTypeCategory
	case schema.TypeCheckbox, schema.TypeTagbox:
		return DataTypeBool
	default:
		return DataTypeString
	}
}

// FieldOption is one entry of a nested field's option list.
type FieldOption struct {
	Value    string    `json:"value" yaml:"value"`
	Text     string    `json:"text" yaml:"text"`
	Warnings []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// FieldRecord is one row of the field catalog: a leaf field instance, or one
// option of a choosable field in the flat view.
type FieldRecord struct {
	FormCode            string        `json:"formCode" yaml:"formCode"`
	FormName            string        `json:"formName,omitempty" yaml:"formName,omitempty"`
	FormDesc            string        `json:"formDesc,omitempty" yaml:"formDesc,omitempty"`
	FieldCode           string        `json:"fieldCode" yaml:"fieldCode"`
	FieldTitle          string        `json:"fieldTitle" yaml:"fieldTitle"`
	ParentFieldCode     string        `json:"parentFieldCode" yaml:"parentFieldCode"`
	ParentFieldTitle    string        `json:"parentFieldTitle" yaml:"parentFieldTitle"`
	ElementType         string        `json:"elementType" yaml:"elementType"`
	DataType            DataType      `json:"dataType" yaml:"dataType"`
	VisibilityCondition string        `json:"visibilityCondition,omitempty" yaml:"visibilityCondition,omitempty"`
	Expression          string        `json:"expression,omitempty" yaml:"expression,omitempty"`
	Validators          []any         `json:"validators,omitempty" yaml:"validators,omitempty"`
	OptionValue         string        `json:"optionValue,omitempty" yaml:"optionValue,omitempty"`
	OptionText          string        `json:"optionText,omitempty" yaml:"optionText,omitempty"`
	Options             []FieldOption `json:"options,omitempty" yaml:"options,omitempty"`
	FormOrder           int           `json:"formOrder" yaml:"formOrder"`
	FieldOrder          int           `json:"fieldOrder" yaml:"fieldOrder"`
	ParentFieldOrder    int           `json:"parentFieldOrder" yaml:"parentFieldOrder"`
	RepetitionIndex     int           `json:"repetitionIndex" yaml:"repetitionIndex"`
	Warnings            []Warning     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	OptionWarnings      []Warning     `json:"optionWarnings,omitempty" yaml:"optionWarnings,omitempty"`
	Error               string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// HasOption reports whether the record stands for one option of its field.
func (r FieldRecord) HasOption() bool {
	return r.OptionValue != ""
}

// IsDynamic reports whether the record belongs to the repetition template of
// a dynamic matrix or panel, at any depth of its element type.
func (r FieldRecord) IsDynamic() bool {
	for _, tag := range strings.Split(r.ElementType, tagSeparator) {
		switch schema.ElementType(tag) {
		case schema.TypeMatrixDynamic, schema.TypePanelDynamic:
			return true
		}
	}
	return false
}

func (r FieldRecord) clone() FieldRecord {
	out := r
	if r.Validators != nil {
		out.Validators = append([]any(nil), r.Validators...)
	}
	if r.Options != nil {
		out.Options = make([]FieldOption, len(r.Options))
		for i, opt := range r.Options {
			out.Options[i] = opt
			out.Options[i].Warnings = append([]Warning(nil), opt.Warnings...)
		}
	}
	if r.Warnings != nil {
		out.Warnings = append([]Warning(nil), r.Warnings...)
	}
	if r.OptionWarnings != nil {
		out.OptionWarnings = append([]Warning(nil), r.OptionWarnings...)
	}
	return out
}

// Catalog is an ordered list of field records. Stages return new catalogs and
// leave their input untouched.
type Catalog []FieldRecord

// Clone returns a deep copy.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	for i, rec := range c {
		out[i] = rec.clone()
	}
	return out
}

// Forms lists form codes in order of first appearance.
func (c Catalog) Forms() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, rec := range c {
		if _, ok := seen[rec.FormCode]; ok {
			continue
		}
		seen[rec.FormCode] = struct{}{}
		out = append(out, rec.FormCode)
	}
	return out
}

// FieldCodes lists the distinct field codes of form in catalog order.
func (c Catalog) FieldCodes(form string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, rec := range c {
		if rec.FormCode != form {
			continue
		}
		if _, ok := seen[rec.FieldCode]; ok {
			continue
		}
		seen[rec.FieldCode] = struct{}{}
		out = append(out, rec.FieldCode)
	}
	return out
}

// Form returns the records of one form.
func (c Catalog) Form(form string) Catalog {
	var out Catalog
	for _, rec := range c {
		if rec.FormCode == form {
			out = append(out, rec)
		}
	}
	return out
}

// Lookup returns the first record for (form, field).
func (c Catalog) Lookup(form, field string) (FieldRecord, bool) {
	for _, rec := range c {
		if rec.FormCode == form && rec.FieldCode == field {
			return rec, true
		}
	}
	return FieldRecord{}, false
}

// groupByForm splits the catalog into contiguous per-form runs, merging runs
// of forms that reappear later.
func (c Catalog) groupByForm() ([]string, map[string]Catalog) {
	order := c.Forms()
	groups := make(map[string]Catalog, len(order))
	for _, rec := range c {
		groups[rec.FormCode] = append(groups[rec.FormCode], rec)
	}
	return order, groups
}
