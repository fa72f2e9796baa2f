package catalog

import (
	"github.com/goliatone/go-formcatalog/pkg/expr"
)

// RenameMap records field code renames per form: form code -> old -> new.
type RenameMap map[string]map[string]string

// Empty reports whether no field was renamed.
func (m RenameMap) Empty() bool {
	for _, renames := range m {
		if len(renames) > 0 {
			return false
		}
	}
	return true
}

// Lookup returns the new code of field in form, or field itself.
func (m RenameMap) Lookup(form, field string) string {
	if renamed, ok := m[form][field]; ok {
		return renamed
	}
	return field
}

// Merge folds other into m, other taking precedence.
func (m RenameMap) Merge(other RenameMap) {
	for form, renames := range other {
		if m[form] == nil {
			m[form] = make(map[string]string, len(renames))
		}
		for from, to := range renames {
			m[form][from] = to
		}
	}
}

// QualifiedCode is the code a duplicated field is renamed to.
func QualifiedCode(form, field string) string {
	return "form" + form + "_" + field
}

// ResolveDuplicates renames every field code shared by more than one form to
// its form-qualified code and rewrites references to the old code in that
// form's visibility conditions and expressions. Running it on its own output
// yields an empty RenameMap.
func ResolveDuplicates(cat Catalog) (Catalog, RenameMap) {
	dupes := crossFormDuplicates(cat)
	renames := make(RenameMap)
	if len(dupes) == 0 {
		return cat.Clone(), renames
	}

	for _, rec := range cat {
		if _, ok := dupes[rec.FieldCode]; !ok {
			continue
		}
		if renames[rec.FormCode] == nil {
			renames[rec.FormCode] = make(map[string]string)
		}
		renames[rec.FormCode][rec.FieldCode] = QualifiedCode(rec.FormCode, rec.FieldCode)
	}

	out := cat.Clone()
	for i := range out {
		rec := &out[i]
		formRenames := renames[rec.FormCode]
		if len(formRenames) == 0 {
			continue
		}
		if renamed, ok := formRenames[rec.FieldCode]; ok {
			rec.FieldCode = renamed
		}
		if renamed, ok := formRenames[rec.ParentFieldCode]; ok {
			rec.ParentFieldCode = renamed
		}
		rec.VisibilityCondition = expr.Rename(rec.VisibilityCondition, formRenames)
		rec.Expression = expr.Rename(rec.Expression, formRenames)
	}
	return AssignOrder(CheckValidity(out)), renames
}
