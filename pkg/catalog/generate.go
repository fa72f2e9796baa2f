package catalog

import (
	"sort"
	"strings"

	"github.com/goliatone/go-formcatalog/pkg/schema"
)

const (
	// RegistryFormCode is the form code of observations that carry no form.
	RegistryFormCode = "0"
	registryFormName = "registry"
)

// GenerateFields appends a text field for every name in fields to each form
// of cat that does not already declare it. These cover response attributes
// kept alongside the answer payload. With an empty catalog the fields are
// generated for the registry form.
func GenerateFields(cat Catalog, fields []string) Catalog {
	names := distinctFields(fields)
	if len(names) == 0 {
		return cat.Clone()
	}

	order, groups := cat.groupByForm()
	if len(order) == 0 {
		order = []string{RegistryFormCode}
		groups = map[string]Catalog{RegistryFormCode: nil}
	}

	out := make(Catalog, 0, len(cat)+len(order)*len(names))
	for _, form := range order {
		records := groups[form]
		out = append(out, records.Clone()...)

		ctx := FormContext{Code: form, Name: registryFormName}
		if len(records) > 0 {
			ctx = FormContext{Code: form, Name: records[0].FormName, Description: records[0].FormDesc}
		}
		declared := make(map[string]struct{}, len(records))
		for _, rec := range records {
			declared[rec.FieldCode] = struct{}{}
		}
		for _, name := range names {
			if _, ok := declared[name]; ok {
				continue
			}
			out = append(out, generatedRecord(ctx, name))
		}
	}
	return AssignOrder(CheckValidity(out))
}

func generatedRecord(form FormContext, name string) FieldRecord {
	return FieldRecord{
		FormCode:         form.Code,
		FormName:         form.Name,
		FormDesc:         form.Description,
		FieldCode:        name,
		FieldTitle:       name,
		ParentFieldCode:  name,
		ParentFieldTitle: name,
		ElementType:      string(schema.TypeText),
		DataType:         DataTypeString,
		RepetitionIndex:  1,
	}
}

func distinctFields(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}
