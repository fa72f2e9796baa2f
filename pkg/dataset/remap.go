package dataset

import (
	"github.com/goliatone/go-formcatalog/pkg/catalog"
	"github.com/goliatone/go-formcatalog/pkg/schema"
)

// RemapFields returns a copy of t whose field-code columns are renamed to
// the catalog field titles. Key columns and unknown columns are kept.
func RemapFields(t Table, cat catalog.Catalog) Table {
	titles := make(map[string]string, len(cat))
	for _, rec := range cat {
		if _, ok := titles[rec.FieldCode]; !ok && rec.FieldTitle != "" {
			titles[rec.FieldCode] = rec.FieldTitle
		}
	}
	out := Table{Name: t.Name, Columns: make([]string, len(t.Columns)), Rows: t.Rows}
	for i, col := range t.Columns {
		if title, ok := titles[col]; ok {
			out.Columns[i] = title
			continue
		}
		out.Columns[i] = col
	}
	return out
}

// RemapValues returns a copy of obs whose choice answers are replaced by the
// option text declared in the catalog. Answers without a matching option are
// kept as they are.
func RemapValues(obs Observations, cat catalog.Catalog) Observations {
	type fieldKey struct{ form, field string }
	texts := make(map[fieldKey]map[string]string)
	add := func(k fieldKey, value, text string) {
		if value == "" {
			return
		}
		if texts[k] == nil {
			texts[k] = make(map[string]string)
		}
		texts[k][value] = text
	}
	for _, rec := range cat {
		k := fieldKey{rec.FormCode, rec.FieldCode}
		if rec.DataType == catalog.DataTypeBool {
			continue
		}
		add(k, rec.OptionValue, rec.OptionText)
		for _, opt := range rec.Options {
			add(k, opt.Value, opt.Text)
		}
	}

	out := obs
	out.Rows = make([]Row, len(obs.Rows))
	for i, row := range obs.Rows {
		values := append([]any(nil), row.Values...)
		for j, field := range obs.Fields[row.FormCode] {
			options := texts[fieldKey{row.FormCode, field}]
			if options == nil || values[j] == nil {
				continue
			}
			if text, ok := options[schema.ChoiceValue(values[j])]; ok {
				values[j] = text
			}
		}
		out.Rows[i] = Row{Key: row.Key, Values: values}
	}
	return out
}
