package catalog

// Nest collapses option rows into one record per (form, field) with an
// ordered option list. Validity and ordering are recomputed on the result.
func Nest(cat Catalog) Catalog {
	type key struct{ form, field string }

	index := make(map[key]int, len(cat))
	out := make(Catalog, 0, len(cat))
	for _, rec := range cat {
		k := key{rec.FormCode, rec.FieldCode}
		pos, seen := index[k]
		if !seen {
			nested := rec.clone()
			nested.OptionValue = ""
			nested.OptionText = ""
			nested.OptionWarnings = nil
			nested.Options = nil
			index[k] = len(out)
			out = append(out, nested)
			pos = len(out) - 1
		}
		if rec.HasOption() {
			out[pos].Options = append(out[pos].Options, FieldOption{Value: rec.OptionValue, Text: rec.OptionText})
		}
	}
	return AssignOrder(CheckValidity(out))
}

// Unnest is the inverse of Nest: every option becomes its own record.
func Unnest(cat Catalog) Catalog {
	out := make(Catalog, 0, len(cat))
	for _, rec := range cat {
		if len(rec.Options) == 0 {
			flat := rec.clone()
			flat.Options = nil
			out = append(out, flat)
			continue
		}
		for _, opt := range rec.Options {
			flat := rec.clone()
			flat.Options = nil
			flat.OptionValue = opt.Value
			flat.OptionText = opt.Text
			flat.OptionWarnings = append([]Warning(nil), opt.Warnings...)
			out = append(out, flat)
		}
	}
	return out
}
