package catalog

// RunLengthRank assigns ranks that start at 1 and increase exactly when a
// value differs from its predecessor, recovering declaration order from a
// flat list: [5 5 7 7 7 9] ranks as [1 1 2 2 2 3].
func RunLengthRank[T comparable](values []T) []int {
	ranks := make([]int, len(values))
	rank := 0
	for i, value := range values {
		if i == 0 || value != values[i-1] {
			rank++
		}
		ranks[i] = rank
	}
	return ranks
}

// AssignOrder returns a copy of cat with form, field and parent-field ranks
// computed over catalog order.
func AssignOrder(cat Catalog) Catalog {
	forms := make([]string, len(cat))
	fields := make([]string, len(cat))
	parents := make([]string, len(cat))
	for i, rec := range cat {
		forms[i] = rec.FormCode
		fields[i] = rec.FieldCode
		parents[i] = rec.ParentFieldCode
	}
	formRanks := RunLengthRank(forms)
	fieldRanks := RunLengthRank(fields)
	parentRanks := RunLengthRank(parents)

	out := cat.Clone()
	for i := range out {
		out[i].FormOrder = formRanks[i]
		out[i].FieldOrder = fieldRanks[i]
		out[i].ParentFieldOrder = parentRanks[i]
	}
	return out
}
