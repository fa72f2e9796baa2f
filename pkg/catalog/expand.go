package catalog

import (
	"strconv"
	"strings"
)

// Expand replicates the repetition-1 templates of dynamic matrices and panels
// up to the highest repetition observed per container. counters maps a form
// code to {container key -> max repetition}, where nested containers use the
// composed key of their enclosing instance (for example "p_r2_m").
//
// Templates without a counter stay as they are. Only the outermost dynamic
// container sets RepetitionIndex.
func Expand(cat Catalog, counters map[string]map[string]int) Catalog {
	order, groups := cat.groupByForm()
	out := make(Catalog, 0, len(cat))
	for _, form := range order {
		out = append(out, expandRecords(groups[form], counters[form], 0, true)...)
	}
	return AssignOrder(out)
}

func expandRecords(records Catalog, counters map[string]int, minLen int, outer bool) Catalog {
	out := make(Catalog, 0, len(records))
	for i := 0; i < len(records); {
		rec := records[i]
		key, ok := containerKey(rec, counters, minLen)
		if !ok {
			out = append(out, rec.clone())
			i++
			continue
		}

		prefix := key + repetitionInfix
		end := i + 1
		for end < len(records) && records[end].IsDynamic() && strings.HasPrefix(records[end].FieldCode, prefix) {
			end++
		}
		block := records[i:end]

		n := counters[key]
		if n < 1 {
			n = 1
		}
		for rep := 1; rep <= n; rep++ {
			instance := make(Catalog, len(block))
			for j, tmpl := range block {
				instance[j] = repeat(tmpl, key, rep, outer)
			}
			out = append(out, expandRecords(instance, counters, len(key), false)...)
		}
		i = end
	}
	return out
}

// containerKey picks the shortest counter key k, longer than minLen, whose
// repetition template prefix k_r1_ starts the record's field code.
func containerKey(rec FieldRecord, counters map[string]int, minLen int) (string, bool) {
	if !rec.IsDynamic() || len(counters) == 0 {
		return "", false
	}
	best := ""
	for key := range counters {
		if len(key) <= minLen || !strings.HasPrefix(rec.FieldCode, key+repetitionInfix) {
			continue
		}
		if best == "" || len(key) < len(best) || (len(key) == len(best) && key < best) {
			best = key
		}
	}
	return best, best != ""
}

func repeat(tmpl FieldRecord, key string, rep int, outer bool) FieldRecord {
	rec := tmpl.clone()
	if outer {
		rec.RepetitionIndex = rep
	}
	if rep == 1 {
		return rec
	}
	instance := key + "_r" + strconv.Itoa(rep)
	from := key + repetitionInfix
	to := instance + "_"
	rec.FieldCode = to + strings.TrimPrefix(rec.FieldCode, from)
	suffix := titleSeparator + "r" + strconv.Itoa(rep)
	rec.FieldTitle += suffix

	// The parent title follows its code: parents outside the repeated
	// container keep both.
	switch {
	case rec.ParentFieldCode == key+repetitionSuffix:
		rec.ParentFieldCode = instance
	case strings.HasPrefix(rec.ParentFieldCode, from):
		rec.ParentFieldCode = to + strings.TrimPrefix(rec.ParentFieldCode, from)
	default:
		return rec
	}
	rec.ParentFieldTitle += suffix
	return rec
}
