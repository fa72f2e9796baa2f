package observation

// Counters holds, per form code, the highest repetition observed for each
// dynamic container key across all payloads of that form.
type Counters map[string]map[string]int

// Observe folds the counters of one payload into form, keeping maxima.
func (c Counters) Observe(form string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	target := c[form]
	if target == nil {
		target = make(map[string]int, len(counts))
		c[form] = target
	}
	for key, n := range counts {
		if n > target[key] {
			target[key] = n
		}
	}
}

// Merge folds other into c, keeping maxima.
func (c Counters) Merge(other Counters) {
	for form, counts := range other {
		c.Observe(form, counts)
	}
}

// Max returns the highest repetition observed for key in form.
func (c Counters) Max(form, key string) int {
	return c[form][key]
}

// Clone returns a deep copy.
func (c Counters) Clone() Counters {
	out := make(Counters, len(c))
	out.Merge(c)
	return out
}
