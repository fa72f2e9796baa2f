// Package observation turns respondent payloads into flat answer maps keyed
// the same way the field catalog names its fields.
package observation

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formcatalog/pkg/schema"
)

const (
	separator   = "_"
	positionKey = "pos"
)

// Flatten walks a decoded payload and returns its flat answer map together
// with the highest repetition seen per container key.
//
// Nested objects join their keys with "_". A list of objects numbers its
// entries so the n-th object's answers are prefixed "{key}_r{n}_", matching
// the repetition naming of dynamic matrices and panels. A list of scalars
// becomes one true flag per value under "{key}_{value}", including values
// such as 0 and false. Nil, blank and empty list entries and "pos"
// bookkeeping keys are ignored.
func Flatten(payload any) (map[string]any, map[string]int) {
	out := make(map[string]any)
	counters := make(map[string]int)
	flattenValue("", payload, out, counters)
	return out, counters
}

func flattenValue(key string, value any, out map[string]any, counters map[string]int) {
	switch typed := value.(type) {
	case []any:
		for _, item := range typed {
			if isEmpty(item) {
				continue
			}
			if obj, ok := item.(map[string]any); ok {
				counters[key]++
				flattenValue(key, obj, out, counters)
				continue
			}
			out[key+separator+schema.ChoiceValue(item)] = true
		}
	case map[string]any:
		sep := separator
		if key == "" {
			sep = ""
		}
		for k, v := range typed {
			if k == positionKey {
				continue
			}
			child := key + sep + k
			if n := counters[key]; n > 0 {
				child = key + sep + "r" + strconv.Itoa(n) + sep + k
			}
			flattenValue(child, v, out, counters)
		}
	default:
		out[key] = value
	}
}

// isEmpty reports list entries that carry no answer. Falsy scalars such as
// 0 and false are choice values and are kept.
func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case map[string]any:
		return len(typed) == 0
	case []any:
		return len(typed) == 0
	default:
		return false
	}
}
