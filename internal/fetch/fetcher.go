// Package fetch retrieves form definitions and responses from the configured
// source: the remote forms API or a directory of JSON exports.
package fetch

import (
	"context"
	"strings"
)

// Params are query parameters sent with a request.
type Params map[string]string

// Clone returns a copy that can be extended without touching p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Filter is one server-side filter condition.
type Filter struct {
	Field     string
	Condition string
	Value     string
}

// Fetcher retrieves the decoded JSON document served for route.
type Fetcher interface {
	Fetch(ctx context.Context, route string, params Params, filters ...Filter) (any, error)
}

// ExtractContent walks a dotted path ("data.items") into a decoded document.
// An empty path returns payload itself.
func ExtractContent(payload any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return payload, payload != nil
	}
	current := payload
	for _, segment := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, current != nil
}

// ExtractList is ExtractContent narrowed to a list of objects. Entries that
// are not objects are skipped.
func ExtractList(payload any, path string) ([]map[string]any, bool) {
	content, ok := ExtractContent(payload, path)
	if !ok {
		return nil, false
	}
	switch typed := content.(type) {
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, entry := range typed {
			if obj, ok := entry.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out, true
	case map[string]any:
		return []map[string]any{typed}, true
	default:
		return nil, false
	}
}
