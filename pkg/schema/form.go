package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyDefinition reports a form whose definition is missing or blank.
	ErrEmptyDefinition = errors.New("schema: definition is empty")
	// ErrNoPages reports a definition that declares neither pages nor elements.
	ErrNoPages = errors.New("schema: definition declares no pages")
)

// Form is one questionnaire as delivered by the source: identity plus the raw
// definition, which may be a JSON-encoded string or an already decoded object.
type Form struct {
	Code        string
	Name        string
	Description string
	Definition  any
}

// Definition is a decoded questionnaire element tree.
type Definition struct {
	Title Text
	Pages []Page
}

// Page holds the top-level elements of one definition page.
type Page struct {
	Name     string
	Elements []Element
}

// Elements returns every top-level element across pages in declaration order.
func (d Definition) Elements() []Element {
	var out []Element
	for _, page := range d.Pages {
		out = append(out, page.Elements...)
	}
	return out
}

// Decode parses the form's definition.
func (f Form) Decode() (Definition, error) {
	def, err := DecodeDefinition(f.Definition)
	if err != nil {
		return Definition{}, fmt.Errorf("schema: form %s: %w", f.Code, err)
	}
	return def, nil
}

// DecodeDefinition accepts a definition as a JSON string, raw bytes or a
// decoded object. Numbers are kept as json.Number so choice values keep their
// literal spelling.
func DecodeDefinition(raw any) (Definition, error) {
	var payload map[string]any
	switch typed := raw.(type) {
	case nil:
		return Definition{}, ErrEmptyDefinition
	case map[string]any:
		payload = typed
	case string:
		decoded, err := DecodeJSON([]byte(typed))
		if err != nil {
			return Definition{}, err
		}
		payload = decoded
	case []byte:
		decoded, err := DecodeJSON(typed)
		if err != nil {
			return Definition{}, err
		}
		payload = decoded
	case json.RawMessage:
		decoded, err := DecodeJSON(typed)
		if err != nil {
			return Definition{}, err
		}
		payload = decoded
	default:
		return Definition{}, fmt.Errorf("schema: unsupported definition type %T", raw)
	}
	if payload == nil {
		return Definition{}, ErrEmptyDefinition
	}

	def := Definition{Title: TextFrom(payload["title"])}
	if pages, ok := payload["pages"].([]any); ok {
		for idx, entry := range pages {
			page, ok := entry.(map[string]any)
			if !ok {
				return Definition{}, fmt.Errorf("schema: pages[%d] must be an object", idx)
			}
			def.Pages = append(def.Pages, Page{
				Name:     strings.TrimSpace(stringify(page["name"])),
				Elements: DecodeElements(page["elements"], fmt.Sprintf("pages/%d/elements", idx)),
			})
		}
		return def, nil
	}
	if _, ok := payload["elements"].([]any); ok {
		def.Pages = []Page{{Elements: DecodeElements(payload["elements"], "elements")}}
		return def, nil
	}
	return Definition{}, ErrNoPages
}

// DecodeJSON decodes a JSON object using json.Number for numeric values.
func DecodeJSON(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDefinition
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("schema: parse definition: %w", err)
	}
	return payload, nil
}
