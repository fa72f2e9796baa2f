package schema

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ChoiceItem is one selectable value declared by a definition. Value is the
// trimmed string form of whatever the definition used (string, number, bool).
type ChoiceItem struct {
	Value string
	Text  Text
}

// Label resolves the display text, falling back to the value.
func (c ChoiceItem) Label(locale string) string {
	return c.Text.Resolve(locale, c.Value)
}

// ChoiceSource describes where the options of a choosable element come from.
// At most one of Items, Boolean and Remote is set.
type ChoiceSource struct {
	Items   []ChoiceItem
	Boolean *BooleanLabels
	Remote  *RemoteChoices
}

// Empty reports whether the source declares no options at all.
func (s ChoiceSource) Empty() bool {
	return len(s.Items) == 0 && s.Boolean == nil && s.Remote == nil
}

// BooleanLabels carries the captions of a boolean element's two states.
type BooleanLabels struct {
	True  Text
	False Text
}

// RemoteChoices is a code lookup served by a remote endpoint.
type RemoteChoices struct {
	URL       string
	Path      string
	ValueName string
	TitleName string
	Dynamic   bool
}

// ChoiceValue coerces a raw choice value to its canonical trimmed string.
func ChoiceValue(value any) string {
	return strings.TrimSpace(stringify(value))
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func decodeChoiceItems(raw any) []ChoiceItem {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	out := make([]ChoiceItem, 0, len(list))
	for _, entry := range list {
		item, ok := decodeChoiceItem(entry)
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

func decodeChoiceItem(entry any) (ChoiceItem, bool) {
	switch typed := entry.(type) {
	case map[string]any:
		raw, ok := typed["value"]
		if !ok {
			raw, ok = typed["name"]
		}
		if !ok {
			return ChoiceItem{}, false
		}
		value := ChoiceValue(raw)
		if value == "" {
			return ChoiceItem{}, false
		}
		text, ok := typed["text"]
		if !ok {
			text = typed["title"]
		}
		return ChoiceItem{Value: value, Text: TextFrom(text)}, true
	default:
		value := ChoiceValue(typed)
		if value == "" {
			return ChoiceItem{}, false
		}
		return ChoiceItem{Value: value}, true
	}
}

func decodeChoiceSource(payload map[string]any, kind ElementType) ChoiceSource {
	if kind == TypeBoolean {
		return ChoiceSource{Boolean: &BooleanLabels{
			True:  TextFrom(payload["labelTrue"]),
			False: TextFrom(payload["labelFalse"]),
		}}
	}
	if items := decodeChoiceItems(payload["choices"]); len(items) > 0 {
		return ChoiceSource{Items: items}
	}
	if items := decodeChoiceItems(payload["rateValues"]); len(items) > 0 {
		return ChoiceSource{Items: items}
	}
	for _, key := range []string{"choicesByUrl", "choicesByDynamicUrl"} {
		ref, ok := payload[key].(map[string]any)
		if !ok {
			continue
		}
		url := strings.TrimSpace(readString(ref, "url"))
		if url == "" {
			continue
		}
		return ChoiceSource{Remote: &RemoteChoices{
			URL:       url,
			Path:      firstString(readString(ref, "path"), readString(payload, "path")),
			ValueName: firstString(readString(ref, "valueName"), readString(payload, "valueName")),
			TitleName: firstString(readString(ref, "titleName"), readString(payload, "titleName")),
			Dynamic:   key == "choicesByDynamicUrl",
		}}
	}
	return ChoiceSource{}
}

func firstString(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
