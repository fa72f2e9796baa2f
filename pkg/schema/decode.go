package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrElementNotObject reports an element entry that is not a JSON object.
	ErrElementNotObject = errors.New("schema: element must be an object")
	// ErrMissingType reports an element without a "type" property.
	ErrMissingType = errors.New("schema: element type is required")
	// ErrMissingName reports an element without a "name" property.
	ErrMissingName = errors.New("schema: element name is required")
)

// Invalid stands in for an element that could not be decoded. It keeps
// whatever identity could be recovered so callers can report it in place.
type Invalid struct {
	Common
	Kind ElementType
	Path string
	Err  error
}

func (i *Invalid) Type() ElementType { return i.Kind }
func (i *Invalid) Base() Common      { return i.Common }
func (*Invalid) element()            {}

// DecodeElement converts one decoded JSON element into its typed variant.
// Malformed nested children are kept as *Invalid entries so siblings survive;
// a malformed element at path itself yields an *Invalid and the cause.
func DecodeElement(node any, path string) (Element, error) {
	payload, ok := node.(map[string]any)
	if !ok {
		err := fmt.Errorf("%w at %s", ErrElementNotObject, path)
		return &Invalid{Path: path, Err: err}, err
	}

	common := Common{
		Name:      strings.TrimSpace(stringify(payload["name"])),
		Title:     TextFrom(payload["title"]),
		VisibleIf: strings.TrimSpace(readString(payload, "visibleIf")),
	}
	kind := ElementType(strings.ToLower(strings.TrimSpace(readString(payload, "type"))))

	switch {
	case kind == "":
		err := fmt.Errorf("%w at %s", ErrMissingType, path)
		return &Invalid{Common: common, Path: path, Err: err}, err
	case common.Name == "":
		err := fmt.Errorf("%w at %s (type %s)", ErrMissingName, path, kind)
		return &Invalid{Common: common, Kind: kind, Path: path, Err: err}, err
	}

	switch kind {
	case TypeMultipleText:
		return &MultipleText{Common: common, Items: decodeTextItems(payload["items"])}, nil
	case TypeMatrix:
		return &Matrix{
			Common:  common,
			Rows:    decodeChoiceItems(payload["rows"]),
			Columns: decodeChoiceItems(payload["columns"]),
		}, nil
	case TypeMatrixDropdown:
		return &MatrixDropdown{
			Common:  common,
			Rows:    decodeChoiceItems(payload["rows"]),
			Columns: decodeColumns(payload["columns"]),
			Choices: decodeChoiceItems(payload["choices"]),
		}, nil
	case TypeMatrixDynamic:
		return &MatrixDynamic{
			Common:  common,
			Columns: decodeColumns(payload["columns"]),
			Choices: decodeChoiceItems(payload["choices"]),
		}, nil
	case TypePanel:
		return &Panel{Common: common, Elements: DecodeElements(payload["elements"], path+"/elements")}, nil
	case TypePanelDynamic:
		return &PanelDynamic{
			Common:           common,
			TemplateElements: DecodeElements(payload["templateElements"], path+"/templateElements"),
		}, nil
	default:
		return decodeLeaf(payload, common, kind), nil
	}
}

// DecodeElements decodes a JSON element list. Entries that fail to decode are
// kept as *Invalid so their position in the list is preserved.
func DecodeElements(node any, path string) []Element {
	list, ok := node.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	out := make([]Element, 0, len(list))
	for idx, entry := range list {
		el, _ := DecodeElement(entry, fmt.Sprintf("%s/%d", path, idx))
		out = append(out, el)
	}
	return out
}

func decodeLeaf(payload map[string]any, common Common, kind ElementType) *Leaf {
	leaf := &Leaf{
		Common:     common,
		Kind:       kind,
		InputType:  strings.ToLower(strings.TrimSpace(readString(payload, "inputType"))),
		Expression: strings.TrimSpace(readString(payload, "expression")),
		Validators: readList(payload, "validators"),
		HTML:       TextFrom(payload["html"]),
		HasOther:   readBool(payload, "hasOther") || readBool(payload, "showOtherItem"),
		OtherText:  TextFrom(payload["otherText"]),
		Choices:    decodeChoiceSource(payload, kind),
	}
	return leaf
}

func decodeTextItems(node any) []TextItem {
	list, ok := node.([]any)
	if !ok {
		return nil
	}
	out := make([]TextItem, 0, len(list))
	for _, entry := range list {
		payload, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(stringify(payload["name"]))
		if name == "" {
			continue
		}
		out = append(out, TextItem{
			Name:       name,
			Title:      TextFrom(payload["title"]),
			InputType:  strings.ToLower(strings.TrimSpace(readString(payload, "inputType"))),
			Validators: readList(payload, "validators"),
		})
	}
	return out
}

func decodeColumns(node any) []Column {
	list, ok := node.([]any)
	if !ok {
		return nil
	}
	out := make([]Column, 0, len(list))
	for _, entry := range list {
		payload, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(stringify(payload["name"]))
		if name == "" {
			continue
		}
		cellType := ElementType(strings.ToLower(strings.TrimSpace(readString(payload, "cellType"))))
		out = append(out, Column{
			Name:      name,
			Title:     TextFrom(payload["title"]),
			CellType:  cellType,
			InputType: strings.ToLower(strings.TrimSpace(readString(payload, "inputType"))),
			HasOther:  readBool(payload, "hasOther") || readBool(payload, "showOtherItem"),
			Choices:   decodeChoiceSource(payload, cellType),
		})
	}
	return out
}

func readString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key]
	if !ok {
		return ""
	}
	str, ok := value.(string)
	if !ok {
		return ""
	}
	return str
}

func readBool(payload map[string]any, key string) bool {
	switch typed := payload[key].(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(strings.TrimSpace(typed), "true")
	default:
		return false
	}
}

func readList(payload map[string]any, key string) []any {
	list, ok := payload[key].([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	return list
}
