package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/pkg/choices"
	"github.com/goliatone/go-formcatalog/pkg/schema"
)

const (
	repetitionInfix  = "_r1_"
	repetitionSuffix = "_r1"
	commentSuffix    = "_comment"
	titleSeparator   = " - "
	tagSeparator     = " - "
)

// FormContext identifies the form an element belongs to.
type FormContext struct {
	Code        string
	Name        string
	Description string
}

// Flattener expands single definition elements into catalog records.
type Flattener struct {
	choices *choices.Session
	settings
}

// NewFlattener builds a Flattener resolving options through session.
func NewFlattener(session *choices.Session, opts ...Option) *Flattener {
	if session == nil {
		session = choices.NewResolver().Session()
	}
	return &Flattener{choices: session, settings: applyOptions(opts)}
}

type parentRef struct {
	code  string
	title string
}

// scope carries what a container hands down to its children.
type scope struct {
	tags       []string
	namePrefix string
	parent     *parentRef
}

func (s scope) with(tag string) scope {
	tags := make([]string, len(s.tags), len(s.tags)+1)
	copy(tags, s.tags)
	s.tags = append(tags, tag)
	return s
}

func (s scope) elementType(kind schema.ElementType) string {
	parts := append(append([]string(nil), s.tags...), string(kind))
	return strings.Join(parts, tagSeparator)
}

// leafSpec is a leaf question, either declared or synthesized by a container.
type leafSpec struct {
	code       string
	title      string
	kind       schema.ElementType
	inputType  string
	visibleIf  string
	expression string
	validators []any
	hasOther   bool
	otherText  schema.Text
	choices    schema.ChoiceSource
	parent     *parentRef
}

// Flatten expands el into catalog records in declaration order. A malformed
// element yields a placeholder record carrying the error; with strict
// elements enabled it yields an *ElementFlattenError instead.
func (f *Flattener) Flatten(ctx context.Context, el schema.Element, form FormContext) ([]FieldRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.flatten(ctx, el, form, scope{})
}

func (f *Flattener) flatten(ctx context.Context, el schema.Element, form FormContext, sc scope) ([]FieldRecord, error) {
	switch typed := el.(type) {
	case nil:
		return nil, nil
	case *schema.Invalid:
		return f.degraded(form, typed.Common, typed.Kind, typed.Path, sc, typed.Err)
	case *schema.Leaf:
		if typed.Kind == schema.TypeHTML && !f.includeHTML {
			return nil, nil
		}
		code := sc.namePrefix + typed.Name
		return f.emitLeaf(ctx, form, sc, leafSpec{
			code:       code,
			title:      typed.Title.Resolve(f.locale, code),
			kind:       typed.Kind,
			inputType:  typed.InputType,
			visibleIf:  typed.VisibleIf,
			expression: typed.Expression,
			validators: typed.Validators,
			hasOther:   typed.HasOther,
			otherText:  typed.OtherText,
			choices:    typed.Choices,
			parent:     sc.parent,
		}), nil
	case *schema.MultipleText:
		return f.flattenMultipleText(ctx, typed, form, sc), nil
	case *schema.Matrix:
		return f.flattenMatrix(ctx, typed, form, sc), nil
	case *schema.MatrixDropdown:
		return f.flattenMatrixDropdown(ctx, typed, form, sc), nil
	case *schema.MatrixDynamic:
		return f.flattenMatrixDynamic(ctx, typed, form, sc), nil
	case *schema.Panel:
		return f.flattenPanel(ctx, typed, form, sc)
	case *schema.PanelDynamic:
		return f.flattenPanelDynamic(ctx, typed, form, sc)
	default:
		return f.degraded(form, el.Base(), el.Type(), "", sc, errors.New("catalog: unsupported element"))
	}
}

func (f *Flattener) flattenMultipleText(ctx context.Context, m *schema.MultipleText, form FormContext, sc scope) []FieldRecord {
	code := sc.namePrefix + m.Name
	parent := &parentRef{code: code, title: m.Title.Resolve(f.locale, code)}
	inner := sc.with(string(schema.TypeMultipleText))

	var out []FieldRecord
	for _, item := range m.Items {
		itemCode := code + "_" + item.Name
		out = append(out, f.emitLeaf(ctx, form, inner, leafSpec{
			code:       itemCode,
			title:      item.Title.Resolve(f.locale, itemCode),
			kind:       schema.TypeText,
			inputType:  item.InputType,
			visibleIf:  m.VisibleIf,
			validators: item.Validators,
			parent:     parent,
		})...)
	}
	return out
}

func (f *Flattener) flattenMatrix(ctx context.Context, m *schema.Matrix, form FormContext, sc scope) []FieldRecord {
	code := sc.namePrefix + m.Name
	title := m.Title.Resolve(f.locale, code)
	parent := &parentRef{code: code, title: title}
	inner := sc.with(string(schema.TypeMatrix))

	var out []FieldRecord
	for _, row := range m.Rows {
		out = append(out, f.emitLeaf(ctx, form, inner, leafSpec{
			code:      code + "_" + row.Value,
			title:     title + titleSeparator + row.Label(f.locale),
			kind:      schema.TypeRadioGroup,
			visibleIf: m.VisibleIf,
			choices:   schema.ChoiceSource{Items: m.Columns},
			parent:    parent,
		})...)
	}
	return out
}

func (f *Flattener) flattenMatrixDropdown(ctx context.Context, m *schema.MatrixDropdown, form FormContext, sc scope) []FieldRecord {
	code := sc.namePrefix + m.Name
	title := m.Title.Resolve(f.locale, code)
	inner := sc.with(string(schema.TypeMatrixDropdown))

	var out []FieldRecord
	for _, row := range m.Rows {
		parent := &parentRef{
			code:  code + "_" + row.Value,
			title: title + titleSeparator + row.Label(f.locale),
		}
		for _, col := range m.Columns {
			out = append(out, f.emitLeaf(ctx, form, inner, f.cellSpec(col, parent, m.Choices, m.VisibleIf))...)
		}
	}
	return out
}

func (f *Flattener) flattenMatrixDynamic(ctx context.Context, m *schema.MatrixDynamic, form FormContext, sc scope) []FieldRecord {
	code := sc.namePrefix + m.Name
	title := m.Title.Resolve(f.locale, code)
	inner := sc.with(string(schema.TypeMatrixDynamic))
	row := &parentRef{code: code + repetitionSuffix, title: title}

	var out []FieldRecord
	for _, col := range m.Columns {
		out = append(out, f.emitLeaf(ctx, form, inner, f.cellSpec(col, row, m.Choices, m.VisibleIf))...)
	}
	return out
}

// cellSpec builds the leaf of one matrix cell. Cells default to dropdowns
// and inherit the matrix choices when their column declares none.
func (f *Flattener) cellSpec(col schema.Column, row *parentRef, matrixChoices []schema.ChoiceItem, visibleIf string) leafSpec {
	kind := col.CellType
	if kind == "" {
		kind = schema.TypeDropdown
	}
	src := col.Choices
	if src.Empty() && isChoosable(kind) && len(matrixChoices) > 0 {
		src = schema.ChoiceSource{Items: matrixChoices}
	}
	if kind == schema.TypeBoolean && src.Boolean == nil {
		src = schema.ChoiceSource{Boolean: &schema.BooleanLabels{}}
	}
	return leafSpec{
		code:      row.code + "_" + col.Name,
		title:     row.title + titleSeparator + col.Title.Resolve(f.locale, col.Name),
		kind:      kind,
		inputType: col.InputType,
		visibleIf: visibleIf,
		hasOther:  col.HasOther,
		choices:   src,
		parent:    row,
	}
}

func (f *Flattener) flattenPanel(ctx context.Context, p *schema.Panel, form FormContext, sc scope) ([]FieldRecord, error) {
	code := sc.namePrefix + p.Name
	inner := sc.with(string(schema.TypePanel))
	inner.parent = &parentRef{code: code, title: p.Title.Resolve(f.locale, code)}
	return f.flattenChildren(ctx, p.Elements, form, inner)
}

func (f *Flattener) flattenPanelDynamic(ctx context.Context, p *schema.PanelDynamic, form FormContext, sc scope) ([]FieldRecord, error) {
	code := sc.namePrefix + p.Name
	inner := sc.with(string(schema.TypePanelDynamic))
	inner.namePrefix = code + repetitionInfix
	inner.parent = &parentRef{code: code + repetitionSuffix, title: p.Title.Resolve(f.locale, code)}
	return f.flattenChildren(ctx, p.TemplateElements, form, inner)
}

func (f *Flattener) flattenChildren(ctx context.Context, children []schema.Element, form FormContext, sc scope) ([]FieldRecord, error) {
	var out []FieldRecord
	for _, child := range children {
		records, err := f.flatten(ctx, child, form, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

// emitLeaf produces the records of one leaf question: the base record, one
// record per option (multi-select options become their own boolean fields),
// and the free-text companion when "other" is enabled.
func (f *Flattener) emitLeaf(ctx context.Context, form FormContext, sc scope, spec leafSpec) []FieldRecord {
	base := FieldRecord{
		FormCode:            form.Code,
		FormName:            form.Name,
		FormDesc:            form.Description,
		FieldCode:           spec.code,
		FieldTitle:          spec.title,
		ParentFieldCode:     spec.code,
		ParentFieldTitle:    spec.title,
		ElementType:         sc.elementType(spec.kind),
		DataType:            DataTypeFor(spec.kind, spec.inputType),
		VisibilityCondition: spec.visibleIf,
		Expression:          spec.expression,
		Validators:          spec.validators,
		RepetitionIndex:     1,
	}
	if spec.parent != nil {
		base.ParentFieldCode = spec.parent.code
		base.ParentFieldTitle = spec.parent.title
	}

	opts := f.resolveChoices(ctx, form, spec)

	out := make([]FieldRecord, 0, len(opts)+2)
	switch {
	case len(opts) == 0:
		out = append(out, base)
	case spec.kind.IsMultiSelect():
		for _, opt := range opts {
			rec := base.clone()
			rec.FieldCode = spec.code + "_" + opt.Value
			rec.FieldTitle = spec.title + titleSeparator + opt.Text
			rec.OptionValue = opt.Value
			rec.OptionText = opt.Text
			out = append(out, rec)
		}
	default:
		for _, opt := range opts {
			rec := base.clone()
			rec.OptionValue = opt.Value
			rec.OptionText = opt.Text
			out = append(out, rec)
		}
	}

	if spec.hasOther {
		comment := base.clone()
		comment.FieldCode = spec.code + commentSuffix
		comment.FieldTitle = spec.title + titleSeparator + spec.otherText.Resolve(f.locale, "other")
		comment.ElementType = sc.elementType(schema.TypeText)
		comment.DataType = DataTypeString
		out = append(out, comment)
	}
	return out
}

func (f *Flattener) resolveChoices(ctx context.Context, form FormContext, spec leafSpec) []choices.Choice {
	if spec.choices.Empty() {
		return nil
	}
	opts, err := f.choices.Resolve(ctx, spec.choices)
	if err != nil {
		f.logger.Warn("choices unavailable, field kept without options",
			zap.String("form", form.Code),
			zap.String("field", spec.code),
			zap.String("element", string(spec.kind)),
			zap.Error(err))
	}
	return opts
}

func (f *Flattener) degraded(form FormContext, common schema.Common, kind schema.ElementType, path string, sc scope, cause error) ([]FieldRecord, error) {
	code := sc.namePrefix + common.Name
	flattenErr := &ElementFlattenError{FormCode: form.Code, Element: code, Path: path, Err: cause}
	if f.strict {
		return nil, flattenErr
	}
	f.logger.Warn("element skipped",
		zap.String("form", form.Code),
		zap.String("field", code),
		zap.String("element", string(kind)),
		zap.String("path", path),
		zap.Error(cause))

	if kind == "" {
		kind = "invalid"
	}
	rec := FieldRecord{
		FormCode:         form.Code,
		FormName:         form.Name,
		FormDesc:         form.Description,
		FieldCode:        code,
		FieldTitle:       common.Title.Resolve(f.locale, code),
		ParentFieldCode:  code,
		ParentFieldTitle: common.Title.Resolve(f.locale, code),
		ElementType:      sc.elementType(kind),
		DataType:         DataTypeString,
		RepetitionIndex:  1,
		Error:            flattenErr.Error(),
	}
	if sc.parent != nil {
		rec.ParentFieldCode = sc.parent.code
		rec.ParentFieldTitle = sc.parent.title
	}
	return []FieldRecord{rec}, nil
}

func isChoosable(kind schema.ElementType) bool {
	switch kind {
	case schema.TypeRadioGroup, schema.TypeDropdown, schema.TypeCheckbox, schema.TypeTagbox, schema.TypeRating:
		return true
	default:
		return false
	}
}
