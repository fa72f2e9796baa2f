package schema

// ElementType names a questionnaire element variant as it appears in the
// definition's "type" property.
type ElementType string

const (
	TypeText           ElementType = "text"
	TypeExpression     ElementType = "expression"
	TypeComment        ElementType = "comment"
	TypeHTML           ElementType = "html"
	TypeFile           ElementType = "file"
	TypeRadioGroup     ElementType = "radiogroup"
	TypeDropdown       ElementType = "dropdown"
	TypeRating         ElementType = "rating"
	TypeBoolean        ElementType = "boolean"
	TypeCheckbox       ElementType = "checkbox"
	TypeTagbox         ElementType = "tagbox"
	TypeMultipleText   ElementType = "multipletext"
	TypeMatrix         ElementType = "matrix"
	TypeMatrixDropdown ElementType = "matrixdropdown"
	TypeMatrixDynamic  ElementType = "matrixdynamic"
	TypePanel          ElementType = "panel"
	TypePanelDynamic   ElementType = "paneldynamic"
)

// IsMultiSelect reports whether answers are lists of selected values. Those
// fields expand into one boolean field per choice.
func (t ElementType) IsMultiSelect() bool {
	return t == TypeCheckbox || t == TypeTagbox
}

// Element is a node of a form definition. The set of implementations is closed:
// *Leaf, *MultipleText, *Matrix, *MatrixDropdown, *MatrixDynamic, *Panel,
// *PanelDynamic and *Invalid for entries that failed to decode.
type Element interface {
	Type() ElementType
	Base() Common
	element()
}

// Common holds the attributes every element variant carries.
type Common struct {
	Name      string
	Title     Text
	VisibleIf string
}

// DisplayTitle resolves the title for the locale, falling back to the name.
func (c Common) DisplayTitle(locale string) string {
	return c.Title.Resolve(locale, c.Name)
}

// Leaf is a scalar question (text, choice group, rating, boolean, ...).
type Leaf struct {
	Common
	Kind       ElementType
	InputType  string
	Expression string
	Validators []any
	HTML       Text
	HasOther   bool
	OtherText  Text
	Choices    ChoiceSource
}

// MultipleText owns a list of text items answered together.
type MultipleText struct {
	Common
	Items []TextItem
}

// TextItem is one entry of a multipletext element.
type TextItem struct {
	Name       string
	Title      Text
	InputType  string
	Validators []any
}

// Matrix is a single-choice grid: every row is answered with one column value.
type Matrix struct {
	Common
	Rows    []ChoiceItem
	Columns []ChoiceItem
}

// MatrixDropdown is a fixed-row grid whose cells are typed questions.
type MatrixDropdown struct {
	Common
	Rows    []ChoiceItem
	Columns []Column
	Choices []ChoiceItem
}

// MatrixDynamic is a grid whose rows are added by the respondent. Only the
// first row is described by the definition.
type MatrixDynamic struct {
	Common
	Columns []Column
	Choices []ChoiceItem
}

// Column describes a cell question of a dropdown or dynamic matrix.
type Column struct {
	Name      string
	Title     Text
	CellType  ElementType
	InputType string
	HasOther  bool
	Choices   ChoiceSource
}

// Panel groups nested elements without changing their names.
type Panel struct {
	Common
	Elements []Element
}

// PanelDynamic repeats a template of elements once per respondent entry.
type PanelDynamic struct {
	Common
	TemplateElements []Element
}

func (l *Leaf) Type() ElementType { return l.Kind }
func (l *Leaf) Base() Common      { return l.Common }
func (*Leaf) element()            {}

func (m *MultipleText) Type() ElementType { return TypeMultipleText }
func (m *MultipleText) Base() Common      { return m.Common }
func (*MultipleText) element()            {}

func (m *Matrix) Type() ElementType { return TypeMatrix }
func (m *Matrix) Base() Common      { return m.Common }
func (*Matrix) element()            {}

func (m *MatrixDropdown) Type() ElementType { return TypeMatrixDropdown }
func (m *MatrixDropdown) Base() Common      { return m.Common }
func (*MatrixDropdown) element()            {}

func (m *MatrixDynamic) Type() ElementType { return TypeMatrixDynamic }
func (m *MatrixDynamic) Base() Common      { return m.Common }
func (*MatrixDynamic) element()            {}

func (p *Panel) Type() ElementType { return TypePanel }
func (p *Panel) Base() Common      { return p.Common }
func (*Panel) element()            {}

func (p *PanelDynamic) Type() ElementType { return TypePanelDynamic }
func (p *PanelDynamic) Base() Common      { return p.Common }
func (*PanelDynamic) element()            {}
