package domain

// Kind identifies the variant of a component node. The string value is the
// wire "type" tag.
type Kind string

const (
	KindHeading       Kind = "heading"
	KindText          Kind = "text"
	KindMetricCard    Kind = "metric-card"
	KindImage         Kind = "image"
	KindDivider       Kind = "divider"
	KindSpacer        Kind = "spacer"
	KindAlert         Kind = "alert"
	KindDataView      Kind = "data-view"
	KindRow           Kind = "row"
	KindColumn        Kind = "column"
	KindFlexContainer Kind = "container-flex"
)

// Kinds lists every known kind in palette order.
var Kinds = []Kind{
	KindHeading, KindText, KindMetricCard, KindImage, KindDivider, KindSpacer,
	KindAlert, KindDataView, KindRow, KindColumn, KindFlexContainer,
}

// Node is one block of report content. Identity is the ID, unique across the
// whole document; Order is re-derived by the tree engine after every
// structural change and never trusted as input.
type Node struct {
	ID      string
	Order   int
	Styles  Style
	Content Content
}

// Content is the kind-specific payload of a node. The set of implementations
// is closed: only this package can add variants.
type Content interface {
	Kind() Kind
	content()
}

// Container is implemented by the payloads that own child nodes
// (Row, Column, FlexContainer).
type Container interface {
	Content
	Nodes() []Node
	WithNodes(children []Node) Container
}

// Kind returns the node's variant, or "" for a node without content.
func (n Node) Kind() Kind {
	if n.Content == nil {
		return ""
	}
	return n.Content.Kind()
}

// IsContainer reports whether the node may own children.
func (n Node) IsContainer() bool {
	_, ok := n.Content.(Container)
	return ok
}

// Children returns the node's children; nil for leaves.
func (n Node) Children() []Node {
	if c, ok := n.Content.(Container); ok {
		return c.Nodes()
	}
	return nil
}

// WithChildren returns a copy of n with its children replaced. ok is false
// when n is not a container.
func (n Node) WithChildren(children []Node) (Node, bool) {
	c, ok := n.Content.(Container)
	if !ok {
		return n, false
	}
	n.Content = c.WithNodes(children)
	return n, true
}

// ─────────────────────────────────────────────────────────────
// Leaf payloads
// ─────────────────────────────────────────────────────────────

type Heading struct {
	Content string `json:"content"`
}

type Text struct {
	Content string `json:"content"`
}

// TrendDirection is the arrow shown next to a metric.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

type Trend struct {
	Value     string         `json:"value"`
	Direction TrendDirection `json:"direction"`
}

type MetricCard struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Trend *Trend `json:"trend,omitempty"`
}

type Image struct {
	Src    string   `json:"src"`
	Alt    string   `json:"alt,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

type Divider struct {
	Thickness float64 `json:"thickness"`
}

type Spacer struct {
	Height float64 `json:"height"`
}

// AlertVariant selects the alert palette.
type AlertVariant string

const (
	AlertInfo    AlertVariant = "info"
	AlertSuccess AlertVariant = "success"
	AlertWarning AlertVariant = "warning"
	AlertError   AlertVariant = "error"
)

type Alert struct {
	Variant AlertVariant `json:"variant"`
	Title   string       `json:"title,omitempty"`
	Content string       `json:"content"`
}

// ─────────────────────────────────────────────────────────────
// Container payloads
// ─────────────────────────────────────────────────────────────

type Row struct {
	Children       []Node  `json:"children"`
	Gap            float64 `json:"gap,omitempty"`
	AlignItems     string  `json:"alignItems,omitempty"`
	JustifyContent string  `json:"justifyContent,omitempty"`
}

type Column struct {
	Children   []Node  `json:"children"`
	Gap        float64 `json:"gap,omitempty"`
	AlignItems string  `json:"alignItems,omitempty"`
}

// FlexDirection is the main axis of a flex container.
type FlexDirection string

const (
	FlexRow    FlexDirection = "row"
	FlexColumn FlexDirection = "column"
)

type FlexContainer struct {
	Children       []Node        `json:"children"`
	Direction      FlexDirection `json:"direction,omitempty"`
	AlignItems     string        `json:"alignItems,omitempty"`
	JustifyContent string        `json:"justifyContent,omitempty"`
	Gap            float64       `json:"gap,omitempty"`
}

func (c Row) Nodes() []Node           { return c.Children }
func (c Column) Nodes() []Node        { return c.Children }
func (c FlexContainer) Nodes() []Node { return c.Children }

func (c Row) WithNodes(children []Node) Container           { c.Children = children; return c }
func (c Column) WithNodes(children []Node) Container        { c.Children = children; return c }
func (c FlexContainer) WithNodes(children []Node) Container { c.Children = children; return c }

// Unknown holds a node whose wire type is not recognized. The raw fields are
// kept so the node survives a load/save cycle untouched.
type Unknown struct {
	Type   string
	Fields map[string]any
}

func (Heading) Kind() Kind       { return KindHeading }
func (Text) Kind() Kind          { return KindText }
func (MetricCard) Kind() Kind    { return KindMetricCard }
func (Image) Kind() Kind         { return KindImage }
func (Divider) Kind() Kind       { return KindDivider }
func (Spacer) Kind() Kind        { return KindSpacer }
func (Alert) Kind() Kind         { return KindAlert }
func (DataView) Kind() Kind      { return KindDataView }
func (Row) Kind() Kind           { return KindRow }
func (Column) Kind() Kind        { return KindColumn }
func (FlexContainer) Kind() Kind { return KindFlexContainer }
func (u Unknown) Kind() Kind     { return Kind(u.Type) }

func (Heading) content()       {}
func (Text) content()          {}
func (MetricCard) content()    {}
func (Image) content()         {}
func (Divider) content()       {}
func (Spacer) content()        {}
func (Alert) content()         {}
func (DataView) content()      {}
func (Row) content()           {}
func (Column) content()        {}
func (FlexContainer) content() {}
func (Unknown) content()       {}
