package export

import (
	"fmt"
	"sort"
	"strings"

	"reports/internal/domain"
)

// BlockKind is the render primitive an exporter draws for one node.
type BlockKind string

const (
	BlockHeading     BlockKind = "heading"
	BlockText        BlockKind = "text"
	BlockMetric      BlockKind = "metric"
	BlockImage       BlockKind = "image"
	BlockDivider     BlockKind = "divider"
	BlockSpacer      BlockKind = "spacer"
	BlockAlert       BlockKind = "alert"
	BlockTable       BlockKind = "table"
	BlockChart       BlockKind = "chart"
	BlockBox         BlockKind = "box"
	BlockPlaceholder BlockKind = "placeholder"
)

// Block is one renderer-ready element. Style only holds values a layout
// engine without CSS units can take: dimensions are already pixels.
type Block struct {
	NodeID    string                 `json:"nodeId"`
	Kind      BlockKind              `json:"kind"`
	Text      string                 `json:"text,omitempty"`
	Label     string                 `json:"label,omitempty"`
	Src       string                 `json:"src,omitempty"`
	Variant   string                 `json:"variant,omitempty"`
	Direction string                 `json:"direction,omitempty"`
	Gap       float64                `json:"gap,omitempty"`
	Style     map[string]any         `json:"style,omitempty"`
	Columns   []domain.ColumnDef     `json:"columns,omitempty"`
	Rows      [][]string             `json:"rows,omitempty"`
	Formulas  []domain.FormulaResult `json:"formulas,omitempty"`
	Trend     *domain.Trend          `json:"trend,omitempty"`
	Children  []Block                `json:"children,omitempty"`
}

// PDFPage is one output page. Empty pages keep a placeholder line so the
// page count matches the editor.
type PDFPage struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Styles *domain.PageStyles `json:"styles,omitempty"`
	Empty  bool               `json:"empty"`
	Blocks []Block            `json:"blocks"`
}

// PDFPlan is the full input handed to a PDF encoder.
type PDFPlan struct {
	Title    string              `json:"title"`
	Width    float64             `json:"width"`
	Height   float64             `json:"height"`
	Settings domain.PageSettings `json:"settings"`
	Pages    []PDFPage           `json:"pages"`
}

// MsgImageUnavailable replaces images the PDF encoder cannot load.
const MsgImageUnavailable = "Image not available in PDF. Use HTTP(S) URLs or data URIs (base64)."

// SanitizeDimension converts a width/height style value to pixels.
// Numbers pass through, numeric strings (optionally "px") are parsed and
// anything else ("100%", "auto") is reported as unset.
func SanitizeDimension(v any) (float64, bool) {
	return domain.ParseDimension(v)
}

// PlanPDF maps every node of doc to a render block.
func PlanPDF(doc domain.Document) PDFPlan {
	w, h := doc.PageSettings.Dimensions()
	plan := PDFPlan{
		Title:    doc.Title,
		Width:    w,
		Height:   h,
		Settings: doc.PageSettings,
		Pages:    make([]PDFPage, 0, len(doc.Pages)),
	}
	for i, p := range doc.Pages {
		page := PDFPage{ID: p.ID, Name: p.Name, Styles: p.Styles}
		for _, n := range p.Components {
			page.Blocks = append(page.Blocks, planNode(n))
		}
		if len(p.Components) == 0 {
			name := p.Name
			if name == "" {
				name = fmt.Sprintf("Page %d", i+1)
			}
			page.Empty = true
			page.Blocks = []Block{{Kind: BlockPlaceholder, Text: name + " (empty)"}}
		}
		plan.Pages = append(plan.Pages, page)
	}
	return plan
}

func planNode(n domain.Node) Block {
	b := Block{NodeID: n.ID, Style: sanitizeStyle(n.Styles)}

	switch c := n.Content.(type) {
	case domain.Heading:
		b.Kind, b.Text = BlockHeading, c.Content
	case domain.Text:
		b.Kind, b.Text = BlockText, c.Content
	case domain.MetricCard:
		b.Kind, b.Label, b.Text, b.Trend = BlockMetric, c.Label, c.Value, c.Trend
	case domain.Image:
		if !loadableImage(c.Src) {
			return Block{NodeID: n.ID, Kind: BlockPlaceholder, Text: MsgImageUnavailable, Style: b.Style}
		}
		b.Kind, b.Src, b.Label = BlockImage, c.Src, c.Alt
		if _, ok := b.Style[domain.StyleWidth]; !ok && c.Width != nil {
			b.setStyle(domain.StyleWidth, *c.Width)
		}
		if _, ok := b.Style[domain.StyleHeight]; !ok && c.Height != nil {
			b.setStyle(domain.StyleHeight, *c.Height)
		}
	case domain.Divider:
		b.Kind = BlockDivider
		b.Gap = c.Thickness
		if b.Gap <= 0 {
			b.Gap = 1
		}
	case domain.Spacer:
		b.Kind, b.Gap = BlockSpacer, c.Height
	case domain.Alert:
		b.Kind, b.Variant, b.Text = BlockAlert, string(c.Variant), c.Content
		if b.Variant == "" {
			b.Variant = string(domain.AlertInfo)
		}
		b.Label = c.Title
		if b.Label == "" {
			b.Label = strings.ToUpper(b.Variant)
		}
	case domain.DataView:
		planDataView(&b, c)
	case domain.Row:
		b.Kind, b.Direction, b.Gap = BlockBox, string(domain.FlexRow), c.Gap
		b.Children = planNodes(c.Children)
	case domain.Column:
		b.Kind, b.Direction, b.Gap = BlockBox, string(domain.FlexColumn), c.Gap
		b.Children = planNodes(c.Children)
	case domain.FlexContainer:
		b.Kind, b.Direction, b.Gap = BlockBox, string(c.Direction), c.Gap
		if b.Direction == "" {
			b.Direction = string(domain.FlexColumn)
		}
		b.Children = planNodes(c.Children)
	case domain.Unknown:
		b.Kind, b.Text = BlockPlaceholder, fmt.Sprintf("Unsupported component %q", c.Type)
	default:
		b.Kind, b.Text = BlockPlaceholder, "Unsupported component"
	}
	return b
}

func planNodes(list []domain.Node) []Block {
	out := make([]Block, 0, len(list))
	for _, n := range list {
		out = append(out, planNode(n))
	}
	return out
}

func planDataView(b *Block, dv domain.DataView) {
	b.Label = dv.Title
	b.Formulas = dv.Results()
	if dv.ViewType != domain.ViewTable && dv.ViewType != "" {
		b.Kind, b.Variant = BlockChart, string(dv.ViewType)
	} else {
		b.Kind = BlockTable
	}

	b.Columns = dv.Config.Columns
	if len(b.Columns) == 0 && len(dv.Data) > 0 {
		keys := make([]string, 0, len(dv.Data[0]))
		for k := range dv.Data[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.Columns = append(b.Columns, domain.ColumnDef{Key: k, Label: k})
		}
	}
	for _, r := range dv.Data {
		row := make([]string, len(b.Columns))
		for i, col := range b.Columns {
			if v, ok := r[col.Key]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		b.Rows = append(b.Rows, row)
	}
}

// loadableImage reports whether a PDF encoder can fetch src. Blob and
// relative URLs cannot be resolved outside the editor.
func loadableImage(src string) bool {
	return strings.HasPrefix(src, "http://") ||
		strings.HasPrefix(src, "https://") ||
		strings.HasPrefix(src, "data:")
}

func sanitizeStyle(s domain.Style) map[string]any {
	if len(s) == 0 {
		return nil
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		if v == nil {
			continue
		}
		switch k {
		case domain.StyleWidth, domain.StyleHeight:
			if px, ok := SanitizeDimension(v); ok {
				out[k] = px
			}
		default:
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (b *Block) setStyle(key string, v any) {
	if b.Style == nil {
		b.Style = map[string]any{}
	}
	b.Style[key] = v
}
