package placement

import (
	"math"

	"reports/internal/domain"
)

// Measurer reports how much vertical space a page's content occupies, in
// CSS pixels. The desktop editor backs this with real layout measurements;
// EstimateMeasurer is the deterministic fallback.
type Measurer interface {
	OccupiedHeight(page domain.Page) float64
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(page domain.Page) float64

func (f MeasureFunc) OccupiedHeight(page domain.Page) float64 { return f(page) }

// Fixed per-kind estimates, in pixels.
const (
	estHeading     = 48
	estText        = 72
	estMetricCard  = 110
	estImage       = 200
	estDividerPad  = 16
	estAlert       = 80
	estChart       = 300
	estTableHeader = 56
	estTableRow    = 36
	estFormulaRow  = 28
	estEmptyBox    = 60
	estUnknown     = 40
)

// EstimateMeasurer sums fixed per-kind heights. It is a heuristic: text
// wrapping and fonts are not modeled, so a page it accepts can still
// overflow when printed.
type EstimateMeasurer struct{}

func (EstimateMeasurer) OccupiedHeight(page domain.Page) float64 {
	var h float64
	for _, n := range page.Components {
		h += NodeHeight(n)
	}
	if page.Styles != nil && page.Styles.Padding != nil {
		h += 2 * *page.Styles.Padding
	}
	return h
}

// NodeHeight estimates the outer height of one node including its
// vertical margins and padding. An explicit pixel height style wins over
// the per-kind estimate.
func NodeHeight(n domain.Node) float64 {
	body, ok := n.Styles.Dimension(domain.StyleHeight)
	if !ok {
		body = contentHeight(n) + verticalPadding(n.Styles)
	}
	return body + verticalMargin(n.Styles)
}

func contentHeight(n domain.Node) float64 {
	switch c := n.Content.(type) {
	case domain.Heading:
		if fs, ok := n.Styles.Number(domain.StyleFontSize); ok {
			return math.Max(fs*1.5, 24)
		}
		return estHeading
	case domain.Text:
		return estText
	case domain.MetricCard:
		return estMetricCard
	case domain.Image:
		if c.Height != nil && *c.Height > 0 {
			return *c.Height
		}
		return estImage
	case domain.Divider:
		return c.Thickness + estDividerPad
	case domain.Spacer:
		return c.Height
	case domain.Alert:
		return estAlert
	case domain.DataView:
		return dataViewHeight(c)
	case domain.Row:
		return stackHeight(c.Children, false, c.Gap)
	case domain.Column:
		return stackHeight(c.Children, true, c.Gap)
	case domain.FlexContainer:
		return stackHeight(c.Children, c.Direction == domain.FlexColumn, c.Gap)
	default:
		return estUnknown
	}
}

func dataViewHeight(v domain.DataView) float64 {
	var h float64
	if v.ViewType == domain.ViewTable || v.ViewType == "" {
		h = estTableHeader + float64(len(v.Data))*estTableRow
	} else {
		h = estChart
	}
	return h + float64(len(v.Formulas))*estFormulaRow
}

// stackHeight is the sum of children for vertical stacks and the tallest
// child for horizontal ones.
func stackHeight(children []domain.Node, vertical bool, gap float64) float64 {
	if len(children) == 0 {
		return estEmptyBox
	}
	var h float64
	for _, c := range children {
		ch := NodeHeight(c)
		if vertical {
			h += ch
		} else {
			h = math.Max(h, ch)
		}
	}
	if vertical {
		h += gap * float64(len(children)-1)
	}
	return h
}

func verticalPadding(s domain.Style) float64 {
	top, okTop := s.Number(domain.StylePaddingTop)
	bot, okBot := s.Number(domain.StylePaddingBot)
	if !okTop && !okBot {
		if p, ok := s.Number("padding"); ok {
			return 2 * p
		}
	}
	return top + bot
}

func verticalMargin(s domain.Style) float64 {
	top, _ := s.Number(domain.StyleMarginTop)
	bot, _ := s.Number(domain.StyleMarginBottom)
	return top + bot
}
