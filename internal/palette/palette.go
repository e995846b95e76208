// Package palette builds new nodes for the sidebar items of the editor.
package palette

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"reports/internal/domain"
)

// ErrUnknownItem is returned for a palette item that does not exist.
var ErrUnknownItem = errors.New("unknown palette item")

// Item identifies a sidebar entry. Most items are node kinds; the two flex
// presets are extra entries that produce a container-flex node.
type Item string

const (
	ItemFlexRow    Item = "container-flex-row"
	ItemFlexColumn Item = "container-flex-col"
)

type Entry struct {
	Item  Item   `json:"item"`
	Label string `json:"label"`
}

// Entries lists the sidebar in display order.
var Entries = []Entry{
	{Item(domain.KindHeading), "Heading"},
	{Item(domain.KindText), "Text"},
	{Item(domain.KindMetricCard), "Metric Card"},
	{Item(domain.KindImage), "Image"},
	{Item(domain.KindDivider), "Divider"},
	{Item(domain.KindSpacer), "Spacer"},
	{Item(domain.KindAlert), "Alert"},
	{Item(domain.KindDataView), "Data View"},
	{Item(domain.KindRow), "Row"},
	{Item(domain.KindColumn), "Column"},
	{ItemFlexRow, "Flex Row"},
	{ItemFlexColumn, "Flex Column"},
}

// NewID returns a fresh node id of the form "<kind>-<8 hex chars>".
func NewID(kind domain.Kind) string {
	return fmt.Sprintf("%s-%s", kind, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NewPageID returns a fresh page id of the form "page-<8 hex chars>".
func NewPageID() string {
	return "page-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// New builds the default node for item with a fresh id.
func New(item Item) (domain.Node, error) {
	n, err := Template(item)
	if err != nil {
		return domain.Node{}, err
	}
	n.ID = NewID(n.Kind())
	return n, nil
}

// Template builds the default node for item without an id.
func Template(item Item) (domain.Node, error) {
	switch item {
	case Item(domain.KindHeading):
		return domain.Node{
			Content: domain.Heading{Content: "New Heading"},
			Styles:  domain.Style{"fontSize": 32.0, "fontWeight": "bold"},
		}, nil
	case Item(domain.KindText):
		return domain.Node{Content: domain.Text{Content: "Lorem ipsum dolor sit amet..."}}, nil
	case Item(domain.KindMetricCard):
		return domain.Node{Content: domain.MetricCard{Label: "Metric", Value: "000"}}, nil
	case Item(domain.KindImage):
		w, h := 300.0, 200.0
		return domain.Node{Content: domain.Image{
			Src: "https://via.placeholder.com/300x200", Alt: "Placeholder", Width: &w, Height: &h,
		}}, nil
	case Item(domain.KindDivider):
		return domain.Node{
			Content: domain.Divider{Thickness: 1},
			Styles:  domain.Style{"color": "#e5e7eb"},
		}, nil
	case Item(domain.KindSpacer):
		return domain.Node{Content: domain.Spacer{Height: 20}}, nil
	case Item(domain.KindAlert):
		return domain.Node{
			Content: domain.Alert{Variant: domain.AlertInfo, Title: "Info", Content: "This is an information alert."},
			Styles:  domain.Style{"marginBottom": 10.0},
		}, nil
	case Item(domain.KindDataView):
		return domain.Node{Content: sampleDataView()}, nil
	case Item(domain.KindRow):
		return domain.Node{
			Content: domain.Row{Children: []domain.Node{}, Gap: 10, AlignItems: "center", JustifyContent: "flex-start"},
			Styles:  boxStyle("#e5e7eb"),
		}, nil
	case Item(domain.KindColumn):
		return domain.Node{
			Content: domain.Column{Children: []domain.Node{}, Gap: 10, AlignItems: "stretch"},
			Styles:  boxStyle("#e5e7eb"),
		}, nil
	case Item(domain.KindFlexContainer):
		return domain.Node{Content: domain.FlexContainer{Children: []domain.Node{}, Direction: domain.FlexRow}}, nil
	case ItemFlexRow, ItemFlexColumn:
		dir := domain.FlexRow
		if item == ItemFlexColumn {
			dir = domain.FlexColumn
		}
		return domain.Node{
			Content: domain.FlexContainer{Children: []domain.Node{}, Direction: dir, Gap: 10},
			Styles: domain.Style{
				"width":      "100%",
				"paddingTop": 10.0, "paddingRight": 10.0, "paddingBottom": 10.0, "paddingLeft": 10.0,
				"borderStyle": "dashed", "borderWidth": 1.0, "borderColor": "#ccc",
			},
		}, nil
	}
	return domain.Node{}, fmt.Errorf("%w: %s", ErrUnknownItem, item)
}

func boxStyle(border string) domain.Style {
	return domain.Style{
		"width":       "100%",
		"padding":     10.0,
		"borderStyle": "dashed",
		"borderWidth": 1.0,
		"borderColor": border,
	}
}

func sampleDataView() domain.DataView {
	return domain.DataView{
		ViewType: domain.ViewTable,
		Data: []domain.Record{
			{"name": "Item A", "value": 400.0, "sales": 2400.0},
			{"name": "Item B", "value": 300.0, "sales": 1398.0},
			{"name": "Item C", "value": 200.0, "sales": 9800.0},
			{"name": "Item D", "value": 278.0, "sales": 3908.0},
		},
		Config: domain.DataViewConfig{
			XAxisKey:  "name",
			YAxisKeys: []string{"value"},
			Columns:   []domain.ColumnDef{{Key: "name", Label: "Name"}, {Key: "value", Label: "Value"}},
		},
	}
}
