package domain

import (
	"encoding/json"
	"fmt"
)

// kinds maps a wire type tag to its payload decoder. Registering a new kind
// is one entry here plus its payload type.
var kinds = map[Kind]func([]byte) (Content, error){
	KindHeading:       decodeAs[Heading],
	KindText:          decodeAs[Text],
	KindMetricCard:    decodeAs[MetricCard],
	KindImage:         decodeAs[Image],
	KindDivider:       decodeAs[Divider],
	KindSpacer:        decodeAs[Spacer],
	KindAlert:         decodeAs[Alert],
	KindDataView:      decodeAs[DataView],
	KindRow:           decodeAs[Row],
	KindColumn:        decodeAs[Column],
	KindFlexContainer: decodeAs[FlexContainer],
}

// IsKnownKind reports whether k has a registered payload.
func IsKnownKind(k Kind) bool {
	_, ok := kinds[k]
	return ok
}

func decodeAs[T Content](data []byte) (Content, error) {
	var c T
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// nodeHeader holds the fields shared by every node on the wire.
type nodeHeader struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Order  *float64 `json:"order"`
	Styles Style    `json:"styles,omitempty"`
}

var headerKeys = []string{"id", "type", "order", "styles"}

// MarshalJSON flattens the payload next to the common fields:
// {id, type, order, styles?, ...payload}.
func (n Node) MarshalJSON() ([]byte, error) {
	fields := map[string]any{}

	switch c := n.Content.(type) {
	case nil:
		return nil, fmt.Errorf("node %s: missing content", n.ID)
	case Unknown:
		for k, v := range c.Fields {
			fields[k] = v
		}
	default:
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", c.Kind(), err)
		}
		var payload map[string]json.RawMessage
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("flatten %s payload: %w", c.Kind(), err)
		}
		for k, v := range payload {
			fields[k] = v
		}
		if cont, ok := c.(Container); ok && cont.Nodes() == nil {
			fields["children"] = []Node{}
		}
	}

	fields["id"] = n.ID
	fields["type"] = string(n.Kind())
	fields["order"] = n.Order
	if len(n.Styles) > 0 {
		fields["styles"] = n.Styles
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes a node of any kind. Unrecognized types decode into
// Unknown with their fields preserved.
func (n *Node) UnmarshalJSON(data []byte) error {
	var h nodeHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("decode node: %w", err)
	}
	if h.Type == "" {
		return fmt.Errorf("node %q: missing type", h.ID)
	}

	node := Node{ID: h.ID, Styles: h.Styles}
	if h.Order != nil {
		node.Order = int(*h.Order)
	}

	if decode, ok := kinds[Kind(h.Type)]; ok {
		c, err := decode(data)
		if err != nil {
			return fmt.Errorf("decode %s node %q: %w", h.Type, h.ID, err)
		}
		node.Content = c
	} else {
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("decode node %q: %w", h.ID, err)
		}
		for _, k := range headerKeys {
			delete(fields, k)
		}
		node.Content = Unknown{Type: h.Type, Fields: fields}
	}

	*n = node
	return nil
}
