// Package schema is the on-disk and on-the-wire contract of a report
// layout: raw layout JSON, the versioned envelope, and migration of the
// single-page legacy shape.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"reports/internal/doctree"
	"reports/internal/domain"
)

// CurrentVersion is the envelope version written by EncodeEnvelope.
// Version 1 is the legacy shape with a top-level components list.
const CurrentVersion = 2

var (
	// ErrMalformed marks input that is not a layout at all. The caller's
	// document stays as it was.
	ErrMalformed = errors.New("malformed layout")
	// ErrUnsupportedVersion marks an envelope newer than this build.
	ErrUnsupportedVersion = errors.New("unsupported layout version")
	// ErrCorrupt marks a layout that parsed but breaks the document
	// invariants beyond what migration repairs.
	ErrCorrupt = errors.New("corrupt layout")
)

// Envelope wraps a persisted layout with its schema version.
type Envelope struct {
	Version int             `json:"version"`
	Layout  json.RawMessage `json:"layout"`
}

// Encode returns the raw layout JSON of doc.
func Encode(doc domain.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	return data, nil
}

// EncodeIndent is Encode with two-space indentation, for exported files.
func EncodeIndent(doc domain.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	return data, nil
}

// Decode parses raw layout JSON in the current or the legacy shape. The
// result has dense order values and passes doctree.Validate.
func Decode(data []byte) (domain.Document, error) {
	migrated, _, err := Migrate(data)
	if err != nil {
		return domain.Document{}, err
	}

	var doc domain.Document
	if err := json.Unmarshal(migrated, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.PageSettings.Size == "" {
		doc.PageSettings = domain.DefaultPageSettings()
	}
	if doc.PageSettings.Orientation == "" {
		doc.PageSettings.Orientation = domain.Portrait
	}

	doc = doctree.Normalize(doc)
	if err := doctree.Validate(doc); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return doc, nil
}

// Migrate rewrites a legacy layout ({title, pageSettings, components}) into
// the paged shape by wrapping components into a single page. A layout that
// already has pages is returned untouched with changed=false, so migrating
// twice is the same as migrating once.
func Migrate(data []byte) (out []byte, changed bool, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, false, fmt.Errorf("%w: layout must be an object", ErrMalformed)
	}

	if pages, ok := fields["pages"]; ok {
		if !isArray(pages) {
			return nil, false, fmt.Errorf("%w: pages is not an array", ErrMalformed)
		}
		return data, false, nil
	}

	comps, ok := fields["components"]
	if !ok {
		return nil, false, fmt.Errorf("%w: missing pages or components array", ErrMalformed)
	}
	if !isArray(comps) {
		return nil, false, fmt.Errorf("%w: components is not an array", ErrMalformed)
	}

	page, err := json.Marshal(map[string]json.RawMessage{
		"id":         json.RawMessage(fmt.Sprintf("%q", domain.DefaultPageID)),
		"name":       json.RawMessage(fmt.Sprintf("%q", domain.DefaultPageName)),
		"components": comps,
	})
	if err != nil {
		return nil, false, fmt.Errorf("wrap legacy components: %w", err)
	}
	delete(fields, "components")
	fields["pages"] = json.RawMessage("[" + string(page) + "]")

	out, err = json.Marshal(fields)
	if err != nil {
		return nil, false, fmt.Errorf("encode migrated layout: %w", err)
	}
	return out, true, nil
}

// IsLegacy reports whether data is a layout in the single-page shape.
func IsLegacy(data []byte) bool {
	_, changed, err := Migrate(data)
	return err == nil && changed
}

// EncodeEnvelope wraps doc with CurrentVersion.
func EncodeEnvelope(doc domain.Document) ([]byte, error) {
	layout, err := Encode(doc)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(Envelope{Version: CurrentVersion, Layout: layout})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope reads a versioned envelope. Older versions are migrated
// before validation. A bare layout without an envelope is accepted and
// treated by shape.
func DecodeEnvelope(data []byte) (domain.Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, ok := probe["layout"]; !ok {
		return Decode(data)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Version > CurrentVersion {
		return domain.Document{}, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, env.Version, CurrentVersion)
	}
	return Decode(env.Layout)
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
