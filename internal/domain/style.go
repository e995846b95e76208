package domain

import (
	"maps"
	"strconv"
	"strings"
)

// Style is the sparse presentation record of a node: typography, spacing,
// appearance and sizing. An absent key means "inherit the default".
// width and height hold either a number (pixels) or a CSS-like string.
type Style map[string]any

// Common style keys.
const (
	StyleWidth        = "width"
	StyleHeight       = "height"
	StyleMarginTop    = "marginTop"
	StyleMarginBottom = "marginBottom"
	StylePaddingTop   = "paddingTop"
	StylePaddingBot   = "paddingBottom"
	StyleFontSize     = "fontSize"
	StyleFontWeight   = "fontWeight"
	StyleColor        = "color"
	StyleBackground   = "backgroundColor"
	StyleBorderStyle  = "borderStyle"
	StyleBorderWidth  = "borderWidth"
	StyleBorderColor  = "borderColor"
	StyleBorderRadius = "borderRadius"
)

// Clone returns a shallow copy; nil stays nil.
func (s Style) Clone() Style {
	if s == nil {
		return nil
	}
	return maps.Clone(s)
}

// Merge returns a new Style with patch applied key by key. A nil value in
// patch deletes the key. Neither receiver nor patch is modified.
func (s Style) Merge(patch Style) Style {
	if len(patch) == 0 {
		return s.Clone()
	}
	out := make(Style, len(s)+len(patch))
	maps.Copy(out, s)
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Number returns the numeric value stored under key.
func (s Style) Number(key string) (float64, bool) {
	return toNumber(s[key])
}

// Dimension returns a pixel value for width/height-like keys. Numbers and
// pure numeric strings, optionally suffixed with "px", resolve; percentages,
// "auto" and anything else report ok=false.
func (s Style) Dimension(key string) (float64, bool) {
	return ParseDimension(s[key])
}

// ParseDimension resolves a raw dimension value to pixels.
func ParseDimension(v any) (float64, bool) {
	if str, ok := v.(string); ok {
		str = strings.TrimSpace(str)
		str = strings.TrimSuffix(str, "px")
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return 0, false
		}
		v = f
	}
	n, ok := toNumber(v)
	if !ok || n < 0 {
		return 0, false
	}
	return n, true
}
