// Package selection tracks which node ids the editor user has selected.
// Selections hold ids only; the editor prunes them after removals.
package selection

import (
	"slices"

	"github.com/samber/lo"
)

type State string

const (
	Empty    State = "empty"
	Single   State = "single"
	Multiple State = "multiple"
)

// Selection is an immutable set of node ids. The zero value is empty.
// Insertion order is kept for display but carries no meaning.
type Selection struct {
	ids []string
}

// Of builds a selection from ids, dropping blanks and duplicates.
func Of(ids ...string) Selection {
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return Selection{}
	}
	return Selection{ids: ids}
}

// Select replaces the selection with id, or clears it when id is empty.
func (s Selection) Select(id string) Selection {
	return Of(id)
}

// SelectMany replaces the selection wholesale.
func (s Selection) SelectMany(ids []string) Selection {
	return Of(ids...)
}

// Toggle adds id if absent and removes it if present.
func (s Selection) Toggle(id string) Selection {
	if id == "" {
		return s
	}
	if s.Has(id) {
		return s.Without(id)
	}
	return Of(append(slices.Clone(s.ids), id)...)
}

// Without removes the given ids.
func (s Selection) Without(ids ...string) Selection {
	return Of(lo.Without(s.ids, ids...)...)
}

// Retain keeps the ids for which keep returns true.
func (s Selection) Retain(keep func(id string) bool) Selection {
	return Of(lo.Filter(s.ids, func(id string, _ int) bool { return keep(id) })...)
}

func (s Selection) Has(id string) bool { return slices.Contains(s.ids, id) }

// IDs returns a copy of the selected ids.
func (s Selection) IDs() []string { return slices.Clone(s.ids) }

func (s Selection) Len() int { return len(s.ids) }

// Primary is the single selected id, or "" unless State is Single.
func (s Selection) Primary() string {
	if len(s.ids) == 1 {
		return s.ids[0]
	}
	return ""
}

func (s Selection) State() State {
	switch len(s.ids) {
	case 0:
		return Empty
	case 1:
		return Single
	default:
		return Multiple
	}
}
