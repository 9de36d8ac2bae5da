// Package navigation resolves the neighbours of a show inside an ordered
// collection, for Prev/Next links on the detail page.
package navigation

import (
	"math"
	"strconv"
	"strings"
)

// Identified is anything that carries a numeric show id.
type Identified interface {
	ShowID() int64
}

// Neighbors holds the items directly before and after a target.
// A nil field means there is no such item.
type Neighbors[T Identified] struct {
	Previous *T
	Next     *T
}

// maxExactFloat is 2^53; from there on float64 no longer holds every integer.
const maxExactFloat = 1 << 53

// ParseID parses a show id as it arrives from a route parameter.
// Integral decimal forms like "2.0" are accepted as long as a float64 holds
// them exactly; anything else that is not a whole number in int64 range is
// rejected.
func ParseID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if math.Abs(f) >= maxExactFloat {
		return 0, false
	}
	return int64(f), true
}

// Resolve finds the neighbours of the item whose id equals target.
// An unparsable target resolves to no neighbours.
func Resolve[T Identified](items []T, target string) Neighbors[T] {
	id, ok := ParseID(target)
	if !ok {
		return Neighbors[T]{}
	}
	return ResolveID(items, id)
}

// ResolveID finds the neighbours of the first item with the given id.
// The returned pointers refer to copies, never into items.
func ResolveID[T Identified](items []T, id int64) Neighbors[T] {
	var n Neighbors[T]
	if len(items) == 0 {
		return n
	}

	idx := -1
	for i, item := range items {
		if item.ShowID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return n
	}

	if idx > 0 {
		prev := items[idx-1]
		n.Previous = &prev
	}
	if idx < len(items)-1 {
		next := items[idx+1]
		n.Next = &next
	}
	return n
}
