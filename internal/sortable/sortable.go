// Package sortable provides column sorting for list and item collections:
// a stable sort over an arbitrary column key plus the click-to-toggle
// direction state machine the views share.
package sortable

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Value extracts the column value for a key from one element. Keys arrive
// display-style ("last updated"); they are normalized to field names
// ("last_updated") before lookup.
type Value[T any] func(element T, key string) any

// Sort returns a sorted copy of items by the given column key. Strings
// compare case-insensitively, except that two date-parseable strings
// compare as timestamps. An empty key returns the input unchanged.
func Sort[T any](items []T, key string, ascending bool, value Value[T]) []T {
	if key == "" {
		return items
	}
	normalized := NormalizeKey(key)

	out := make([]T, len(items))
	copy(out, items)

	sort.SliceStable(out, func(i, j int) bool {
		cmp := compare(value(out[i], normalized), value(out[j], normalized))
		if ascending {
			return cmp < 0
		}
		return cmp > 0
	})
	return out
}

// NormalizeKey maps a display column name to its field name.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(key, " ", "_")
}

// State tracks the active sort column and direction. Toggling the active
// column reverses direction; toggling a new column resets to ascending.
type State struct {
	Key       string
	Ascending bool
}

func (s *State) Toggle(key string) {
	if s.Key == key {
		s.Ascending = !s.Ascending
		return
	}
	s.Key = key
	s.Ascending = true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(value string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func compare(a, b any) int {
	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr && bIsStr {
		if aTime, ok := parseTime(aStr); ok {
			if bTime, ok := parseTime(bStr); ok {
				return aTime.Compare(bTime)
			}
		}
		return strings.Compare(strings.ToLower(aStr), strings.ToLower(bStr))
	}

	if aTime, ok := a.(time.Time); ok {
		if bTime, ok := b.(time.Time); ok {
			return aTime.Compare(bTime)
		}
	}

	aNum, aIsNum := asFloat(a)
	bNum, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
