// Package monthly parses report dates and buckets records by (year, month).
package monthly

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrNoDate      = errors.New("empty date")
	ErrInvalidDate = errors.New("invalid date")
)

// layouts are tried in order: DD/MM/YYYY, YYYY-MM-DD, DD-MM-YYYY. Day and
// month may have one or two digits.
var layouts = []string{"2/1/2006", "2006-1-2", "2-1-2006"}

// ParseDate parses report date text.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrNoDate
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Key identifies a calendar month.
type Key struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// KeyOf returns the month of t.
func KeyOf(t time.Time) Key {
	return Key{Year: t.Year(), Month: int(t.Month())}
}

// ParseKey parses date text straight into its month.
func ParseKey(s string) (Key, error) {
	t, err := ParseDate(s)
	if err != nil {
		return Key{}, err
	}
	return KeyOf(t), nil
}

// String formats the key as YYYY_MM.
func (k Key) String() string {
	return fmt.Sprintf("%04d_%02d", k.Year, k.Month)
}

// Before reports whether k is an earlier month than o.
func (k Key) Before(o Key) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// Groups holds items bucketed by month, each bucket in insertion order.
type Groups[T any] struct {
	buckets map[Key][]T
}

// Group buckets items with keyOf; items for which keyOf reports false are left out.
func Group[T any](items []T, keyOf func(T) (Key, bool)) *Groups[T] {
	g := &Groups[T]{buckets: make(map[Key][]T)}
	for _, it := range items {
		if k, ok := keyOf(it); ok {
			g.buckets[k] = append(g.buckets[k], it)
		}
	}
	return g
}

// Len returns the number of months.
func (g *Groups[T]) Len() int {
	return len(g.buckets)
}

// Count returns the number of grouped items.
func (g *Groups[T]) Count() int {
	n := 0
	for _, b := range g.buckets {
		n += len(b)
	}
	return n
}

// Get returns the items of month k.
func (g *Groups[T]) Get(k Key) []T {
	return g.buckets[k]
}

// Keys returns the months in chronological order.
func (g *Groups[T]) Keys() []Key {
	keys := make([]Key, 0, len(g.buckets))
	for k := range g.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// Descending returns the months most recent first.
func (g *Groups[T]) Descending() []Key {
	keys := g.Keys()
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys
}
