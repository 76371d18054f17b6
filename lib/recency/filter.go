// Package recency turns weak date signals into one effective timestamp per
// item and keeps the items that fall inside a time window.
package recency

import (
	"slices"
	"time"
)

const DefaultWindow = 24 * time.Hour

// Resolve picks the effective timestamp: the listing hint wins over the
// detail page timestamp, nil means unknown.
func Resolve(hint, detail *time.Time) *time.Time {
	if hint != nil {
		return hint
	}
	return detail
}

type Options struct {
	// Now is the run start time the window is measured back from.
	Now    time.Time
	Window time.Duration
	// IncludeUndated keeps items without any timestamp, stamping them with
	// Now.
	IncludeUndated bool
}

type Dated[T any] struct {
	Item        T
	EffectiveAt time.Time
}

// Retain keeps the items whose effective timestamp is within the window and
// returns them newest first. Items with equal timestamps keep their input
// order.
func Retain[T any](items []T, effective func(T) *time.Time, opts Options) []Dated[T] {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := opts.Now.Add(-window)

	out := make([]Dated[T], 0, len(items))
	for _, item := range items {
		at := effective(item)
		if at == nil {
			if !opts.IncludeUndated {
				continue
			}
			now := opts.Now
			at = &now
		}
		if at.Before(cutoff) {
			continue
		}
		out = append(out, Dated[T]{Item: item, EffectiveAt: *at})
	}

	slices.SortStableFunc(out, func(a, b Dated[T]) int {
		return b.EffectiveAt.Compare(a.EffectiveAt)
	})
	return out
}
