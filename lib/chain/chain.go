// Package chain runs ordered fallback strategies: the first strategy that
// produces a value wins.
package chain

// Strategy is one way of obtaining an Out from an In. Try reports false when
// it has nothing to offer, so the next strategy gets a turn.
type Strategy[In, Out any] struct {
	Name string
	Try  func(In) (Out, bool)
}

// Result carries the winning value and the name of the strategy that
// produced it. Name is empty when every strategy declined.
type Result[Out any] struct {
	Value Out
	Name  string
	OK    bool
}

// First evaluates strategies in order and stops at the first success.
func First[In, Out any](in In, strategies []Strategy[In, Out]) Result[Out] {
	for _, s := range strategies {
		if s.Try == nil {
			continue
		}
		v, ok := s.Try(in)
		if ok {
			return Result[Out]{Value: v, Name: s.Name, OK: true}
		}
	}
	return Result[Out]{}
}

// Or returns the winning value, or fallback when every strategy declined.
func (r Result[Out]) Or(fallback Out) Out {
	if r.OK {
		return r.Value
	}
	return fallback
}

// NonEmpty adapts a string-returning function into a Try that declines on
// the empty string.
func NonEmpty[In any](fn func(In) string) func(In) (string, bool) {
	return func(in In) (string, bool) {
		v := fn(in)
		return v, v != ""
	}
}
