// Package identity derives stable ids for case URLs and remembers which ids
// previous runs have emitted.
package identity

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"slices"
)

// Fingerprint is the stable opaque id of a canonical key, the hex SHA-1 of
// its UTF-8 bytes.
func Fingerprint(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Set is a set of previously emitted ids.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id string) {
	s[id] = struct{}{}
}

// Sorted returns the ids in ascending order, never nil.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Store loads and persists the set across runs. Load never fails: a missing
// or unreadable store is an empty set.
type Store interface {
	Load(ctx context.Context) Set
	Save(ctx context.Context, set Set) error
	Close() error
}
