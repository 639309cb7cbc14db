// Package fuzzy resolves misheard medication names against the record store
// using exact Levenshtein edit distance.
//
// Speech transcription rarely gets drug names right ("parasetamol" for
// "Paracetamol"), so commands that target an existing record go through this
// matcher rather than exact string comparison. The distance computation is
// the classic full dynamic-programming table ([matchr.Levenshtein]), not an
// approximation; distances are reproducible bit for bit, which keeps the
// accept/reject threshold testable.
//
// The matcher is read-only and safe for concurrent use.
package fuzzy

import (
	"errors"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/ProSamhacker/hospitalmanagement/internal/store"
)

// DefaultMaxDistance is the edit-distance ceiling above which a best
// candidate is still rejected.
const DefaultMaxDistance = 3

// ErrNoMatch is returned when no candidate is within the distance ceiling,
// or when the query or candidate set is empty.
var ErrNoMatch = errors.New("no matching record")

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithMaxDistance sets the edit-distance ceiling. Default: 3.
func WithMaxDistance(d int) Option {
	return func(m *Matcher) { m.maxDistance = d }
}

// Matcher selects the closest-named medication from a candidate set.
type Matcher struct {
	maxDistance int
}

// New returns a [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{maxDistance: DefaultMaxDistance}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match returns the candidate whose lower-cased name has the minimum
// Levenshtein distance to the lower-cased query, provided that minimum is
// within the ceiling. Ties resolve to the first candidate in input order.
// An empty query or empty candidate set returns [ErrNoMatch].
func (m *Matcher) Match(query string, candidates []store.Medication) (store.Medication, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(candidates) == 0 {
		return store.Medication{}, ErrNoMatch
	}

	best := -1
	bestDist := 0
	for i, c := range candidates {
		d := Distance(query, strings.ToLower(c.Name))
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}

	if bestDist > m.maxDistance {
		return store.Medication{}, ErrNoMatch
	}
	return candidates[best], nil
}

// Distance returns the exact Levenshtein edit distance between a and b.
func Distance(a, b string) int {
	return matchr.Levenshtein(a, b)
}
