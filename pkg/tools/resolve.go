package tools

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jmercer/gamemaster/pkg/entity"
)

// ErrNoMatch is returned when a free-text reference cannot be resolved to
// any candidate entity with enough confidence. It is surfaced to the model
// as a failed tool result, never as a crash.
var ErrNoMatch = errors.New("ambiguous or unknown entity")

// DefaultThreshold is the minimum normalized similarity for a fuzzy match.
const DefaultThreshold = 0.75

// Resolver maps the model's free-text target references ("the oak door")
// onto concrete entities. Resolution is deterministic for a given candidate
// set: exact ID match first, then case-insensitive name match, then the
// best fuzzy match above the threshold. Ties break on highest score, then
// shortest name.
type Resolver struct {
	Threshold float64
	folder    cases.Caser
}

// NewResolver creates a resolver with the given similarity threshold.
// A threshold of zero selects DefaultThreshold.
func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{
		Threshold: threshold,
		folder:    cases.Fold(),
	}
}

// Resolve finds the candidate the reference most likely names.
func (r *Resolver) Resolve(ref string, candidates []*entity.Entity) (*entity.Entity, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || len(candidates) == 0 {
		return nil, ErrNoMatch
	}

	// Exact ID match wins outright.
	for _, c := range candidates {
		if c.UniqueID == ref {
			return c, nil
		}
	}

	folded := r.folder.String(stripArticle(ref))

	// Case-insensitive match against IDs and declared names.
	for _, c := range candidates {
		if r.folder.String(c.UniqueID) == folded {
			return c, nil
		}
		for _, name := range c.Names() {
			if r.folder.String(name) == folded {
				return c, nil
			}
		}
	}

	// Fuzzy: best similarity above the threshold, highest score first,
	// shortest matching name on ties.
	var best *entity.Entity
	bestScore := 0.0
	bestNameLen := 0
	for _, c := range candidates {
		for _, name := range append([]string{c.UniqueID}, c.Names()...) {
			score := similarity(folded, r.folder.String(name))
			if score < r.Threshold {
				continue
			}
			if score > bestScore || (score == bestScore && (best == nil || len(name) < bestNameLen)) {
				best = c
				bestScore = score
				bestNameLen = len(name)
			}
		}
	}
	if best == nil {
		return nil, ErrNoMatch
	}
	return best, nil
}

// stripArticle drops a leading English article so "the brass key" compares
// against "brass key".
func stripArticle(s string) string {
	lower := strings.ToLower(s)
	for _, art := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lower, art) {
			return strings.TrimSpace(s[len(art):])
		}
	}
	return s
}

// similarity is a normalized Levenshtein ratio in [0, 1]: 1 means equal,
// 0 means nothing in common.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
