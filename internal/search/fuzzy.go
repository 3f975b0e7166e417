// Package search ranks vault file paths against a filename query and greps
// note contents for a literal or regular-expression pattern.
package search

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// MatchType tags which rule of the ranking ladder accepted a candidate.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchPrefix    MatchType = "prefix"
	MatchSubstring MatchType = "substring"
	MatchFuzzy     MatchType = "fuzzy"
)

// Tier bases keep every exact match above every prefix match, and so on:
// the in-tier component is always in (0, 1].
var tierBase = map[MatchType]float64{
	MatchExact:     400,
	MatchPrefix:    300,
	MatchSubstring: 200,
	MatchFuzzy:     100,
}

// DefaultFindResults is the result cap when none is given.
const DefaultFindResults = 10

// FileMatch is one ranked candidate.
type FileMatch struct {
	Path  string    `json:"path"`
	Score float64   `json:"score"`
	Type  MatchType `json:"match_type"`
}

// FindOptions controls FindFiles.
type FindOptions struct {
	Fuzzy      bool
	MaxResults int
}

type scored struct {
	FileMatch
	tier   float64
	inTier float64
	length int
}

// FindFiles scores every candidate against query and returns the best
// MaxResults, highest score first. The query is matched as given, apart from
// case; blank queries are rejected by callers and an empty one matches nothing.
//
// Candidates are sorted by tier, then in-tier score, then shorter path, then
// path, and only truncated after the full sort.
func FindFiles(query string, candidates []string, opts FindOptions) []FileMatch {
	q := strings.ToLower(query)
	if q == "" {
		return []FileMatch{}
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultFindResults
	}

	var hits []scored
	for _, c := range candidates {
		if s, ok := score(q, c, opts.Fuzzy); ok {
			hits = append(hits, s)
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier > b.tier
		}
		if a.inTier != b.inTier {
			return a.inTier > b.inTier
		}
		if a.length != b.length {
			return a.length < b.length
		}
		return a.Path < b.Path
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]FileMatch, len(hits))
	for i, h := range hits {
		out[i] = h.FileMatch
	}
	return out
}

// score applies the ladder to one candidate; the first rule that matches wins.
func score(q, candidate string, fuzzy bool) (scored, bool) {
	path := strings.ToLower(candidate)
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	stem := name
	if i := strings.LastIndex(name, "."); i > 0 {
		stem = name[:i]
	}

	qLen := float64(utf8.RuneCountInString(q))
	pathLen := utf8.RuneCountInString(path)

	var (
		typ    MatchType
		inTier float64
	)
	switch {
	case path == q || name == q:
		typ, inTier = MatchExact, 1
	case strings.HasPrefix(stem, q):
		// Shorter filenames are the more specific match.
		typ, inTier = MatchPrefix, qLen/float64(utf8.RuneCountInString(stem))
	case strings.Contains(path, q):
		typ, inTier = MatchSubstring, qLen/float64(pathLen)
	case fuzzy:
		gap, ok := subsequenceGap(q, path)
		if !ok {
			return scored{}, false
		}
		typ, inTier = MatchFuzzy, 1/(1+float64(gap))
	default:
		return scored{}, false
	}

	return scored{
		FileMatch: FileMatch{
			Path:  candidate,
			Score: round3(tierBase[typ] + 100*inTier - 100),
			Type:  typ,
		},
		tier:   tierBase[typ],
		inTier: inTier,
		length: pathLen,
	}, true
}

// subsequenceGap reports whether every rune of q occurs in s in order, and
// the smallest number of unmatched runes between the first and last matched
// rune over all such occurrences.
func subsequenceGap(q, s string) (int, bool) {
	qr := []rune(q)
	sr := []rune(s)
	if len(qr) > len(sr) {
		return 0, false
	}

	best := -1
	for start := range sr {
		if sr[start] != qr[0] {
			continue
		}
		k, end := 1, start
		for i := start + 1; i < len(sr) && k < len(qr); i++ {
			if sr[i] == qr[k] {
				k++
				end = i
			}
		}
		if k < len(qr) {
			// No later start can complete the sequence either.
			break
		}
		gap := end - start + 1 - len(qr)
		if best < 0 || gap < best {
			best = gap
		}
		if best == 0 {
			break
		}
	}
	return best, best >= 0
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
