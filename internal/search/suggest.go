package search

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

const suggestThreshold = 0.75

// Suggest returns up to n candidates whose filename resembles target's,
// most similar first. It backs "did you mean" hints on not-found errors.
func Suggest(target string, candidates []string, n int) []string {
	want := strings.ToLower(baseName(target))
	if want == "" || n <= 0 {
		return nil
	}

	type hit struct {
		path string
		sim  float32
	}
	var hits []hit
	for _, c := range candidates {
		if c == target {
			continue
		}
		sim, err := edlib.StringsSimilarity(want, strings.ToLower(baseName(c)), edlib.JaroWinkler)
		if err != nil || sim < suggestThreshold {
			continue
		}
		hits = append(hits, hit{path: c, sim: sim})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		return hits[i].path < hits[j].path
	})

	out := make([]string, 0, n)
	for _, h := range hits {
		if len(out) == n {
			break
		}
		out = append(out, h.path)
	}
	return out
}

func baseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
