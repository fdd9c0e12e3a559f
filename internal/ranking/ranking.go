// Package ranking turns raw candidates into a deduplicated, ordered list of scored places.
package ranking

import (
	"sort"

	"place-discovery/internal/places"
	"place-discovery/internal/scoring"
)

// Stats reports what ranking dropped.
type Stats struct {
	Input      int `json:"input"`
	Invalid    int `json:"invalid"`
	Duplicates int `json:"duplicates"`
	Output     int `json:"output"`
}

// Rank drops candidates without an identifier, keeps the first occurrence of each
// identifier, scores the survivors and sorts them. The input slice is not modified.
func Rank(candidates []places.Candidate, w *scoring.Weights, viewport *places.Viewport) ([]places.ScoredPlace, Stats) {
	stats := Stats{Input: len(candidates)}

	seen := make(map[string]struct{}, len(candidates))
	ranked := make([]places.ScoredPlace, 0, len(candidates))
	for _, c := range candidates {
		if !c.Valid() {
			stats.Invalid++
			continue
		}
		if _, dup := seen[c.ID]; dup {
			stats.Duplicates++
			continue
		}
		seen[c.ID] = struct{}{}

		breakdown := scoring.Score(c, w, viewport)
		ranked = append(ranked, places.ScoredPlace{
			Candidate:  c,
			Breakdown:  breakdown,
			TotalScore: breakdown.Total(),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})

	stats.Output = len(ranked)
	return ranked, stats
}

// Less orders by total score descending, then rating, then review count (missing values
// sort below any present value), then identifier ascending.
func Less(a, b places.ScoredPlace) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	if c := compareOptionalFloat(a.Candidate.Rating, b.Candidate.Rating); c != 0 {
		return c > 0
	}
	if c := compareOptionalInt(a.Candidate.ReviewCount, b.Candidate.ReviewCount); c != 0 {
		return c > 0
	}
	return a.Candidate.ID < b.Candidate.ID
}

func compareOptionalFloat(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return 1
	case *a < *b:
		return -1
	}
	return 0
}

func compareOptionalInt(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return 1
	case *a < *b:
		return -1
	}
	return 0
}

// Limit truncates to at most n places; n <= 0 means no limit.
func Limit(ranked []places.ScoredPlace, n int) []places.ScoredPlace {
	if n <= 0 || len(ranked) <= n {
		return ranked
	}
	return ranked[:n]
}
