package scoring

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"place-discovery/internal/places"
)

const (
	reasonNoBrand    = "N/A"
	reasonNoPrice    = "no price data"
	reasonNoKeywords = "no notable keywords"
	reasonNoLocation = "no location data"
	reasonNoNotable  = "no notable location"
	reasonNoCategory = "no category match"
	reasonNoReviews  = "no review data"
)

// Score computes the six-factor breakdown for c. It performs no I/O and is safe for
// concurrent use; identical inputs always produce identical output. viewport may be nil.
func Score(c places.Candidate, w *Weights, viewport *places.Viewport) places.ScoreBreakdown {
	return places.ScoreBreakdown{
		Brand:    scoreBrand(c, w),
		Price:    scorePrice(c, w),
		Keywords: scoreKeywords(c, w),
		Location: scoreLocation(c, w, viewport),
		Category: scoreCategory(c, w),
		Reviews:  scoreReviews(c, w),
	}
}

func scoreBrand(c places.Candidate, w *Weights) places.ScoreFactor {
	if len(w.brands) == 0 {
		return places.NotApplicable(reasonNoBrand)
	}
	name := strings.ToLower(c.Name)
	for _, b := range w.brands {
		if strings.Contains(name, b.match) {
			return places.Applied(w.brandBonus, "Recognized brand: "+b.display)
		}
	}
	return places.NotApplicable(reasonNoBrand)
}

func scorePrice(c places.Candidate, w *Weights) places.ScoreFactor {
	if !c.PriceLevel.Known() {
		return places.NotApplicable(reasonNoPrice)
	}
	delta, ok := w.priceCurve[c.PriceLevel]
	if !ok {
		return places.Applied(0, fmt.Sprintf("%s (%s): neutral", c.PriceLevel.Label(), c.PriceLevel.Symbol()))
	}
	return places.Applied(delta, fmt.Sprintf("%s (%s)", c.PriceLevel.Label(), c.PriceLevel.Symbol()))
}

func scoreKeywords(c places.Candidate, w *Weights) places.ScoreFactor {
	text := strings.ToLower(c.Name + " " + c.Description)

	var (
		total   float64
		matched []string
	)
	for _, kw := range w.keywords {
		if w.maxKeywordMatches > 0 && len(matched) >= w.maxKeywordMatches {
			break
		}
		if containsWord(text, kw.match) {
			total += kw.delta
			matched = append(matched, kw.display)
		}
	}
	if len(matched) == 0 {
		return places.NotApplicable(reasonNoKeywords)
	}
	return places.Applied(total, "Matched keywords: "+strings.Join(matched, ", "))
}

func scoreLocation(c places.Candidate, w *Weights, viewport *places.Viewport) places.ScoreFactor {
	if viewport == nil && strings.TrimSpace(c.Address) == "" {
		return places.NotApplicable(reasonNoLocation)
	}

	var (
		total   float64
		reasons []string
	)
	if viewport != nil {
		if viewport.Contains(c.Location) {
			total += w.viewportBonus
			reasons = append(reasons, "inside current view")
		} else {
			reasons = append(reasons, "outside current view")
		}
	}

	address := strings.ToLower(c.Address)
	for _, hint := range w.locationHints {
		if containsWord(address, hint.match) {
			total += hint.delta
			reasons = append(reasons, "address mentions "+hint.display)
			break
		}
	}

	if total < 0 {
		total = 0
	}
	if len(reasons) == 0 {
		return places.Applied(total, reasonNoNotable)
	}
	return places.Applied(total, strings.Join(reasons, "; "))
}

func scoreCategory(c places.Candidate, w *Weights) places.ScoreFactor {
	var (
		best    float64
		bestTag string
		found   bool
	)
	for _, t := range c.Types {
		tag := strings.ToLower(t)
		weight, ok := w.categoryWeights[tag]
		if !ok {
			continue
		}
		if !found || weight > best {
			best, bestTag, found = weight, tag, true
		}
	}
	if !found {
		return places.NotApplicable(reasonNoCategory)
	}
	return places.Applied(best, "Best category: "+bestTag)
}

func scoreReviews(c places.Candidate, w *Weights) places.ScoreFactor {
	if c.Rating == nil || c.ReviewCount == nil {
		return places.NotApplicable(reasonNoReviews)
	}
	rating, count := *c.Rating, *c.ReviewCount
	if count < 0 {
		count = 0
	}

	if rating < w.minRating {
		return places.Applied(-w.lowRatingPenalty,
			fmt.Sprintf("Rating %.1f below %.1f", rating, w.minRating))
	}

	quality := (math.Min(rating, 5) - w.minRating) / (5 - w.minRating)
	score := w.reviewScale * math.Log10(1+float64(count)) * quality
	return places.Applied(score, fmt.Sprintf("Rating %.1f from %d reviews", rating, count))
}

// containsWord reports whether term occurs in text on word boundaries, so "spa" does
// not match "spacious". Both arguments are expected lowercased.
func containsWord(text, term string) bool {
	for offset := 0; offset <= len(text)-len(term); {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(term)
		if isBoundary(text, start, true) && isBoundary(text, end, false) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isBoundary(text string, pos int, before bool) bool {
	var r rune
	if before {
		if pos == 0 {
			return true
		}
		r, _ = utf8.DecodeLastRuneInString(text[:pos])
	} else {
		if pos >= len(text) {
			return true
		}
		r, _ = utf8.DecodeRuneInString(text[pos:])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
