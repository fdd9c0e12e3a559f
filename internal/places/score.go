package places

import "math"

// ScoreFactor is one named contribution to a place's total score.
// A zero Score with Applicable unset means the factor did not apply to the candidate;
// a zero Score with Applicable set means it applied and came out neutral.
type ScoreFactor struct {
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
	Applicable bool    `json:"applicable"`
}

// NotApplicable builds a zero factor that did not apply.
func NotApplicable(reason string) ScoreFactor {
	return ScoreFactor{Reason: reason}
}

func Applied(score float64, reason string) ScoreFactor {
	return ScoreFactor{Score: score, Reason: reason, Applicable: true}
}

type ScoreBreakdown struct {
	Brand    ScoreFactor `json:"brand"`
	Price    ScoreFactor `json:"price"`
	Keywords ScoreFactor `json:"keywords"`
	Location ScoreFactor `json:"location"`
	Category ScoreFactor `json:"category"`
	Reviews  ScoreFactor `json:"reviews"`
}

// Total is the unclamped sum of the six factor scores.
func (b ScoreBreakdown) Total() float64 {
	return b.Brand.Score + b.Price.Score + b.Keywords.Score +
		b.Location.Score + b.Category.Score + b.Reviews.Score
}

// LabeledFactor pairs a factor with its display label.
type LabeledFactor struct {
	Name   string      `json:"name"`
	Label  string      `json:"label"`
	Factor ScoreFactor `json:"factor"`
}

// Factors returns the six factors in presentation order.
func (b ScoreBreakdown) Factors() []LabeledFactor {
	return []LabeledFactor{
		{Name: "brand", Label: "Brand Recognition", Factor: b.Brand},
		{Name: "price", Label: "Price Level", Factor: b.Price},
		{Name: "keywords", Label: "Style & Keywords", Factor: b.Keywords},
		{Name: "location", Label: "Location Quality", Factor: b.Location},
		{Name: "category", Label: "Category", Factor: b.Category},
		{Name: "reviews", Label: "Review Popularity", Factor: b.Reviews},
	}
}

// Significant returns the factors with a non-zero score, in presentation order.
func (b ScoreBreakdown) Significant() []LabeledFactor {
	all := b.Factors()
	out := make([]LabeledFactor, 0, len(all))
	for _, f := range all {
		if f.Factor.Score != 0 {
			out = append(out, f)
		}
	}
	return out
}

type ScoredPlace struct {
	Candidate  Candidate      `json:"candidate"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	TotalScore float64        `json:"totalScore"`
}

// DisplayScore clamps the total at floor. The stored TotalScore is never modified.
func (p ScoredPlace) DisplayScore(floor float64) float64 {
	return math.Max(p.TotalScore, floor)
}

type Badge string

const (
	BadgeNegative Badge = "negative"
	BadgeStrong   Badge = "strong"
	BadgeMild     Badge = "mild"
)

// BadgeFor classifies a score for display: negative below zero, strong from 1.0 up.
func BadgeFor(score float64) Badge {
	switch {
	case score < 0:
		return BadgeNegative
	case score >= 1.0:
		return BadgeStrong
	default:
		return BadgeMild
	}
}

func (p ScoredPlace) Badge() Badge {
	return BadgeFor(p.TotalScore)
}
