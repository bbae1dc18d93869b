// Package ranking orders papers by a blend of recency, reputation and popularity.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/helixir/paper-feed-service/internal/domain"
)

// Component weights of the composite score.
const (
	WeightRecency    = 0.3
	WeightReputation = 0.5
	WeightPopularity = 0.2
)

// RecencyDecay is the per-day decay constant of the recency component.
const RecencyDecay = 0.1

// wilsonZ is the z-score of a 95% confidence interval.
const wilsonZ = 1.96

// normEpsilon keeps min-max normalization finite.
const normEpsilon = 1e-9

// Score computes normalized components and the composite score for every
// paper, then orders the results by score desc, publication date desc and id
// desc. Normalization is over the given window only.
func Score(papers []*domain.Paper, now time.Time) []domain.RankedResult {
	if len(papers) == 0 {
		return []domain.RankedResult{}
	}

	recency := make([]float64, len(papers))
	reputation := make([]float64, len(papers))
	popularity := make([]float64, len(papers))
	for i, p := range papers {
		recency[i] = Recency(p.PublishedOn, now)
		reputation[i] = math.Log(p.ReputationScore + 1)
		popularity[i] = WilsonLowerBound(p.Upvotes, p.Downvotes)
	}
	normalize(recency)
	normalize(reputation)
	normalize(popularity)

	results := make([]domain.RankedResult, len(papers))
	for i, p := range papers {
		results[i] = domain.RankedResult{
			Paper:      p,
			Score:      WeightRecency*recency[i] + WeightReputation*reputation[i] + WeightPopularity*popularity[i],
			Recency:    recency[i],
			Reputation: reputation[i],
			Popularity: popularity[i],
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Paper.PublishedOn.Equal(b.Paper.PublishedOn) {
			return a.Paper.PublishedOn.After(b.Paper.PublishedOn)
		}
		return a.Paper.ID > b.Paper.ID
	})
	return results
}

// Recency returns exp(-0.1 * age in days). Future dates count as age 0.
func Recency(published, now time.Time) float64 {
	age := now.Sub(published).Hours() / 24
	if age < 0 {
		age = 0
	}
	return math.Exp(-RecencyDecay * age)
}

// WilsonLowerBound is the lower bound of the 95% Wilson score interval of
// up out of up+down. The vote total is floored at 1. With no upvotes the
// bound is exactly 0, which the closed form only reaches up to rounding.
func WilsonLowerBound(up, down int64) float64 {
	if up <= 0 {
		return 0
	}
	n := float64(up + down)
	if n < 1 {
		n = 1
	}
	p := float64(up) / n
	z2 := wilsonZ * wilsonZ
	centre := p + z2/(2*n)
	margin := wilsonZ * math.Sqrt((p*(1-p)+z2/(4*n))/n)
	return math.Max(0, (centre-margin)/(1+z2/n))
}

// normalize min-max scales values in place. A window where all values are
// equal normalizes to 1.0.
func normalize(values []float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for i, v := range values {
		if hi == lo {
			values[i] = 1.0
			continue
		}
		values[i] = (v - lo) / (hi - lo + normEpsilon)
	}
}
