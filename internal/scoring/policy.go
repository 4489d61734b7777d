// Package scoring turns a provider's six-dimension assessment into a final
// score, recommendation tier and pass/fail decision.
//
// Sub-scores are clamped to [0,10] before anything else. The weighted
// aggregate of the clamped breakdown replaces the provider's own aggregate
// when the two differ by more than Tolerance.
package scoring

import (
	"math"

	"talent-sourcing-service/internal/entity"
)

// Weights sum to 1.0.
var Weights = entity.ScoreBreakdown{
	Education:        0.20,
	CareerTrajectory: 0.20,
	CompanyRelevance: 0.15,
	ExperienceMatch:  0.25,
	LocationMatch:    0.10,
	Tenure:           0.10,
}

const (
	Tolerance = 1.5

	MinScore = 0.0
	MaxScore = 10.0
)

var tiers = []struct {
	min  float64
	tier entity.Tier
}{
	{9.0, entity.TierStrongMatch},
	{8.0, entity.TierGoodMatch},
	{7.0, entity.TierConsider},
	{6.0, entity.TierWeakMatch},
}

// Assessment is what a score provider returns before policy is applied.
type Assessment struct {
	Breakdown entity.ScoreBreakdown
	Reported  float64
	Reasoning string
}

type Evaluation struct {
	Score     float64
	Breakdown entity.ScoreBreakdown
	Tier      entity.Tier
	Passed    bool
	Reasoning string
	Fallback  bool
}

func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

func ClampBreakdown(b entity.ScoreBreakdown) entity.ScoreBreakdown {
	return entity.ScoreBreakdown{
		Education:        Clamp(b.Education),
		CareerTrajectory: Clamp(b.CareerTrajectory),
		CompanyRelevance: Clamp(b.CompanyRelevance),
		ExperienceMatch:  Clamp(b.ExperienceMatch),
		LocationMatch:    Clamp(b.LocationMatch),
		Tenure:           Clamp(b.Tenure),
	}
}

// Weighted combines an already clamped breakdown.
func Weighted(b entity.ScoreBreakdown) float64 {
	return b.Education*Weights.Education +
		b.CareerTrajectory*Weights.CareerTrajectory +
		b.CompanyRelevance*Weights.CompanyRelevance +
		b.ExperienceMatch*Weights.ExperienceMatch +
		b.LocationMatch*Weights.LocationMatch +
		b.Tenure*Weights.Tenure
}

func TierFor(score float64) entity.Tier {
	for _, t := range tiers {
		if score >= t.min {
			return t.tier
		}
	}
	return entity.TierReject
}

// Passed is true for CONSIDER and above.
func Passed(t entity.Tier) bool {
	switch t {
	case entity.TierStrongMatch, entity.TierGoodMatch, entity.TierConsider:
		return true
	}
	return false
}

func Evaluate(a Assessment) Evaluation {
	b := ClampBreakdown(a.Breakdown)
	computed := Weighted(b)

	// divergence is measured on the raw report; only the kept value is clamped
	score := computed
	if !math.IsNaN(a.Reported) && math.Abs(computed-a.Reported) <= Tolerance {
		score = Clamp(a.Reported)
	}
	score = round2(score)

	tier := TierFor(score)
	return Evaluation{
		Score:     score,
		Breakdown: b,
		Tier:      tier,
		Passed:    Passed(tier),
		Reasoning: a.Reasoning,
	}
}

// Fallback is used when a provider fails or answers with something unusable.
// The candidate is kept but cannot pass.
func Fallback(reason string) Evaluation {
	return Evaluation{
		Score:     MinScore,
		Tier:      entity.TierReject,
		Passed:    false,
		Reasoning: reason,
		Fallback:  true,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
