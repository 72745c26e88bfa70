// Package decision converts an oracle judgment into a final keep/toss
// verdict. The oracle's raw verdict is advisory; the binding verdict comes
// from a weighted blend of its numeric scores measured against a fixed
// threshold, with a confidence value and band derived from the same number.
package decision

import (
	"errors"
	"fmt"

	"aperture/internal/oracle"
)

// Weights control how much each scored criterion contributes to the
// weighted score. The oracle's overall score participates as its own
// criterion alongside the four analysis axes.
type Weights struct {
	BaseScore   float64 `json:"base_score" yaml:"base_score"`
	Composition float64 `json:"composition" yaml:"composition"`
	Exposure    float64 `json:"exposure" yaml:"exposure"`
	Subject     float64 `json:"subject" yaml:"subject"`
	Layering    float64 `json:"layering" yaml:"layering"`
}

// DefaultWeights favors the oracle's holistic score slightly over the
// per-criterion axes and discounts layering, which is the noisiest axis.
func DefaultWeights() Weights {
	return Weights{
		BaseScore:   1.2,
		Composition: 1.0,
		Exposure:    0.9,
		Subject:     1.0,
		Layering:    0.8,
	}
}

// Total is the sum of all weight components.
func (w Weights) Total() float64 {
	return w.BaseScore + w.Composition + w.Exposure + w.Subject + w.Layering
}

// Level is a coarse confidence band over the weighted score.
type Level string

const (
	LevelDefiniteKeep Level = "DEFINITE_KEEP"
	LevelLikelyKeep   Level = "LIKELY_KEEP"
	LevelBorderline   Level = "BORDERLINE"
	LevelLikelyToss   Level = "LIKELY_TOSS"
	LevelDefiniteToss Level = "DEFINITE_TOSS"
)

// KeepThreshold is the weighted score, inclusive, above which the final
// verdict is keep.
const KeepThreshold = 70.0

// Band boundaries, each the inclusive minimum weighted score for its level.
const (
	definiteKeepMin = 85.0
	likelyKeepMin   = 75.0
	borderlineMin   = 65.0
	likelyTossMin   = 50.0
)

// confidencePivot is where confidence bottoms out at 0.5; scores further
// from it in either direction are more certain.
const confidencePivot = 65.0

// CriteriaScores captures the raw inputs that went into a decision.
type CriteriaScores struct {
	Composition float64 `json:"composition"`
	Exposure    float64 `json:"exposure"`
	Subject     float64 `json:"subject"`
	Layering    float64 `json:"layering"`
	BaseScore   float64 `json:"base_score"`
}

// Rationale records how a verdict was reached, for export and review.
type Rationale struct {
	WeightedScore    float64        `json:"weighted_score"`
	OriginalVerdict  string         `json:"original_verdict"`
	FinalVerdict     string         `json:"final_verdict"`
	CriteriaScores   CriteriaScores `json:"criteria_scores"`
	CriteriaWeights  Weights        `json:"criteria_weights"`
	ThresholdApplied float64        `json:"threshold_applied"`
	Notes            string         `json:"notes,omitempty"`
}

// Outcome is the binding verdict for one image.
type Outcome struct {
	Verdict    string
	Confidence float64
	Level      Level
	Rationale  *Rationale
}

// ErrMissingAnalysis is returned when a judgment carries no per-criterion
// analysis to weigh.
var ErrMissingAnalysis = errors.New("decision: judgment has no analysis")

// Decide computes the final verdict for an oracle judgment. The weighted
// score is the weight-normalized blend of the overall score and the four
// analysis axes, so uniformly scaling all weights leaves the verdict
// unchanged.
func Decide(res *oracle.Result, w Weights) (*Outcome, error) {
	if res == nil || res.Analysis == nil {
		return nil, ErrMissingAnalysis
	}
	total := w.Total()
	if total <= 0 {
		return nil, fmt.Errorf("decision: non-positive weight total %v", total)
	}

	a := res.Analysis
	weighted := (res.Score*w.BaseScore +
		a.Composition*w.Composition +
		a.Exposure*w.Exposure +
		a.Subject*w.Subject +
		a.Layering*w.Layering) / total

	verdict := oracle.VerdictToss
	if weighted >= KeepThreshold {
		verdict = oracle.VerdictKeep
	}
	level := bandFor(weighted)

	notes := ""
	if verdict != res.Verdict {
		notes = "Final verdict differs from initial GPT verdict due to weighted scoring."
	}
	if level == LevelBorderline {
		notes += " This is a borderline case that may benefit from human review."
	}

	return &Outcome{
		Verdict:    verdict,
		Confidence: Confidence(weighted),
		Level:      level,
		Rationale: &Rationale{
			WeightedScore:   weighted,
			OriginalVerdict: res.Verdict,
			FinalVerdict:    verdict,
			CriteriaScores: CriteriaScores{
				Composition: a.Composition,
				Exposure:    a.Exposure,
				Subject:     a.Subject,
				Layering:    a.Layering,
				BaseScore:   res.Score,
			},
			CriteriaWeights:  w,
			ThresholdApplied: KeepThreshold,
			Notes:            notes,
		},
	}, nil
}

// Confidence maps a weighted score to [0,1]. It is 0.5 at the pivot and
// grows linearly toward 1.0 at 100 and toward 0.0 at 0, clamped at the ends.
func Confidence(weighted float64) float64 {
	var c float64
	if weighted >= confidencePivot {
		c = 0.5 + 0.5*(weighted-confidencePivot)/(100-confidencePivot)
	} else {
		c = 0.5 * (1 - (confidencePivot-weighted)/confidencePivot)
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func bandFor(weighted float64) Level {
	switch {
	case weighted >= definiteKeepMin:
		return LevelDefiniteKeep
	case weighted >= likelyKeepMin:
		return LevelLikelyKeep
	case weighted >= borderlineMin:
		return LevelBorderline
	case weighted >= likelyTossMin:
		return LevelLikelyToss
	default:
		return LevelDefiniteToss
	}
}
