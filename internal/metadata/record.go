// Package metadata keeps the per-image records produced by the culling
// pipeline and exports them as JSON. The store is the source of truth for
// verdicts, reviewer overrides, and the keep/toss/error groupings.
package metadata

import (
	"aperture/internal/decision"
	"aperture/internal/oracle"
)

// Record is the complete stored state for one image: the oracle judgment
// plus the binding decision layered on top of it.
type Record struct {
	oracle.Result

	FinalVerdict      string              `json:"final_verdict,omitempty"`
	Confidence        float64             `json:"confidence,omitempty"`
	ConfidenceLevel   decision.Level      `json:"confidence_level,omitempty"`
	DecisionRationale *decision.Rationale `json:"decision_rationale,omitempty"`
}

// EffectiveVerdict is the verdict that currently binds for grouping: a
// reviewer override wins, then the decision layer's verdict, then the raw
// oracle verdict.
func (r *Record) EffectiveVerdict() string {
	if r.UserVerdictOverride != nil && *r.UserVerdictOverride != "" {
		return *r.UserVerdictOverride
	}
	if r.FinalVerdict != "" {
		return r.FinalVerdict
	}
	return r.Verdict
}

// clone returns a deep copy so callers cannot mutate stored state through
// shared pointers.
func (r *Record) clone() *Record {
	cp := *r
	if r.Analysis != nil {
		a := *r.Analysis
		cp.Analysis = &a
	}
	if r.Tags != nil {
		cp.Tags = append([]string(nil), r.Tags...)
	}
	cp.Location = cloneString(r.Location)
	cp.RelativeRank = cloneInt(r.RelativeRank)
	cp.UserVerdictOverride = cloneString(r.UserVerdictOverride)
	cp.UserFeedback = cloneString(r.UserFeedback)
	cp.LearningSignal = cloneString(r.LearningSignal)
	if r.DecisionRationale != nil {
		rat := *r.DecisionRationale
		cp.DecisionRationale = &rat
	}
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
