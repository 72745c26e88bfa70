package oracle

import (
	"encoding/json"
	"fmt"
)

// Verdict values produced by the oracle and by the decision engine.
const (
	VerdictKeep  = "keep"
	VerdictToss  = "toss"
	VerdictError = "error"
)

// Analysis is the per-criterion breakdown inside an oracle judgment.
type Analysis struct {
	Composition float64 `json:"composition"`
	Exposure    float64 `json:"exposure"`
	Subject     float64 `json:"subject"`
	Layering    float64 `json:"layering"`
	Notes       string  `json:"notes"`
}

// Result is the structured judgment for one image. The JSON shape matches the
// oracle's response contract; the filename, post-processed flag, and the four
// human-feedback slots are decorated client-side after parsing.
type Result struct {
	Filename      string    `json:"filename,omitempty"`
	Verdict       string    `json:"verdict"`
	Score         float64   `json:"score"`
	Rating        string    `json:"rating,omitempty"`
	PostProcessed bool      `json:"post_processed"`
	Tags          []string  `json:"tags,omitempty"`
	Location      *string   `json:"location"`
	Analysis      *Analysis `json:"analysis,omitempty"`

	// RelativeRank is reserved for future cross-image ranking.
	RelativeRank *int `json:"relative_rank"`

	// Human-feedback slots, nil until a reviewer weighs in.
	UserVerdictOverride *string `json:"user_verdict_override"`
	UserFeedback        *string `json:"user_feedback"`
	LearningSignal      *string `json:"learning_signal"`

	// Error is set on degraded results when the oracle call failed.
	Error string `json:"error,omitempty"`
}

// requiredAnalysisKeys are the sub-fields the structural check demands inside
// the analysis object.
var requiredAnalysisKeys = []string{"composition", "exposure", "subject", "layering", "notes"}

// parseResult performs the structural check on a raw oracle response and
// unmarshals it. The check runs against raw JSON keys because struct decoding
// erases the distinction between an absent field and a zero value.
func parseResult(data []byte) (*Result, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("oracle: response is not a JSON object: %w", err)
	}
	for _, k := range []string{"verdict", "score", "analysis"} {
		if _, ok := keys[k]; !ok {
			return nil, fmt.Errorf("oracle: response missing %q", k)
		}
	}
	var analysisKeys map[string]json.RawMessage
	if err := json.Unmarshal(keys["analysis"], &analysisKeys); err != nil {
		return nil, fmt.Errorf("oracle: analysis is not a JSON object: %w", err)
	}
	for _, k := range requiredAnalysisKeys {
		if _, ok := analysisKeys[k]; !ok {
			return nil, fmt.Errorf("oracle: analysis missing %q", k)
		}
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("oracle: decode response: %w", err)
	}
	return &res, nil
}

// Validate reports whether a result is structurally usable for decision
// making: a verdict and analysis block must be present, and any recorded
// error invalidates the result regardless of other fields.
func Validate(res *Result) bool {
	if res == nil || res.Error != "" {
		return false
	}
	return res.Verdict != "" && res.Analysis != nil
}
