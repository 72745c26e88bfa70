package decision

import (
	"math"
	"testing"

	"aperture/internal/oracle"
)

func judgment(verdict string, score, comp, exp, subj, lay float64) *oracle.Result {
	return &oracle.Result{
		Verdict: verdict,
		Score:   score,
		Analysis: &oracle.Analysis{
			Composition: comp,
			Exposure:    exp,
			Subject:     subj,
			Layering:    lay,
		},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDecideStrongKeep(t *testing.T) {
	out, err := Decide(judgment(oracle.VerdictKeep, 85.5, 80, 85, 90, 87), DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	// (85.5*1.2 + 80 + 85*0.9 + 90 + 87*0.8) / 4.9
	want := (85.5*1.2 + 80*1.0 + 85*0.9 + 90*1.0 + 87*0.8) / 4.9
	if !almostEqual(out.Rationale.WeightedScore, want) {
		t.Errorf("weighted = %v, want %v", out.Rationale.WeightedScore, want)
	}
	if out.Verdict != oracle.VerdictKeep {
		t.Errorf("verdict = %q, want keep", out.Verdict)
	}
	if out.Level != LevelDefiniteKeep {
		t.Errorf("level = %q, want DEFINITE_KEEP", out.Level)
	}
	if out.Confidence <= 0.5 {
		t.Errorf("confidence = %v, want > 0.5", out.Confidence)
	}
	if out.Rationale.Notes != "" {
		t.Errorf("no divergence expected, got notes %q", out.Rationale.Notes)
	}
}

func TestDecideStrongToss(t *testing.T) {
	out, err := Decide(judgment(oracle.VerdictToss, 45.5, 40, 45, 50, 47), DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != oracle.VerdictToss {
		t.Errorf("verdict = %q, want toss", out.Verdict)
	}
	if out.Level != LevelDefiniteToss && out.Level != LevelLikelyToss {
		t.Errorf("level = %q, want a toss band", out.Level)
	}
	if out.Confidence >= 0.5 {
		t.Errorf("confidence = %v, want < 0.5", out.Confidence)
	}
}

func TestDecideThresholdInclusive(t *testing.T) {
	// Equal scores everywhere make the weighted score equal the input.
	out, err := Decide(judgment(oracle.VerdictToss, 70, 70, 70, 70, 70), DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != oracle.VerdictKeep {
		t.Errorf("weighted score exactly at threshold must keep, got %q", out.Verdict)
	}

	out, err = Decide(judgment(oracle.VerdictKeep, 69.9, 69.9, 69.9, 69.9, 69.9), DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != oracle.VerdictToss {
		t.Errorf("just below threshold must toss, got %q", out.Verdict)
	}
}

func TestDecideWeightScalingInvariance(t *testing.T) {
	w := DefaultWeights()
	scaled := Weights{
		BaseScore:   w.BaseScore * 3,
		Composition: w.Composition * 3,
		Exposure:    w.Exposure * 3,
		Subject:     w.Subject * 3,
		Layering:    w.Layering * 3,
	}
	res := judgment(oracle.VerdictKeep, 72, 68, 74, 71, 66)

	a, err := Decide(res, w)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Decide(res, scaled)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(a.Rationale.WeightedScore, b.Rationale.WeightedScore) {
		t.Errorf("scaling weights changed the score: %v vs %v",
			a.Rationale.WeightedScore, b.Rationale.WeightedScore)
	}
	if a.Verdict != b.Verdict || a.Level != b.Level {
		t.Error("scaling weights changed the outcome")
	}
}

func TestDecideDivergenceNote(t *testing.T) {
	// Oracle said keep but the weighted score lands below threshold.
	out, err := Decide(judgment(oracle.VerdictKeep, 72, 60, 62, 64, 58), DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	if out.Verdict != oracle.VerdictToss {
		t.Fatalf("verdict = %q, want toss", out.Verdict)
	}
	if out.Rationale.Notes == "" {
		t.Error("divergent verdict must be noted in the rationale")
	}
}

func TestDecideBorderlineNote(t *testing.T) {
	out, err := Decide(judgment(oracle.VerdictKeep, 68, 68, 68, 68, 68), DefaultWeights())
	if err != nil {
		t.Fatal(err)
	}
	if out.Level != LevelBorderline {
		t.Fatalf("level = %q, want BORDERLINE", out.Level)
	}
	if out.Rationale.Notes == "" {
		t.Error("borderline outcome must suggest human review")
	}
}

func TestDecideMissingAnalysis(t *testing.T) {
	if _, err := Decide(&oracle.Result{Verdict: oracle.VerdictKeep, Score: 90}, DefaultWeights()); err != ErrMissingAnalysis {
		t.Errorf("err = %v, want ErrMissingAnalysis", err)
	}
	if _, err := Decide(nil, DefaultWeights()); err != ErrMissingAnalysis {
		t.Errorf("err = %v, want ErrMissingAnalysis", err)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{65, 0.5},
		{100, 1.0},
		{0, 0.0},
		{82.5, 0.75},
		{32.5, 0.25},
		{120, 1.0},
		{-10, 0.0},
	}
	for _, tt := range tests {
		if got := Confidence(tt.score); !almostEqual(got, tt.want) {
			t.Errorf("Confidence(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}

	// Monotone non-decreasing across the pivot.
	prev := -1.0
	for s := 0.0; s <= 100; s += 0.5 {
		c := Confidence(s)
		if c < prev {
			t.Fatalf("confidence decreased at %v: %v < %v", s, c, prev)
		}
		prev = c
	}
}

func TestBandBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{85, LevelDefiniteKeep},
		{84.9, LevelLikelyKeep},
		{75, LevelLikelyKeep},
		{74.9, LevelBorderline},
		{65, LevelBorderline},
		{64.9, LevelLikelyToss},
		{50, LevelLikelyToss},
		{49.9, LevelDefiniteToss},
	}
	for _, tt := range tests {
		if got := bandFor(tt.score); got != tt.want {
			t.Errorf("bandFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
