package cull

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"aperture/internal/decision"
	"aperture/internal/flow"
	"aperture/internal/metadata"
	"aperture/internal/oracle"
	"aperture/internal/photo"
)

// stateFrom extracts the pipeline state from a node context. The walk is
// always seeded with a *State, so a missing one is a wiring bug.
func stateFrom(nc flow.NodeContext) (*State, error) {
	s, ok := nc.PriorArtifact.(*State)
	if !ok || s == nil {
		return nil, fmt.Errorf("expected cull state artifact, got %T", nc.PriorArtifact)
	}
	return s, nil
}

// prepareNode validates the image file and produces the base64 payload and
// technical info the oracle call needs.
type prepareNode struct {
	processor *photo.Processor
	log       *slog.Logger
}

func (n *prepareNode) Name() string { return "prepare" }

func (n *prepareNode) Process(_ context.Context, nc flow.NodeContext) (flow.Artifact, error) {
	s, err := stateFrom(nc)
	if err != nil {
		return nil, err
	}
	if s.Err != "" {
		return s, nil
	}
	if s.ImagePath == "" {
		return s.fail("no image path provided"), nil
	}
	s.Filename = filepath.Base(s.ImagePath)

	if !n.processor.Validate(s.ImagePath) {
		n.log.Warn("image rejected", "path", s.ImagePath)
		return s.fail(fmt.Sprintf("invalid image: %s", s.ImagePath)), nil
	}

	payload, info := n.processor.Prepare(s.ImagePath)
	if payload == "" {
		return s.fail(fmt.Sprintf("failed to prepare image for analysis: %s", s.ImagePath)), nil
	}
	s.Payload = payload
	s.Info = info
	s.Phase = PhasePrepared
	return s, nil
}

// analyzeNode sends the prepared payload to the oracle. A degraded judgment
// degrades the state but is kept so the persist stage can record the failure.
type analyzeNode struct {
	client *oracle.Client
	log    *slog.Logger
}

func (n *analyzeNode) Name() string { return "analyze" }

func (n *analyzeNode) Process(ctx context.Context, nc flow.NodeContext) (flow.Artifact, error) {
	s, err := stateFrom(nc)
	if err != nil {
		return nil, err
	}
	if s.Err != "" {
		return s, nil
	}
	if s.Payload == "" {
		return s.fail("missing required data for analysis"), nil
	}

	postProcessed := s.Info != nil && s.Info.PostProcessed
	res := n.client.Analyze(ctx, s.Payload, s.Filename, postProcessed)
	s.Judgment = res
	if res.Error != "" {
		n.log.Warn("analysis failed", "filename", s.Filename, "error", res.Error)
		return s.fail(res.Error), nil
	}
	if !oracle.Validate(res) {
		return s.fail("invalid analysis result"), nil
	}
	s.Phase = PhaseAnalyzed
	return s, nil
}

// decideNode turns the oracle judgment into the binding verdict.
type decideNode struct {
	weights decision.Weights
	log     *slog.Logger
}

func (n *decideNode) Name() string { return "decide" }

func (n *decideNode) Process(_ context.Context, nc flow.NodeContext) (flow.Artifact, error) {
	s, err := stateFrom(nc)
	if err != nil {
		return nil, err
	}
	if s.Err != "" {
		return s, nil
	}
	if s.Judgment == nil || s.Judgment.Analysis == nil {
		return s.fail("no analysis result available"), nil
	}

	out, err := decision.Decide(s.Judgment, n.weights)
	if err != nil {
		return s.fail(err.Error()), nil
	}
	s.Verdict = out.Verdict
	s.Confidence = out.Confidence
	s.ConfidenceLevel = out.Level
	s.Rationale = out.Rationale
	if out.Verdict != s.Judgment.Verdict {
		n.log.Info("weighted verdict diverges from oracle",
			"filename", s.Filename, "oracle", s.Judgment.Verdict, "final", out.Verdict)
	}
	s.Phase = PhaseDecided
	return s, nil
}

// compareNode ranks an image against its similar neighbors. Ranking across
// a batch needs the whole group graded first, so for now it only carries
// the slots forward; the persist stage stores whatever rank is present.
type compareNode struct{}

func (n *compareNode) Name() string { return "compare" }

func (n *compareNode) Process(_ context.Context, nc flow.NodeContext) (flow.Artifact, error) {
	s, err := stateFrom(nc)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// persistNode stores the record. It runs even for degraded states so failed
// images show up in the error grouping.
type persistNode struct {
	store *metadata.Store
	log   *slog.Logger
}

func (n *persistNode) Name() string { return "persist" }

func (n *persistNode) Process(_ context.Context, nc flow.NodeContext) (flow.Artifact, error) {
	s, err := stateFrom(nc)
	if err != nil {
		return nil, err
	}

	rec := &metadata.Record{
		FinalVerdict:      s.Verdict,
		Confidence:        s.Confidence,
		ConfidenceLevel:   s.ConfidenceLevel,
		DecisionRationale: s.Rationale,
	}
	if s.Judgment != nil {
		rec.Result = *s.Judgment
	} else {
		rec.Result = oracle.Result{
			Filename: s.Filename,
			Verdict:  oracle.VerdictError,
			Error:    s.Err,
		}
	}
	if rec.Filename == "" {
		rec.Filename = s.Filename
	}
	if s.Err != "" && rec.Error == "" {
		rec.Error = s.Err
		rec.Verdict = oracle.VerdictError
	}
	if s.RelativeRank != nil {
		rec.RelativeRank = s.RelativeRank
	}
	if s.UserFeedback != "" {
		f := s.UserFeedback
		rec.UserFeedback = &f
	}
	if s.UserVerdictOverride != "" {
		v := s.UserVerdictOverride
		rec.UserVerdictOverride = &v
	}

	if err := n.store.Upsert(rec); err != nil {
		return s.fail(err.Error()), nil
	}
	if s.Err == "" {
		s.Completed = true
		s.Phase = PhasePersisted
		n.log.Info("image culled", "filename", s.Filename,
			"verdict", rec.EffectiveVerdict(), "confidence_level", s.ConfidenceLevel)
	}
	return s, nil
}
