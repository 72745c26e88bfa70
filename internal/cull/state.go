// Package cull runs the photo culling pipeline: prepare an image, have the
// oracle grade it, convert the grades into a binding verdict, and persist
// the record. The stages are flow graph nodes threaded by a single State
// artifact, and a stage failure degrades the state instead of aborting the
// walk so that failed images still end up recorded.
package cull

import (
	"aperture/internal/decision"
	"aperture/internal/flow"
	"aperture/internal/oracle"
	"aperture/internal/photo"
)

// Phase marks how far an image has progressed through the pipeline.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhasePrepared  Phase = "prepared"
	PhaseAnalyzed  Phase = "analyzed"
	PhaseDecided   Phase = "decided"
	PhasePersisted Phase = "persisted"
	PhaseFailed    Phase = "failed"
)

// State is the artifact passed between pipeline nodes. It accumulates the
// work of each stage for one image.
type State struct {
	ImagePath string
	Filename  string

	// Set by the prepare stage.
	Payload string
	Info    *photo.Info

	// Set by the analyze stage.
	Judgment *oracle.Result

	// Set by the decide stage.
	Verdict         string
	Confidence      float64
	ConfidenceLevel decision.Level
	Rationale       *decision.Rationale

	// Set by the compare stage.
	SimilarImages []string
	RelativeRank  *int

	// Reviewer input seeded before the walk, copied onto the stored record.
	UserFeedback        string
	UserVerdictOverride string

	Err       string
	Completed bool
	Phase     Phase
}

var _ flow.Artifact = (*State)(nil)

func (s *State) Type() string { return "cull_state" }
func (s *State) Raw() any     { return s }

// fail degrades the state. Later stages short-circuit but the persist stage
// still stores a degraded record, so Err is set once and never overwritten.
func (s *State) fail(msg string) *State {
	if s.Err == "" {
		s.Err = msg
	}
	s.Phase = PhaseFailed
	return s
}
