package metadata

import (
	"fmt"
	"log/slog"
	"sync"

	"aperture/internal/logging"
	"aperture/internal/oracle"
)

// Review signals a reviewer can attach to a verdict.
const (
	SignalAgree    = "Agree"
	SignalDisagree = "Disagree"
)

// Store is an in-memory record store keyed by filename. It maintains the
// keep, toss, and error groupings as records come and go, and every record
// is in exactly one of them.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	keep    []string
	toss    []string
	errored []string
	log     *slog.Logger
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		log:     logging.New("metadata"),
	}
}

// Upsert stores a record under its filename, replacing any previous one,
// and files it into the grouping its effective verdict selects.
func (s *Store) Upsert(rec *Record) error {
	if rec == nil || rec.Filename == "" {
		return ErrMissingFilename
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := rec.clone()
	s.records[cp.Filename] = cp
	s.refile(cp.Filename, cp)
	s.log.Debug("record stored", "filename", cp.Filename, "verdict", cp.EffectiveVerdict())
	return nil
}

// Get returns a copy of the record for filename.
func (s *Store) Get(filename string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return rec.clone(), nil
}

// All returns copies of every record, keyed by filename.
func (s *Store) All() map[string]*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Record, len(s.records))
	for name, rec := range s.records {
		out[name] = rec.clone()
	}
	return out
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// KeepImages lists filenames whose effective verdict is keep.
func (s *Store) KeepImages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keep...)
}

// TossImages lists filenames whose effective verdict is toss.
func (s *Store) TossImages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.toss...)
}

// ErrorImages lists filenames whose analysis failed.
func (s *Store) ErrorImages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.errored...)
}

// OverrideVerdict sets a reviewer override on a record and refiles it. The
// verdict must be keep or toss.
func (s *Store) OverrideVerdict(filename, verdict string) error {
	if verdict != oracle.VerdictKeep && verdict != oracle.VerdictToss {
		return fmt.Errorf("%w: %q", ErrInvalidVerdict, verdict)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[filename]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	v := verdict
	rec.UserVerdictOverride = &v
	s.refile(filename, rec)
	s.log.Info("verdict overridden", "filename", filename, "verdict", verdict)
	return nil
}

// AttachFeedback stores free-form reviewer feedback on a record.
func (s *Store) AttachFeedback(filename, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[filename]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	f := feedback
	rec.UserFeedback = &f
	return nil
}

// RecordReview applies a reviewer's Agree or Disagree signal. Agreement
// confirms the current effective verdict as the override; disagreement
// flips it. Optional comments are stored as feedback. The updated record
// copy is returned.
func (s *Store) RecordReview(filename, signal, comments string) (*Record, error) {
	if signal != SignalAgree && signal != SignalDisagree {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSignal, signal)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[filename]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}

	current := rec.EffectiveVerdict()
	override := current
	if signal == SignalDisagree {
		if current == oracle.VerdictKeep {
			override = oracle.VerdictToss
		} else {
			override = oracle.VerdictKeep
		}
	}

	sig := signal
	rec.LearningSignal = &sig
	rec.UserVerdictOverride = &override
	if comments != "" {
		c := comments
		rec.UserFeedback = &c
	}
	s.refile(filename, rec)
	s.log.Info("review recorded", "filename", filename, "signal", signal, "verdict", override)
	return rec.clone(), nil
}

// refile puts filename into the single grouping its record belongs to.
// Callers must hold the mutex.
func (s *Store) refile(filename string, rec *Record) {
	s.keep = remove(s.keep, filename)
	s.toss = remove(s.toss, filename)
	s.errored = remove(s.errored, filename)

	// A reviewer override wins even over a failed analysis.
	switch rec.EffectiveVerdict() {
	case oracle.VerdictKeep:
		s.keep = append(s.keep, filename)
	case oracle.VerdictToss:
		s.toss = append(s.toss, filename)
	default:
		s.errored = append(s.errored, filename)
	}
}

func remove(list []string, name string) []string {
	for i, v := range list {
		if v == name {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
