package cull

import (
	"context"
	"fmt"
	"log/slog"

	"aperture/internal/decision"
	"aperture/internal/flow"
	"aperture/internal/logging"
	"aperture/internal/metadata"
	"aperture/internal/oracle"
	"aperture/internal/photo"
)

// Pipeline is the culling facade: it owns the oracle client, the image
// processor, the metadata store, and the graph that ties the stages
// together.
type Pipeline struct {
	client    *oracle.Client
	processor *photo.Processor
	store     *metadata.Store
	weights   decision.Weights
	outputDir string
	graph     flow.Graph
	log       *slog.Logger
}

// Option configures a Pipeline during construction.
type Option func(*Pipeline)

func WithWeights(w decision.Weights) Option {
	return func(p *Pipeline) { p.weights = w }
}

func WithOutputDir(dir string) Option {
	return func(p *Pipeline) { p.outputDir = dir }
}

func WithProcessor(proc *photo.Processor) Option {
	return func(p *Pipeline) { p.processor = proc }
}

func WithStore(store *metadata.Store) Option {
	return func(p *Pipeline) { p.store = store }
}

func WithSystemPrompt(prompt string) Option {
	return func(p *Pipeline) {
		if prompt != "" {
			p.client.SetSystemPrompt(prompt)
		}
	}
}

// New builds a Pipeline around an oracle client.
func New(client *oracle.Client, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		client:    client,
		processor: photo.NewProcessor(),
		store:     metadata.NewStore(),
		weights:   decision.DefaultWeights(),
		outputDir: "output",
		log:       logging.New("cull"),
	}
	for _, opt := range opts {
		opt(p)
	}

	graph, err := p.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("build cull graph: %w", err)
	}
	p.graph = graph
	return p, nil
}

// ProcessImage runs one image through the full pipeline and returns its
// final state. Stage failures are reported on the state, not as an error;
// the returned error covers only walk-level failures such as cancellation.
func (p *Pipeline) ProcessImage(ctx context.Context, path string) (*State, error) {
	return p.walk(ctx, &State{ImagePath: path, Phase: PhasePending})
}

// ProvideFeedback reprocesses an image with reviewer feedback and an
// optional verdict override attached, so both land on the stored record.
func (p *Pipeline) ProvideFeedback(ctx context.Context, path, feedback, override string) (*State, error) {
	if override != "" && override != oracle.VerdictKeep && override != oracle.VerdictToss {
		return nil, fmt.Errorf("%w: %q", metadata.ErrInvalidVerdict, override)
	}
	return p.walk(ctx, &State{
		ImagePath:           path,
		Phase:               PhasePending,
		UserFeedback:        feedback,
		UserVerdictOverride: override,
	})
}

func (p *Pipeline) walk(ctx context.Context, seed *State) (*State, error) {
	walker := flow.NewWalker(seed.ImagePath)
	if err := p.graph.Walk(ctx, walker, "prepare", seed); err != nil {
		seed.fail(err.Error())
		return seed, err
	}
	return seed, nil
}

// Review applies a reviewer's Agree or Disagree signal to a stored record.
func (p *Pipeline) Review(filename, signal, comments string) (*metadata.Record, error) {
	return p.store.RecordReview(filename, signal, comments)
}

// IncorporateFeedback digests every reviewed record into the oracle's
// feedback context so later calls grade with it. It returns the number of
// reviewed records incorporated; with none, the context is left untouched.
func (p *Pipeline) IncorporateFeedback() int {
	digest, n := BuildFeedbackDigest(p.store.All())
	if n == 0 {
		return 0
	}
	p.client.SetFeedbackContext(digest)
	p.log.Info("reviewer feedback incorporated", "records", n)
	return n
}

// ClearLearningContext drops any incorporated reviewer feedback.
func (p *Pipeline) ClearLearningContext() {
	p.client.ClearFeedbackContext()
}

// SetSystemPrompt replaces the grading rubric. Incorporated feedback is
// cleared along with it since it was digested against the old rubric.
func (p *Pipeline) SetSystemPrompt(prompt string) {
	p.client.SetSystemPrompt(prompt)
}

// ExportMetadata writes records as JSON. An empty dir uses the configured
// output directory; an empty filename exports every record.
func (p *Pipeline) ExportMetadata(dir, filename string) (string, error) {
	if dir == "" {
		dir = p.outputDir
	}
	if filename == "" {
		return p.store.Export(dir)
	}
	return p.store.ExportOne(dir, filename)
}

// Metadata returns a copy of the record for one image.
func (p *Pipeline) Metadata(filename string) (*metadata.Record, error) {
	return p.store.Get(filename)
}

// AllMetadata returns copies of every stored record.
func (p *Pipeline) AllMetadata() map[string]*metadata.Record {
	return p.store.All()
}

func (p *Pipeline) KeepImages() []string  { return p.store.KeepImages() }
func (p *Pipeline) TossImages() []string  { return p.store.TossImages() }
func (p *Pipeline) ErrorImages() []string { return p.store.ErrorImages() }
