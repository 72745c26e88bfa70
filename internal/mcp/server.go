// Package mcp exposes the culling pipeline as MCP tools over stdio so an
// agent can drive photo grading, review verdicts, and feed learnings back.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"aperture/internal/cull"
	"aperture/internal/logging"
	"aperture/internal/metadata"
)

// Server wraps the MCP SDK server around one culling pipeline.
type Server struct {
	MCPServer *sdkmcp.Server
	pipeline  *cull.Pipeline
}

// NewServer creates an MCP server exposing the culling tools.
func NewServer(pipeline *cull.Pipeline, version string) *Server {
	s := &Server{pipeline: pipeline}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "aperture", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over the given transport until the context is canceled.
func (s *Server) Run(ctx context.Context, transport sdkmcp.Transport) error {
	return s.MCPServer.Run(ctx, transport)
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "process_image",
		Description: "Grade a landscape photo: analyze it with the vision model, apply weighted scoring, and store the verdict. Optional feedback and verdict override are attached to the stored record.",
	}, s.handleProcessImage)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "review_image",
		Description: "Record a reviewer's Agree or Disagree signal on a graded photo. Disagree flips the verdict; comments are stored as feedback.",
	}, s.handleReviewImage)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_images",
		Description: "List graded photos grouped into keep, toss, and error.",
	}, s.handleListImages)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_metadata",
		Description: "Get the stored record for one photo, or every record when no filename is given.",
	}, s.handleGetMetadata)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "export_metadata",
		Description: "Write records to a timestamped JSON file. Exports one photo's record when a filename is given, otherwise all records.",
	}, s.handleExportMetadata)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "apply_learnings",
		Description: "Digest reviewer feedback from reviewed photos into the vision model's grading context for subsequent calls.",
	}, s.handleApplyLearnings)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "clear_learning_context",
		Description: "Drop any incorporated reviewer feedback so grading returns to the base rubric.",
	}, s.handleClearLearningContext)
}

// --- Tool input/output types ---

type processImageInput struct {
	ImagePath string `json:"image_path" jsonschema:"path to the photo file (.jpg/.jpeg)"`
	Feedback  string `json:"feedback,omitempty" jsonschema:"reviewer feedback to attach to the record"`
	Override  string `json:"override,omitempty" jsonschema:"verdict override (keep or toss)"`
}

type processImageOutput struct {
	Filename        string  `json:"filename"`
	Verdict         string  `json:"verdict"`
	Confidence      float64 `json:"confidence"`
	ConfidenceLevel string  `json:"confidence_level"`
	WeightedScore   float64 `json:"weighted_score,omitempty"`
	Error           string  `json:"error,omitempty"`
}

type reviewImageInput struct {
	Filename string `json:"filename" jsonschema:"filename of a graded photo"`
	Signal   string `json:"signal" jsonschema:"Agree or Disagree with the current verdict"`
	Comments string `json:"comments,omitempty" jsonschema:"optional reviewer comments"`
}

type reviewImageOutput struct {
	Filename     string `json:"filename"`
	FinalVerdict string `json:"final_verdict"`
	Signal       string `json:"signal"`
}

type listImagesInput struct{}

type listImagesOutput struct {
	Keep  []string `json:"keep"`
	Toss  []string `json:"toss"`
	Error []string `json:"error"`
}

type getMetadataInput struct {
	Filename string `json:"filename,omitempty" jsonschema:"filename of a graded photo; empty returns every record"`
}

type getMetadataOutput struct {
	Record  *metadata.Record            `json:"record,omitempty"`
	Records map[string]*metadata.Record `json:"records,omitempty"`
}

type exportMetadataInput struct {
	OutputDir string `json:"output_dir,omitempty" jsonschema:"directory to write into (default from config)"`
	Filename  string `json:"filename,omitempty" jsonschema:"export only this photo's record"`
}

type exportMetadataOutput struct {
	Path string `json:"path"`
}

type applyLearningsInput struct{}

type applyLearningsOutput struct {
	RecordsDigested int    `json:"records_digested"`
	Status          string `json:"status"`
}

type clearLearningContextInput struct{}

type clearLearningContextOutput struct {
	Status string `json:"status"`
}

// --- Tool handlers ---

func (s *Server) handleProcessImage(ctx context.Context, _ *sdkmcp.CallToolRequest, input processImageInput) (*sdkmcp.CallToolResult, processImageOutput, error) {
	if input.ImagePath == "" {
		return nil, processImageOutput{}, fmt.Errorf("image_path is required")
	}

	var (
		state *cull.State
		err   error
	)
	if input.Feedback != "" || input.Override != "" {
		state, err = s.pipeline.ProvideFeedback(ctx, input.ImagePath, input.Feedback, input.Override)
	} else {
		state, err = s.pipeline.ProcessImage(ctx, input.ImagePath)
	}
	if err != nil {
		return nil, processImageOutput{}, fmt.Errorf("process_image: %w", err)
	}

	out := processImageOutput{
		Filename:        state.Filename,
		Verdict:         state.Verdict,
		Confidence:      state.Confidence,
		ConfidenceLevel: string(state.ConfidenceLevel),
		Error:           state.Err,
	}
	if state.Rationale != nil {
		out.WeightedScore = state.Rationale.WeightedScore
	}
	return nil, out, nil
}

func (s *Server) handleReviewImage(_ context.Context, _ *sdkmcp.CallToolRequest, input reviewImageInput) (*sdkmcp.CallToolResult, reviewImageOutput, error) {
	rec, err := s.pipeline.Review(input.Filename, input.Signal, input.Comments)
	if err != nil {
		return nil, reviewImageOutput{}, fmt.Errorf("review_image: %w", err)
	}
	return nil, reviewImageOutput{
		Filename:     rec.Filename,
		FinalVerdict: rec.EffectiveVerdict(),
		Signal:       input.Signal,
	}, nil
}

func (s *Server) handleListImages(_ context.Context, _ *sdkmcp.CallToolRequest, _ listImagesInput) (*sdkmcp.CallToolResult, listImagesOutput, error) {
	return nil, listImagesOutput{
		Keep:  s.pipeline.KeepImages(),
		Toss:  s.pipeline.TossImages(),
		Error: s.pipeline.ErrorImages(),
	}, nil
}

func (s *Server) handleGetMetadata(_ context.Context, _ *sdkmcp.CallToolRequest, input getMetadataInput) (*sdkmcp.CallToolResult, getMetadataOutput, error) {
	if input.Filename == "" {
		return nil, getMetadataOutput{Records: s.pipeline.AllMetadata()}, nil
	}
	rec, err := s.pipeline.Metadata(input.Filename)
	if err != nil {
		return nil, getMetadataOutput{}, fmt.Errorf("get_metadata: %w", err)
	}
	return nil, getMetadataOutput{Record: rec}, nil
}

func (s *Server) handleExportMetadata(_ context.Context, _ *sdkmcp.CallToolRequest, input exportMetadataInput) (*sdkmcp.CallToolResult, exportMetadataOutput, error) {
	path, err := s.pipeline.ExportMetadata(input.OutputDir, input.Filename)
	if err != nil {
		return nil, exportMetadataOutput{}, fmt.Errorf("export_metadata: %w", err)
	}
	return nil, exportMetadataOutput{Path: path}, nil
}

func (s *Server) handleApplyLearnings(_ context.Context, _ *sdkmcp.CallToolRequest, _ applyLearningsInput) (*sdkmcp.CallToolResult, applyLearningsOutput, error) {
	logger := logging.New("mcp")
	n := s.pipeline.IncorporateFeedback()
	if n == 0 {
		return nil, applyLearningsOutput{Status: "no reviewed records to learn from"}, nil
	}
	logger.Info("learnings applied", "records", n)
	return nil, applyLearningsOutput{
		RecordsDigested: n,
		Status:          "learnings applied to grading context",
	}, nil
}

func (s *Server) handleClearLearningContext(_ context.Context, _ *sdkmcp.CallToolRequest, _ clearLearningContextInput) (*sdkmcp.CallToolResult, clearLearningContextOutput, error) {
	s.pipeline.ClearLearningContext()
	return nil, clearLearningContextOutput{Status: "learning context cleared"}, nil
}
