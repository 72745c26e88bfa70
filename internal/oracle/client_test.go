package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

const goodJudgment = `{
	"verdict": "keep",
	"score": 85.5,
	"rating": "4.5 stars",
	"post_processed": false,
	"tags": ["dramatic sky", "leading lines"],
	"location": "Yosemite",
	"analysis": {
		"composition": 80,
		"exposure": 85,
		"subject": 90,
		"layering": 87,
		"notes": "Strong layers, slightly hot highlights."
	},
	"relative_rank": null,
	"user_verdict_override": null,
	"user_feedback": null,
	"learning_signal": null
}`

// completionServer returns an httptest server that replies with content as
// the first choice and captures each request body.
func completionServer(t *testing.T, content string, requests *[]chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if requests != nil {
			*requests = append(*requests, req)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url, APIKey: "test-key"})
}

func TestAnalyzeSuccess(t *testing.T) {
	var requests []chatRequest
	srv := completionServer(t, goodJudgment, &requests)
	defer srv.Close()

	c := newTestClient(srv.URL)
	res := c.Analyze(context.Background(), "cGF5bG9hZA==", "ridge.jpg", true)

	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.Verdict != VerdictKeep || res.Score != 85.5 {
		t.Errorf("verdict/score = %s/%.1f, want keep/85.5", res.Verdict, res.Score)
	}
	if res.Filename != "ridge.jpg" {
		t.Errorf("filename = %q, want ridge.jpg", res.Filename)
	}
	if !res.PostProcessed {
		t.Error("post-processed flag not decorated")
	}
	if res.Analysis == nil || res.Analysis.Layering != 87 {
		t.Errorf("analysis not parsed: %+v", res.Analysis)
	}
	if res.UserFeedback != nil || res.UserVerdictOverride != nil || res.LearningSignal != nil || res.RelativeRank != nil {
		t.Error("feedback slots must be nil-initialized")
	}

	// Request composition: user message names the file and the flag.
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}
	userContent := fmt.Sprintf("%v", requests[0].Messages[1].Content)
	if !strings.Contains(userContent, "ridge.jpg") {
		t.Error("user prompt missing filename")
	}
	if !strings.Contains(userContent, "post-processed") {
		t.Error("user prompt missing post-processed note")
	}
	if requests[0].ResponseFormat == nil || requests[0].ResponseFormat.Type != "json_object" {
		t.Error("structured response format not requested")
	}
}

func TestAnalyzeServiceFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	res := c.Analyze(context.Background(), "cGF5bG9hZA==", "ridge.jpg", false)

	if res.Verdict != VerdictError {
		t.Errorf("verdict = %q, want error", res.Verdict)
	}
	if res.Score != 0 {
		t.Errorf("score = %v, want 0", res.Score)
	}
	if res.Error == "" {
		t.Error("degraded result must carry the failure message")
	}
	if res.Filename != "ridge.jpg" {
		t.Errorf("filename = %q, want ridge.jpg", res.Filename)
	}
	if Validate(res) {
		t.Error("degraded result must not validate")
	}
}

func TestAnalyzeUnparseableContentDegrades(t *testing.T) {
	srv := completionServer(t, "I think this one is a keeper!", nil)
	defer srv.Close()

	c := newTestClient(srv.URL)
	res := c.Analyze(context.Background(), "cGF5bG9hZA==", "ridge.jpg", false)
	if res.Verdict != VerdictError || res.Error == "" {
		t.Errorf("non-JSON content should degrade, got verdict %q error %q", res.Verdict, res.Error)
	}
}

func TestAnalyzeMissingAnalysisKeysDegrades(t *testing.T) {
	srv := completionServer(t, `{"verdict":"keep","score":80,"analysis":{"composition":80}}`, nil)
	defer srv.Close()

	c := newTestClient(srv.URL)
	res := c.Analyze(context.Background(), "x", "ridge.jpg", false)
	if res.Verdict != VerdictError {
		t.Errorf("incomplete analysis should degrade, got %q", res.Verdict)
	}
}

func TestAnalyzeNetworkFailureDegrades(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	res := c.Analyze(context.Background(), "x", "ridge.jpg", false)
	if res.Verdict != VerdictError || res.Error == "" {
		t.Error("network failure should degrade, not panic or raise")
	}
}

func TestFeedbackContextPrependedToSystemPrompt(t *testing.T) {
	var requests []chatRequest
	srv := completionServer(t, goodJudgment, &requests)
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.SetFeedbackContext("Reviewer disagreed with toss on flat-light images.")
	c.Analyze(context.Background(), "x", "a.jpg", false)

	system := requests[0].Messages[0].Content.(string)
	if !strings.HasPrefix(system, feedbackPreambleHead) {
		t.Error("system prompt should start with the feedback preamble")
	}
	if !strings.Contains(system, "flat-light images") {
		t.Error("digest text missing from system prompt")
	}
	if !strings.Contains(system, "professional landscape photographer") {
		t.Error("base rubric missing from system prompt")
	}

	c.ClearFeedbackContext()
	c.Analyze(context.Background(), "x", "b.jpg", false)
	system = requests[1].Messages[0].Content.(string)
	if strings.Contains(system, "flat-light images") {
		t.Error("cleared digest still present in system prompt")
	}
}

func TestSetFeedbackContextTruncates(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	long := strings.Repeat("x", maxFeedbackChars+500)
	c.SetFeedbackContext(long)

	got := c.FeedbackContext()
	inner := strings.TrimSuffix(strings.TrimPrefix(got, feedbackPreambleHead), feedbackPreambleTail)
	if len(inner) != maxFeedbackChars {
		t.Errorf("digest length = %d, want %d", len(inner), maxFeedbackChars)
	}
	if !strings.HasSuffix(inner, "...") {
		t.Error("truncated digest should end with ellipsis marker")
	}
}

func TestSetFeedbackContextTruncatesOnRuneBoundary(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	long := strings.Repeat("é", maxFeedbackChars+500)
	c.SetFeedbackContext(long)

	got := c.FeedbackContext()
	if !utf8.ValidString(got) {
		t.Fatal("truncated digest contains invalid UTF-8")
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(got, feedbackPreambleHead), feedbackPreambleTail)
	if n := utf8.RuneCountInString(inner); n != maxFeedbackChars {
		t.Errorf("digest rune count = %d, want %d", n, maxFeedbackChars)
	}
	if !strings.HasSuffix(inner, "...") {
		t.Error("truncated digest should end with ellipsis marker")
	}
}

func TestSetFeedbackContextEmptyClears(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	c.SetFeedbackContext("something")
	c.SetFeedbackContext("")
	if c.FeedbackContext() != "" {
		t.Error("empty summary should clear the context")
	}
}

func TestSetSystemPromptClearsFeedbackContext(t *testing.T) {
	c := NewClient(Config{APIKey: "k"})
	c.SetFeedbackContext("old digest")
	c.SetSystemPrompt("Grade star-trail photos only.")
	if c.FeedbackContext() != "" {
		t.Error("prompt override should clear the stale digest")
	}
	if c.systemInstructions() != "Grade star-trail photos only." {
		t.Errorf("system instructions = %q", c.systemInstructions())
	}
}
