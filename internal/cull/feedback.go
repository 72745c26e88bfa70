package cull

import (
	"fmt"
	"sort"
	"strings"

	"aperture/internal/metadata"
)

// BuildFeedbackDigest summarizes reviewed records into the text handed to
// the oracle as learning context. Only records carrying a reviewer signal
// contribute. Returns the digest and the number of records digested;
// filenames are sorted so the digest is stable across runs.
func BuildFeedbackDigest(records map[string]*metadata.Record) (string, int) {
	names := make([]string, 0, len(records))
	for name, rec := range records {
		if rec != nil && rec.LearningSignal != nil && *rec.LearningSignal != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", 0
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Recent reviewer feedback on graded photos:\n")
	for _, name := range names {
		rec := records[name]
		fmt.Fprintf(&b, "- %s: AI Verdict: %s (score %.1f).", name, rec.Verdict, rec.Score)
		if rec.UserVerdictOverride != nil && *rec.UserVerdictOverride != "" {
			fmt.Fprintf(&b, " Reviewer %sd; final verdict: %s.", strings.ToLower(*rec.LearningSignal), *rec.UserVerdictOverride)
		} else {
			fmt.Fprintf(&b, " Reviewer %sd.", strings.ToLower(*rec.LearningSignal))
		}
		if rec.UserFeedback != nil && *rec.UserFeedback != "" {
			fmt.Fprintf(&b, " Comments: %s", *rec.UserFeedback)
		}
		if rec.Analysis != nil && rec.Analysis.Notes != "" {
			fmt.Fprintf(&b, " Analysis notes: %s", rec.Analysis.Notes)
		}
		b.WriteString("\n")
	}
	return b.String(), len(names)
}
