// Package report assembles batch output views and renders them.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mikey/email-triage/internal/core"
)

// BatchResult is the full outcome of one triage run
type BatchResult struct {
	Results           []*core.TriageResult `json:"results"`
	FlagCandidates    []*core.TriageResult `json:"flag_candidates"`
	SurfaceCandidates []*core.TriageResult `json:"surface_candidates"`
	Stats             *core.BatchStats     `json:"stats"`
}

// NewBatchResult builds the candidate views over a finished run. Results keep
// input order; candidate slices are sorted by priority score descending, ties
// broken by received time descending.
func NewBatchResult(results []*core.TriageResult, stats *core.BatchStats) *BatchResult {
	var flags, surfaces []*core.TriageResult
	for _, r := range results {
		switch r.Decision {
		case core.DecisionFlag:
			flags = append(flags, r)
		case core.DecisionSurface:
			surfaces = append(surfaces, r)
		}
	}
	sortCandidates(flags)
	sortCandidates(surfaces)

	return &BatchResult{
		Results:           results,
		FlagCandidates:    flags,
		SurfaceCandidates: surfaces,
		Stats:             stats,
	}
}

func sortCandidates(candidates []*core.TriageResult) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PriorityScore != candidates[j].PriorityScore {
			return candidates[i].PriorityScore > candidates[j].PriorityScore
		}
		return candidates[i].Email.ReceivedAt.After(candidates[j].Email.ReceivedAt)
	})
}

// ToJSON renders the batch result as indented JSON
func (b *BatchResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// Markdown renders a human-readable triage report with the top flagged
// messages first.
func (b *BatchResult) Markdown(topN int) string {
	var sb strings.Builder

	sb.WriteString("# Email Triage Report\n\n")
	fmt.Fprintf(&sb, "**Total emails processed:** %d\n", b.Stats.Total)
	fmt.Fprintf(&sb, "**Flagged for action:** %d\n", len(b.FlagCandidates))
	fmt.Fprintf(&sb, "**Surfaced:** %d\n", len(b.SurfaceCandidates))
	sb.WriteString("\n---\n\n## Top Flagged Emails\n\n")

	top := b.FlagCandidates
	if topN > 0 && len(top) > topN {
		top = top[:topN]
	}

	if len(top) == 0 {
		sb.WriteString("*No emails flagged for action.*\n")
		return sb.String()
	}

	for i, r := range top {
		subject := r.Email.Subject
		if subject == "" {
			subject = "(No Subject)"
		}
		sender := r.Email.From.Name
		if sender == "" {
			sender = r.Email.From.Address
		}
		if sender == "" {
			sender = "Unknown"
		}

		fmt.Fprintf(&sb, "### %d. %s\n\n", i+1, subject)
		fmt.Fprintf(&sb, "- **From:** %s\n", sender)
		if !r.Email.ReceivedAt.IsZero() {
			fmt.Fprintf(&sb, "- **Received:** %s\n", r.Email.ReceivedAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(&sb, "- **Score:** %d\n", r.PriorityScore)
		fmt.Fprintf(&sb, "- **Reason:** %s\n", r.Reason)
		if r.AI != nil {
			fmt.Fprintf(&sb, "- **Classification:** %s\n", r.AI.Category)
			fmt.Fprintf(&sb, "- **Confidence:** %.0f%%\n", r.AI.Confidence*100)
			if r.AI.Summary != "" {
				fmt.Fprintf(&sb, "- **Summary:** %s\n", r.AI.Summary)
			}
			if r.AI.RequestedAction != "" {
				fmt.Fprintf(&sb, "- **Action:** %s\n", r.AI.RequestedAction)
			}
			if r.AI.DeadlineISO != "" {
				fmt.Fprintf(&sb, "- **Deadline:** %s\n", r.AI.DeadlineISO)
			}
		}
		sb.WriteString("\n---\n\n")
	}

	return sb.String()
}
