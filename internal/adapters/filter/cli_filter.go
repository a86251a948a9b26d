package filter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/ports"
	"github.com/mikey/email-triage/internal/report"
	"go.uber.org/zap"
)

// CliFilter runs one triage batch from the command line
type CliFilter struct {
	service    *core.TriageService
	source     ports.MailSource
	logger     *zap.Logger
	fetchOpts  ports.FetchOptions
	outPath    string
	reportPath string
	reportTopN int
	verbose    bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(
	service *core.TriageService,
	source ports.MailSource,
	logger *zap.Logger,
	fetchOpts ports.FetchOptions,
	outPath string,
	reportPath string,
	reportTopN int,
	verbose bool,
) (*CliFilter, error) {
	return &CliFilter{
		service:    service,
		source:     source,
		logger:     logger,
		fetchOpts:  fetchOpts,
		outPath:    outPath,
		reportPath: reportPath,
		reportTopN: reportTopN,
		verbose:    verbose,
	}, nil
}

// Run fetches the configured mail batch, triages it, and writes the outputs
func (f *CliFilter) Run(ctx context.Context) error {
	startTime := time.Now()

	records, err := f.source.Fetch(ctx, f.fetchOpts)
	if err != nil {
		return fmt.Errorf("failed to fetch mail: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Fetched %d messages\n", len(records))

	results, stats, err := f.service.ProcessBatch(ctx, records)
	if err != nil {
		return fmt.Errorf("triage run failed: %w", err)
	}

	batch := report.NewBatchResult(results, stats)
	f.printSummary(batch, time.Since(startTime))

	if f.outPath != "" {
		data, err := batch.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		if err := os.WriteFile(f.outPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write results to %s: %w", f.outPath, err)
		}
		fmt.Fprintf(os.Stderr, "Results written to %s\n", f.outPath)
	}

	if f.reportPath != "" {
		md := batch.Markdown(f.reportTopN)
		if err := os.WriteFile(f.reportPath, []byte(md), 0644); err != nil {
			return fmt.Errorf("failed to write report to %s: %w", f.reportPath, err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", f.reportPath)
	}

	return nil
}

// printSummary writes the human-facing run summary to stderr so stdout stays
// clean for piped JSON.
func (f *CliFilter) printSummary(batch *report.BatchResult, elapsed time.Duration) {
	stats := batch.Stats
	fmt.Fprintf(os.Stderr, "\n=== Triage Summary ===\n")
	fmt.Fprintf(os.Stderr, "Processed: %d  Flagged: %d  Surfaced: %d  Ignored: %d\n",
		stats.Total, stats.Flagged, stats.Surfaced, stats.Ignored)
	fmt.Fprintf(os.Stderr, "AI classified: %d  Fallbacks: %d  Skipped records: %d\n",
		stats.Classified, stats.Fallbacks, stats.Skipped)
	fmt.Fprintf(os.Stderr, "Elapsed: %v\n", elapsed.Round(time.Millisecond))

	if len(batch.FlagCandidates) > 0 {
		fmt.Fprintf(os.Stderr, "\nFlag candidates:\n")
		for _, r := range batch.FlagCandidates {
			f.printCandidate(r)
		}
	}
	if len(batch.SurfaceCandidates) > 0 {
		fmt.Fprintf(os.Stderr, "\nSurface candidates:\n")
		for _, r := range batch.SurfaceCandidates {
			f.printCandidate(r)
		}
	}
	fmt.Fprintf(os.Stderr, "\n")
}

func (f *CliFilter) printCandidate(r *core.TriageResult) {
	subject := r.Email.Subject
	if subject == "" {
		subject = "(No Subject)"
	}
	fmt.Fprintf(os.Stderr, "  [%3d] %s  (from %s)\n", r.PriorityScore, subject, r.Email.From.Address)
	if f.verbose {
		fmt.Fprintf(os.Stderr, "        %s\n", r.Reason)
	}
}

// ProcessRecord triages a single record, mainly for direct invocations
func (f *CliFilter) ProcessRecord(ctx context.Context, raw *core.RawRecord) (*core.TriageResult, error) {
	return f.service.ProcessOne(ctx, raw)
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
