package core

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ServiceOptions carries the immutable per-run triage settings. Constructed
// once from configuration and never mutated during processing.
type ServiceOptions struct {
	SurfaceThreshold int
	FlagThreshold    int
	TopReasons       int

	AIEnabled     bool
	MinConfidence float64
	MaxAI         int
	MaxInflight   int
	AITimeout     time.Duration
}

// BatchStats counts per-run outcomes. No failure is swallowed without being
// counted here or logged.
type BatchStats struct {
	Total      int `json:"total"`
	Skipped    int `json:"skipped"`
	Classified int `json:"classified_by_ai"`
	Fallbacks  int `json:"ai_fallbacks"`
	Flagged    int `json:"flagged"`
	Surfaced   int `json:"surfaced"`
	Ignored    int `json:"ignored"`
}

// TriageService is the core engine: normalize, extract, score, decide, and
// merge the optional AI verdict, then learn sender outcomes.
type TriageService struct {
	normalizer Normalizer
	extractor  Extractor
	classifier Classifier
	store      SenderStore
	logger     *zap.Logger
	opts       ServiceOptions
}

// NewTriageService creates a new triage service. classifier may be nil when
// AI classification is disabled.
func NewTriageService(
	normalizer Normalizer,
	extractor Extractor,
	classifier Classifier,
	store SenderStore,
	logger *zap.Logger,
	opts ServiceOptions,
) *TriageService {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 4
	}
	if opts.MaxAI <= 0 {
		opts.MaxAI = -1 // unlimited
	}
	if opts.AITimeout <= 0 {
		opts.AITimeout = 30 * time.Second
	}
	return &TriageService{
		normalizer: normalizer,
		extractor:  extractor,
		classifier: classifier,
		store:      store,
		logger:     logger,
		opts:       opts,
	}
}

// noisePatterns mark automated senders/subjects that skip AI classification
// unless the owner is directly addressed.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)noreply|no-reply|do-not-reply|donotreply`),
	regexp.MustCompile(`(?i)notification|automated|auto-generated`),
	regexp.MustCompile(`(?i)newsletter|digest|weekly\s+update`),
	regexp.MustCompile(`(?i)unsubscribe`),
}

// ProcessBatch triages an ordered sequence of raw records. Per-record
// failures are isolated; the result sequence preserves input order. The
// sender memory is read during extraction and committed exactly once, after
// every decision is final. A canceled context still returns the decisions
// computed so far, with the store update fully skipped.
func (s *TriageService) ProcessBatch(ctx context.Context, raws []*RawRecord) ([]*TriageResult, *BatchStats, error) {
	stats := &BatchStats{Total: len(raws)}

	profiles, err := s.store.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	// Phase 1: deterministic heuristic pass, input order preserved.
	results := make([]*TriageResult, 0, len(raws))
	for _, raw := range raws {
		email, err := s.normalizer.Normalize(raw)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				stats.Skipped++
				s.logger.Warn("Skipping unusable record", zap.String("reason", verr.Reason))
				continue
			}
			return nil, nil, err
		}
		results = append(results, s.evaluate(email, profiles))
	}

	// Phase 2: optional AI corroboration with bounded concurrency.
	if s.opts.AIEnabled && s.classifier != nil {
		s.classifyBatch(ctx, results, stats)
	} else {
		for _, r := range results {
			Resolve(r, Resolution{Kind: HeuristicOnly}, s.opts.MinConfidence)
		}
	}

	for _, r := range results {
		switch r.Decision {
		case DecisionFlag:
			stats.Flagged++
		case DecisionSurface:
			stats.Surfaced++
		default:
			stats.Ignored++
		}
	}

	// Phase 3: single atomic sender-memory commit. Skipped entirely on
	// cancellation so the store is never left partially merged.
	if err := ctx.Err(); err != nil {
		s.logger.Warn("Run canceled before sender memory commit; store left unchanged", zap.Error(err))
		return results, stats, nil
	}
	s.learn(profiles, results)
	if err := s.store.Commit(ctx, profiles); err != nil {
		return nil, nil, err
	}

	return results, stats, nil
}

// ProcessOne triages a single raw record and commits the sender memory
// update for it. Used by the interactive frontends.
func (s *TriageService) ProcessOne(ctx context.Context, raw *RawRecord) (*TriageResult, error) {
	results, _, err := s.ProcessBatch(ctx, []*RawRecord{raw})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &ValidationError{Reason: "record was skipped"}
	}
	return results[0], nil
}

// evaluate runs the pure heuristic path for one email
func (s *TriageService) evaluate(email *Email, profiles map[string]*SenderProfile) *TriageResult {
	var profile *SenderProfile
	if addr := strings.ToLower(email.From.Address); addr != "" {
		profile = profiles[addr]
	}

	contributions := s.extractor.Extract(email, profile)
	score, reason, breakdown := Score(contributions, s.opts.TopReasons)

	return &TriageResult{
		Email:         email,
		Decision:      Decide(score, s.opts.SurfaceThreshold, s.opts.FlagThreshold),
		PriorityScore: score,
		Reason:        reason,
		Breakdown:     breakdown,
	}
}

// classifyBatch fans AI calls out over a bounded worker pool and merges the
// verdicts back in input order. Each call is independent: one failure
// degrades that single email to the heuristic fallback.
func (s *TriageService) classifyBatch(ctx context.Context, results []*TriageResult, stats *BatchStats) {
	resolutions := make([]Resolution, len(results))

	type job struct{ idx int }
	jobs := make(chan job)

	var wg sync.WaitGroup
	workers := s.opts.MaxInflight
	if workers > len(results) {
		workers = len(results)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				resolutions[j.idx] = s.classifyOne(ctx, results[j.idx].Email)
			}
		}()
	}

	budget := s.opts.MaxAI
	for i, r := range results {
		if skip, reason := s.shouldSkipAI(r.Email); skip {
			resolutions[i] = Resolution{Kind: HeuristicOnly, Fallback: "skipped: " + reason}
			continue
		}
		if budget == 0 {
			resolutions[i] = Resolution{Kind: HeuristicOnly, Fallback: "skipped: max_ai_limit"}
			continue
		}
		if budget > 0 {
			budget--
		}
		jobs <- job{idx: i}
	}
	close(jobs)
	wg.Wait()

	for i, r := range results {
		Resolve(r, resolutions[i], s.opts.MinConfidence)
		if resolutions[i].Kind == AIBacked {
			stats.Classified++
		}
		if r.Fallback != "" && !strings.HasPrefix(r.Fallback, "skipped:") {
			stats.Fallbacks++
		}
	}
}

// classifyOne performs a single classification attempt with its own timeout
func (s *TriageService) classifyOne(ctx context.Context, email *Email) Resolution {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.AITimeout)
	defer cancel()

	verdict, err := s.classifier.Classify(callCtx, email)
	if err != nil {
		kind := ClassifierMalformed
		var cerr *ClassifierError
		switch {
		case errors.As(err, &cerr):
			kind = cerr.Kind
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			kind = ClassifierTimeout
		}
		s.logger.Warn("AI classification failed, using heuristic decision",
			zap.String("message_id", email.MessageID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return Resolution{Kind: HeuristicOnly, Fallback: string(kind)}
	}
	return Resolution{Kind: AIBacked, Verdict: verdict}
}

// shouldSkipAI applies the pre-filter: empty bodies and automated noise are
// not worth a classifier call, unless the owner is directly addressed.
func (s *TriageService) shouldSkipAI(email *Email) (bool, string) {
	if strings.TrimSpace(email.BodyText) == "" && strings.TrimSpace(email.BodyPreview) == "" {
		return true, "empty_body"
	}
	if email.IsToMe {
		return false, ""
	}
	for _, p := range noisePatterns {
		if p.MatchString(email.Subject) || p.MatchString(email.From.Address) {
			return true, "noise_pattern"
		}
	}
	return false, ""
}

// learn folds final decisions back into the profile set. Counts only ever
// increase; a profile is created on first encounter of an address.
func (s *TriageService) learn(profiles map[string]*SenderProfile, results []*TriageResult) {
	now := time.Now().UTC()
	for _, r := range results {
		addr := strings.ToLower(strings.TrimSpace(r.Email.From.Address))
		if addr == "" {
			continue
		}
		profile, ok := profiles[addr]
		if !ok {
			profile = &SenderProfile{Address: addr}
			profiles[addr] = profile
		}
		profile.Record(r.Decision, now)
	}
}
