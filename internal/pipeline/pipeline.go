// Package pipeline runs one sourcing job through Search, Enrich, Score and
// Outreach, in that order.
//
// Search failing fails the job. Every later stage fans out per candidate and
// turns a failed call into a fallback for that candidate only, so the result
// always holds every candidate Search returned, in Search order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/scoring"
)

const (
	StageSearch   = "search"
	StageEnrich   = "enrich"
	StageScore    = "score"
	StageOutreach = "outreach"
)

// DefaultOutreachMessage replaces a message that could not be generated.
const DefaultOutreachMessage = "Hi, I'd like to connect with you."

type Searcher interface {
	Search(ctx context.Context, requirementText string, strategy entity.Strategy, limit int) (entity.SearchResult, error)
}

type Enricher interface {
	Enrich(ctx context.Context, candidate entity.CandidateProfile) (entity.AuxiliaryData, error)
}

type ScoreProvider interface {
	Score(ctx context.Context, candidate entity.CandidateProfile, requirementText string) (scoring.Assessment, error)
}

type OutreachWriter interface {
	Write(ctx context.Context, candidate entity.CandidateRecord, requirementText string) (string, error)
}

// StageObserver is told about every per-candidate failure that was absorbed.
type StageObserver interface {
	ObserveStageFailure(stage string)
}

// ProgressFunc receives coarse progress (0..100) at stage boundaries.
type ProgressFunc func(progress int, message string)

// StageError is a job-fatal stage failure.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

type Pipeline struct {
	searcher Searcher
	enricher Enricher
	scorer   ScoreProvider
	outreach OutreachWriter

	caller   *caller
	observer StageObserver
	log      *slog.Logger
	now      func() time.Time
}

type Config struct {
	Searcher Searcher
	Enricher Enricher
	Scorer   ScoreProvider
	Outreach OutreachWriter
	Options  Options
	Observer StageObserver
	Logger   *slog.Logger
}

func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		searcher: cfg.Searcher,
		enricher: cfg.Enricher,
		scorer:   cfg.Scorer,
		outreach: cfg.Outreach,
		caller:   newCaller(cfg.Options),
		observer: cfg.Observer,
		log:      logger.With("component", "pipeline"),
		now:      time.Now,
	}
}

// working is the per-candidate state threaded through the stages.
type working struct {
	profile  entity.CandidateProfile
	enriched bool
	eval     scoring.Evaluation
	message  string
	degraded []string
}

func (p *Pipeline) Run(ctx context.Context, desc entity.JobDescriptor, progress ProgressFunc) (entity.JobResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	log := p.log.With("job_id", desc.JobID)

	searchStart := p.now()
	found, err := callWithRetry(ctx, p.caller, func(ctx context.Context) (entity.SearchResult, error) {
		return p.searcher.Search(ctx, desc.RequirementText, desc.Strategy, desc.Limit)
	})
	if err != nil {
		return entity.JobResult{}, &StageError{Stage: StageSearch, Err: err}
	}
	searchTime := p.now().Sub(searchStart)
	log.Info("pipeline.search.done", "candidates", len(found.Candidates), "duration_ms", searchTime.Milliseconds())

	items := make([]*working, len(found.Candidates))
	for i, c := range found.Candidates {
		items[i] = &working{profile: c}
	}
	progress(25, fmt.Sprintf("Found %d candidates, enriching profiles", len(items)))

	scoreStart := p.now()
	p.enrich(ctx, log, items)
	progress(50, "Profiles enriched, scoring candidates")

	p.score(ctx, log, items, desc.RequirementText)
	scoringTime := p.now().Sub(scoreStart)
	progress(75, "Candidates scored, generating outreach")

	p.writeOutreach(ctx, log, items, desc.RequirementText)
	progress(90, "Aggregating results")

	records := make([]entity.CandidateRecord, len(items))
	for i, w := range items {
		records[i] = w.record()
	}
	res := Aggregate(desc.JobID, records)
	res.SearchMethod = desc.Strategy
	res.SearchQuery = found.Query
	res.AIKeywordsUsed = found.AIKeywordsUsed
	res.SearchTime = round2(searchTime.Seconds())
	res.ScoringTime = round2(scoringTime.Seconds())
	res.CompletedAt = p.now().UTC()
	return res, nil
}

func (p *Pipeline) enrich(ctx context.Context, log *slog.Logger, items []*working) {
	if p.enricher == nil {
		return
	}
	outcomes := fanOut(ctx, p.caller, items, func(ctx context.Context, w *working) (entity.AuxiliaryData, error) {
		return p.enricher.Enrich(ctx, w.profile)
	})
	for i, o := range outcomes {
		w := items[i]
		if !o.OK() {
			p.degrade(log, w, StageEnrich, o.Err)
			continue
		}
		w.profile = w.profile.Merge(o.Value)
		w.enriched = true
	}
}

func (p *Pipeline) score(ctx context.Context, log *slog.Logger, items []*working, requirementText string) {
	outcomes := fanOut(ctx, p.caller, items, func(ctx context.Context, w *working) (scoring.Assessment, error) {
		return p.scorer.Score(ctx, w.profile, requirementText)
	})
	for i, o := range outcomes {
		w := items[i]
		if !o.OK() {
			p.degrade(log, w, StageScore, o.Err)
			w.eval = scoring.Fallback("Scoring unavailable for this candidate")
			continue
		}
		w.eval = scoring.Evaluate(o.Value)
	}
}

func (p *Pipeline) writeOutreach(ctx context.Context, log *slog.Logger, items []*working, requirementText string) {
	outcomes := fanOut(ctx, p.caller, items, func(ctx context.Context, w *working) (string, error) {
		msg, err := p.outreach.Write(ctx, w.record(), requirementText)
		if err == nil && msg == "" {
			err = fmt.Errorf("empty outreach message")
		}
		return msg, err
	})
	for i, o := range outcomes {
		w := items[i]
		if !o.OK() {
			p.degrade(log, w, StageOutreach, o.Err)
			w.message = DefaultOutreachMessage
			continue
		}
		w.message = o.Value
	}
}

func (p *Pipeline) degrade(log *slog.Logger, w *working, stage string, err error) {
	w.degraded = append(w.degraded, stage)
	log.Warn("pipeline.item.degraded", "stage", stage, "candidate", w.profile.Name, "error", err)
	if p.observer != nil {
		p.observer.ObserveStageFailure(stage)
	}
}

func (w *working) record() entity.CandidateRecord {
	return entity.CandidateRecord{
		CandidateProfile: w.profile,
		Score:            w.eval.Score,
		ScoreBreakdown:   w.eval.Breakdown,
		Recommendation:   w.eval.Tier,
		Reasoning:        w.eval.Reasoning,
		Passed:           w.eval.Passed,
		OutreachMessage:  w.message,
		Enriched:         w.enriched,
		DegradedStages:   append([]string(nil), w.degraded...),
	}
}

// Aggregate reduces ordered candidate records into a JobResult.
func Aggregate(jobID string, records []entity.CandidateRecord) entity.JobResult {
	if records == nil {
		records = []entity.CandidateRecord{}
	}
	passed := 0
	for _, r := range records {
		if r.Passed {
			passed++
		}
	}
	total := len(records)
	return entity.JobResult{
		JobID:            jobID,
		TotalCandidates:  total,
		PassedCandidates: passed,
		FailedCandidates: total - passed,
		PassRate:         entity.PassRate(passed, total),
		Candidates:       records,
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
