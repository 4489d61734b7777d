package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/pipeline"
)

// MaxSyncLimit caps synchronous requests; larger limits are lowered, not
// rejected.
const MaxSyncLimit = 10

// PipelineRunner runs the four stages for one request (implementation:
// pipeline.Pipeline).
type PipelineRunner interface {
	Run(ctx context.Context, desc entity.JobDescriptor, progress pipeline.ProgressFunc) (entity.JobResult, error)
}

type SourcingServiceConfig struct {
	// Timeout bounds one synchronous run.
	Timeout time.Duration
}

// SourcingService answers a sourcing request inline, without the queue or
// the state store.
type SourcingService struct {
	runner PipelineRunner
	cfg    SourcingServiceConfig
	log    *slog.Logger
	newID  func() string
}

func NewSourcingService(runner PipelineRunner, cfg SourcingServiceConfig, logger *slog.Logger) *SourcingService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SourcingService{
		runner: runner,
		cfg:    cfg,
		log:    logger.With("component", "sourcing"),
		newID:  func() string { return uuid.NewString() },
	}
}

type SourcedCandidate struct {
	Name                string                `json:"name"`
	LinkedInURL         string                `json:"linkedin_url"`
	FitScore            float64               `json:"fit_score"`
	ScoreBreakdown      entity.ScoreBreakdown `json:"score_breakdown"`
	Recommendation      entity.Tier           `json:"recommendation"`
	KeyCharacteristics  []string              `json:"key_characteristics"`
	JobMatchHighlights  []string              `json:"job_match_highlights"`
	PersonalizedMessage string                `json:"personalized_outreach_message"`
}

type SourcingSummary struct {
	AverageFitScore     float64 `json:"average_fit_score"`
	CandidatesAbove7    int     `json:"candidates_above_7"`
	SearchQueryUsed     string  `json:"search_query_used"`
	AIKeywordsExtracted bool    `json:"ai_keywords_extracted"`
}

type SourceResponse struct {
	JobID                 string             `json:"job_id"`
	CandidatesFound       int                `json:"candidates_found"`
	SearchMethod          entity.Strategy    `json:"search_method"`
	ProcessingTimeSeconds float64            `json:"processing_time_seconds"`
	TopCandidates         []SourcedCandidate `json:"top_candidates"`
	Summary               SourcingSummary    `json:"summary"`
}

// Source validates req, runs the pipeline inline and returns the candidates
// ordered by fit score, best first.
func (s *SourcingService) Source(ctx context.Context, req SubmitRequest) (SourceResponse, error) {
	if req.Limit > MaxSyncLimit {
		req.Limit = MaxSyncLimit
	}
	if err := req.Validate(); err != nil {
		return SourceResponse{}, err
	}

	jobID := s.newID()
	log := s.log.With("job_id", jobID)
	log.Info("sourcing.started", "strategy", req.Strategy, "limit", req.Limit)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := s.runner.Run(ctx, entity.JobDescriptor{
		JobID:           jobID,
		RequirementText: strings.TrimSpace(req.RequirementText),
		Strategy:        req.Strategy,
		Limit:           req.Limit,
	}, nil)
	if err != nil {
		log.Error("sourcing.failed", "error", err)
		return SourceResponse{}, &InfrastructureError{Op: "source candidates", Err: err}
	}

	out := SourceResponse{
		JobID:                 jobID,
		SearchMethod:          req.Strategy,
		ProcessingTimeSeconds: round(res.SearchTime+res.ScoringTime, 2),
		TopCandidates:         make([]SourcedCandidate, 0, len(res.Candidates)),
	}
	for i, c := range res.Candidates {
		if i == req.Limit {
			break
		}
		out.TopCandidates = append(out.TopCandidates, sourced(c))
	}
	sort.SliceStable(out.TopCandidates, func(i, j int) bool {
		return out.TopCandidates[i].FitScore > out.TopCandidates[j].FitScore
	})
	out.CandidatesFound = len(out.TopCandidates)
	out.Summary = summarize(out.TopCandidates, res)

	log.Info("sourcing.done", "candidates", out.CandidatesFound, "average_fit_score", out.Summary.AverageFitScore)
	return out, nil
}

func sourced(c entity.CandidateRecord) SourcedCandidate {
	b := c.ScoreBreakdown
	fit := round(c.Score, 1)
	return SourcedCandidate{
		Name:        c.Name,
		LinkedInURL: c.LinkedInURL,
		FitScore:    fit,
		ScoreBreakdown: entity.ScoreBreakdown{
			Education:        round(b.Education, 1),
			CareerTrajectory: round(b.CareerTrajectory, 1),
			CompanyRelevance: round(b.CompanyRelevance, 1),
			ExperienceMatch:  round(b.ExperienceMatch, 1),
			LocationMatch:    round(b.LocationMatch, 1),
			Tenure:           round(b.Tenure, 1),
		},
		Recommendation:     c.Recommendation,
		KeyCharacteristics: keyCharacteristics(c.CandidateProfile),
		JobMatchHighlights: []string{
			fmt.Sprintf("Fit score: %.1f/10", fit),
			fmt.Sprintf("Recommendation: %s", c.Recommendation),
			fmt.Sprintf("Skills alignment: %.1f/10", round(b.ExperienceMatch, 1)),
		},
		PersonalizedMessage: c.OutreachMessage,
	}
}

// keyCharacteristics lists the profile facts a recruiter scans first.
func keyCharacteristics(p entity.CandidateProfile) []string {
	out := make([]string, 0, 5)
	if p.Headline != "" {
		out = append(out, "Current role: "+p.Headline)
	}
	if p.CurrentCompany != "" {
		out = append(out, "Company: "+p.CurrentCompany)
	}
	if p.Location != "" {
		out = append(out, "Location: "+p.Location)
	}
	if len(p.Skills) > 0 {
		top := p.Skills
		if len(top) > 3 {
			top = top[:3]
		}
		out = append(out, "Top skills: "+strings.Join(top, ", "))
	}
	if len(p.Experience) > 0 && p.Experience[0].Company != "" {
		out = append(out, "Previous experience: "+p.Experience[0].Company)
	}
	return out
}

func summarize(top []SourcedCandidate, res entity.JobResult) SourcingSummary {
	sum := SourcingSummary{
		SearchQueryUsed:     res.SearchQuery,
		AIKeywordsExtracted: res.AIKeywordsUsed,
	}
	if len(top) == 0 {
		return sum
	}
	var total float64
	for _, c := range top {
		total += c.FitScore
		if c.FitScore >= 7 {
			sum.CandidatesAbove7++
		}
	}
	sum.AverageFitScore = round(total/float64(len(top)), 1)
	return sum
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
