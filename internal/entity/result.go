package entity

import (
	"fmt"
	"time"
)

type Tier string

const (
	TierStrongMatch Tier = "STRONG_MATCH"
	TierGoodMatch   Tier = "GOOD_MATCH"
	TierConsider    Tier = "CONSIDER"
	TierWeakMatch   Tier = "WEAK_MATCH"
	TierReject      Tier = "REJECT"
)

type ScoreBreakdown struct {
	Education        float64 `json:"education"`
	CareerTrajectory float64 `json:"career_trajectory"`
	CompanyRelevance float64 `json:"company_relevance"`
	ExperienceMatch  float64 `json:"experience_match"`
	LocationMatch    float64 `json:"location_match"`
	Tenure           float64 `json:"tenure"`
}

// CandidateRecord is a profile after it went through every stage.
type CandidateRecord struct {
	CandidateProfile

	Score           float64        `json:"score"`
	ScoreBreakdown  ScoreBreakdown `json:"score_breakdown"`
	Recommendation  Tier           `json:"recommendation"`
	Reasoning       string         `json:"reasoning,omitempty"`
	Passed          bool           `json:"passed"`
	OutreachMessage string         `json:"outreach_message"`
	Enriched        bool           `json:"enriched"`
	DegradedStages  []string       `json:"degraded_stages,omitempty"`
}

type JobResult struct {
	JobID            string            `json:"job_id"`
	TotalCandidates  int               `json:"total_candidates"`
	PassedCandidates int               `json:"passed_candidates"`
	FailedCandidates int               `json:"failed_candidates"`
	PassRate         string            `json:"pass_rate"`
	Candidates       []CandidateRecord `json:"candidates"`
	Cached           bool              `json:"cached"`
	SearchMethod     Strategy          `json:"search_method"`
	SearchQuery      string            `json:"search_query,omitempty"`
	AIKeywordsUsed   bool              `json:"ai_keywords_used"`
	SearchTime       float64           `json:"search_time"`
	ScoringTime      float64           `json:"scoring_time"`
	CompletedAt      time.Time         `json:"completed_at"`
}

// PassRate renders passed/total as a percentage with one decimal place.
func PassRate(passed, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(passed)/float64(total)*100)
}

type CandidateSummary struct {
	LinkedInURL string  `json:"linkedin_url"`
	Score       float64 `json:"score"`
}

// JobSummary is the listing view of a job: no full profile detail.
type JobSummary struct {
	JobID            string             `json:"job_id"`
	Status           JobStatus          `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	TotalCandidates  *int               `json:"total_candidates,omitempty"`
	PassedCandidates *int               `json:"passed_candidates,omitempty"`
	Candidates       []CandidateSummary `json:"candidates,omitempty"`
}
