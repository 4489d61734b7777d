package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/llm"
)

var assessmentSchema = map[string]any{
	"type":     "object",
	"required": []any{"score", "breakdown"},
	"properties": map[string]any{
		"score":     map[string]any{"type": "number"},
		"reasoning": map[string]any{"type": "string"},
		"breakdown": map[string]any{
			"type": "object",
			"required": []any{
				"education", "career_trajectory", "company_relevance",
				"experience_match", "location_match", "tenure",
			},
			"properties": map[string]any{
				"education":         map[string]any{"type": "number"},
				"career_trajectory": map[string]any{"type": "number"},
				"company_relevance": map[string]any{"type": "number"},
				"experience_match":  map[string]any{"type": "number"},
				"location_match":    map[string]any{"type": "number"},
				"tenure":            map[string]any{"type": "number"},
			},
		},
	},
}

type assessmentDTO struct {
	Score     float64               `json:"score"`
	Reasoning string                `json:"reasoning"`
	Breakdown entity.ScoreBreakdown `json:"breakdown"`
}

// LLMProvider asks a language model for a six-dimension assessment.
type LLMProvider struct {
	completer llm.Completer
}

func NewLLMProvider(c llm.Completer) *LLMProvider {
	return &LLMProvider{completer: c}
}

func (p *LLMProvider) Score(ctx context.Context, candidate entity.CandidateProfile, requirementText string) (Assessment, error) {
	out, err := p.completer.Complete(ctx, llm.Request{
		System:      scoringSystemPrompt,
		Prompt:      buildScoringPrompt(candidate, requirementText),
		JSON:        true,
		Temperature: 0.1,
		MaxTokens:   600,
	})
	if err != nil {
		return Assessment{}, err
	}

	var dto assessmentDTO
	if err := llm.DecodeValidated(out, assessmentSchema, &dto); err != nil {
		return Assessment{}, fmt.Errorf("score response: %w", err)
	}
	return Assessment{
		Breakdown: dto.Breakdown,
		Reported:  dto.Score,
		Reasoning: strings.TrimSpace(dto.Reasoning),
	}, nil
}

const scoringSystemPrompt = `You are an expert technical recruiter. Score a candidate against a job description on six dimensions, each from 0 to 10:
education, career_trajectory, company_relevance, experience_match, location_match, tenure.
Also give an overall score from 0 to 10 and a one-paragraph reasoning.
Respond with JSON only: {"score": number, "reasoning": string, "breakdown": {...six numbers...}}`

func buildScoringPrompt(c entity.CandidateProfile, requirementText string) string {
	profile, _ := json.MarshalIndent(struct {
		Name       string                   `json:"name"`
		Headline   string                   `json:"headline,omitempty"`
		Location   string                   `json:"location,omitempty"`
		Company    string                   `json:"current_company,omitempty"`
		Position   string                   `json:"current_position,omitempty"`
		Summary    string                   `json:"summary,omitempty"`
		Skills     []string                 `json:"skills,omitempty"`
		Experience []entity.ExperienceEntry `json:"experience,omitempty"`
		Education  []entity.EducationEntry  `json:"education,omitempty"`
	}{
		c.Name, c.Headline, c.Location, c.CurrentCompany, c.CurrentPosition,
		c.Summary, c.Skills, c.Experience, c.Education,
	}, "", "  ")

	var b strings.Builder
	b.WriteString("Job description:\n")
	b.WriteString(strings.TrimSpace(requirementText))
	b.WriteString("\n\nCandidate profile:\n")
	b.Write(profile)
	return b.String()
}
