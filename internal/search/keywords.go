package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"talent-sourcing-service/internal/llm"
)

// Keywords are the search terms derived from a requirement text.
type Keywords struct {
	JobTitle  string   `json:"job_title"`
	Industry  string   `json:"industry"`
	Location  string   `json:"location"`
	Skills    []string `json:"skills"`
	Companies []string `json:"companies"`

	// FromModel is set when the language model produced the keywords.
	FromModel bool `json:"-"`
}

const defaultJobTitle = "software engineer"

var keywordsSchema = map[string]any{
	"type":     "object",
	"required": []any{"job_title"},
	"properties": map[string]any{
		"job_title": map[string]any{"type": "string"},
		"industry":  map[string]any{"type": "string"},
		"location":  map[string]any{"type": "string"},
		"skills":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"companies": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
}

// Extractor derives Keywords with a language model and falls back to a
// deterministic pattern match when the model is missing or fails.
type Extractor struct {
	completer llm.Completer
	log       *slog.Logger
}

func NewExtractor(c llm.Completer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{completer: c, log: logger.With("component", "keywords")}
}

func (e *Extractor) Extract(ctx context.Context, requirementText string) Keywords {
	if e.completer == nil {
		return BasicKeywords(requirementText)
	}
	out, err := e.completer.Complete(ctx, llm.Request{
		System:    "You are a LinkedIn search expert. Extract the most effective search keywords from job descriptions. Return only valid JSON.",
		Prompt:    keywordsPrompt(requirementText),
		JSON:      true,
		MaxTokens: 500,
	})
	if err != nil {
		e.log.Warn("keywords.llm_failed", "error", err)
		return BasicKeywords(requirementText)
	}
	var k Keywords
	if err := llm.DecodeValidated(out, keywordsSchema, &k); err != nil || strings.TrimSpace(k.JobTitle) == "" {
		e.log.Warn("keywords.llm_unusable", "error", err)
		return BasicKeywords(requirementText)
	}
	k.JobTitle = strings.TrimSpace(k.JobTitle)
	k.Industry = strings.TrimSpace(k.Industry)
	k.Location = strings.TrimSpace(k.Location)
	k.FromModel = true
	return k
}

func keywordsPrompt(text string) string {
	return fmt.Sprintf(`Analyze this job description and extract the best LinkedIn search keywords.

Job Description:
%s

Return a JSON object with:
- job_title: primary job title to search for
- industry: industry or domain (e.g. fintech, healthcare, AI)
- location: primary location if mentioned
- skills: top 3-5 technical skills mentioned
- companies: notable companies mentioned or similar companies to target`, strings.TrimSpace(text))
}

var (
	titleRe = regexp.MustCompile(`(?i)\b((?:senior|staff|principal|lead|junior)\s+)?(software engineer|backend engineer|frontend engineer|full[- ]stack engineer|data scientist|data engineer|machine learning engineer|ml engineer|devops engineer|site reliability engineer|product manager|engineering manager)\b`)
	cityRe  = regexp.MustCompile(`(?i)\b(San Francisco|New York|Seattle|Austin|Boston|Los Angeles|London|Berlin|Toronto|Remote)\b`)
	skillRe = regexp.MustCompile(`(?i)\b(Go|Golang|Python|Java|TypeScript|JavaScript|Rust|Kotlin|Kubernetes|Docker|AWS|GCP|Azure|PostgreSQL|Redis|Kafka|React|Terraform|PyTorch|TensorFlow|LLM|SQL)\b`)
)

// BasicKeywords is the pattern-based extractor.
func BasicKeywords(text string) Keywords {
	k := Keywords{JobTitle: defaultJobTitle}
	if m := titleRe.FindStringSubmatch(text); m != nil {
		k.JobTitle = strings.ToLower(strings.TrimSpace(m[0]))
	}
	if m := cityRe.FindString(text); m != "" {
		k.Location = m
	}
	seen := map[string]bool{}
	for _, s := range skillRe.FindAllString(text, -1) {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		k.Skills = append(k.Skills, s)
		if len(k.Skills) == 5 {
			break
		}
	}
	return k
}

// BuildQuery renders Keywords as a web-search query restricted to profile
// pages: site:linkedin.com/in "title" "industry" "location" "skill1" "skill2".
func BuildQuery(k Keywords) string {
	parts := []string{"site:linkedin.com/in"}
	for _, v := range []string{k.JobTitle, k.Industry, k.Location} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, quote(v))
		}
	}
	added := 0
	for _, s := range k.Skills {
		if added == 2 {
			break
		}
		if s = strings.TrimSpace(s); len(s) > 2 {
			parts = append(parts, quote(s))
			added++
		}
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "") + `"`
}
