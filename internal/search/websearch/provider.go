// Package websearch finds public profile pages with a search-grounded model.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/llm"
	"talent-sourcing-service/internal/search"
)

// GroundedClient runs a prompt with web search grounding and returns JSON
// that matches schema. gemini.Client satisfies it.
type GroundedClient interface {
	GroundedJSON(ctx context.Context, prompt string, schema *genai.Schema) (string, []string, error)
}

type Provider struct {
	client GroundedClient
	log    *slog.Logger
}

func New(client GroundedClient, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{client: client, log: logger.With("component", "websearch")}
}

var profilesSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"profiles": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":         {Type: genai.TypeString},
					"headline":     {Type: genai.TypeString},
					"location":     {Type: genai.TypeString},
					"linkedin_url": {Type: genai.TypeString},
				},
				Required: []string{"name", "linkedin_url"},
			},
		},
	},
	Required: []string{"profiles"},
}

type hit struct {
	Name        string `json:"name"`
	Headline    string `json:"headline"`
	Location    string `json:"location"`
	LinkedInURL string `json:"linkedin_url"`
}

// Search implements search.Provider.
func (p *Provider) Search(ctx context.Context, q search.Query) ([]entity.CandidateProfile, error) {
	query := search.BuildQuery(q.Keywords)
	text, sources, err := p.client.GroundedJSON(ctx, prompt(query, q.Limit), profilesSchema)
	if err != nil {
		return nil, err
	}
	p.log.Debug("websearch.grounded", "query", query, "sources", len(sources))

	var out struct {
		Profiles []hit `json:"profiles"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &out); err != nil {
		return nil, fmt.Errorf("websearch decode: %w", err)
	}

	profiles := make([]entity.CandidateProfile, 0, len(out.Profiles))
	for _, h := range out.Profiles {
		profiles = append(profiles, entity.CandidateProfile{
			Name:        cleanName(h.Name),
			Headline:    strings.TrimSpace(h.Headline),
			Location:    strings.TrimSpace(h.Location),
			LinkedInURL: strings.TrimSpace(h.LinkedInURL),
		})
	}
	return profiles, nil
}

func prompt(query string, limit int) string {
	return fmt.Sprintf(`Use Google Search with this exact query:
%s

Return up to %d distinct people whose LinkedIn profile pages (linkedin.com/in/...) appear in the results.
For each person give their name, headline, location and the profile URL exactly as found.
Do not invent people or URLs.`, query, limit)
}

// cleanName drops the " - Title | LinkedIn" tail search results carry.
func cleanName(s string) string {
	s = strings.TrimSpace(s)
	for _, sep := range []string{" | ", " - ", " – "} {
		if i := strings.Index(s, sep); i > 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
