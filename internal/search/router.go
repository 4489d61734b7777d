// Package search turns a requirement text into candidate stubs using one of
// the configured search strategies.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"talent-sourcing-service/internal/entity"
)

// Query is what a Provider receives.
type Query struct {
	Keywords Keywords
	Text     string
	Limit    int
}

type Provider interface {
	Search(ctx context.Context, q Query) ([]entity.CandidateProfile, error)
}

type KeywordExtractor interface {
	Extract(ctx context.Context, requirementText string) Keywords
}

// Router dispatches a search to the provider registered for the job's
// strategy and cleans up what comes back.
type Router struct {
	extractor KeywordExtractor
	providers map[entity.Strategy]Provider
	log       *slog.Logger
}

func NewRouter(extractor KeywordExtractor, providers map[entity.Strategy]Provider, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = NewExtractor(nil, logger)
	}
	return &Router{extractor: extractor, providers: providers, log: logger.With("component", "search")}
}

func (r *Router) Search(ctx context.Context, text string, strategy entity.Strategy, limit int) (entity.SearchResult, error) {
	p, ok := r.providers[strategy]
	if !ok || p == nil {
		return entity.SearchResult{}, fmt.Errorf("no search provider for strategy %q", strategy)
	}

	kw := r.extractor.Extract(ctx, text)
	query := BuildQuery(kw)
	r.log.Info("search.start", "strategy", strategy, "query", query, "limit", limit)

	found, err := p.Search(ctx, Query{Keywords: kw, Text: text, Limit: limit})
	if err != nil {
		return entity.SearchResult{}, err
	}

	out := make([]entity.CandidateProfile, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, c := range found {
		c.Name = strings.TrimSpace(c.Name)
		if c.LinkedInURL != "" {
			clean, ok := CleanProfileURL(c.LinkedInURL)
			if !ok {
				r.log.Debug("search.drop_url", "url", c.LinkedInURL)
				continue
			}
			c.LinkedInURL = clean
		}
		if err := c.Validate(); err != nil {
			continue
		}
		id := c.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	r.log.Info("search.done", "strategy", strategy, "found", len(found), "kept", len(out))
	return entity.SearchResult{Query: query, Candidates: out, AIKeywordsUsed: kw.FromModel}, nil
}

// CleanProfileURL normalizes a LinkedIn profile link to
// https://www.linkedin.com/in/<slug>. Anything that is not a personal
// profile page is rejected.
func CleanProfileURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return "", false
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	if !strings.HasPrefix(path, "/in/") || len(path) == len("/in/") {
		return "", false
	}
	return "https://www.linkedin.com" + path, true
}
