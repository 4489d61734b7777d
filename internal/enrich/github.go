package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"talent-sourcing-service/internal/entity"
)

var ErrNoMatch = errors.New("no matching secondary profile")

const (
	topLanguages    = 5
	topRepositories = 5
)

type GitHubConfig struct {
	// BaseURL overrides https://api.github.com/, for GitHub Enterprise or tests.
	BaseURL string
	Token   string
	Timeout time.Duration
}

// GitHubSource finds a candidate's GitHub account by name and summarises
// their public repositories.
type GitHubSource struct {
	client *github.Client
}

func NewGitHubSource(cfg GitHubConfig) (*GitHubSource, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := github.NewClient(&http.Client{Timeout: cfg.Timeout})
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github base url: %w", err)
		}
		client.BaseURL = u
	}
	return &GitHubSource{client: client}, nil
}

func (g *GitHubSource) Lookup(ctx context.Context, candidate entity.CandidateProfile) (entity.AuxiliaryData, error) {
	name := strings.Join(strings.Fields(candidate.Name), " ")
	if name == "" {
		return entity.AuxiliaryData{}, ErrNoMatch
	}

	found, _, err := g.client.Search.Users(ctx, name+" in:name", &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return entity.AuxiliaryData{}, classify(err)
	}
	if len(found.Users) == 0 || found.Users[0].GetLogin() == "" {
		return entity.AuxiliaryData{}, ErrNoMatch
	}
	login := found.Users[0].GetLogin()

	user, _, err := g.client.Users.Get(ctx, login)
	if err != nil {
		return entity.AuxiliaryData{}, classify(err)
	}
	repos, _, err := g.client.Repositories.ListByUser(ctx, login, &github.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return entity.AuxiliaryData{}, classify(err)
	}

	langs := languagesByUse(repos)
	return entity.AuxiliaryData{
		Source:   "github",
		Skills:   langs,
		Bio:      strings.TrimSpace(user.GetBio()),
		Location: strings.TrimSpace(user.GetLocation()),
		Company:  strings.TrimPrefix(strings.TrimSpace(user.GetCompany()), "@"),
		Website:  strings.TrimSpace(user.GetBlog()),
		GitHub: &entity.GitHubSummary{
			Username:        user.GetLogin(),
			ProfileURL:      user.GetHTMLURL(),
			PublicRepos:     user.GetPublicRepos(),
			Followers:       user.GetFollowers(),
			TopLanguages:    langs,
			TopRepositories: topByStars(repos),
		},
	}, nil
}

// classify maps go-github errors onto the pipeline's retry policy.
func classify(err error) error {
	var (
		rle *github.RateLimitError
		are *github.AbuseRateLimitError
		ere *github.ErrorResponse
	)
	switch {
	case errors.As(err, &rle), errors.As(err, &are):
		return &entity.TransientError{Err: fmt.Errorf("github: %w", err)}
	case errors.As(err, &ere) && ere.Response != nil:
		code := ere.Response.StatusCode
		switch {
		case code == http.StatusNotFound:
			return ErrNoMatch
		case code == http.StatusForbidden, code == http.StatusTooManyRequests, code >= 500:
			return &entity.TransientError{Err: fmt.Errorf("github: %w", err)}
		}
		return fmt.Errorf("github: %w", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		// transport failure
		return &entity.TransientError{Err: fmt.Errorf("github: %w", err)}
	}
}

// languagesByUse counts the primary language of each non-fork repository.
func languagesByUse(repos []*github.Repository) []string {
	counts := map[string]int{}
	for _, r := range repos {
		if r.GetFork() || r.GetLanguage() == "" {
			continue
		}
		counts[r.GetLanguage()]++
	}
	langs := make([]string, 0, len(counts))
	for l := range counts {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if counts[langs[i]] != counts[langs[j]] {
			return counts[langs[i]] > counts[langs[j]]
		}
		return langs[i] < langs[j]
	})
	if len(langs) > topLanguages {
		langs = langs[:topLanguages]
	}
	return langs
}

func topByStars(repos []*github.Repository) []entity.Repository {
	sorted := append([]*github.Repository(nil), repos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].GetStargazersCount() > sorted[j].GetStargazersCount()
	})
	if len(sorted) > topRepositories {
		sorted = sorted[:topRepositories]
	}
	out := make([]entity.Repository, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, entity.Repository{
			Name:        r.GetName(),
			Description: r.GetDescription(),
			Language:    r.GetLanguage(),
			URL:         r.GetHTMLURL(),
			Stars:       r.GetStargazersCount(),
		})
	}
	return out
}
