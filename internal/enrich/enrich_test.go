package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-sourcing-service/internal/entity"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) Lookup(_ context.Context, c entity.CandidateProfile) (entity.AuxiliaryData, error) {
	s.calls++
	if s.err != nil {
		return entity.AuxiliaryData{}, s.err
	}
	return entity.AuxiliaryData{Source: "test", Bio: fmt.Sprintf("call %d", s.calls)}, nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (entity.AuxiliaryData, bool, error) {
	return entity.AuxiliaryData{}, false, errors.New("cache down")
}
func (failingCache) Put(context.Context, string, entity.AuxiliaryData) error {
	return errors.New("cache down")
}

func TestCachedEnricher_FreshnessWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &countingSource{}
	e := NewCachedEnricher(src, NewMemoryCache(), WithClock(func() time.Time { return now }))
	ada := entity.CandidateProfile{Name: "Ada", LinkedInURL: "https://www.linkedin.com/in/ada"}

	first, err := e.Enrich(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, "call 1", first.Bio)

	now = now.Add(6*24*time.Hour + 23*time.Hour)
	second, err := e.Enrich(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "within 7 days the cached value is reused")
	assert.Equal(t, "call 1", second.Bio)

	now = now.Add(2 * time.Hour)
	third, err := e.Enrich(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls, "after 7 days the source is asked again")
	assert.Equal(t, "call 2", third.Bio)
}

func TestCachedEnricher_SameIdentityDifferentSpelling(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{}
	e := NewCachedEnricher(src, NewMemoryCache())

	_, err := e.Enrich(ctx, entity.CandidateProfile{Name: "A", LinkedInURL: "https://www.linkedin.com/in/ada/"})
	require.NoError(t, err)
	_, err = e.Enrich(ctx, entity.CandidateProfile{Name: "B", LinkedInURL: "https://www.linkedin.com/in/Ada"})
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestCachedEnricher_SourceErrorPropagates(t *testing.T) {
	e := NewCachedEnricher(&countingSource{err: ErrNoMatch}, NewMemoryCache())
	_, err := e.Enrich(context.Background(), entity.CandidateProfile{Name: "Nobody"})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestCachedEnricher_CacheErrorsAreIgnored(t *testing.T) {
	src := &countingSource{}
	e := NewCachedEnricher(src, failingCache{})
	d, err := e.Enrich(context.Background(), entity.CandidateProfile{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "call 1", d.Bio)
}

func newGitHubServer(t *testing.T, searchStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Ada Lovelace in:name", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		if searchStatus != http.StatusOK {
			if searchStatus == http.StatusForbidden {
				w.Header().Set("X-RateLimit-Limit", "60")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))
			}
			w.WriteHeader(searchStatus)
			_, _ = w.Write([]byte(`{"message":"upstream says no"}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"login":"ada"}]}`))
	})
	mux.HandleFunc("/users/ada", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"login":"ada","html_url":"https://github.com/ada","company":"@engines",
			"blog":"https://ada.dev","location":"London","bio":"Poet of numbers","public_repos":4,"followers":99}`))
	})
	mux.HandleFunc("/users/ada/repos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"name":"engine","language":"Go","html_url":"u1","stargazers_count":50},
			{"name":"notes","language":"Python","html_url":"u2","stargazers_count":5},
			{"name":"cli","language":"Go","html_url":"u3","stargazers_count":80},
			{"name":"fork","language":"C","html_url":"u4","stargazers_count":1000,"fork":true}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubSource_Lookup(t *testing.T) {
	srv := newGitHubServer(t, http.StatusOK)
	g := newGitHubSource(t, srv.URL, "gh-token")

	d, err := g.Lookup(context.Background(), entity.CandidateProfile{Name: " Ada  Lovelace "})
	require.NoError(t, err)

	assert.Equal(t, "github", d.Source)
	assert.Equal(t, []string{"Go", "Python"}, d.Skills)
	assert.Equal(t, "engines", d.Company)
	assert.Equal(t, "London", d.Location)
	assert.Equal(t, "Poet of numbers", d.Bio)
	assert.Equal(t, "https://ada.dev", d.Website)
	require.NotNil(t, d.GitHub)
	assert.Equal(t, 99, d.GitHub.Followers)
	require.Len(t, d.GitHub.TopRepositories, 4)
	assert.Equal(t, "fork", d.GitHub.TopRepositories[0].Name)
	assert.Equal(t, "cli", d.GitHub.TopRepositories[1].Name)
}

func newGitHubSource(t *testing.T, baseURL, token string) *GitHubSource {
	t.Helper()
	g, err := NewGitHubSource(GitHubConfig{BaseURL: baseURL, Token: token})
	require.NoError(t, err)
	return g
}

func TestGitHubSource_ErrorClassification(t *testing.T) {
	ada := entity.CandidateProfile{Name: "Ada Lovelace"}

	for name, tc := range map[string]struct {
		status    int
		transient bool
		noMatch   bool
	}{
		"rate limited":  {status: http.StatusForbidden, transient: true},
		"too many":      {status: http.StatusTooManyRequests, transient: true},
		"bad gateway":   {status: http.StatusBadGateway, transient: true},
		"not found":     {status: http.StatusNotFound, noMatch: true},
		"unprocessable": {status: http.StatusUnprocessableEntity},
	} {
		t.Run(name, func(t *testing.T) {
			srv := newGitHubServer(t, tc.status)
			_, err := newGitHubSource(t, srv.URL, "gh-token").Lookup(context.Background(), ada)
			require.Error(t, err)

			var te *entity.TransientError
			assert.Equal(t, tc.transient, errors.As(err, &te))
			assert.Equal(t, tc.noMatch, errors.Is(err, ErrNoMatch))
		})
	}

	_, err := newGitHubSource(t, "http://127.0.0.1:1", "").Lookup(context.Background(), entity.CandidateProfile{})
	assert.ErrorIs(t, err, ErrNoMatch, "nameless candidates are never searched")
}

func TestGitHubSource_UnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newGitHubSource(t, url, "").Lookup(context.Background(), entity.CandidateProfile{Name: "Ada Lovelace"})
	var te *entity.TransientError
	assert.True(t, errors.As(err, &te))
}
