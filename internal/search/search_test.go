package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/llm"
)

type stubCompleter struct {
	out string
	err error
	req llm.Request
}

func (s *stubCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.req = req
	return s.out, s.err
}

type stubProvider struct {
	profiles []entity.CandidateProfile
	err      error
	got      Query
}

func (s *stubProvider) Search(_ context.Context, q Query) ([]entity.CandidateProfile, error) {
	s.got = q
	return s.profiles, s.err
}

func TestExtractor_UsesModelOutput(t *testing.T) {
	c := &stubCompleter{out: `Sure! {"job_title":" ML Engineer ","industry":"fintech","location":"Austin","skills":["Python","PyTorch"]}`}
	k := NewExtractor(c, nil).Extract(context.Background(), "We need an ML engineer in Austin")

	assert.Equal(t, "ML Engineer", k.JobTitle)
	assert.Equal(t, "fintech", k.Industry)
	assert.Equal(t, []string{"Python", "PyTorch"}, k.Skills)
	assert.True(t, k.FromModel)
	assert.True(t, c.req.JSON)
	assert.Equal(t, 500, c.req.MaxTokens)
}

func TestExtractor_FallsBackOnFailure(t *testing.T) {
	text := "Senior Backend Engineer in Seattle, strong Go and Kubernetes, some Go tooling"

	for name, c := range map[string]llm.Completer{
		"no model":    nil,
		"model error": &stubCompleter{err: errors.New("timeout")},
		"bad json":    &stubCompleter{out: "I cannot help"},
		"empty title": &stubCompleter{out: `{"job_title":""}`},
	} {
		t.Run(name, func(t *testing.T) {
			k := NewExtractor(c, nil).Extract(context.Background(), text)
			assert.Equal(t, "senior backend engineer", k.JobTitle)
			assert.Equal(t, "Seattle", k.Location)
			assert.Equal(t, []string{"Go", "Kubernetes"}, k.Skills)
			assert.False(t, k.FromModel)
		})
	}
}

func TestBasicKeywords_Default(t *testing.T) {
	k := BasicKeywords("Looking for someone great to join us")
	assert.Equal(t, "software engineer", k.JobTitle)
	assert.Empty(t, k.Location)
	assert.Empty(t, k.Skills)
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(Keywords{
		JobTitle: "data scientist",
		Industry: "healthcare",
		Location: "Boston",
		Skills:   []string{"R", "Python", "SQL", "Spark"},
	})
	assert.Equal(t, `site:linkedin.com/in "data scientist" "healthcare" "Boston" "Python" "SQL"`, q)

	assert.Equal(t, `site:linkedin.com/in "engineer"`, BuildQuery(Keywords{JobTitle: "engineer"}))
}

func TestCleanProfileURL(t *testing.T) {
	cases := map[string]string{
		"https://www.linkedin.com/in/ada/":          "https://www.linkedin.com/in/ada",
		"https://uk.linkedin.com/in/ada?trk=public": "https://www.linkedin.com/in/ada",
		"linkedin.com/in/ada#about":                 "https://www.linkedin.com/in/ada",
		"http://LinkedIn.com/in/ada":                "https://www.linkedin.com/in/ada",
	}
	for in, want := range cases {
		got, ok := CleanProfileURL(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "https://www.linkedin.com/company/acme", "https://evil.com/in/ada", "https://www.linkedin.com/in/"} {
		_, ok := CleanProfileURL(bad)
		assert.False(t, ok, bad)
	}
}

func TestRouter_Search(t *testing.T) {
	p := &stubProvider{profiles: []entity.CandidateProfile{
		{Name: "Ada", LinkedInURL: "https://www.linkedin.com/in/ada/?x=1"},
		{Name: "Ada again", LinkedInURL: "https://www.linkedin.com/in/ada"},
		{Name: "Company", LinkedInURL: "https://www.linkedin.com/company/acme"},
		{Name: "  "},
		{Name: "Grace", LinkedInURL: "https://www.linkedin.com/in/grace"},
		{Name: "Linus", LinkedInURL: "https://www.linkedin.com/in/linus"},
	}}
	r := NewRouter(nil, map[entity.Strategy]Provider{entity.StrategyRapidAPI: p}, nil)

	res, err := r.Search(context.Background(), "Backend Engineer in Austin", entity.StrategyRapidAPI, 2)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "https://www.linkedin.com/in/ada", res.Candidates[0].LinkedInURL)
	assert.Equal(t, "Grace", res.Candidates[1].Name)
	assert.Equal(t, 2, p.got.Limit)
	assert.Equal(t, "Austin", p.got.Keywords.Location)
	assert.Contains(t, res.Query, `"backend engineer"`)
	assert.False(t, res.AIKeywordsUsed)
}

func TestRouter_ReportsModelKeywords(t *testing.T) {
	c := &stubCompleter{out: `{"job_title":"Data Engineer","location":"Boston"}`}
	p := &stubProvider{profiles: []entity.CandidateProfile{{Name: "Ada", LinkedInURL: "https://www.linkedin.com/in/ada"}}}
	r := NewRouter(NewExtractor(c, nil), map[entity.Strategy]Provider{entity.StrategyRapidAPI: p}, nil)

	res, err := r.Search(context.Background(), "Data engineer in Boston", entity.StrategyRapidAPI, 5)
	require.NoError(t, err)
	assert.True(t, res.AIKeywordsUsed)
	assert.Contains(t, res.Query, `"Data Engineer"`)
}

func TestRouter_Errors(t *testing.T) {
	r := NewRouter(nil, map[entity.Strategy]Provider{
		entity.StrategyRapidAPI: &stubProvider{err: errors.New("quota")},
	}, nil)

	_, err := r.Search(context.Background(), "x", entity.StrategyGoogleCrawler, 5)
	assert.Error(t, err)

	_, err = r.Search(context.Background(), "x", entity.StrategyRapidAPI, 5)
	assert.EqualError(t, err, "quota")
}
