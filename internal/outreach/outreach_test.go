package outreach

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

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

func TestTemplate(t *testing.T) {
	full := Template(entity.CandidateProfile{Name: "Ada", Headline: "Staff Engineer", Location: "London"})
	assert.Equal(t, "Hi Ada! I came across your profile as a Staff Engineer in London. I have an exciting opportunity that matches your expertise. Would you be open to a brief chat?", full)

	bare := Template(entity.CandidateProfile{})
	assert.True(t, strings.HasPrefix(bare, "Hi there! I came across your profile. "))
}

func TestTemplateWriter_NeverFails(t *testing.T) {
	msg, err := TemplateWriter{}.Write(context.Background(), entity.CandidateRecord{}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
}

func TestLLMWriter(t *testing.T) {
	c := &stubCompleter{out: ` "Hi Ada, your compiler work stood out." `}
	rec := entity.CandidateRecord{
		CandidateProfile: entity.CandidateProfile{Name: "Ada", Headline: "Engineer", Skills: []string{"Go", "C", "Rust", "Zig", "Lisp", "ML"}},
		Score:            8.4,
		Recommendation:   entity.TierGoodMatch,
	}
	msg, err := NewLLMWriter(c).Write(context.Background(), rec, strings.Repeat("x", 2000))
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, your compiler work stood out.", msg)
	assert.Contains(t, c.req.Prompt, "KEY STRENGTHS: Go, C, Rust, Zig, Lisp\n")
	assert.Contains(t, c.req.Prompt, "TITLE: Engineer")
	assert.NotContains(t, c.req.Prompt, strings.Repeat("x", 1001))
}

func TestLLMWriter_Errors(t *testing.T) {
	_, err := NewLLMWriter(&stubCompleter{err: errors.New("down")}).Write(context.Background(), entity.CandidateRecord{}, "")
	assert.EqualError(t, err, "down")

	_, err = NewLLMWriter(&stubCompleter{out: "  "}).Write(context.Background(), entity.CandidateRecord{}, "")
	assert.Error(t, err)
}

func TestPrompt_TruncatesOnRuneBoundary(t *testing.T) {
	req := strings.Repeat("é", maxRequirementChars+500)
	p := prompt(entity.CandidateRecord{}, req)

	assert.True(t, utf8.ValidString(p))
	assert.Contains(t, p, strings.Repeat("é", maxRequirementChars))
	assert.NotContains(t, p, strings.Repeat("é", maxRequirementChars+1))
}
