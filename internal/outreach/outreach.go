// Package outreach drafts the first message sent to a candidate.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/llm"
)

const maxRequirementChars = 1000

// TemplateWriter fills a fixed greeting from the profile. It never fails.
type TemplateWriter struct{}

func (TemplateWriter) Write(_ context.Context, c entity.CandidateRecord, _ string) (string, error) {
	return Template(c.CandidateProfile), nil
}

func Template(p entity.CandidateProfile) string {
	var b strings.Builder
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s! I came across your profile", name)
	if h := strings.TrimSpace(p.Headline); h != "" {
		fmt.Fprintf(&b, " as a %s", h)
	}
	if l := strings.TrimSpace(p.Location); l != "" {
		fmt.Fprintf(&b, " in %s", l)
	}
	b.WriteString(". I have an exciting opportunity that matches your expertise. Would you be open to a brief chat?")
	return b.String()
}

// LLMWriter asks a language model for a short personalised message.
type LLMWriter struct {
	completer llm.Completer
}

func NewLLMWriter(c llm.Completer) *LLMWriter {
	return &LLMWriter{completer: c}
}

func (w *LLMWriter) Write(ctx context.Context, c entity.CandidateRecord, requirementText string) (string, error) {
	out, err := w.completer.Complete(ctx, llm.Request{
		System:      "You are a professional recruiter writing personalized LinkedIn outreach messages. Be concise, genuine, and specific.",
		Prompt:      prompt(c, requirementText),
		Temperature: 0.3,
		MaxTokens:   200,
	})
	if err != nil {
		return "", err
	}
	msg := strings.Trim(strings.TrimSpace(out), `"`)
	if msg == "" {
		return "", errors.New("empty outreach message")
	}
	return msg, nil
}

func prompt(c entity.CandidateRecord, requirementText string) string {
	req := strings.TrimSpace(requirementText)
	if r := []rune(req); len(r) > maxRequirementChars {
		req = string(r[:maxRequirementChars])
	}
	strengths := "General experience"
	if len(c.Skills) > 0 {
		n := min(len(c.Skills), 5)
		strengths = strings.Join(c.Skills[:n], ", ")
	}
	title := c.CurrentPosition
	if title == "" {
		title = c.Headline
	}
	return fmt.Sprintf(`Create a personalized LinkedIn outreach message for this candidate.

JOB DESCRIPTION:
%s

CANDIDATE: %s
TITLE: %s
COMPANY: %s
KEY STRENGTHS: %s
FIT: %s (%.1f/10)

Write a brief, professional outreach message (2-3 sentences) that addresses them by first name,
mentions a specific detail about their background, explains why they'd be a good fit and ends
with a call to action. Return only the message text, no quotes or formatting.`,
		req, c.Name, title, c.CurrentCompany, strengths, c.Recommendation, c.Score)
}
