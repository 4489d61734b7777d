package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"talent-sourcing-service/internal/entity"
)

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestClassifyErr(t *testing.T) {
	var te *entity.TransientError

	err := classifyErr(genai.APIError{Code: 429, Message: "slow down"})
	assert.True(t, errors.As(err, &te))

	err = classifyErr(genai.APIError{Code: 503})
	assert.True(t, errors.As(err, &te))

	err = classifyErr(genai.APIError{Code: 400})
	assert.False(t, errors.As(err, &te))

	plain := errors.New("boom")
	assert.Equal(t, plain, classifyErr(plain))
}

func TestExtractSources(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{URI: "https://a"}},
					{Web: &genai.GroundingChunkWeb{URI: "https://a"}},
					{Web: &genai.GroundingChunkWeb{URI: " https://b "}},
					nil,
				},
			},
		}},
	}
	assert.Equal(t, []string{"https://a", "https://b"}, extractSources(resp))
	assert.Nil(t, extractSources(nil))
}
