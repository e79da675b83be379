package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/revrost/go-openrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for the OpenRouter client.
type mockClient struct {
	createChatCompletionFunc func(ctx context.Context,
		ccr openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error)
}

func (m *mockClient) CreateChatCompletion(ctx context.Context,
	ccr openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error) {
	return m.createChatCompletionFunc(ctx, ccr)
}

func answer(text string) openrouter.ChatCompletionResponse {
	return openrouter.ChatCompletionResponse{
		Choices: []openrouter.ChatCompletionChoice{{
			Message: openrouter.ChatCompletionMessage{
				Content: openrouter.Content{Text: text},
			},
		}},
	}
}

func TestOpenRouter_GenerateFromPrompt(t *testing.T) {
	testCases := []struct {
		name         string
		systemPrompt string
		mockResp     openrouter.ChatCompletionResponse
		mockErr      error
		wantMessages int
		expected     string
		expectErr    bool
	}{
		{
			name:         "success with system prompt",
			systemPrompt: "system",
			mockResp:     answer("hello!"),
			wantMessages: 2,
			expected:     "hello!",
		},
		{
			name:         "success without system prompt",
			mockResp:     answer("hello!"),
			wantMessages: 1,
			expected:     "hello!",
		},
		{
			name:         "API error returned",
			mockErr:      errors.New("api failure"),
			wantMessages: 1,
			expectErr:    true,
		},
		{
			name:         "no choices",
			wantMessages: 1,
			expectErr:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got openrouter.ChatCompletionRequest
			mock := &mockClient{
				createChatCompletionFunc: func(_ context.Context,
					ccr openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error) {
					got = ccr
					return tc.mockResp, tc.mockErr
				},
			}
			gen := &OpenRouter{
				client:       mock,
				systemPrompt: tc.systemPrompt,
			}

			resp, err := gen.GenerateFromPrompt(t.Context(), "openai/gpt-4.1", "hi")

			assert.Equal(t, "openai/gpt-4.1", got.Model)
			require.Len(t, got.Messages, tc.wantMessages)
			assert.Equal(t, "hi", got.Messages[len(got.Messages)-1].Content.Text)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, resp)
		})
	}
}
