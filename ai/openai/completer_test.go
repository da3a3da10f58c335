package openai

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/docent/ai"
)

// fakeModel implements llms.Model, failing for configured model names and
// recording the model requested on each call.
type fakeModel struct {
	failFor   map[string]error
	noChoices map[string]bool
	reply     string

	calls        []string
	temperatures []float64
	maxTokens    []int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	f.calls = append(f.calls, opts.Model)
	f.temperatures = append(f.temperatures, opts.Temperature)
	f.maxTokens = append(f.maxTokens, opts.MaxTokens)

	if err, ok := f.failFor[opts.Model]; ok {
		return nil, err
	}
	if f.noChoices[opts.Model] {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func newTestCompleter(client llms.Model, models ...string) *Completer {
	return &Completer{
		client:      client,
		models:      models,
		temperature: 0.1,
		maxTokens:   350,
		logger:      slog.Default(),
	}
}

func askRequest() ai.CompletionRequest {
	return ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "You answer questions."},
			{Role: ai.RoleUser, Content: "What is a vector?"},
		},
	}
}

func TestCompleter_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("first model short-circuits the chain", func(t *testing.T) {
		fake := &fakeModel{reply: "a direction with a length"}
		completer := newTestCompleter(fake, "primary", "secondary", "tertiary")

		completion, err := completer.Complete(ctx, askRequest())
		require.NoError(t, err)
		assert.Equal(t, "a direction with a length", completion.Text)
		assert.Equal(t, "primary", completion.Model)
		// Later models must not be tried after a success.
		assert.Equal(t, []string{"primary"}, fake.calls)
	})

	t.Run("falls through to the next model on failure", func(t *testing.T) {
		fake := &fakeModel{
			reply:   "answer",
			failFor: map[string]error{"primary": errors.New("model decommissioned")},
		}
		completer := newTestCompleter(fake, "primary", "secondary")

		completion, err := completer.Complete(ctx, askRequest())
		require.NoError(t, err)
		assert.Equal(t, "secondary", completion.Model)
		assert.Equal(t, []string{"primary", "secondary"}, fake.calls)
	})

	t.Run("empty choices count as a failure", func(t *testing.T) {
		fake := &fakeModel{
			reply:     "answer",
			noChoices: map[string]bool{"primary": true},
		}
		completer := newTestCompleter(fake, "primary", "secondary")

		completion, err := completer.Complete(ctx, askRequest())
		require.NoError(t, err)
		assert.Equal(t, "secondary", completion.Model)
	})

	t.Run("all models failing surfaces the last error", func(t *testing.T) {
		fake := &fakeModel{
			failFor: map[string]error{
				"primary":   errors.New("first failure"),
				"secondary": errors.New("second failure"),
			},
		}
		completer := newTestCompleter(fake, "primary", "secondary")

		completion, err := completer.Complete(ctx, askRequest())
		require.Error(t, err)
		assert.Nil(t, completion)
		assert.Contains(t, err.Error(), "all completion models failed")
		assert.Contains(t, err.Error(), "second failure")
		assert.Equal(t, []string{"primary", "secondary"}, fake.calls)
	})

	t.Run("defaults apply when the request leaves them unset", func(t *testing.T) {
		fake := &fakeModel{reply: "answer"}
		completer := newTestCompleter(fake, "primary")

		_, err := completer.Complete(ctx, askRequest())
		require.NoError(t, err)
		require.Len(t, fake.temperatures, 1)
		assert.InDelta(t, 0.1, fake.temperatures[0], 1e-9)
		assert.Equal(t, 350, fake.maxTokens[0])
	})

	t.Run("request overrides temperature and max tokens", func(t *testing.T) {
		fake := &fakeModel{reply: "answer"}
		completer := newTestCompleter(fake, "primary")

		zero := 0.0
		req := askRequest()
		req.Temperature = &zero
		req.MaxTokens = 64

		_, err := completer.Complete(ctx, req)
		require.NoError(t, err)
		require.Len(t, fake.temperatures, 1)
		assert.InDelta(t, 0.0, fake.temperatures[0], 1e-9)
		assert.Equal(t, 64, fake.maxTokens[0])
	})

	t.Run("response text is trimmed", func(t *testing.T) {
		fake := &fakeModel{reply: "  padded answer \n"}
		completer := newTestCompleter(fake, "primary")

		completion, err := completer.Complete(ctx, askRequest())
		require.NoError(t, err)
		assert.Equal(t, "padded answer", completion.Text)
	})

	t.Run("rejects an empty message list", func(t *testing.T) {
		completer := newTestCompleter(&fakeModel{reply: "answer"}, "primary")

		_, err := completer.Complete(ctx, ai.CompletionRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no messages")
	})

	t.Run("rejects unknown message roles", func(t *testing.T) {
		completer := newTestCompleter(&fakeModel{reply: "answer"}, "primary")

		_, err := completer.Complete(ctx, ai.CompletionRequest{
			Messages: []ai.Message{{Role: "narrator", Content: "once upon a time"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported message role")
	})
}
