package answer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
	"github.com/poiesic/docent/vector"
	"github.com/poiesic/docent/vector/memory"
)

// memHistory is an in-memory storage.HistoryStore with injectable failures.
type memHistory struct {
	mu         sync.Mutex
	messages   map[string][]core.ChatMessage
	appendErr  error
	historyErr error
}

var _ storage.HistoryStore = (*memHistory)(nil)

func newMemHistory() *memHistory {
	return &memHistory{messages: make(map[string][]core.ChatMessage)}
}

func (h *memHistory) AppendMessages(ctx context.Context, conversationID string, messages ...core.ChatMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return h.appendErr
	}
	for _, msg := range messages {
		msg.ConversationID = conversationID
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		h.messages[conversationID] = append(h.messages[conversationID], msg)
	}
	return nil
}

func (h *memHistory) History(ctx context.Context, conversationID string, limit int) ([]core.ChatMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.historyErr != nil {
		return nil, h.historyErr
	}
	messages := h.messages[conversationID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	out := make([]core.ChatMessage, len(messages))
	copy(out, messages)
	return out, nil
}

func (h *memHistory) Close() error { return nil }

func (h *memHistory) transcript(conversationID string) []core.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.messages[conversationID]
}

// recordingMonitor captures every AskMonitor callback in order.
type recordingMonitor struct {
	events    []string
	condensed []string
	models    []string
	retrieved [][]core.ScoredSource
	finished  []*core.Answer
}

var _ AskMonitor = (*recordingMonitor)(nil)

func (m *recordingMonitor) Start(_ string)     { m.events = append(m.events, "start") }
func (m *recordingMonitor) CacheHit(_ string)  { m.events = append(m.events, "cache-hit") }
func (m *recordingMonitor) CacheMiss(_ string) { m.events = append(m.events, "cache-miss") }

func (m *recordingMonitor) Condensed(standalone string) {
	m.events = append(m.events, "condensed")
	m.condensed = append(m.condensed, standalone)
}

func (m *recordingMonitor) Retrieved(sources []core.ScoredSource) {
	m.events = append(m.events, "retrieved")
	m.retrieved = append(m.retrieved, sources)
}

func (m *recordingMonitor) ModelUsed(model string) {
	m.events = append(m.events, "model")
	m.models = append(m.models, model)
}

func (m *recordingMonitor) Finish(answer *core.Answer) {
	m.events = append(m.events, "finish")
	m.finished = append(m.finished, answer)
}

// handbookPoint is a seeded snippet that matches the axis query exactly.
func handbookPoint(text string) vector.Point {
	return vector.Point{
		ID:     "00000000-0000-0000-0000-000000000001",
		Vector: []float32{1, 0, 0, 0},
		Payload: core.VectorPayload{
			Source: "source/handbook.txt",
			Text:   text,
		},
	}
}

func newTestRetriever(t *testing.T, points ...vector.Point) (*Retriever, *mock.MockEmbedder) {
	t.Helper()
	store := memory.NewStore()
	seedCollection(t, store, points...)
	embedder := axisEmbedder([]float32{1, 0, 0, 0})
	retriever, err := NewRetriever(embedder, store, testCollection)
	require.NoError(t, err)
	return retriever, embedder
}

func TestNewAnswerer(t *testing.T) {
	retriever, _ := newTestRetriever(t)
	completer := mock.NewMockCompleter()

	t.Run("valid configuration", func(t *testing.T) {
		answerer, err := NewAnswerer(retriever, completer)
		require.NoError(t, err)
		assert.NotNil(t, answerer)
	})

	t.Run("nil retriever", func(t *testing.T) {
		_, err := NewAnswerer(nil, completer)
		assert.Equal(t, ErrRetrieverRequired, err)
	})

	t.Run("nil completer", func(t *testing.T) {
		_, err := NewAnswerer(retriever, nil)
		assert.Equal(t, ErrCompleterRequired, err)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		answerer, err := NewAnswerer(retriever, completer, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, answerer)
	})
}

func TestAsk_EmptyQuestion(t *testing.T) {
	retriever, _ := newTestRetriever(t)
	answerer, err := NewAnswerer(retriever, mock.NewMockCompleter())
	require.NoError(t, err)

	_, err = answerer.Ask(context.Background(), "", "")
	assert.Equal(t, ErrEmptyQuestion, err)

	_, err = answerer.Ask(context.Background(), "  \n ", "")
	assert.Equal(t, ErrEmptyQuestion, err)
}

func TestAsk_GeneratesGroundedAnswer(t *testing.T) {
	retriever, _ := newTestRetriever(t, handbookPoint("Employees accrue fifteen vacation days per year."))

	var captured ai.CompletionRequest
	completer := &mock.MockCompleter{
		CompleteFunc: func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			captured = req
			return &ai.Completion{Text: "Fifteen days per year.", Model: "gpt-3.5-turbo"}, nil
		},
	}

	answerer, err := NewAnswerer(retriever, completer)
	require.NoError(t, err)

	answer, err := answerer.Ask(context.Background(), "How many vacation days do employees get?", "")
	require.NoError(t, err)

	assert.Equal(t, "Fifteen days per year.", answer.Text)
	assert.Equal(t, "gpt-3.5-turbo", answer.Model)
	assert.False(t, answer.Cached)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "source/handbook.txt", answer.Sources[0].Source)

	// A fresh conversation gets a generated identifier.
	_, err = uuid.Parse(answer.ConversationID)
	assert.NoError(t, err)

	// The completion request carries the grounding prompt: system framing
	// plus the retrieved context wrapped around the question.
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, ai.RoleSystem, captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "expert Q&A assistant")
	assert.Equal(t, ai.RoleUser, captured.Messages[1].Role)
	assert.Contains(t, captured.Messages[1].Content, "<context>")
	assert.Contains(t, captured.Messages[1].Content, "fifteen vacation days")
	assert.Contains(t, captured.Messages[1].Content, "Question: How many vacation days do employees get?")
	assert.Nil(t, captured.Temperature)
}

func TestAsk_PreservesConversationID(t *testing.T) {
	retriever, _ := newTestRetriever(t, handbookPoint("Some context."))
	answerer, err := NewAnswerer(retriever, mock.NewMockCompleter())
	require.NoError(t, err)

	answer, err := answerer.Ask(context.Background(), "a question", "conv-42")
	require.NoError(t, err)
	assert.Equal(t, "conv-42", answer.ConversationID)
}

func TestAsk_CannedAnswerOnEmptyRetrieval(t *testing.T) {
	// Collection exists but holds nothing relevant.
	retriever, _ := newTestRetriever(t)

	cache, ledger, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer func() {
		ledger.Close()
		backend.Close()
	}()

	history := newMemHistory()
	completer := mock.NewMockCompleter()

	answerer, err := NewAnswerer(retriever, completer,
		WithCache(cache),
		WithHistory(history),
	)
	require.NoError(t, err)

	question := "What is the meaning of life?"
	answer, err := answerer.Ask(context.Background(), question, "conv-1")
	require.NoError(t, err)

	assert.Equal(t, InsufficientContextAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.False(t, answer.Cached)

	// No completion happened: there was no history to condense and no
	// context to answer from.
	assert.Zero(t, completer.CallCount())

	// The exchange is in history but never cached.
	transcript := history.transcript("conv-1")
	require.Len(t, transcript, 2)
	assert.Equal(t, question, transcript[0].Content)
	assert.Equal(t, InsufficientContextAnswer, transcript[1].Content)

	key := core.KeyFromText(strings.ToLower(question))
	_, err = cache.Get(context.Background(), key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAsk_CacheHitSkipsRetrievalAndCompletion(t *testing.T) {
	retriever, embedder := newTestRetriever(t, handbookPoint("Refunds are accepted within 30 days."))

	cache, ledger, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer func() {
		ledger.Close()
		backend.Close()
	}()

	completer := &mock.MockCompleter{
		CompleteFunc: func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return &ai.Completion{Text: "Our refund window is 30 days.", Model: "gpt-3.5-turbo"}, nil
		},
	}

	answerer, err := NewAnswerer(retriever, completer, WithCache(cache))
	require.NoError(t, err)

	first, err := answerer.Ask(context.Background(), "what is the refund policy?", "")
	require.NoError(t, err)
	require.False(t, first.Cached)

	// Same question with different capitalization hits the same cache key.
	second, err := answerer.Ask(context.Background(), "WHAT IS THE REFUND POLICY?", "")
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Model, second.Model)
	require.Len(t, second.Sources, 1)
	assert.Equal(t, first.Sources[0].Text, second.Sources[0].Text)

	// One completion and one retrieval total across both questions.
	assert.Equal(t, 1, completer.CallCount())
	assert.Equal(t, 1, embedder.CallCount())
}

func TestAsk_CacheHitStillRecordsHistory(t *testing.T) {
	retriever, _ := newTestRetriever(t, handbookPoint("Refunds are accepted within 30 days."))

	cache, ledger, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer func() {
		ledger.Close()
		backend.Close()
	}()

	history := newMemHistory()
	answerer, err := NewAnswerer(retriever, mock.NewMockCompleter(),
		WithCache(cache),
		WithHistory(history),
	)
	require.NoError(t, err)

	question := "What is the refund policy?"
	_, err = answerer.Ask(context.Background(), question, "conv-1")
	require.NoError(t, err)

	// A different conversation asking the same question is served from
	// cache yet still gets its own transcript entries.
	answer, err := answerer.Ask(context.Background(), question, "conv-2")
	require.NoError(t, err)
	require.True(t, answer.Cached)

	transcript := history.transcript("conv-2")
	require.Len(t, transcript, 2)
	assert.Equal(t, core.RoleUser, transcript[0].Role)
	assert.Equal(t, question, transcript[0].Content)
	assert.Equal(t, core.RoleAssistant, transcript[1].Role)
	assert.Equal(t, answer.Text, transcript[1].Content)
}

func TestAsk_CondensesFollowUpAgainstHistory(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, handbookPoint("Paris is the capital of France."))

	var embedded []string
	embedder := &mock.MockEmbedder{
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			embedded = append(embedded, text)
			return []float32{1, 0, 0, 0}, nil
		},
	}
	retriever, err := NewRetriever(embedder, store, testCollection)
	require.NoError(t, err)

	history := newMemHistory()
	require.NoError(t, history.AppendMessages(context.Background(), "conv-1",
		core.ChatMessage{Role: core.RoleUser, Content: "Tell me about France."},
		core.ChatMessage{Role: core.RoleAssistant, Content: "France is a country in Europe."},
	))

	const standalone = "What is the capital of France?"
	completer := &mock.MockCompleter{
		CompleteFunc: func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			content := req.Messages[len(req.Messages)-1].Content
			if strings.Contains(content, "Standalone Question:") {
				assert.Contains(t, content, "user: Tell me about France.")
				assert.Contains(t, content, "assistant: France is a country in Europe.")
				assert.Contains(t, content, "Follow-up Question: What about its capital?")
				require.NotNil(t, req.Temperature)
				assert.Zero(t, *req.Temperature)
				return &ai.Completion{Text: standalone, Model: "gpt-3.5-turbo"}, nil
			}
			assert.Contains(t, content, "Question: "+standalone)
			return &ai.Completion{Text: "Paris.", Model: "gpt-3.5-turbo"}, nil
		},
	}

	answerer, err := NewAnswerer(retriever, completer, WithHistory(history))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	answer, err := answerer.AskWithMonitor(context.Background(), "What about its capital?", "conv-1", monitor)
	require.NoError(t, err)

	assert.Equal(t, "Paris.", answer.Text)
	assert.Equal(t, []string{standalone}, monitor.condensed)

	// Retrieval used the standalone question, not the follow-up.
	require.Len(t, embedded, 1)
	assert.Equal(t, standalone, embedded[0])

	// The transcript records the question as asked.
	transcript := history.transcript("conv-1")
	require.Len(t, transcript, 4)
	assert.Equal(t, "What about its capital?", transcript[2].Content)
	assert.Equal(t, "Paris.", transcript[3].Content)
}

func TestAsk_CondenseFailureFallsBackToRawQuestion(t *testing.T) {
	store := memory.NewStore()
	seedCollection(t, store, handbookPoint("Paris is the capital of France."))

	var embedded []string
	embedder := &mock.MockEmbedder{
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			embedded = append(embedded, text)
			return []float32{1, 0, 0, 0}, nil
		},
	}
	retriever, err := NewRetriever(embedder, store, testCollection)
	require.NoError(t, err)

	history := newMemHistory()
	require.NoError(t, history.AppendMessages(context.Background(), "conv-1",
		core.ChatMessage{Role: core.RoleUser, Content: "Tell me about France."},
	))

	calls := 0
	completer := &mock.MockCompleter{
		CompleteFunc: func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("condense model down")
			}
			return &ai.Completion{Text: "An answer.", Model: "gpt-3.5-turbo"}, nil
		},
	}

	answerer, err := NewAnswerer(retriever, completer, WithHistory(history))
	require.NoError(t, err)

	answer, err := answerer.Ask(context.Background(), "What about its capital?", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "An answer.", answer.Text)

	require.Len(t, embedded, 1)
	assert.Equal(t, "What about its capital?", embedded[0])
}

func TestAsk_HistoryReadFailureStillAnswers(t *testing.T) {
	retriever, _ := newTestRetriever(t, handbookPoint("Some context."))

	history := newMemHistory()
	history.historyErr = errors.New("history store down")

	completer := &mock.MockCompleter{
		CompleteFunc: func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			content := req.Messages[len(req.Messages)-1].Content
			assert.NotContains(t, content, "Standalone Question:")
			return &ai.Completion{Text: "An answer.", Model: "gpt-3.5-turbo"}, nil
		},
	}

	answerer, err := NewAnswerer(retriever, completer, WithHistory(history))
	require.NoError(t, err)

	answer, err := answerer.Ask(context.Background(), "a question", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "An answer.", answer.Text)
}

func TestAsk_CompleterFailureSurfaces(t *testing.T) {
	retriever, _ := newTestRetriever(t, handbookPoint("Some context."))

	cache, ledger, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer func() {
		ledger.Close()
		backend.Close()
	}()

	history := newMemHistory()
	completer := &mock.MockCompleter{
		CompleteFunc: func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			return nil, errors.New("all completion models failed")
		},
	}

	answerer, err := NewAnswerer(retriever, completer,
		WithCache(cache),
		WithHistory(history),
	)
	require.NoError(t, err)

	question := "a question"
	_, err = answerer.Ask(context.Background(), question, "conv-1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "generating answer")

	// Failed answers are neither cached nor written to history.
	assert.Empty(t, history.transcript("conv-1"))
	key := core.KeyFromText(strings.ToLower(question))
	_, err = cache.Get(context.Background(), key)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAsk_RetrievalFailureSurfaces(t *testing.T) {
	embedder := &mock.MockEmbedder{
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("embedding service down")
		},
	}
	retriever, err := NewRetriever(embedder, memory.NewStore(), testCollection)
	require.NoError(t, err)

	answerer, err := NewAnswerer(retriever, mock.NewMockCompleter())
	require.NoError(t, err)

	_, err = answerer.Ask(context.Background(), "a question", "")
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestAsk_ContextTrimmedToTokenBudget(t *testing.T) {
	longText := strings.Repeat("alpha beta gamma delta ", 50)
	retriever, _ := newTestRetriever(t, handbookPoint(longText))

	var captured ai.CompletionRequest
	completer := &mock.MockCompleter{
		CompleteFunc: func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
			captured = req
			return &ai.Completion{Text: "An answer.", Model: "gpt-3.5-turbo"}, nil
		},
	}

	answerer, err := NewAnswerer(retriever, completer, WithContextTokenBudget(5))
	require.NoError(t, err)

	_, err = answerer.Ask(context.Background(), "a question", "")
	require.NoError(t, err)

	// Trimming keeps a prefix of the context and drops the rest.
	content := captured.Messages[1].Content
	assert.Contains(t, content, "alpha")
	assert.NotContains(t, content, longText)
}

func TestAskWithMonitor_Callbacks(t *testing.T) {
	retriever, _ := newTestRetriever(t, handbookPoint("Refunds are accepted within 30 days."))

	cache, ledger, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer func() {
		ledger.Close()
		backend.Close()
	}()

	answerer, err := NewAnswerer(retriever, mock.NewMockCompleter(), WithCache(cache))
	require.NoError(t, err)

	miss := &recordingMonitor{}
	_, err = answerer.AskWithMonitor(context.Background(), "what is the refund policy?", "", miss)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "condensed", "cache-miss", "retrieved", "model", "finish"}, miss.events)
	require.Len(t, miss.retrieved, 1)
	assert.Len(t, miss.retrieved[0], 1)
	assert.Equal(t, []string{"mock-model"}, miss.models)
	require.Len(t, miss.finished, 1)
	assert.False(t, miss.finished[0].Cached)

	hit := &recordingMonitor{}
	_, err = answerer.AskWithMonitor(context.Background(), "what is the refund policy?", "", hit)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "condensed", "cache-hit", "finish"}, hit.events)
	require.Len(t, hit.finished, 1)
	assert.True(t, hit.finished[0].Cached)
}
