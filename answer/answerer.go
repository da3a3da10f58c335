package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

const (
	// DefaultCacheTTL bounds how long a generated answer is served from
	// cache before the question runs the full path again.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultHistoryWindow is how many recent messages question
	// condensation sees.
	DefaultHistoryWindow = 10
)

// Answerer answers questions from the knowledge base: condense the question
// against conversation history, check the answer cache, retrieve context,
// complete, and persist the exchange.
type Answerer struct {
	retriever     *Retriever
	completer     ai.Completer
	cache         storage.AnswerCache
	history       storage.HistoryStore
	tokens        *ai.TokenCounter
	cacheTTL      time.Duration
	historyWindow int
	contextBudget int
	logger        *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithCache enables answer caching. Without a cache every question runs the
// full retrieve-and-complete path.
func WithCache(cache storage.AnswerCache) Option {
	return func(a *Answerer) error {
		a.cache = cache
		return nil
	}
}

// WithHistory enables conversation history. Without it questions are
// answered statelessly and condensation never runs.
func WithHistory(history storage.HistoryStore) Option {
	return func(a *Answerer) error {
		a.history = history
		return nil
	}
}

// WithCacheTTL sets how long cached answers live.
// Non-positive values store entries without expiry.
// Default is DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(a *Answerer) error {
		a.cacheTTL = ttl
		return nil
	}
}

// WithHistoryWindow sets how many recent messages condensation sees.
// Zero or negative means the full transcript.
// Default is DefaultHistoryWindow.
func WithHistoryWindow(window int) Option {
	return func(a *Answerer) error {
		a.historyWindow = window
		return nil
	}
}

// WithContextTokenBudget caps the retrieved context passed to the completer,
// in tokens. Non-positive disables trimming.
// Default is DefaultContextTokenBudget.
func WithContextTokenBudget(budget int) Option {
	return func(a *Answerer) error {
		a.contextBudget = budget
		return nil
	}
}

// NewAnswerer creates an answerer over a retriever and a completer.
// Cache and history are optional and enabled through options.
func NewAnswerer(retriever *Retriever, completer ai.Completer, opts ...Option) (*Answerer, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	a := &Answerer{
		retriever:     retriever,
		completer:     completer,
		tokens:        ai.NewTokenCounter(),
		cacheTTL:      DefaultCacheTTL,
		historyWindow: DefaultHistoryWindow,
		contextBudget: DefaultContextTokenBudget,
		logger:        slog.Default().With("component", "answerer"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Ask answers a question within a conversation. An empty conversationID
// starts a new conversation with a generated identifier.
func (a *Answerer) Ask(ctx context.Context, question, conversationID string) (*core.Answer, error) {
	return a.AskWithMonitor(ctx, question, conversationID, nil)
}

// AskWithMonitor answers a question with stage callbacks.
// The monitor receives the condensed question, cache outcome, retrieved
// sources, and the model that produced the answer.
func (a *Answerer) AskWithMonitor(ctx context.Context, question, conversationID string, monitor AskMonitor) (*core.Answer, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	start := time.Now()
	monitor.Start(question)

	// 1. Condense the question against recent history so follow-ups like
	// "what about the second one?" become answerable on their own.
	standalone := a.condense(ctx, conversationID, question)
	monitor.Condensed(standalone)

	// 2. Answer cache, keyed by the lowercased standalone question so
	// capitalization never causes a miss.
	key := core.KeyFromText(strings.ToLower(standalone))
	if cached := a.cachedAnswer(ctx, key); cached != nil {
		monitor.CacheHit(key)
		a.remember(ctx, conversationID, question, cached.Text)
		answer := &core.Answer{
			Text:           cached.Text,
			Sources:        cached.Sources,
			ConversationID: conversationID,
			Model:          cached.Model,
			Cached:         true,
			ProcessingTime: time.Since(start),
		}
		monitor.Finish(answer)
		return answer, nil
	}
	monitor.CacheMiss(key)

	// 3. Retrieve context.
	sources, err := a.retriever.Retrieve(ctx, standalone)
	if err != nil {
		return nil, err
	}
	monitor.Retrieved(sources)

	// Nothing relevant enough: answer honestly instead of letting the
	// model guess. Recorded in history, never cached.
	if len(sources) == 0 {
		a.remember(ctx, conversationID, question, InsufficientContextAnswer)
		answer := &core.Answer{
			Text:           InsufficientContextAnswer,
			ConversationID: conversationID,
			ProcessingTime: time.Since(start),
		}
		monitor.Finish(answer)
		return answer, nil
	}

	// 4. Complete. The completer owns temperature, token cap, and the
	// model fallback chain.
	contextText := contextBlock(sources, a.tokens, a.contextBudget)
	completion, err := a.completer.Complete(ctx, ai.CompletionRequest{
		Messages: answerMessages(standalone, contextText),
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	monitor.ModelUsed(completion.Model)

	// 5. Persist the exchange.
	a.remember(ctx, conversationID, question, completion.Text)
	a.store(ctx, key, completion, sources)

	answer := &core.Answer{
		Text:           completion.Text,
		Sources:        sources,
		ConversationID: conversationID,
		Model:          completion.Model,
		ProcessingTime: time.Since(start),
	}
	monitor.Finish(answer)
	return answer, nil
}

// condense rewrites a follow-up question as a standalone question using
// recent conversation history. Without history, or when the rewrite fails,
// the raw question is used. Condensation is best-effort: a broken completer
// here still leaves the question answerable.
func (a *Answerer) condense(ctx context.Context, conversationID, question string) string {
	if a.history == nil {
		return question
	}

	recent, err := a.history.History(ctx, conversationID, a.historyWindow)
	if err != nil {
		a.logger.Warn("reading conversation history failed", "conversation", conversationID, "err", err)
		return question
	}
	if len(recent) == 0 {
		return question
	}

	zero := 0.0
	completion, err := a.completer.Complete(ctx, ai.CompletionRequest{
		Messages:    condenseMessages(recent, question),
		Temperature: &zero,
	})
	if err != nil {
		a.logger.Warn("condensing question failed, using it as asked", "err", err)
		return question
	}
	standalone := strings.TrimSpace(completion.Text)
	if standalone == "" {
		return question
	}
	return standalone
}

// cachedAnswer returns the cached answer for key, or nil on miss.
// Cache read failures are logged, not surfaced: the cache is an
// optimization, never a dependency.
func (a *Answerer) cachedAnswer(ctx context.Context, key string) *core.CachedAnswer {
	if a.cache == nil {
		return nil
	}
	cached, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.logger.Warn("answer cache read failed", "key", key, "err", err)
		}
		return nil
	}
	return cached
}

// store caches a generated answer under key.
func (a *Answerer) store(ctx context.Context, key string, completion *ai.Completion, sources []core.ScoredSource) {
	if a.cache == nil {
		return
	}
	entry := &core.CachedAnswer{
		Text:      completion.Text,
		Sources:   sources,
		Model:     completion.Model,
		CreatedAt: time.Now(),
	}
	if err := a.cache.Put(ctx, key, entry, a.cacheTTL); err != nil {
		a.logger.Warn("answer cache write failed", "key", key, "err", err)
	}
}

// remember appends the question and answer to the conversation transcript.
// The question is stored as asked, not as condensed, so transcripts read the
// way the conversation actually went.
func (a *Answerer) remember(ctx context.Context, conversationID, question, answerText string) {
	if a.history == nil {
		return
	}
	err := a.history.AppendMessages(ctx, conversationID,
		core.ChatMessage{Role: core.RoleUser, Content: question},
		core.ChatMessage{Role: core.RoleAssistant, Content: answerText},
	)
	if err != nil {
		a.logger.Warn("saving conversation history failed", "conversation", conversationID, "err", err)
	}
}
