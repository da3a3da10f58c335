package ai

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncoding is the BPE encoding shared by the OpenAI embedding and
// chat model families this package targets.
const tokenEncoding = "cl100k_base"

// charsPerToken is the rough character-per-token ratio used when the
// real encoding cannot be loaded.
const charsPerToken = 4

// TokenCounter counts and trims text by model tokens.
//
// The cl100k_base encoding is loaded lazily on first use. When it cannot
// be loaded (the BPE tables are fetched and cached on demand, so a
// fully offline host may not have them) the counter degrades to a
// characters-per-token estimate instead of failing, since callers only
// use it for budgeting and logging.
type TokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
	logger   *slog.Logger
}

// NewTokenCounter creates a token counter for the cl100k_base encoding.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{
		logger: slog.Default().With("component", "token-counter"),
	}
}

func (c *TokenCounter) load() {
	c.once.Do(func() {
		encoding, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			c.logger.Warn("token encoding unavailable, using character estimate",
				"encoding", tokenEncoding,
				"error", err)
			return
		}
		c.encoding = encoding
	})
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	c.load()
	if c.encoding == nil {
		return estimateTokens(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Trim returns text cut down to at most maxTokens tokens. Text already
// within the budget is returned unchanged. A non-positive budget yields
// the empty string.
func (c *TokenCounter) Trim(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	c.load()
	if c.encoding == nil {
		limit := maxTokens * charsPerToken
		runes := []rune(text)
		if len(runes) <= limit {
			return text
		}
		return string(runes[:limit])
	}
	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return c.encoding.Decode(tokens[:maxTokens])
}

// estimateTokens approximates a cl100k token count at four characters
// per token. Runes are counted so multibyte text is not overweighted.
func estimateTokens(text string) int {
	return utf8.RuneCountInString(text) / charsPerToken
}
