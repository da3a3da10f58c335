package answer

import (
	"fmt"
	"strings"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
)

// InsufficientContextAnswer is the canned response for questions the
// knowledge base holds nothing relevant for. It is recorded in conversation
// history but never cached.
const InsufficientContextAnswer = "I don't have enough information in my knowledge base to answer your question."

// DefaultContextTokenBudget bounds the combined retrieved context passed to
// the completer, measured in cl100k_base tokens.
const DefaultContextTokenBudget = 3000

const answerSystemPrompt = `You are an expert Q&A assistant. Answer the user's question based only on the provided context.
If the answer is not in the context, say you don't have enough information to answer the question.
Be concise but comprehensive in your response.`

const condensePrompt = "Given the conversation history, rephrase the follow-up question to be a standalone question.\n\n<history>\n%s\n</history>\n\nFollow-up Question: %s\nStandalone Question:"

// formatHistory renders a transcript as "role: content" lines.
func formatHistory(messages []core.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(lines, "\n")
}

// condenseMessages builds the request that rewrites a follow-up question
// into a standalone question against prior history.
func condenseMessages(history []core.ChatMessage, question string) []ai.Message {
	return []ai.Message{{
		Role:    ai.RoleUser,
		Content: fmt.Sprintf(condensePrompt, formatHistory(history), question),
	}}
}

// contextBlock joins retrieved source texts into one block, trimmed to the
// token budget. A non-positive budget disables trimming.
func contextBlock(sources []core.ScoredSource, tokens *ai.TokenCounter, budget int) string {
	texts := make([]string, 0, len(sources))
	for _, s := range sources {
		texts = append(texts, s.Text)
	}
	block := strings.Join(texts, "\n\n")
	if budget > 0 && tokens != nil {
		block = tokens.Trim(block, budget)
	}
	return block
}

// answerMessages builds the request that answers a question from retrieved
// context. History is not included here: condensation already folds it into
// the standalone question.
func answerMessages(question, contextText string) []ai.Message {
	return []ai.Message{
		{Role: ai.RoleSystem, Content: answerSystemPrompt},
		{Role: ai.RoleUser, Content: fmt.Sprintf("<context>\n%s\n</context>\n\nQuestion: %s", contextText, question)},
	}
}
