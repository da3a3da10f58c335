package ai

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	// RoleSystem carries instructions that frame the model's behavior.
	RoleSystem MessageRole = "system"
	// RoleUser carries input from the person asking.
	RoleUser MessageRole = "user"
	// RoleAssistant carries prior model output, used for multi-turn context.
	RoleAssistant MessageRole = "assistant"
)

// Message is a single chat message in a completion request.
type Message struct {
	Role    MessageRole
	Content string
}

// CompletionRequest describes one chat completion call.
// Zero-valued Temperature and MaxTokens fall back to the completer's
// configured defaults.
type CompletionRequest struct {
	Messages    []Message
	Temperature *float64
	MaxTokens   int
}

// Completion is the result of a chat completion call.
// Model records which candidate model actually produced the text, which may
// differ from the first configured model when fallback occurred.
type Completion struct {
	Text  string
	Model string
}
