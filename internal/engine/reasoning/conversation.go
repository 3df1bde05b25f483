// internal/engine/reasoning/conversation.go
package reasoning

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationContext holds the exchanges of a single evaluator invocation.
// Create one per invocation with NewConversation; it is not safe to share
// across goroutines and must never be kept after the invocation returns.
type ConversationContext struct {
	messages []Message
}

// NewConversation starts a conversation with a system instruction.
func NewConversation(system string) *ConversationContext {
	c := &ConversationContext{}
	if system != "" {
		c.messages = append(c.messages, Message{Role: "system", Content: system})
	}
	return c
}

func (c *ConversationContext) AddUser(content string) {
	c.messages = append(c.messages, Message{Role: "user", Content: content})
}

func (c *ConversationContext) AddAssistant(content string) {
	c.messages = append(c.messages, Message{Role: "assistant", Content: content})
}

// Messages returns a copy of the history.
func (c *ConversationContext) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *ConversationContext) Len() int {
	return len(c.messages)
}
