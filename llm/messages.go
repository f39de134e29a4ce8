package llm

import (
	"github.com/jinzhu/copier"
	"github.com/sashabaranov/go-openai"
)

type Role string

const (
	RoleSystem    Role = openai.ChatMessageRoleSystem
	RoleUser      Role = openai.ChatMessageRoleUser
	RoleAssistant Role = openai.ChatMessageRoleAssistant
)

// Message is one role-tagged entry of the conversation history.
type Message struct {
	Role    Role
	Content string
}

// History is the ordered conversation of one call. It lives only as long as
// the call and is owned by the call's event loop.
type History struct {
	messages []Message
}

func NewHistory(seed ...Message) *History {
	h := &History{}
	h.messages = append(h.messages, seed...)
	return h
}

func (h *History) Append(role Role, content string) {
	h.messages = append(h.messages, Message{Role: role, Content: content})
}

func (h *History) Len() int {
	return len(h.messages)
}

// Last returns the most recent message.
func (h *History) Last() (Message, bool) {
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Snapshot returns a copy of the history that is safe to hand to another
// goroutine while the owner keeps appending.
func (h *History) Snapshot() []Message {
	snapshot := make([]Message, 0, len(h.messages))
	if err := copier.Copy(&snapshot, &h.messages); err != nil {
		snapshot = append(snapshot[:0], h.messages...)
	}
	return snapshot
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}
