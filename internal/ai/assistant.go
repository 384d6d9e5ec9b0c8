package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrServiceUnavailable is wrapped by every error produced while calling a reasoning service.
var ErrServiceUnavailable = errors.New("reasoning service unavailable")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Title returns the capitalised role name used in serialized transcripts.
func (r Role) Title() string {
	s := string(r)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Model is a stateless reasoning service: all context travels in the message log.
type Model interface {
	Invoke(ctx context.Context, messages []Message) (Message, error)
}
