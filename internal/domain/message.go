package domain

import "strings"

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// LatestUserMessage returns the trimmed content of the last message when it
// was written by the user.
func LatestUserMessage(msgs []Message) (string, bool) {
	if len(msgs) == 0 {
		return "", false
	}
	last := msgs[len(msgs)-1]
	if last.Role != RoleUser {
		return "", false
	}
	content := strings.TrimSpace(last.Content)
	if content == "" {
		return "", false
	}
	return content, true
}

// ValidateConversation checks roles and the presence of a trailing user message.
func ValidateConversation(msgs []Message) error {
	for _, m := range msgs {
		if !IsValidRole(m.Role) {
			return NewDomainError(ErrCodeInvalidRequest, "invalid message role: "+string(m.Role))
		}
	}
	if _, ok := LatestUserMessage(msgs); !ok {
		return ErrMissingUserMessage
	}
	return nil
}
