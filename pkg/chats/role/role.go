// Package role defines the sender roles used in LLM conversations.
package role

import (
	"fmt"
	"strings"
)

// Role represents the sender of a message in a conversation.
type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
	Tool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case System, User, Assistant, Tool:
		return true
	}
	return false
}

// String returns the underlying string value of the role.
func (r Role) String() string {
	return string(r)
}

// Parse maps a role tag to a Role. Besides the canonical names it accepts the
// prompt-template aliases "human" and "ai".
func Parse(tag string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "system":
		return System, nil
	case "user", "human":
		return User, nil
	case "assistant", "ai":
		return Assistant, nil
	case "tool":
		return Tool, nil
	}
	return "", fmt.Errorf("role: unknown role %q", tag)
}
