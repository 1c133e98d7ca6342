// Package domain defines the core domain models for the gateway.
package domain

import openai "github.com/sashabaranov/go-openai"

// Role is the author of a transcript message.
type Role string

const (
	RoleSystem    Role = openai.ChatMessageRoleSystem
	RoleUser      Role = openai.ChatMessageRoleUser
	RoleAssistant Role = openai.ChatMessageRoleAssistant
)

// Valid reports whether r is a role the store accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

const (
	// DefaultOwner is stored when a conversation is saved without an owner.
	DefaultOwner = "anonymous"
	// DefaultCategory is stored when a conversation is saved without a category.
	DefaultCategory = "general"
)
