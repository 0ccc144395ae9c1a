// Package chats provides the provider-neutral conversation model shared by
// the prompt template, the agent loop, and the chat-completion adapter.
//
// Sub-packages:
//   - [github.com/germanamz/gmail-agent/pkg/chats/role] — message roles
//   - [github.com/germanamz/gmail-agent/pkg/chats/content] — text, tool call and tool result parts
//   - [github.com/germanamz/gmail-agent/pkg/chats/message] — a role plus content parts
//   - [github.com/germanamz/gmail-agent/pkg/chats/chat] — ordered conversation container
package chats
