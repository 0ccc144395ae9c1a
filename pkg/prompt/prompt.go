// Package prompt builds chat conversations from a fixed template of
// role-tagged slots.
//
// A template is an ordered list of slots. A message slot carries a role and
// text that may reference variables as {name}. A placeholder slot expands to
// a list of messages supplied at format time, which is how the agent splices
// its intermediate tool calls and observations (the scratchpad) into the
// prompt on every iteration.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/germanamz/gmail-agent/pkg/chats/chat"
	"github.com/germanamz/gmail-agent/pkg/chats/message"
	"github.com/germanamz/gmail-agent/pkg/chats/role"
)

// Variable names used by the agent.
const (
	InputVar      = "input"
	ScratchpadVar = "agent_scratchpad"
)

// SystemInstruction is the instruction given to the Gmail assistant.
const SystemInstruction = "You are an AI email assistant that can write, fetch, and manage emails and labels. " +
	"Follow the user's instructions carefully and perform the requested actions. " +
	"If fetching emails, print the Subject and Mail content in a readable format."

var varPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Slot is one entry of a Template. Exactly one of Text or Placeholder is set.
type Slot struct {
	Role        role.Role
	Text        string
	Placeholder string
}

// Template is an immutable, ordered list of slots.
type Template struct {
	slots []Slot
}

// Values holds the inputs used to format a Template. Text maps variable names
// to strings; Messages maps placeholder names to message lists.
type Values struct {
	Text     map[string]string
	Messages map[string][]message.Message
}

// FromMessages builds a Template from (tag, text) pairs. The tag is a role
// name accepted by role.Parse, or "placeholder" in which case text must be a
// single {variable}.
func FromMessages(pairs ...[2]string) (Template, error) {
	slots := make([]Slot, 0, len(pairs))
	for i, p := range pairs {
		tag, text := p[0], p[1]
		if strings.EqualFold(tag, "placeholder") {
			m := varPattern.FindStringSubmatch(text)
			if m == nil || m[0] != strings.TrimSpace(text) {
				return Template{}, fmt.Errorf("prompt: slot %d: placeholder must be a single {variable}, got %q", i, text)
			}
			slots = append(slots, Slot{Placeholder: m[1]})
			continue
		}

		r, err := role.Parse(tag)
		if err != nil {
			return Template{}, fmt.Errorf("prompt: slot %d: %w", i, err)
		}
		slots = append(slots, Slot{Role: r, Text: text})
	}
	return Template{slots: slots}, nil
}

// Default returns the assistant template: a system instruction, the human
// input, and the scratchpad placeholder. An empty system uses
// SystemInstruction.
func Default(system string) Template {
	if system == "" {
		system = SystemInstruction
	}
	t, err := FromMessages(
		[2]string{"system", system},
		[2]string{"human", "{" + InputVar + "}"},
		[2]string{"placeholder", "{" + ScratchpadVar + "}"},
	)
	if err != nil {
		panic(err) // tags are fixed
	}
	return t
}

// Format renders the template into a new Chat. Every referenced text variable
// must be present in v.Text. Placeholders without a value expand to nothing.
func (t Template) Format(sender string, v Values) (*chat.Chat, error) {
	c := chat.New()
	for _, s := range t.slots {
		if s.Placeholder != "" {
			c.Append(v.Messages[s.Placeholder]...)
			continue
		}

		var missing string
		text := varPattern.ReplaceAllStringFunc(s.Text, func(match string) string {
			name := match[1 : len(match)-1]
			val, ok := v.Text[name]
			if !ok && missing == "" {
				missing = name
			}
			return val
		})
		if missing != "" {
			return nil, fmt.Errorf("prompt: missing value for variable %q", missing)
		}

		from := sender
		if s.Role == role.User {
			from = ""
		}
		c.Append(message.NewText(from, s.Role, text))
	}
	return c, nil
}
