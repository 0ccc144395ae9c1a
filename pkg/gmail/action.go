// Package gmail defines the closed set of Gmail actions the agent may invoke.
//
// Actions are an enumeration rather than free-form names: the provider slug
// and the tool name shown to the model are derived from the enum, and any
// other name fails to parse.
package gmail

import (
	"fmt"
	"strings"
)

// App is the tool provider's identifier for the Gmail integration.
const App = "gmail"

// Action is one of the Gmail operations the agent is allowed to run.
type Action int

const (
	SendEmail Action = iota + 1
	FetchEmails
	CreateDraft
	CreateLabel
)

type actionInfo struct {
	name string // short name used in config and logs
	slug string // tool provider action slug
}

var actions = map[Action]actionInfo{
	SendEmail:   {name: "send_email", slug: "GMAIL_SEND_EMAIL"},
	FetchEmails: {name: "fetch_emails", slug: "GMAIL_FETCH_EMAILS"},
	CreateDraft: {name: "create_draft", slug: "GMAIL_CREATE_EMAIL_DRAFT"},
	CreateLabel: {name: "create_label", slug: "GMAIL_CREATE_LABEL"},
}

// AllowList returns every action the agent may use, in a stable order.
func AllowList() []Action {
	return []Action{SendEmail, FetchEmails, CreateDraft, CreateLabel}
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := actions[a]
	return ok
}

// String returns the short name (e.g. "send_email").
func (a Action) String() string {
	if info, ok := actions[a]; ok {
		return info.name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Slug returns the tool provider's identifier (e.g. "GMAIL_SEND_EMAIL").
func (a Action) Slug() string {
	return actions[a].slug
}

// ToolName returns the function name declared to the model
// (e.g. "gmail_send_email").
func (a Action) ToolName() string {
	return strings.ToLower(actions[a].slug)
}

// Parse resolves a short name, provider slug, or tool name to an Action.
// Matching is case-insensitive.
func Parse(s string) (Action, error) {
	for _, a := range AllowList() {
		if strings.EqualFold(s, a.String()) || strings.EqualFold(s, a.Slug()) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("gmail: unknown action %q", s)
}

// ParseAll parses every name in names, failing on the first unknown one.
// Duplicates are collapsed.
func ParseAll(names []string) ([]Action, error) {
	seen := make(map[Action]struct{}, len(names))
	out := make([]Action, 0, len(names))
	for _, n := range names {
		a, err := Parse(n)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}
