package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/gmail-agent/pkg/connection"
)

// authDoneMsg ends the authorization wait view.
type authDoneMsg struct{ err error }

// authModel shows the redirect URL and a spinner until the connection is
// active.
type authModel struct {
	spinner spinner.Model
	conn    connection.Connection
	cancel  context.CancelFunc
	done    bool
	err     error
}

func newAuthModel(conn connection.Connection, cancel context.CancelFunc) authModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return authModel{spinner: s, conn: conn, cancel: cancel}
}

func (m authModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m authModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case authDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m authModel) View() string {
	url := m.conn.RedirectURL
	if url == "" {
		url = dimStyle.Render("(no redirect URL supplied; finish the pending authorization)")
	} else {
		url = noticeURLStyle.Render(url)
	}

	var b strings.Builder
	b.WriteString(noticeBoxStyle.Render(
		noticeTitleStyle.Render("Authorize Gmail access") + "\n" +
			"Open this link to connect " + m.conn.EntityID + "'s account:\n" + url,
	))
	b.WriteString("\n")

	switch {
	case !m.done:
		b.WriteString(m.spinner.View() + " Waiting for authorization...")
	case m.err != nil:
		b.WriteString(toolErrorStyle.Render("✗ Authorization did not complete"))
	default:
		b.WriteString(successStyle.Render("✓ Gmail connected"))
	}
	b.WriteString("\n")

	return b.String()
}

// authNotifier surfaces redirect URLs. On a terminal it runs a bubbletea view
// until Finish is called; otherwise it prints plain lines.
type authNotifier struct {
	out         io.Writer
	interactive bool
	cancel      context.CancelFunc

	mu       sync.Mutex
	program  *tea.Program
	finished chan struct{}
}

func newAuthNotifier(out io.Writer, interactive bool, cancel context.CancelFunc) *authNotifier {
	return &authNotifier{out: out, interactive: interactive, cancel: cancel}
}

// NotifyRedirect implements connection.Notifier.
func (n *authNotifier) NotifyRedirect(ctx context.Context, conn connection.Connection) {
	if !n.interactive {
		if conn.RedirectURL != "" {
			fmt.Fprintf(n.out, "Authorize Gmail access for %s: %s\n", conn.EntityID, conn.RedirectURL)
		}
		fmt.Fprintln(n.out, "Waiting for authorization...")
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.program != nil {
		return
	}

	p := tea.NewProgram(newAuthModel(conn, n.cancel), tea.WithOutput(n.out), tea.WithContext(ctx))
	n.program = p
	n.finished = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		_, _ = p.Run()
	}(n.finished)
}

// Finish stops the view, if one is running, and waits for it to exit.
func (n *authNotifier) Finish(err error) {
	n.mu.Lock()
	p, done := n.program, n.finished
	n.program, n.finished = nil, nil
	n.mu.Unlock()

	if p == nil {
		return
	}
	p.Send(authDoneMsg{err: err})
	<-done
}
