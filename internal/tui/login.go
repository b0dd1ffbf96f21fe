package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/apideck/internal/domain"
)

// SubmitFunc performs the login call. A *domain.EntityError is rendered as field feedback.
type SubmitFunc func(ctx context.Context, email, password string) error

// LoginResultMsg is sent when the login call completes.
// It is exported so that tests can inject it directly into LoginModel.Update.
type LoginResultMsg struct {
	Err error
}

type field int

const (
	fieldEmail field = iota
	fieldPassword
)

// submitTimeout bounds a single login call started from the form.
const submitTimeout = 30 * time.Second

// LoginModel is the Bubbletea model of the login form.
type LoginModel struct {
	email      string
	password   string
	focus      field
	submitting bool
	done       bool
	cancelled  bool
	message    string
	violations map[string]string
	err        error
	submit     SubmitFunc
}

// NewLoginModel creates a login form with email prefilled.
func NewLoginModel(email string, submit SubmitFunc) LoginModel {
	m := LoginModel{email: email, submit: submit}
	if email != "" {
		m.focus = fieldPassword
	}
	return m
}

func (m LoginModel) Init() tea.Cmd {
	return nil
}

// Done reports whether the login succeeded.
func (m LoginModel) Done() bool {
	return m.done
}

// Cancelled reports whether the user left the form without logging in.
func (m LoginModel) Cancelled() bool {
	return m.cancelled
}

func (m LoginModel) submitCmd() tea.Cmd {
	email, password := m.email, m.password
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		return LoginResultMsg{Err: m.submit(ctx, email, password)}
	}
}

// Update handles key events and login results.
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoginResultMsg:
		m.submitting = false
		if msg.Err == nil {
			m.done = true
			return m, tea.Quit
		}
		var entityErr *domain.EntityError
		if errors.As(msg.Err, &entityErr) {
			m.err = nil
			m.message = entityErr.Payload.Message
			m.violations = make(map[string]string, len(entityErr.Payload.Errors))
			for _, fe := range entityErr.Payload.Errors {
				if _, seen := m.violations[fe.Field]; !seen {
					m.violations[fe.Field] = fe.Message
				}
			}
			return m, nil
		}
		m.err = msg.Err
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			if msg.Type == tea.KeyCtrlC {
				m.cancelled = true
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
			m.focus = 1 - m.focus
		case tea.KeyEnter:
			if m.focus == fieldEmail {
				m.focus = fieldPassword
				return m, nil
			}
			m.submitting = true
			m.err = nil
			m.message = ""
			m.violations = nil
			return m, m.submitCmd()
		case tea.KeyBackspace:
			m.setFocused(dropLastRune(m.focused()))
		case tea.KeyRunes, tea.KeySpace:
			m.setFocused(m.focused() + string(msg.Runes))
		}
	}
	return m, nil
}

func (m LoginModel) focused() string {
	if m.focus == fieldEmail {
		return m.email
	}
	return m.password
}

func (m *LoginModel) setFocused(v string) {
	if m.focus == fieldEmail {
		m.email = v
	} else {
		m.password = v
	}
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

// View renders the form, with field violations under their fields.
func (m LoginModel) View() string {
	var sb strings.Builder
	sb.WriteString("Sign in\n\n")
	m.renderField(&sb, "Email", "email", m.email, m.focus == fieldEmail)
	m.renderField(&sb, "Password", "password", strings.Repeat("*", len([]rune(m.password))), m.focus == fieldPassword)

	switch {
	case m.submitting:
		sb.WriteString("\nSigning in...\n")
	case m.err != nil:
		sb.WriteString(fmt.Sprintf("\nError: %v\n", m.err))
	case m.message != "":
		sb.WriteString(fmt.Sprintf("\n%s\n", m.message))
	}
	sb.WriteString("\ntab: switch field  enter: submit  esc: cancel\n")
	return sb.String()
}

func (m LoginModel) renderField(sb *strings.Builder, label, name, value string, focused bool) {
	prefix := "  "
	if focused {
		prefix = "> "
	}
	sb.WriteString(fmt.Sprintf("%s%-9s %s\n", prefix, label+":", value))
	if v, ok := m.violations[name]; ok {
		sb.WriteString(fmt.Sprintf("  %-9s ! %s\n", "", v))
	}
}

// RunLogin shows the login form and reports whether the user signed in.
func RunLogin(email string, submit SubmitFunc) (bool, error) {
	p := tea.NewProgram(NewLoginModel(email, submit))
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	m, ok := final.(LoginModel)
	return ok && m.Done(), nil
}
