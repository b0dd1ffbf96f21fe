package tui_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/apideck/internal/domain"
	"github.com/waabox/apideck/internal/tui"
)

func typeText(m tea.Model, text string) tea.Model {
	for _, r := range text {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestLogin_TypingFillsFocusedFieldAndMasksPassword(t *testing.T) {
	var m tea.Model = tui.NewLoginModel("", nil)

	m = typeText(m, "ada@example.com")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(m, "secret")

	view := m.(tui.LoginModel).View()
	if !strings.Contains(view, "ada@example.com") {
		t.Errorf("expected email in view, got:\n%s", view)
	}
	if strings.Contains(view, "secret") {
		t.Errorf("password must be masked, got:\n%s", view)
	}
	if !strings.Contains(view, "******") {
		t.Errorf("expected masked password in view, got:\n%s", view)
	}
}

func TestLogin_BackspaceRemovesLastRune(t *testing.T) {
	var m tea.Model = tui.NewLoginModel("", nil)
	m = typeText(m, "añb")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})

	view := m.(tui.LoginModel).View()
	if !strings.Contains(view, "Email:    añ\n") {
		t.Errorf("expected 'añ' after backspace, got:\n%s", view)
	}
}

func TestLogin_EnterOnPasswordSubmitsCredentials(t *testing.T) {
	var gotEmail, gotPassword string
	submit := func(_ context.Context, email, password string) error {
		gotEmail, gotPassword = email, password
		return nil
	}
	var m tea.Model = tui.NewLoginModel("ada@example.com", submit)
	m = typeText(m, "pw")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected submit command")
	}
	if !strings.Contains(m.(tui.LoginModel).View(), "Signing in") {
		t.Error("expected submitting indicator")
	}

	msg := cmd()
	if gotEmail != "ada@example.com" || gotPassword != "pw" {
		t.Errorf("unexpected credentials: %q %q", gotEmail, gotPassword)
	}
	m, _ = m.Update(msg)
	if !m.(tui.LoginModel).Done() {
		t.Error("expected form to be done after successful login")
	}
}

func TestLogin_EntityErrorRendersFieldViolations(t *testing.T) {
	entityErr, err := domain.NewEntityError(json.RawMessage(
		`{"message":"Invalid credentials","errors":[{"field":"email","message":"Email not found"},{"field":"password","message":"Too short"}]}`,
	))
	if err != nil {
		t.Fatal(err)
	}

	var m tea.Model = tui.NewLoginModel("ada@example.com", nil)
	m, _ = m.Update(tui.LoginResultMsg{Err: fmt.Errorf("login: %w", entityErr)})

	lm := m.(tui.LoginModel)
	if lm.Done() {
		t.Error("form must not be done after a validation failure")
	}
	view := lm.View()
	for _, want := range []string{"Email not found", "Too short", "Invalid credentials"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view, got:\n%s", want, view)
		}
	}
}

func TestLogin_OtherErrorIsShown(t *testing.T) {
	var m tea.Model = tui.NewLoginModel("", nil)
	m, _ = m.Update(tui.LoginResultMsg{Err: fmt.Errorf("executing request: connection refused")})
	if !strings.Contains(m.(tui.LoginModel).View(), "connection refused") {
		t.Error("expected transport error in view")
	}
}

func TestLogin_EscCancels(t *testing.T) {
	var m tea.Model = tui.NewLoginModel("", nil)
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !m.(tui.LoginModel).Cancelled() {
		t.Error("expected form to be cancelled")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
}
