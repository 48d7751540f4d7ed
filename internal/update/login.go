package update

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/views"
)

func (m Model) handleLoginKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "down", "up":
		if m.emailInput.Focused() {
			m.emailInput.Blur()
			m.passwordInput.Focus()
		} else {
			m.passwordInput.Blur()
			m.emailInput.Focus()
		}
		return m, nil
	case "ctrl+o":
		m.Palette.Active = true
		m.commandInput.SetValue("open ")
		m.commandInput.CursorEnd()
		m.commandInput.Focus()
		m.Palette.Input = m.commandInput.Value()
		return m, nil
	case "enter":
		if m.Busy {
			return m, nil
		}
		email := strings.TrimSpace(m.emailInput.Value())
		if m.emailInput.Focused() && m.passwordInput.Value() == "" {
			m.emailInput.Blur()
			m.passwordInput.Focus()
			return m, nil
		}
		m.Busy = true
		m.Status = StatusBar{Text: "signing in"}
		return m, tea.Batch(m.loginCmd(model.Credentials{Email: email, Password: m.passwordInput.Value()}), m.busySpinner.Tick)
	}

	var cmd tea.Cmd
	if m.emailInput.Focused() {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m Model) renderLoginView() string {
	data := views.LoginData{
		EmailView:    m.emailInput.View(),
		PasswordView: m.passwordInput.View(),
	}
	if m.Busy {
		data.Busy = m.busySpinner.View() + " signing in"
	}
	if m.Status.IsError {
		data.Error = m.Status.Text
	}
	return views.RenderLogin(data)
}
