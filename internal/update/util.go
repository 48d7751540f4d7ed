package update

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/mutation"
	"github.com/sandeepkv93/tasktree/internal/notify"
)

func levelFromError(isErr bool) notify.Level {
	if isErr {
		return notify.LevelError
	}
	return notify.LevelInfo
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func assigneeEmails(in []model.Assignee) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		out = append(out, a.Email)
	}
	return out
}

func waitForTreeCmd(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return treeChangedMsg{}
	}
}

func waitForNotificationCmd(ch <-chan notify.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg{N: n}
	}
}

// waitForMutationCmd reports the outcome of p once the backend answered.
// The local change is already visible when this is scheduled.
func (m Model) waitForMutationCmd(label string, p *mutation.Pending) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return mutationDoneMsg{Label: label, Err: p.Wait(ctx)}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	svc, timeout := m.svc, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return refreshedMsg{Err: svc.Refresh(ctx)}
	}
}

func (m Model) loginCmd(creds model.Credentials) tea.Cmd {
	auth, timeout := m.auth, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		user, err := auth.Login(ctx, creds)
		return loginResultMsg{User: user, Err: err}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	auth, timeout := m.auth, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		auth.Logout(ctx)
		return loggedOutMsg{}
	}
}

func (m Model) openSharedCmd(token string) tea.Cmd {
	svc, timeout := m.svc, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		sec, err := svc.OpenShared(ctx, token)
		return sharedOpenedMsg{Section: sec, Err: err}
	}
}

func (m Model) shareCmd(sectionID string) tea.Cmd {
	svc, timeout := m.svc, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		share, err := svc.ShareSection(ctx, sectionID)
		return shareLinkMsg{Share: share, Err: err}
	}
}

func (m Model) darkModeCmd(on bool) tea.Cmd {
	svc, timeout := m.svc, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return darkModeMsg{On: on, Err: svc.SetDarkMode(ctx, on)}
	}
}
