package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/filter"
	"github.com/sandeepkv93/tasktree/internal/notify"
	"github.com/sandeepkv93/tasktree/internal/views"
)

const maxNotifications = 40

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForTreeCmd(m.svc.Tree().Changed())}
	if m.feed != nil {
		cmds = append(cmds, waitForNotificationCmd(m.feed.C()))
	}
	if m.CurrentView != ViewLogin {
		cmds = append(cmds, m.refreshCmd(), m.busySpinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		keyStr := typed.String()
		if keyStr == "ctrl+c" {
			m.Quitting = true
			return m, tea.Quit
		}
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		if m.CurrentView == ViewLogin {
			return m.handleLoginKey(typed)
		}

		switch keyStr {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.SetValue("")
			m.commandInput.Focus()
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown"}
			} else {
				m.Status = StatusBar{Text: "help hidden"}
			}
			return m, nil
		case m.Keys.Refresh:
			if m.CurrentView == ViewShared {
				return m, nil
			}
			return m.startRefresh()
		case m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		switch m.CurrentView {
		case ViewSections:
			return m.handleSectionsKey(typed)
		case ViewBoard:
			return m.handleBoardKey(typed)
		case ViewShared:
			return m.handleSharedKey(typed)
		}
	case spinner.TickMsg:
		if m.Busy {
			var cmd tea.Cmd
			m.busySpinner, cmd = m.busySpinner.Update(typed)
			return m, cmd
		}
	case treeChangedMsg:
		m.clampCursors()
		return m, waitForTreeCmd(m.svc.Tree().Changed())
	case notificationMsg:
		m.pushNotification(typed.N)
		var next tea.Cmd
		if m.feed != nil {
			next = waitForNotificationCmd(m.feed.C())
		}
		return m, next
	case loginResultMsg:
		m.Busy = false
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: apperr.UserMessage(typed.Err), IsError: true}
			return m, nil
		}
		m.emailInput.SetValue("")
		m.passwordInput.SetValue("")
		m.CurrentView = ViewSections
		m.DarkMode = m.svc.DarkMode()
		m.Status = StatusBar{Text: fmt.Sprintf("signed in as %s", typed.User.Email)}
		return m.startRefresh()
	case refreshedMsg:
		m.Busy = false
		m.clampCursors()
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: "refresh failed: " + apperr.UserMessage(typed.Err), IsError: true}
			if apperr.IsKind(typed.Err, apperr.KindAuthFailure) {
				return m.signedOut("session expired, sign in again")
			}
			return m, nil
		}
		m.Status = StatusBar{Text: "workspace up to date"}
		return m, nil
	case mutationDoneMsg:
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: apperr.UserMessage(typed.Err), IsError: true}
			return m, nil
		}
		m.Status = StatusBar{Text: typed.Label}
		return m, nil
	case sharedOpenedMsg:
		m.Busy = false
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: apperr.UserMessage(typed.Err), IsError: true}
			return m, nil
		}
		m.CurrentView = ViewShared
		m.Status = StatusBar{Text: fmt.Sprintf("viewing shared section %s", typed.Section.Name)}
		return m, nil
	case shareLinkMsg:
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: apperr.UserMessage(typed.Err), IsError: true}
			return m, nil
		}
		m.Status = StatusBar{Text: "share link: " + typed.Share.URL}
		return m, nil
	case darkModeMsg:
		m.DarkMode = m.svc.DarkMode()
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: "dark mode not saved: " + apperr.UserMessage(typed.Err), IsError: true}
			return m, nil
		}
		m.Status = StatusBar{Text: fmt.Sprintf("dark mode %s", onOff(typed.On))}
		return m, nil
	case loggedOutMsg:
		return m.signedOut("signed out")
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: apperr.UserMessage(typed.Err), IsError: true}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	if m.Busy {
		status = strings.TrimSpace(m.busySpinner.View() + " " + status)
	}

	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewLogin:
		leftPane = m.renderLoginView()
	case ViewSections:
		leftPane = m.renderSectionsView()
		rightPane = m.renderTaskDetail() + m.renderHelpIfVisible()
	case ViewBoard:
		leftPane = m.renderBoardView()
		rightPane = strings.TrimPrefix(m.renderHelpIfVisible(), "\n\n")
	case ViewShared:
		leftPane = m.renderSharedView()
		rightPane = strings.TrimPrefix(m.renderHelpIfVisible(), "\n\n")
	}
	if m.Palette.Active {
		leftPane += "\n\n" + views.RenderCommandPalette(true, m.commandInput.View())
	}

	user := "signed out"
	if profile, ok := m.auth.User(); ok {
		user = profile.Email
	}
	header := fmt.Sprintf("tasktree | view: %s | user: %s", m.CurrentView, user)
	if !m.Criteria.IsZero() {
		header += " | filter: " + filter.Describe(m.Criteria)
	}

	return views.RenderApp(views.AppData{
		Header:       header,
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: m.renderNotificationsView(),
		Footer:       m.footer(),
	})
}

func (m Model) footer() string {
	switch m.CurrentView {
	case ViewLogin:
		return "keys: tab next field | enter sign in | ctrl+o open shared | ctrl+c quit"
	case ViewBoard:
		return fmt.Sprintf("keys: h/l lane | j/k move | H/L shift lane | J/K reorder | esc back | / cmd | %s help | %s quit", m.Keys.Help, m.Keys.Quit)
	default:
		return fmt.Sprintf("keys: j/k move | enter board | / cmd | %s refresh | %s help | %s quit", m.Keys.Refresh, m.Keys.Help, m.Keys.Quit)
	}
}

func (m Model) startRefresh() (Model, tea.Cmd) {
	m.Busy = true
	m.Status = StatusBar{Text: "refreshing"}
	return m, tea.Batch(m.refreshCmd(), m.busySpinner.Tick)
}

func (m Model) signedOut(text string) (Model, tea.Cmd) {
	m.svc.Tree().Clear()
	m.CurrentView = ViewLogin
	m.Criteria = filter.Criteria{}
	m.Cursor = 0
	m.Board = BoardCursor{}
	m.SectionID, m.TaskID = "", ""
	m.emailInput.Focus()
	m.passwordInput.Blur()
	m.Status = StatusBar{Text: text}
	return m, nil
}

func (m *Model) pushNotification(n notify.Notification) {
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(string(n.Level), n.Body)
}

func isKnownView(v View) bool {
	switch v {
	case ViewLogin, ViewSections, ViewBoard, ViewShared:
		return true
	default:
		return false
	}
}
