package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sandeepkv93/tasktree/internal/app"
	"github.com/sandeepkv93/tasktree/internal/filter"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/notify"
)

type View string

const (
	ViewLogin    View = "Login"
	ViewSections View = "Sections"
	ViewBoard    View = "Board"
	ViewShared   View = "Shared"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Help    string
	Refresh string
	Quit    string
}

// Auth is the part of the session the TUI drives directly.
type Auth interface {
	Login(ctx context.Context, creds model.Credentials) (model.Profile, error)
	Logout(ctx context.Context)
	User() (model.Profile, bool)
}

type Deps struct {
	Service *app.Service
	Auth    Auth
	// Feed delivers mutation failures and other notices. Optional.
	Feed *notify.Feed
	// Timeout bounds the blocking calls the TUI waits on. Zero means 30s.
	Timeout time.Duration
}

type Model struct {
	CurrentView View
	Status      StatusBar
	Keys        GlobalKeyMap
	HelpVisible bool
	Quitting    bool
	LastError   error
	Palette     CommandPaletteState
	Criteria    filter.Criteria
	Cursor      int
	Board       BoardCursor
	// SectionID and TaskID pin the board to one task.
	SectionID     string
	TaskID        string
	Notifications []notify.Notification
	Busy          bool
	DarkMode      bool

	svc     *app.Service
	auth    Auth
	feed    *notify.Feed
	timeout time.Duration

	emailInput    textinput.Model
	passwordInput textinput.Model
	commandInput  textinput.Model
	helpModel     help.Model
	busySpinner   spinner.Model
	taskProgress  progress.Model
	detail        viewport.Model
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

// BoardCursor addresses a subtask as lane and index within it.
type BoardCursor struct {
	Lane  int
	Index int
}

type row struct {
	sectionID string
	taskID    string
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type treeChangedMsg struct{}

type notificationMsg struct {
	N notify.Notification
}

type loginResultMsg struct {
	User model.Profile
	Err  error
}

type refreshedMsg struct {
	Err error
}

// mutationDoneMsg reports the outcome of one optimistic change.
type mutationDoneMsg struct {
	Label string
	Err   error
}

type sharedOpenedMsg struct {
	Section model.Section
	Err     error
}

type shareLinkMsg struct {
	Share model.Share
	Err   error
}

type darkModeMsg struct {
	On  bool
	Err error
}

type loggedOutMsg struct{}

func NewModel(deps Deps) Model {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	m := Model{
		CurrentView: ViewLogin,
		Keys: GlobalKeyMap{
			Help:    "?",
			Refresh: "r",
			Quit:    "q",
		},
		svc:     deps.Service,
		auth:    deps.Auth,
		feed:    deps.Feed,
		timeout: timeout,
	}
	if _, ok := deps.Auth.User(); ok {
		m.CurrentView = ViewSections
	}
	if deps.Service != nil {
		m.DarkMode = deps.Service.DarkMode()
	}
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	m.emailInput = textinput.New()
	m.emailInput.Prompt = "email> "
	m.emailInput.CharLimit = 256
	m.emailInput.Width = 40
	m.emailInput.Focus()

	m.passwordInput = textinput.New()
	m.passwordInput.Prompt = "password> "
	m.passwordInput.CharLimit = 256
	m.passwordInput.Width = 40
	m.passwordInput.EchoMode = textinput.EchoPassword
	m.passwordInput.EchoCharacter = '*'

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 56

	m.helpModel = help.New()

	m.busySpinner = spinner.New()
	m.busySpinner.Spinner = spinner.Dot

	m.taskProgress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(20))
	m.detail = viewport.New(44, 10)
}
