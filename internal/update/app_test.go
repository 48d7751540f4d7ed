package update

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/tasktree/internal/api"
	"github.com/sandeepkv93/tasktree/internal/app"
	"github.com/sandeepkv93/tasktree/internal/devserver"
	"github.com/sandeepkv93/tasktree/internal/filter"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/notify"
	"github.com/sandeepkv93/tasktree/internal/session"
	"github.com/sandeepkv93/tasktree/internal/storage"
)

type harness struct {
	server  *devserver.Server
	client  *api.Client
	manager *session.Manager
	svc     *app.Service
	feed    *notify.Feed
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := devserver.New(devserver.Options{Secret: []byte("test-secret")})
	srv.SeedUser(model.Profile{ID: "u1", Name: "Ada", Email: "ada@example.com"}, "secret1")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := api.New(ts.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	kv := storage.NewMemoryKV()
	store, err := session.NewKVTokenStore(kv)
	if err != nil {
		t.Fatalf("token store: %v", err)
	}
	manager := session.NewManager(client, store, session.Options{})
	client.SetAuthenticator(manager)
	feed := notify.NewFeed(10, 10)
	svc := app.New(client, manager, app.Options{Notifier: feed, Cache: kv, Prefs: kv})
	t.Cleanup(svc.Close)
	return &harness{server: srv, client: client, manager: manager, svc: svc, feed: feed}
}

func (h *harness) model() Model {
	return NewModel(Deps{Service: h.svc, Auth: h.manager, Feed: h.feed, Timeout: 3 * time.Second})
}

// signedIn logs in through the session and loads the workspace, the way a
// second start with a stored token would.
func (h *harness) signedIn(t *testing.T) Model {
	t.Helper()
	if _, err := h.manager.Login(t.Context(), model.Credentials{Email: "ada@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := h.svc.Refresh(t.Context()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return h.model()
}

// await runs cmd, descending into batches, until a message of type T
// arrives. Commands that never return are abandoned.
func await[T tea.Msg](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	out := make(chan tea.Msg, 32)
	var launch func(tea.Cmd)
	launch = func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() {
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, sub := range batch {
					launch(sub)
				}
				return
			}
			select {
			case out <- msg:
			default:
			}
		}()
	}
	launch(cmd)
	timeout := time.After(3 * time.Second)
	for {
		select {
		case msg := <-out:
			if typed, ok := msg.(T); ok {
				return typed
			}
		case <-timeout:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// palette runs one command line and returns the model and follow-up command.
func palette(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m, _ = step(t, m, keyMsg("/"))
	if !m.Palette.Active {
		t.Fatal("expected palette to open")
	}
	m = typeText(t, m, line)
	return step(t, m, keyMsg("enter"))
}

func (m Model) rowIndex(taskID string) int {
	for i, r := range m.rows() {
		if r.taskID == taskID {
			return i
		}
	}
	return -1
}

func TestNewModelStartsAtLogin(t *testing.T) {
	h := newHarness(t)
	m := h.model()
	if m.CurrentView != ViewLogin {
		t.Fatalf("expected login view, got %q", m.CurrentView)
	}
	if m.Keys.Quit != "q" || m.Keys.Help != "?" {
		t.Fatalf("unexpected keys: %+v", m.Keys)
	}
	if !strings.Contains(m.View(), "sign in") {
		t.Fatalf("expected login form in output: %q", m.View())
	}
}

func TestLoginWithKeyboard(t *testing.T) {
	h := newHarness(t)
	m := h.model()
	m = typeText(t, m, "ada@example.com")
	m, _ = step(t, m, keyMsg("enter"))
	if !m.passwordInput.Focused() {
		t.Fatal("enter on the email field should move to the password")
	}
	m = typeText(t, m, "secret1")
	m, cmd := step(t, m, keyMsg("enter"))
	if !m.Busy {
		t.Fatal("expected busy while signing in")
	}

	res := await[loginResultMsg](t, cmd)
	if res.Err != nil {
		t.Fatalf("login failed: %v", res.Err)
	}
	m, cmd = step(t, m, res)
	if m.CurrentView != ViewSections {
		t.Fatalf("expected sections view, got %q", m.CurrentView)
	}
	m, _ = step(t, m, await[refreshedMsg](t, cmd))
	if m.Busy || m.Status.Text != "workspace up to date" {
		t.Fatalf("unexpected status after refresh: %+v", m.Status)
	}
}

func TestLoginFailureShowsError(t *testing.T) {
	h := newHarness(t)
	m := h.model()
	m = typeText(t, m, "ada@example.com")
	m, _ = step(t, m, keyMsg("tab"))
	m = typeText(t, m, "wrong")
	m, cmd := step(t, m, keyMsg("enter"))
	m, _ = step(t, m, await[loginResultMsg](t, cmd))
	if m.CurrentView != ViewLogin || !m.Status.IsError {
		t.Fatalf("expected login error, got view %q status %+v", m.CurrentView, m.Status)
	}
}

func TestPaletteCreatesSectionAndTask(t *testing.T) {
	h := newHarness(t)
	m := h.signedIn(t)

	m, cmd := palette(t, m, "section Work")
	if done := await[mutationDoneMsg](t, cmd); done.Err != nil {
		t.Fatalf("create section: %v", done.Err)
	}
	sections := h.svc.Sections()
	if len(sections) != 1 || sections[0].Name != "Work" || model.IsTempID(sections[0].ID) {
		t.Fatalf("unexpected sections: %+v", sections)
	}

	m, cmd = palette(t, m, "task Ship release p:high tag:ops !")
	if done := await[mutationDoneMsg](t, cmd); done.Err != nil {
		t.Fatalf("create task: %v", done.Err)
	}
	sec, _ := h.svc.Tree().Section(sections[0].ID)
	if len(sec.Tasks) != 1 {
		t.Fatalf("expected one task, got %+v", sec.Tasks)
	}
	task := sec.Tasks[0]
	if task.Name != "Ship release" || task.Priority != model.PriorityHigh || !task.IsImportant || !task.HasTag("ops") {
		t.Fatalf("unexpected task: %+v", task)
	}
	if out := m.View(); !strings.Contains(out, "Ship release") {
		t.Fatalf("expected task in output: %q", out)
	}
}

func TestFilterAndClear(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	m := h.signedIn(t)
	sec, err := h.client.CreateSection(ctx, "Work")
	if err != nil {
		t.Fatalf("create section: %v", err)
	}
	done, _ := h.client.CreateTask(ctx, sec.ID, model.NewTask{Name: "Done one"})
	if _, err := h.client.SetTaskDone(ctx, sec.ID, done.ID, true); err != nil {
		t.Fatalf("set done: %v", err)
	}
	if _, err := h.client.CreateTask(ctx, sec.ID, model.NewTask{Name: "Open one"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := h.svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	m, _ = palette(t, m, "filter status:completed")
	if m.Criteria.Status != filter.StatusCompleted {
		t.Fatalf("unexpected criteria: %+v", m.Criteria)
	}
	if rows := m.rows(); len(rows) != 2 || rows[1].taskID != done.ID {
		t.Fatalf("expected only the completed task, got %+v", rows)
	}
	if !strings.Contains(m.View(), "filter: status:completed") {
		t.Fatal("expected filter in header")
	}

	m, _ = palette(t, m, "clear")
	if !m.Criteria.IsZero() || len(m.rows()) != 3 {
		t.Fatalf("expected cleared filter, got %+v", m.Criteria)
	}

	m, _ = palette(t, m, "filter due:2026-13-01")
	if !m.Status.IsError || !m.Criteria.IsZero() {
		t.Fatalf("bad filter must be rejected, got %+v", m.Status)
	}
}

func TestBoardMovesSubtaskBetweenLanes(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	m := h.signedIn(t)
	sec, _ := h.client.CreateSection(ctx, "Work")
	task, _ := h.client.CreateTask(ctx, sec.ID, model.NewTask{Name: "Ship"})
	sub, err := h.client.CreateSubTask(ctx, sec.ID, task.ID, model.NewSubTask{Name: "write notes"})
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	if err := h.svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	m.Cursor = m.rowIndex(task.ID)
	m, _ = step(t, m, keyMsg("enter"))
	if m.CurrentView != ViewBoard || m.TaskID != task.ID {
		t.Fatalf("expected board for %s, got %q %q", task.ID, m.CurrentView, m.TaskID)
	}

	m, cmd := step(t, m, keyMsg("L"))
	if m.Board.Lane != 1 || m.Board.Index != 0 {
		t.Fatalf("cursor should follow the subtask, got %+v", m.Board)
	}
	if done := await[mutationDoneMsg](t, cmd); done.Err != nil {
		t.Fatalf("move: %v", done.Err)
	}
	b, _ := h.svc.Board(sec.ID, task.ID)
	if len(b.InProgress) != 1 || b.InProgress[0].ID != sub.ID {
		t.Fatalf("expected subtask in progress, got %+v", b)
	}
	if !strings.Contains(m.View(), "In progress (1)") {
		t.Fatalf("expected lane counts in output: %q", m.View())
	}

	m, _ = step(t, m, keyMsg("esc"))
	if m.CurrentView != ViewSections {
		t.Fatalf("expected sections view, got %q", m.CurrentView)
	}
}

func TestFailedMutationRaisesNotification(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	m := h.signedIn(t)
	sec, _ := h.client.CreateSection(ctx, "Work")
	task, _ := h.client.CreateTask(ctx, sec.ID, model.NewTask{Name: "Ship"})
	if err := h.svc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m.Cursor = m.rowIndex(task.ID)

	m, cmd := palette(t, m, "assign nobody@example.com")
	done := await[mutationDoneMsg](t, cmd)
	if done.Err == nil {
		t.Fatal("expected assign to an unknown user to fail")
	}
	m, _ = step(t, m, done)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, `Failed to update task "Ship"`) {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	current, _ := h.svc.Tree().Task(sec.ID, task.ID)
	if len(current.AssignedTo) != 0 {
		t.Fatalf("optimistic assignee must be rolled back, got %+v", current.AssignedTo)
	}

	n := await[notificationMsg](t, waitForNotificationCmd(h.feed.C()))
	m, _ = step(t, m, n)
	if len(m.Notifications) != 1 || m.Notifications[0].Level != notify.LevelError {
		t.Fatalf("unexpected notifications: %+v", m.Notifications)
	}
}

func TestUnknownCommandSetsError(t *testing.T) {
	h := newHarness(t)
	m := h.signedIn(t)
	m, cmd := palette(t, m, "bogus")
	if cmd != nil || !m.Status.IsError || m.Palette.Active {
		t.Fatalf("unexpected result: status %+v palette %+v", m.Status, m.Palette)
	}
	m, _ = palette(t, m, "task needs a section")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "select a section first") {
		t.Fatalf("expected selection error, got %+v", m.Status)
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	m := h.signedIn(t)
	if _, err := h.client.CreateSection(t.Context(), "Work"); err != nil {
		t.Fatalf("create section: %v", err)
	}
	if err := h.svc.Refresh(t.Context()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m, cmd := palette(t, m, "logout")
	m, _ = step(t, m, await[loggedOutMsg](t, cmd))
	if m.CurrentView != ViewLogin || len(h.svc.Sections()) != 0 {
		t.Fatalf("expected cleared workspace on login view, got %q", m.CurrentView)
	}
	if _, ok := h.manager.User(); ok {
		t.Fatal("session must be cleared")
	}
}

func TestOpenSharedSection(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	m := h.signedIn(t)
	sec, _ := h.client.CreateSection(ctx, "Launch")
	share, err := h.client.ShareSection(ctx, sec.ID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}

	m, cmd := palette(t, m, "open "+share.Token)
	m, _ = step(t, m, await[sharedOpenedMsg](t, cmd))
	if m.CurrentView != ViewShared || !strings.Contains(m.View(), "Launch") {
		t.Fatalf("expected shared view, got %q", m.CurrentView)
	}
	m, _ = step(t, m, keyMsg("esc"))
	if m.CurrentView != ViewSections {
		t.Fatalf("expected sections view, got %q", m.CurrentView)
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	h := newHarness(t)
	m := h.model()
	m, _ = step(t, m, SetStatusMsg{Text: "ready"})
	if m.Status.Text != "ready" || m.Status.IsError {
		t.Fatalf("unexpected status: %+v", m.Status)
	}

	m, _ = step(t, m, AppErrorMsg{Err: errors.New("boom")})
	if m.LastError == nil || m.LastError.Error() != "boom" {
		t.Fatalf("expected last error boom, got: %v", m.LastError)
	}
	if !m.Status.IsError || m.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %+v", m.Status)
	}

	m, _ = step(t, m, ClearStatusMsg{})
	if m.Status.Text != "" || m.Status.IsError {
		t.Fatalf("expected cleared status, got: %+v", m.Status)
	}

	m, _ = step(t, m, SwitchViewMsg{View: View("Unknown")})
	if m.CurrentView != ViewLogin {
		t.Fatalf("expected view unchanged for unknown view, got %q", m.CurrentView)
	}
}

func TestUpdateQuitKey(t *testing.T) {
	h := newHarness(t)
	m := h.signedIn(t)
	m, cmd := step(t, m, keyMsg("q"))
	if !m.Quitting {
		t.Fatal("expected quitting flag true")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestHelpToggle(t *testing.T) {
	h := newHarness(t)
	m := h.signedIn(t)
	m, _ = step(t, m, keyMsg("?"))
	if !m.HelpVisible || !strings.Contains(m.View(), "open subtask board") {
		t.Fatal("expected help panel with section bindings")
	}
	m, _ = step(t, m, keyMsg("?"))
	if m.HelpVisible {
		t.Fatal("expected help hidden")
	}
}
