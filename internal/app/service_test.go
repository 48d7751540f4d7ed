package app

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/board"
	"github.com/sandeepkv93/tasktree/internal/filter"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/notify"
	"github.com/sandeepkv93/tasktree/internal/storage"
)

type fakeGateway struct {
	mu       sync.Mutex
	calls    []string
	sections []model.Section
	fail     map[string]error
	hold     map[string]chan struct{}
	seq      int
}

func (f *fakeGateway) record(op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	hold := f.hold[op]
	err := f.fail[op]
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}
	return err
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGateway) nextID(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return prefix + string(rune('0'+f.seq))
}

func (f *fakeGateway) FetchSections(context.Context, string) ([]model.Section, error) {
	if err := f.record("fetch"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.CloneSections(f.sections), nil
}

func (f *fakeGateway) CreateSection(_ context.Context, name string) (model.Section, error) {
	if err := f.record("create section"); err != nil {
		return model.Section{}, err
	}
	return model.Section{ID: f.nextID("s"), Name: name, OwnerUserID: "u1"}, nil
}

func (f *fakeGateway) DeleteSection(context.Context, string) error { return f.record("delete section") }

func (f *fakeGateway) TogglePublicView(_ context.Context, id string) (model.Section, error) {
	if err := f.record("toggle public"); err != nil {
		return model.Section{}, err
	}
	return model.Section{ID: id, Name: "Work", OwnerUserID: "u1", IsPubliclyShared: true}, nil
}

func (f *fakeGateway) ShareSection(context.Context, string) (model.Share, error) {
	if err := f.record("share"); err != nil {
		return model.Share{}, err
	}
	return model.Share{Token: "tok-share", URL: "http://web/shared/tok-share"}, nil
}

func (f *fakeGateway) FetchSharedSection(_ context.Context, token string) (model.Section, error) {
	if err := f.record("shared"); err != nil {
		return model.Section{}, err
	}
	return model.Section{ID: "pub", Name: "Public", ShareToken: token, IsPubliclyShared: true}, nil
}

func (f *fakeGateway) CreateTask(_ context.Context, _ string, in model.NewTask) (model.Task, error) {
	if err := f.record("create task"); err != nil {
		return model.Task{}, err
	}
	task := in.Tentative(f.nextID("t"))
	return task, nil
}

func (f *fakeGateway) UpdateTask(_ context.Context, _, taskID string, patch model.TaskPatch) (model.Task, error) {
	if err := f.record("update task"); err != nil {
		return model.Task{}, err
	}
	return patch.Apply(model.Task{ID: taskID, Priority: model.PriorityLow}), nil
}

func (f *fakeGateway) DeleteTask(context.Context, string, string) error { return f.record("delete task") }

func (f *fakeGateway) SetTaskDone(_ context.Context, _, taskID string, done bool) (model.Task, error) {
	if err := f.record("task done"); err != nil {
		return model.Task{}, err
	}
	return model.Task{ID: taskID, Name: "Ship", Priority: model.PriorityHigh, IsDone: done}, nil
}

func (f *fakeGateway) AssignTask(_ context.Context, taskID, email string) (model.Task, error) {
	if err := f.record("assign"); err != nil {
		return model.Task{}, err
	}
	return model.Task{ID: taskID, Name: "Ship", Priority: model.PriorityHigh, AssignedTo: []model.Assignee{{Email: email}}}, nil
}

func (f *fakeGateway) CreateSubTask(_ context.Context, _, _ string, in model.NewSubTask) (model.SubTask, error) {
	if err := f.record("create subtask"); err != nil {
		return model.SubTask{}, err
	}
	return in.Tentative(f.nextID("st"), "u2"), nil
}

func (f *fakeGateway) UpdateSubTask(_ context.Context, _, _, subID string, patch model.SubTaskPatch) (model.SubTask, error) {
	if err := f.record("update subtask"); err != nil {
		return model.SubTask{}, err
	}
	return patch.Apply(model.SubTask{ID: subID, Name: "server"}), nil
}

func (f *fakeGateway) DeleteSubTask(context.Context, string, string, string) error {
	return f.record("delete subtask")
}

func (f *fakeGateway) SetSubTaskDone(_ context.Context, _, _, subID string, done bool) (model.SubTask, error) {
	if err := f.record("subtask done"); err != nil {
		return model.SubTask{}, err
	}
	status := model.StatusPending
	if done {
		status = model.StatusDone
	}
	return model.SubTask{ID: subID, Name: "a"}.WithStatus(status), nil
}

func (f *fakeGateway) UpdateDarkMode(_ context.Context, on bool) (bool, error) {
	if err := f.record("dark mode"); err != nil {
		return false, err
	}
	return on, nil
}

type fakeIdentity struct {
	mu   sync.Mutex
	user *model.Profile
}

func (i *fakeIdentity) User() (model.Profile, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.user == nil {
		return model.Profile{}, false
	}
	return *i.user, true
}

func (i *fakeIdentity) UpdateProfile(p model.Profile) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.user = &p
}

func workspaceFixture() []model.Section {
	return []model.Section{{
		ID:          "s1",
		Name:        "Work",
		OwnerUserID: "u1",
		Tasks: []model.Task{{
			ID:         "t1",
			Name:       "Ship",
			Priority:   model.PriorityHigh,
			AssignedTo: []model.Assignee{{Email: "bo@example.com"}},
			SubTasks: []model.SubTask{
				{ID: "a", Name: "a", Status: model.StatusPending},
				{ID: "b", Name: "b", Status: model.StatusInProgress},
			},
			SubtaskCount: 2,
		}},
	}}
}

type fixture struct {
	svc  *Service
	gw   *fakeGateway
	id   *fakeIdentity
	feed *notify.Feed
	kv   *storage.MemoryKV
}

func newFixture(t *testing.T, user model.Profile) *fixture {
	t.Helper()
	gw := &fakeGateway{sections: workspaceFixture(), fail: map[string]error{}, hold: map[string]chan struct{}{}}
	id := &fakeIdentity{user: &user}
	feed := notify.NewFeed(10, 10)
	kv := storage.NewMemoryKV()
	svc := New(gw, id, Options{Notifier: feed, Cache: kv, Prefs: kv})
	t.Cleanup(svc.Close)
	if err := svc.Refresh(t.Context()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	gw.mu.Lock()
	gw.calls = nil
	gw.mu.Unlock()
	return &fixture{svc: svc, gw: gw, id: id, feed: feed, kv: kv}
}

var (
	owner    = model.Profile{ID: "u1", Email: "ada@example.com"}
	assignee = model.Profile{ID: "u2", Email: "bo@example.com"}
	stranger = model.Profile{ID: "u3", Email: "cy@example.com"}
)

func wait(t *testing.T, p interface{ Wait(context.Context) error }) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	return p.Wait(ctx)
}

func TestPermissionDeniedNeverReachesNetwork(t *testing.T) {
	f := newFixture(t, stranger)
	checks := []error{
		wait(t, f.svc.DeleteTask(t.Context(), "s1", "t1")),
		wait(t, f.svc.UpdateTask(t.Context(), "s1", "t1", model.TaskPatch{IsImportant: ptr(true)})),
		wait(t, f.svc.AssignTask(t.Context(), "s1", "t1", "x@example.com")),
		wait(t, f.svc.TogglePublicView(t.Context(), "s1")),
		wait(t, f.svc.CreateSubTask(t.Context(), "s1", "t1", model.NewSubTask{Name: "x"})),
		wait(t, f.svc.MoveSubTask(t.Context(), "s1", "t1", board.Move{SourceLane: model.StatusPending, DestLane: model.StatusDone})),
	}
	for i, err := range checks {
		if !apperr.IsKind(err, apperr.KindPermissionDenied) {
			t.Fatalf("check %d: expected permission denied, got %v", i, err)
		}
	}
	if _, err := f.svc.ShareSection(t.Context(), "s1"); !apperr.IsKind(err, apperr.KindPermissionDenied) {
		t.Fatalf("share: expected permission denied, got %v", err)
	}
	if n := f.gw.callCount(); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
}

func TestValidationNeverReachesNetwork(t *testing.T) {
	f := newFixture(t, owner)
	checks := []error{
		wait(t, f.svc.CreateTask(t.Context(), "s1", model.NewTask{Name: "  "})),
		wait(t, f.svc.CreateSection(t.Context(), "")),
		wait(t, f.svc.UpdateTask(t.Context(), "s1", "t1", model.TaskPatch{})),
		wait(t, f.svc.AssignTask(t.Context(), "s1", "t1", "not-an-email")),
		wait(t, f.svc.AssignTask(t.Context(), "s1", "t1", "BO@example.com")),
		wait(t, f.svc.MoveSubTask(t.Context(), "s1", "t1", board.Move{SourceLane: model.StatusDone, SourceIndex: 0, DestLane: model.StatusPending})),
	}
	for i, err := range checks {
		if !apperr.IsKind(err, apperr.KindValidationFailure) {
			t.Fatalf("check %d: expected validation failure, got %v", i, err)
		}
	}
	if n := f.gw.callCount(); n != 0 {
		t.Fatalf("expected no network calls, got %d", n)
	}
}

func TestCreateTaskThenFail(t *testing.T) {
	f := newFixture(t, owner)
	before := f.svc.Sections()
	hold := make(chan struct{})
	f.gw.hold["create task"] = hold
	f.gw.fail["create task"] = apperr.New(apperr.KindRequestFailed, "create task", "section is archived")

	p := f.svc.CreateTask(t.Context(), "s1", model.NewTask{Name: "T1"})
	<-p.Applied()
	sec, _ := f.svc.Tree().Section("s1")
	if len(sec.Tasks) != 2 || !model.IsTempID(sec.Tasks[1].ID) || sec.Tasks[1].Name != "T1" {
		t.Fatalf("expected tentative task, got %+v", sec.Tasks)
	}
	close(hold)

	err := wait(t, p)
	want := `Failed to create task "T1": section is archived`
	if !apperr.IsKind(err, apperr.KindMutationFailed) || apperr.UserMessage(err) != want {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.svc.Sections(); !reflect.DeepEqual(got, before) {
		t.Fatalf("expected rollback to the snapshot\n got %+v\nwant %+v", got, before)
	}
	if n, ok := f.feed.Latest(); !ok || n.Body != want {
		t.Fatalf("expected failure notification, got %+v", n)
	}
}

func TestCreateTaskReplacesTemporaryID(t *testing.T) {
	f := newFixture(t, owner)
	if err := wait(t, f.svc.CreateTask(t.Context(), "s1", model.NewTask{Name: "T2", Tags: []string{"ops"}})); err != nil {
		t.Fatalf("create: %v", err)
	}
	sec, _ := f.svc.Tree().Section("s1")
	last := sec.Tasks[len(sec.Tasks)-1]
	if model.IsTempID(last.ID) || last.Name != "T2" || !last.HasTag("ops") || last.SubTasks == nil {
		t.Fatalf("unexpected authoritative task: %+v", last)
	}
}

func TestToggleTaskDoneTwice(t *testing.T) {
	f := newFixture(t, owner)
	first := f.svc.ToggleTaskDone(t.Context(), "s1", "t1")
	second := f.svc.ToggleTaskDone(t.Context(), "s1", "t1")
	if err := wait(t, first); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := wait(t, second); err != nil {
		t.Fatalf("second: %v", err)
	}
	task, _ := f.svc.Tree().Task("s1", "t1")
	if task.IsDone {
		t.Fatal("two toggles must restore the original state")
	}
	if len(task.SubTasks) != 2 {
		t.Fatalf("bare task responses must keep local subtasks, got %+v", task.SubTasks)
	}
}

func TestAssigneeManagesSubtasks(t *testing.T) {
	f := newFixture(t, assignee)
	if err := wait(t, f.svc.CreateSubTask(t.Context(), "s1", "t1", model.NewSubTask{Name: "c", Status: model.StatusDone})); err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	task, _ := f.svc.Tree().Task("s1", "t1")
	if task.SubtaskCount != 3 || task.SubtaskCompleted != 1 {
		t.Fatalf("counters must follow subtasks, got %d/%d", task.SubtaskCompleted, task.SubtaskCount)
	}
	if err := wait(t, f.svc.ToggleSubTaskDone(t.Context(), "s1", "t1", "a")); err != nil {
		t.Fatalf("toggle subtask: %v", err)
	}
	task, _ = f.svc.Tree().Task("s1", "t1")
	if sub := task.SubTasks[task.SubTaskIndex("a")]; sub.Status != model.StatusDone || !sub.IsDone {
		t.Fatalf("unexpected toggled subtask: %+v", sub)
	}
	if err := wait(t, f.svc.DeleteTask(t.Context(), "s1", "t1")); !apperr.IsKind(err, apperr.KindPermissionDenied) {
		t.Fatalf("assignee must not delete the task, got %v", err)
	}
}

func TestMoveSubTaskPersistsStatus(t *testing.T) {
	f := newFixture(t, owner)
	err := wait(t, f.svc.MoveSubTask(t.Context(), "s1", "t1", board.Move{
		SourceLane: model.StatusPending, SourceIndex: 0, DestLane: model.StatusDone, DestIndex: 0,
	}))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	b, err := f.svc.Board("s1", "t1")
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(b.Pending) != 0 || len(b.Done) != 1 || b.Done[0].ID != "a" || !b.Done[0].IsDone {
		t.Fatalf("unexpected board: %+v", b)
	}
	task, _ := f.svc.Tree().Task("s1", "t1")
	if task.SubtaskCompleted != 1 {
		t.Fatalf("expected recount after move, got %d", task.SubtaskCompleted)
	}
}

func TestFailedMoveReloadsTask(t *testing.T) {
	f := newFixture(t, owner)
	f.gw.mu.Lock()
	f.gw.sections[0].Tasks[0].SubTasks[1].Status = model.StatusDone
	f.gw.fail["update subtask"] = errors.New("conflict")
	f.gw.mu.Unlock()

	err := wait(t, f.svc.MoveSubTask(t.Context(), "s1", "t1", board.Move{
		SourceLane: model.StatusPending, SourceIndex: 0, DestLane: model.StatusInProgress, DestIndex: 0,
	}))
	if !apperr.IsKind(err, apperr.KindMutationFailed) {
		t.Fatalf("expected mutation failure, got %v", err)
	}
	b, _ := f.svc.Board("s1", "t1")
	if len(b.Pending) != 1 || b.Pending[0].ID != "a" || len(b.Done) != 1 || b.Done[0].ID != "b" {
		t.Fatalf("expected authoritative board after reload, got %+v", b)
	}
}

func TestDeleteSectionAndShare(t *testing.T) {
	f := newFixture(t, owner)
	share, err := f.svc.ShareSection(t.Context(), "s1")
	if err != nil || share.Token != "tok-share" {
		t.Fatalf("share: %+v %v", share, err)
	}
	sec, _ := f.svc.Tree().Section("s1")
	if !sec.IsPubliclyShared || sec.ShareToken != "tok-share" || len(sec.Tasks) != 1 {
		t.Fatalf("unexpected shared section: %+v", sec)
	}

	f.gw.fail["delete section"] = errors.New("backend down")
	if err := wait(t, f.svc.DeleteSection(t.Context(), "s1")); err == nil {
		t.Fatal("expected delete failure")
	}
	if sec, ok := f.svc.Tree().Section("s1"); !ok || len(sec.Tasks) != 1 {
		t.Fatalf("section must be restored with its tasks, got %+v", sec)
	}
}

func TestRefreshFallsBackToCache(t *testing.T) {
	f := newFixture(t, owner)
	gw := &fakeGateway{fail: map[string]error{"fetch": errors.New("offline")}}
	svc := New(gw, f.id, Options{Cache: f.kv})
	defer svc.Close()

	if err := svc.Refresh(t.Context()); err == nil {
		t.Fatal("expected fetch error")
	}
	if got := svc.Sections(); len(got) != 1 || got[0].ID != "s1" {
		t.Fatalf("expected cached sections, got %+v", got)
	}
}

func TestFilteredAndShared(t *testing.T) {
	f := newFixture(t, owner)
	if got := f.svc.Filtered(filter.Criteria{Status: filter.StatusCompleted}); len(got) != 1 || len(got[0].Tasks) != 0 {
		t.Fatalf("unexpected projection: %+v", got)
	}
	sec, err := f.svc.OpenShared(t.Context(), "tok")
	if err != nil || sec.ID != "pub" {
		t.Fatalf("open shared: %+v %v", sec, err)
	}
	if shared, ok := f.svc.Tree().Shared(); !ok || shared.ShareToken != "tok" {
		t.Fatalf("shared section not stored: %+v", shared)
	}
}

func TestSetDarkModeRevertsOnFailure(t *testing.T) {
	f := newFixture(t, owner)
	if err := f.svc.SetDarkMode(t.Context(), true); err != nil {
		t.Fatalf("dark mode: %v", err)
	}
	if !f.svc.DarkMode() {
		t.Fatal("expected dark mode on")
	}
	if user, _ := f.id.User(); !user.DarkMode {
		t.Fatal("expected profile updated")
	}
	f.gw.fail["dark mode"] = errors.New("nope")
	if err := f.svc.SetDarkMode(t.Context(), false); err == nil {
		t.Fatal("expected failure")
	}
	if !f.svc.DarkMode() {
		t.Fatal("failed change must be reverted")
	}
}

func TestLoggedOutOperationsFail(t *testing.T) {
	gw := &fakeGateway{}
	svc := New(gw, &fakeIdentity{}, Options{})
	defer svc.Close()
	if err := svc.Refresh(t.Context()); !apperr.IsKind(err, apperr.KindAuthFailure) {
		t.Fatalf("expected auth failure, got %v", err)
	}
	if err := wait(t, svc.CreateSection(t.Context(), "x")); !apperr.IsKind(err, apperr.KindAuthFailure) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
