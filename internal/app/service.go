package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/board"
	"github.com/sandeepkv93/tasktree/internal/filter"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/mutation"
	"github.com/sandeepkv93/tasktree/internal/notify"
	"github.com/sandeepkv93/tasktree/internal/storage"
	"github.com/sandeepkv93/tasktree/internal/workspace"
)

// Gateway is the entity half of the backend API.
type Gateway interface {
	FetchSections(ctx context.Context, userID string) ([]model.Section, error)
	CreateSection(ctx context.Context, name string) (model.Section, error)
	DeleteSection(ctx context.Context, sectionID string) error
	TogglePublicView(ctx context.Context, sectionID string) (model.Section, error)
	ShareSection(ctx context.Context, sectionID string) (model.Share, error)
	FetchSharedSection(ctx context.Context, shareToken string) (model.Section, error)

	CreateTask(ctx context.Context, sectionID string, in model.NewTask) (model.Task, error)
	UpdateTask(ctx context.Context, sectionID, taskID string, patch model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, sectionID, taskID string) error
	SetTaskDone(ctx context.Context, sectionID, taskID string, done bool) (model.Task, error)
	AssignTask(ctx context.Context, taskID, email string) (model.Task, error)

	CreateSubTask(ctx context.Context, sectionID, taskID string, in model.NewSubTask) (model.SubTask, error)
	UpdateSubTask(ctx context.Context, sectionID, taskID, subID string, patch model.SubTaskPatch) (model.SubTask, error)
	DeleteSubTask(ctx context.Context, sectionID, taskID, subID string) error
	SetSubTaskDone(ctx context.Context, sectionID, taskID, subID string, done bool) (model.SubTask, error)

	UpdateDarkMode(ctx context.Context, enabled bool) (bool, error)
}

// Identity is the part of the session the service depends on.
type Identity interface {
	User() (model.Profile, bool)
	UpdateProfile(p model.Profile)
}

type Options struct {
	Logger   *slog.Logger
	Notifier notify.Notifier
	// Cache keeps the last fetched sections for offline start. Optional.
	Cache storage.SectionCache
	// Prefs stores local preferences such as dark mode. Optional.
	Prefs storage.KV
	Now   func() time.Time
}

// Service is the application context: it owns the workspace tree and the
// mutation lanes and is the only writer of entity state.
type Service struct {
	gw         Gateway
	identity   Identity
	tree       *workspace.Tree
	dispatcher *mutation.Dispatcher
	engine     *mutation.Engine
	notifier   notify.Notifier
	cache      storage.SectionCache
	prefs      storage.KV
	logger     *slog.Logger
	now        func() time.Time
}

func New(gw Gateway, identity Identity, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	dispatcher := mutation.NewDispatcher(logger)
	dispatcher.Start()
	return &Service{
		gw:         gw,
		identity:   identity,
		tree:       workspace.NewTree(),
		dispatcher: dispatcher,
		engine:     mutation.NewEngine(dispatcher, notifier, logger),
		notifier:   notifier,
		cache:      opts.Cache,
		prefs:      opts.Prefs,
		logger:     logger,
		now:        now,
	}
}

// Close waits for queued mutations to finish.
func (s *Service) Close() {
	s.dispatcher.Stop()
}

func (s *Service) Tree() *workspace.Tree {
	return s.tree
}

func (s *Service) Sections() []model.Section {
	return s.tree.Sections()
}

func (s *Service) currentUser(op string) (model.Profile, error) {
	user, ok := s.identity.User()
	if !ok {
		return model.Profile{}, apperr.New(apperr.KindAuthFailure, op, "not logged in")
	}
	return user, nil
}

// Refresh replaces the workspace with the backend's sections. When the
// fetch fails and nothing is loaded yet, the cached copy is shown instead.
func (s *Service) Refresh(ctx context.Context) error {
	user, err := s.currentUser("refresh")
	if err != nil {
		return err
	}
	sections, err := s.gw.FetchSections(ctx, user.ID)
	if err != nil {
		if len(s.tree.Sections()) == 0 {
			s.loadCached(ctx, user.ID)
		}
		return err
	}
	if sections == nil {
		sections = []model.Section{}
	}
	s.tree.Replace(sections)
	s.saveCached(ctx, user.ID, sections)
	return nil
}

func (s *Service) saveCached(ctx context.Context, userID string, sections []model.Section) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(sections)
	if err != nil {
		s.logger.Error("encode section cache", slog.String("error", err.Error()))
		return
	}
	if err := s.cache.SaveSections(ctx, userID, payload, s.now().UTC()); err != nil {
		s.logger.Warn("save section cache", slog.String("error", err.Error()))
	}
}

func (s *Service) loadCached(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	payload, fetchedAt, err := s.cache.LoadSections(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("load section cache", slog.String("error", err.Error()))
		}
		return
	}
	var sections []model.Section
	if err := json.Unmarshal(payload, &sections); err != nil {
		s.logger.Warn("decode section cache", slog.String("error", err.Error()))
		return
	}
	s.tree.Replace(sections)
	s.logger.Info("showing cached sections", slog.Time("fetched_at", fetchedAt))
}

// OpenShared loads a publicly shared section; no login is needed.
func (s *Service) OpenShared(ctx context.Context, shareToken string) (model.Section, error) {
	if shareToken == "" {
		return model.Section{}, apperr.Validation("open shared section", "share token is required")
	}
	sec, err := s.gw.FetchSharedSection(ctx, shareToken)
	if err != nil {
		return model.Section{}, err
	}
	s.tree.SetShared(sec)
	return sec, nil
}

// Filtered projects the workspace through c.
func (s *Service) Filtered(c filter.Criteria) []model.Section {
	return filter.ProjectSections(s.tree.Sections(), c)
}

// Board partitions a task's subtasks into lanes.
func (s *Service) Board(sectionID, taskID string) (board.Board, error) {
	task, ok := s.tree.Task(sectionID, taskID)
	if !ok {
		return board.Board{}, apperr.NotFound("board", "task not found")
	}
	return board.Build(task.SubTasks), nil
}

// DarkMode reports the stored preference, falling back to the profile.
func (s *Service) DarkMode() bool {
	if s.prefs != nil {
		if raw, err := s.prefs.Get(storage.KeyDarkMode); err == nil {
			on, _ := strconv.ParseBool(raw)
			return on
		}
	}
	user, _ := s.identity.User()
	return user.DarkMode
}

// SetDarkMode stores the preference locally first and reverts it when the
// backend rejects the change.
func (s *Service) SetDarkMode(ctx context.Context, on bool) error {
	user, err := s.currentUser("set dark mode")
	if err != nil {
		return err
	}
	previous := s.DarkMode()
	s.storeDarkMode(on)
	confirmed, err := s.gw.UpdateDarkMode(ctx, on)
	if err != nil {
		s.storeDarkMode(previous)
		return err
	}
	s.storeDarkMode(confirmed)
	user.DarkMode = confirmed
	s.identity.UpdateProfile(user)
	return nil
}

func (s *Service) storeDarkMode(on bool) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.Set(storage.KeyDarkMode, strconv.FormatBool(on)); err != nil {
		s.logger.Warn("store dark mode", slog.String("error", err.Error()))
	}
}
