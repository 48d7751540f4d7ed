package app

import (
	"context"
	"strings"

	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/mutation"
	"github.com/sandeepkv93/tasktree/internal/workspace"
)

func (s *Service) taskTarget(sectionID string) mutation.Target[model.Task] {
	return mutation.Target[model.Task]{
		Key:    workspace.SectionKey(sectionID),
		Entity: "task",
		Lens:   s.tree.TasksLens(sectionID),
		ID:     func(t model.Task) string { return t.ID },
		Merge:  mergeTask,
	}
}

// mergeTask keeps local subtasks when the backend answers with a bare task
// record.
func mergeTask(local, remote model.Task) model.Task {
	if remote.SubTasks == nil {
		remote.SubTasks = model.CloneSubTasks(local.SubTasks)
		remote.Recount()
	}
	return remote
}

// ownedTask resolves a task whose section user owns.
func (s *Service) ownedTask(op, sectionID, taskID string, user model.Profile) (model.Task, error) {
	if _, err := s.ownedSection(op, sectionID, user); err != nil {
		return model.Task{}, err
	}
	task, ok := s.tree.Task(sectionID, taskID)
	if !ok {
		return model.Task{}, apperr.NotFound(op, "task not found")
	}
	return task, nil
}

func (s *Service) CreateTask(ctx context.Context, sectionID string, in model.NewTask) *mutation.Pending {
	const op = "create task"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	if err := in.Validate(); err != nil {
		return mutation.Failed(apperr.Validation(op, validationMessage(err)))
	}
	if _, err := s.ownedSection(op, sectionID, user); err != nil {
		return mutation.Failed(err)
	}
	tentative := in.Tentative(model.NewTempID())
	tentative.SubTasks = []model.SubTask{}
	return mutation.Submit(ctx, s.engine, mutation.Create(s.taskTarget(sectionID), tentative, tentative.Name, func(ctx context.Context) (model.Task, error) {
		task, err := s.gw.CreateTask(ctx, sectionID, in)
		if err != nil {
			return model.Task{}, err
		}
		return mergeTask(tentative, task), nil
	}))
}

func (s *Service) UpdateTask(ctx context.Context, sectionID, taskID string, patch model.TaskPatch) *mutation.Pending {
	const op = "update task"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	if err := patch.Validate(); err != nil {
		return mutation.Failed(apperr.Validation(op, validationMessage(err)))
	}
	task, err := s.ownedTask(op, sectionID, taskID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	return mutation.Submit(ctx, s.engine, mutation.Update(s.taskTarget(sectionID), taskID, task.Name, patch.Apply, func(ctx context.Context) (model.Task, error) {
		return s.gw.UpdateTask(ctx, sectionID, taskID, patch)
	}))
}

func (s *Service) DeleteTask(ctx context.Context, sectionID, taskID string) *mutation.Pending {
	const op = "delete task"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	task, err := s.ownedTask(op, sectionID, taskID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	return mutation.Submit(ctx, s.engine, mutation.Delete(s.taskTarget(sectionID), taskID, task.Name, func(ctx context.Context) error {
		return s.gw.DeleteTask(ctx, sectionID, taskID)
	}))
}

func (s *Service) ToggleTaskDone(ctx context.Context, sectionID, taskID string) *mutation.Pending {
	const op = "toggle task"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	task, err := s.ownedTask(op, sectionID, taskID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	return mutation.Submit(ctx, s.engine, mutation.Toggle(s.taskTarget(sectionID), taskID, task.Name, func(local model.Task) model.Task {
		local.IsDone = !local.IsDone
		return local
	}, func(ctx context.Context, flipped model.Task) (model.Task, error) {
		return s.gw.SetTaskDone(ctx, sectionID, taskID, flipped.IsDone)
	}))
}

// AssignTask adds a collaborator by email.
func (s *Service) AssignTask(ctx context.Context, sectionID, taskID, email string) *mutation.Pending {
	const op = "assign task"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return mutation.Failed(apperr.Validation(op, "a valid email is required"))
	}
	task, err := s.ownedTask(op, sectionID, taskID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	if task.IsAssigned(email) {
		return mutation.Failed(apperr.Validation(op, email+" is already assigned"))
	}
	return mutation.Submit(ctx, s.engine, mutation.Update(s.taskTarget(sectionID), taskID, task.Name, func(local model.Task) model.Task {
		local.AssignedTo = append(append([]model.Assignee(nil), local.AssignedTo...), model.Assignee{Email: email})
		return local
	}, func(ctx context.Context) (model.Task, error) {
		return s.gw.AssignTask(ctx, taskID, email)
	}))
}

func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), "model: ")
}
