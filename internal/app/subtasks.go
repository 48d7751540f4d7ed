package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/board"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/mutation"
	"github.com/sandeepkv93/tasktree/internal/workspace"
)

func (s *Service) subTaskTarget(sectionID, taskID string) mutation.Target[model.SubTask] {
	return mutation.Target[model.SubTask]{
		Key:    workspace.SectionKey(sectionID),
		Entity: "subtask",
		Lens:   s.tree.SubTasksLens(sectionID, taskID),
		ID:     func(st model.SubTask) string { return st.ID },
	}
}

// subTaskParent resolves the parent task and checks that user owns the
// section or is assigned to the task.
func (s *Service) subTaskParent(op, sectionID, taskID string, user model.Profile) (model.Task, error) {
	sec, ok := s.tree.Section(sectionID)
	if !ok {
		return model.Task{}, apperr.NotFound(op, "section not found")
	}
	idx := sec.TaskIndex(taskID)
	if idx < 0 {
		return model.Task{}, apperr.NotFound(op, "task not found")
	}
	task := sec.Tasks[idx]
	if !sec.IsOwner(user.ID) && !task.IsAssigned(user.Email) {
		return model.Task{}, apperr.Permission(op, "only the section owner or an assignee can change subtasks")
	}
	return task, nil
}

func (s *Service) subTask(op, sectionID, taskID, subID string, user model.Profile) (model.SubTask, error) {
	task, err := s.subTaskParent(op, sectionID, taskID, user)
	if err != nil {
		return model.SubTask{}, err
	}
	idx := task.SubTaskIndex(subID)
	if idx < 0 {
		return model.SubTask{}, apperr.NotFound(op, "subtask not found")
	}
	return task.SubTasks[idx], nil
}

func (s *Service) CreateSubTask(ctx context.Context, sectionID, taskID string, in model.NewSubTask) *mutation.Pending {
	const op = "create subtask"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	if err := in.Validate(); err != nil {
		return mutation.Failed(apperr.Validation(op, validationMessage(err)))
	}
	if _, err := s.subTaskParent(op, sectionID, taskID, user); err != nil {
		return mutation.Failed(err)
	}
	tentative := in.Tentative(model.NewTempID(), user.ID)
	return mutation.Submit(ctx, s.engine, mutation.Create(s.subTaskTarget(sectionID, taskID), tentative, tentative.Name, func(ctx context.Context) (model.SubTask, error) {
		return s.gw.CreateSubTask(ctx, sectionID, taskID, in)
	}))
}

func (s *Service) UpdateSubTask(ctx context.Context, sectionID, taskID, subID string, patch model.SubTaskPatch) *mutation.Pending {
	const op = "update subtask"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	if err := patch.Validate(); err != nil {
		return mutation.Failed(apperr.Validation(op, validationMessage(err)))
	}
	sub, err := s.subTask(op, sectionID, taskID, subID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	return mutation.Submit(ctx, s.engine, mutation.Update(s.subTaskTarget(sectionID, taskID), subID, sub.Name, patch.Apply, func(ctx context.Context) (model.SubTask, error) {
		return s.gw.UpdateSubTask(ctx, sectionID, taskID, subID, patch)
	}))
}

func (s *Service) DeleteSubTask(ctx context.Context, sectionID, taskID, subID string) *mutation.Pending {
	const op = "delete subtask"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	sub, err := s.subTask(op, sectionID, taskID, subID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	return mutation.Submit(ctx, s.engine, mutation.Delete(s.subTaskTarget(sectionID, taskID), subID, sub.Name, func(ctx context.Context) error {
		return s.gw.DeleteSubTask(ctx, sectionID, taskID, subID)
	}))
}

// ToggleSubTaskDone flips between done and pending.
func (s *Service) ToggleSubTaskDone(ctx context.Context, sectionID, taskID, subID string) *mutation.Pending {
	const op = "toggle subtask"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	sub, err := s.subTask(op, sectionID, taskID, subID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	return mutation.Submit(ctx, s.engine, mutation.Toggle(s.subTaskTarget(sectionID, taskID), subID, sub.Name, func(local model.SubTask) model.SubTask {
		if local.IsDone {
			return local.WithStatus(model.StatusPending)
		}
		return local.WithStatus(model.StatusDone)
	}, func(ctx context.Context, flipped model.SubTask) (model.SubTask, error) {
		return s.gw.SetSubTaskDone(ctx, sectionID, taskID, subID, flipped.IsDone)
	}))
}

// MoveSubTask applies a board move and persists the new status. A failed
// move is undone by reloading the task from the backend; the local
// snapshot is only a fallback when that reload fails too.
func (s *Service) MoveSubTask(ctx context.Context, sectionID, taskID string, move board.Move) *mutation.Pending {
	const op = "move subtask"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	task, err := s.subTaskParent(op, sectionID, taskID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	_, moved, err := board.Build(task.SubTasks).Apply(move)
	if err != nil {
		return mutation.Failed(apperr.Validation(op, err.Error()))
	}

	target := s.subTaskTarget(sectionID, taskID)
	var persisted model.SubTask
	return mutation.Submit(ctx, s.engine, mutation.Op[model.SubTask]{
		Verb:   "move",
		Entity: "subtask",
		Name:   moved.Name,
		Key:    target.Key,
		Lens:   target.Lens,
		Apply: func(current []model.SubTask) ([]model.SubTask, error) {
			next, m, err := board.Build(current).Apply(move)
			if err != nil {
				return nil, apperr.Validation(op, err.Error())
			}
			if m.ID != moved.ID {
				return nil, apperr.Validation(op, "board changed before the move was applied")
			}
			persisted = m
			return next.Flatten(), nil
		},
		Call: func(ctx context.Context) (model.SubTask, bool, error) {
			rec, err := s.gw.UpdateSubTask(ctx, sectionID, taskID, persisted.ID, model.StatusPatch(persisted.Status))
			return rec, err == nil, err
		},
		Reconcile: func(current []model.SubTask, record model.SubTask) []model.SubTask {
			out := model.CloneSubTasks(current)
			for i := range out {
				if out[i].ID == record.ID {
					out[i] = record
				}
			}
			return out
		},
		Recover: func(ctx context.Context) error {
			return s.reloadTask(ctx, user.ID, sectionID, taskID)
		},
	})
}

// reloadTask replaces one task with the backend's copy.
func (s *Service) reloadTask(ctx context.Context, userID, sectionID, taskID string) error {
	sections, err := s.gw.FetchSections(ctx, userID)
	if err != nil {
		return err
	}
	for _, sec := range sections {
		if sec.ID != sectionID {
			continue
		}
		idx := sec.TaskIndex(taskID)
		if idx < 0 {
			break
		}
		task := sec.Tasks[idx]
		task.Recount()
		if !s.tree.ReplaceTask(sectionID, task) {
			return errors.New("task no longer in workspace")
		}
		return nil
	}
	return fmt.Errorf("task %s not found in %s", taskID, sectionID)
}
