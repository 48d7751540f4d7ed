package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sandeepkv93/tasktree/internal/model"
)

func (s *Server) handleCreateTask(c *gin.Context) {
	var req model.NewTask
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest("invalid payload"))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(c, badRequest("%v", err))
		return
	}
	var out model.Task
	err := s.store.withSection(c.Param("id"), func(sec *model.Section) error {
		if !sec.IsOwner(currentUser(c)) {
			return fmt.Errorf("%w: only the owner can add tasks", errForbidden)
		}
		task := req.Tentative(newID())
		task.SubTasks = []model.SubTask{}
		sec.Tasks = append(sec.Tasks, task)
		out = task.Clone()
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": out})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil || len(raw) == 0 {
		s.respondError(c, badRequest("empty update"))
		return
	}
	out, err := s.editTask(c, func(task *model.Task) error { return patchTask(task, raw) })
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": out})
}

func (s *Server) handleTaskDone(c *gin.Context) {
	var req struct {
		IsDone *bool `json:"isDone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IsDone == nil {
		s.respondError(c, badRequest("isDone is required"))
		return
	}
	out, err := s.editTask(c, func(task *model.Task) error {
		task.IsDone = *req.IsDone
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": out})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	err := s.store.withSection(c.Param("id"), func(sec *model.Section) error {
		if !sec.IsOwner(currentUser(c)) {
			return fmt.Errorf("%w: only the owner can delete tasks", errForbidden)
		}
		idx := sec.TaskIndex(c.Param("taskId"))
		if idx < 0 {
			return fmt.Errorf("%w: task", errNotFound)
		}
		sec.Tasks = slices.Delete(sec.Tasks, idx, idx+1)
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "task deleted"})
}

func (s *Server) handleAssignTask(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		s.respondError(c, badRequest("email is required"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	var out model.Task
	err := s.store.findTask(c.Param("id"), func(sec *model.Section, task *model.Task) error {
		if !sec.IsOwner(currentUser(c)) {
			return fmt.Errorf("%w: only the owner can assign collaborators", errForbidden)
		}
		if _, ok := s.store.accounts[email]; !ok {
			return fmt.Errorf("%w: no user with email %s", errNotFound, email)
		}
		if !task.IsAssigned(email) {
			task.AssignedTo = append(task.AssignedTo, model.Assignee{Email: email})
		}
		out = task.Clone()
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": out})
}

// editTask runs fn on the task named by the route under the owner rule.
func (s *Server) editTask(c *gin.Context, fn func(task *model.Task) error) (model.Task, error) {
	var out model.Task
	err := s.store.withSection(c.Param("id"), func(sec *model.Section) error {
		if !sec.IsOwner(currentUser(c)) {
			return fmt.Errorf("%w: only the owner can edit tasks", errForbidden)
		}
		idx := sec.TaskIndex(c.Param("taskId"))
		if idx < 0 {
			return fmt.Errorf("%w: task", errNotFound)
		}
		edited := sec.Tasks[idx].Clone()
		if err := fn(&edited); err != nil {
			return err
		}
		sec.Tasks[idx] = edited
		out = edited.Clone()
		return nil
	})
	return out, err
}

func (s *Server) handleCreateSubTask(c *gin.Context) {
	var req model.NewSubTask
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest("invalid payload"))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(c, badRequest("%v", err))
		return
	}
	var out model.SubTask
	err := s.withSubTasks(c, func(task *model.Task) error {
		sub := req.Tentative(newID(), currentUser(c))
		task.SubTasks = append(task.SubTasks, sub)
		out = sub.Clone()
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"subTask": out})
}

func (s *Server) handleUpdateSubTask(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil || len(raw) == 0 {
		s.respondError(c, badRequest("empty update"))
		return
	}
	out, err := s.editSubTask(c, func(sub *model.SubTask) error { return patchSubTask(sub, raw) })
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"subTask": out})
}

// handleSubTaskDone accepts status alongside isDone; status wins when both
// are present.
func (s *Server) handleSubTaskDone(c *gin.Context) {
	var req struct {
		IsDone *bool               `json:"isDone"`
		Status model.SubTaskStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || (req.IsDone == nil && req.Status == "") {
		s.respondError(c, badRequest("isDone or status is required"))
		return
	}
	status := req.Status
	if status == "" {
		status = model.StatusPending
		if *req.IsDone {
			status = model.StatusDone
		}
	}
	if !status.IsValid() {
		s.respondError(c, badRequest("invalid status %q", status))
		return
	}
	out, err := s.editSubTask(c, func(sub *model.SubTask) error {
		*sub = sub.WithStatus(status)
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"subTask": out})
}

func (s *Server) handleDeleteSubTask(c *gin.Context) {
	err := s.withSubTasks(c, func(task *model.Task) error {
		idx := task.SubTaskIndex(c.Param("subId"))
		if idx < 0 {
			return fmt.Errorf("%w: subtask", errNotFound)
		}
		task.SubTasks = slices.Delete(task.SubTasks, idx, idx+1)
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"message": "subtask deleted"})
}

func (s *Server) editSubTask(c *gin.Context, fn func(sub *model.SubTask) error) (model.SubTask, error) {
	var out model.SubTask
	err := s.withSubTasks(c, func(task *model.Task) error {
		idx := task.SubTaskIndex(c.Param("subId"))
		if idx < 0 {
			return fmt.Errorf("%w: subtask", errNotFound)
		}
		edited := task.SubTasks[idx].Clone()
		if err := fn(&edited); err != nil {
			return err
		}
		task.SubTasks[idx] = edited
		out = edited.Clone()
		return nil
	})
	return out, err
}

// withSubTasks applies the subtask rule: the section owner or an assignee
// of the parent task. Counters are recomputed after every change.
func (s *Server) withSubTasks(c *gin.Context, fn func(task *model.Task) error) error {
	return s.store.withSection(c.Param("id"), func(sec *model.Section) error {
		idx := sec.TaskIndex(c.Param("taskId"))
		if idx < 0 {
			return fmt.Errorf("%w: task", errNotFound)
		}
		task := &sec.Tasks[idx]
		userID := currentUser(c)
		if !sec.IsOwner(userID) && !task.IsAssigned(s.store.email(userID)) {
			return fmt.Errorf("%w: only the owner or an assignee can change subtasks", errForbidden)
		}
		if err := fn(task); err != nil {
			return err
		}
		task.Recount()
		return nil
	})
}

func patchTask(task *model.Task, raw map[string]json.RawMessage) error {
	var patch model.TaskPatch
	for key, value := range raw {
		var err error
		switch key {
		case "name":
			err = json.Unmarshal(value, &patch.Name)
		case "description":
			err = json.Unmarshal(value, &patch.Description)
		case "priority":
			err = json.Unmarshal(value, &patch.Priority)
		case "isImportant":
			err = json.Unmarshal(value, &patch.IsImportant)
		case "tags":
			err = json.Unmarshal(value, &patch.Tags)
		case "assignedTo":
			err = json.Unmarshal(value, &patch.AssignedTo)
		case "dueDate":
			patch.DueDate, patch.ClearDueDate, err = decodeDate(value)
		}
		if err != nil {
			return badRequest("field %s: %v", key, err)
		}
	}
	if err := patch.Validate(); err != nil {
		return badRequest("%v", err)
	}
	*task = patch.Apply(*task)
	return nil
}

func patchSubTask(sub *model.SubTask, raw map[string]json.RawMessage) error {
	var patch model.SubTaskPatch
	for key, value := range raw {
		var err error
		switch key {
		case "name":
			err = json.Unmarshal(value, &patch.Name)
		case "description":
			err = json.Unmarshal(value, &patch.Description)
		case "status":
			err = json.Unmarshal(value, &patch.Status)
		case "priority":
			err = json.Unmarshal(value, &patch.Priority)
		case "assignedTo":
			err = json.Unmarshal(value, &patch.AssignedTo)
		case "deadline":
			patch.Deadline, patch.ClearDeadline, err = decodeDate(value)
		}
		if err != nil {
			return badRequest("field %s: %v", key, err)
		}
	}
	if err := patch.Validate(); err != nil {
		return badRequest("%v", err)
	}
	*sub = patch.Apply(*sub)
	return nil
}

// decodeDate distinguishes an explicit null (clear) from a timestamp.
func decodeDate(value json.RawMessage) (*time.Time, bool, error) {
	if string(value) == "null" {
		return nil, true, nil
	}
	var t time.Time
	if err := json.Unmarshal(value, &t); err != nil {
		return nil, false, err
	}
	return &t, false, nil
}
