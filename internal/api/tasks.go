package api

import (
	"context"
	"net/http"

	"github.com/sandeepkv93/tasktree/internal/model"
)

type taskResponse struct {
	Task model.Task `json:"task"`
}

type subTaskResponse struct {
	SubTask model.SubTask `json:"subTask"`
}

func (c *Client) CreateTask(ctx context.Context, sectionID string, in model.NewTask) (model.Task, error) {
	var out taskResponse
	err := c.do(ctx, call{op: "create task", method: http.MethodPost, path: []string{"tasks", sectionID}, body: in, auth: true, out: &out})
	return out.Task, err
}

func (c *Client) UpdateTask(ctx context.Context, sectionID, taskID string, patch model.TaskPatch) (model.Task, error) {
	var out taskResponse
	err := c.do(ctx, call{op: "update task", method: http.MethodPut, path: []string{"tasks", sectionID, taskID}, body: patch, auth: true, out: &out})
	return out.Task, err
}

func (c *Client) DeleteTask(ctx context.Context, sectionID, taskID string) error {
	return c.do(ctx, call{op: "delete task", method: http.MethodDelete, path: []string{"tasks", sectionID, taskID}, auth: true})
}

func (c *Client) SetTaskDone(ctx context.Context, sectionID, taskID string, done bool) (model.Task, error) {
	var out taskResponse
	err := c.do(ctx, call{
		op:     "set task done",
		method: http.MethodPut,
		path:   []string{"tasks", sectionID, taskID, "done"},
		body:   map[string]bool{"isDone": done},
		auth:   true,
		out:    &out,
	})
	return out.Task, err
}

func (c *Client) AssignTask(ctx context.Context, taskID, email string) (model.Task, error) {
	var out taskResponse
	err := c.do(ctx, call{
		op:     "assign task",
		method: http.MethodPost,
		path:   []string{"tasks", taskID, "assign"},
		body:   map[string]string{"email": email},
		auth:   true,
		out:    &out,
	})
	return out.Task, err
}

func (c *Client) CreateSubTask(ctx context.Context, sectionID, taskID string, in model.NewSubTask) (model.SubTask, error) {
	var out subTaskResponse
	err := c.do(ctx, call{op: "create subtask", method: http.MethodPost, path: []string{"subtasks", sectionID, taskID}, body: in, auth: true, out: &out})
	return out.SubTask, err
}

func (c *Client) UpdateSubTask(ctx context.Context, sectionID, taskID, subID string, patch model.SubTaskPatch) (model.SubTask, error) {
	var out subTaskResponse
	err := c.do(ctx, call{op: "update subtask", method: http.MethodPut, path: []string{"subtasks", sectionID, taskID, subID}, body: patch, auth: true, out: &out})
	return out.SubTask, err
}

func (c *Client) DeleteSubTask(ctx context.Context, sectionID, taskID, subID string) error {
	return c.do(ctx, call{op: "delete subtask", method: http.MethodDelete, path: []string{"subtasks", sectionID, taskID, subID}, auth: true})
}

// SetSubTaskDone sends status alongside isDone; status stays canonical.
func (c *Client) SetSubTaskDone(ctx context.Context, sectionID, taskID, subID string, done bool) (model.SubTask, error) {
	status := model.StatusPending
	if done {
		status = model.StatusDone
	}
	var out subTaskResponse
	err := c.do(ctx, call{
		op:     "set subtask done",
		method: http.MethodPut,
		path:   []string{"subtasks", sectionID, taskID, subID, "done"},
		body:   map[string]any{"isDone": done, "status": status},
		auth:   true,
		out:    &out,
	})
	return out.SubTask, err
}
