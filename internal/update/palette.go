package update

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/tasktree/internal/commands"
	"github.com/sandeepkv93/tasktree/internal/filter"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/notify"
)

var errNoTask = &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "select a task first"}

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Palette.Active = false
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.commandInput.CursorEnd()
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
}

func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()

	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}

	ctx := context.Background()
	var next tea.Cmd

	res, err := commands.Execute(cmd, commands.Handlers{
		Section: func(a commands.NameArgs) (commands.Result, error) {
			next = m.waitForMutationCmd("section saved", m.svc.CreateSection(ctx, a.Name))
			return commands.Result{Message: fmt.Sprintf("creating section %s", a.Name)}, nil
		},
		Task: func(a commands.TaskArgs) (commands.Result, error) {
			sectionID, ok := m.selectedSection()
			if !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "select a section first"}
			}
			next = m.waitForMutationCmd("task saved", m.svc.CreateTask(ctx, sectionID, a.Task))
			return commands.Result{Message: fmt.Sprintf("creating task %s", a.Task.Name)}, nil
		},
		SubTask: func(a commands.SubTaskArgs) (commands.Result, error) {
			sectionID, taskID, ok := m.selectedTask()
			if !ok {
				return commands.Result{}, errNoTask
			}
			next = m.waitForMutationCmd("subtask saved", m.svc.CreateSubTask(ctx, sectionID, taskID, a.SubTask))
			return commands.Result{Message: fmt.Sprintf("creating subtask %s", a.SubTask.Name)}, nil
		},
		Rename: func(a commands.NameArgs) (commands.Result, error) {
			name := a.Name
			if sub, ok := m.boardSubTask(); ok {
				next = m.waitForMutationCmd("subtask renamed", m.svc.UpdateSubTask(ctx, m.SectionID, m.TaskID, sub.ID, model.SubTaskPatch{Name: &name}))
				return commands.Result{Message: "renaming subtask"}, nil
			}
			return m.patchTask(ctx, &next, "task renamed", model.TaskPatch{Name: &name})
		},
		Priority: func(a commands.PriorityArgs) (commands.Result, error) {
			p := a.Priority
			if sub, ok := m.boardSubTask(); ok {
				next = m.waitForMutationCmd("subtask updated", m.svc.UpdateSubTask(ctx, m.SectionID, m.TaskID, sub.ID, model.SubTaskPatch{Priority: &p}))
				return commands.Result{Message: "updating subtask priority"}, nil
			}
			return m.patchTask(ctx, &next, "priority updated", model.TaskPatch{Priority: &p})
		},
		Due: func(a commands.DueArgs) (commands.Result, error) {
			if sub, ok := m.boardSubTask(); ok {
				patch := model.SubTaskPatch{Deadline: a.Date, ClearDeadline: a.Date == nil}
				next = m.waitForMutationCmd("deadline updated", m.svc.UpdateSubTask(ctx, m.SectionID, m.TaskID, sub.ID, patch))
				return commands.Result{Message: "updating deadline"}, nil
			}
			return m.patchTask(ctx, &next, "due date updated", model.TaskPatch{DueDate: a.Date, ClearDueDate: a.Date == nil})
		},
		Tags: func(a commands.TagsArgs) (commands.Result, error) {
			tags := a.Tags
			if tags == nil {
				tags = []string{}
			}
			return m.patchTask(ctx, &next, "tags updated", model.TaskPatch{Tags: &tags})
		},
		Remove: func() (commands.Result, error) {
			updated, c := m.removeSelected()
			m, next = updated, c
			if next == nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "nothing selected"}
			}
			return commands.Result{Message: "deleting"}, nil
		},
		Done: func() (commands.Result, error) {
			updated, c := m.toggleSelected()
			m, next = updated, c
			if next == nil {
				return commands.Result{}, errNoTask
			}
			return commands.Result{Message: "toggling"}, nil
		},
		Assign: func(a commands.AssignArgs) (commands.Result, error) {
			sectionID, taskID, ok := m.selectedTask()
			if !ok {
				return commands.Result{}, errNoTask
			}
			next = m.waitForMutationCmd(fmt.Sprintf("assigned %s", a.Email), m.svc.AssignTask(ctx, sectionID, taskID, a.Email))
			return commands.Result{Message: fmt.Sprintf("assigning %s", a.Email)}, nil
		},
		Filter: func(a commands.FilterArgs) (commands.Result, error) {
			c, err := filter.Parse(a.Terms, m.Criteria, time.Local)
			if err != nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: strings.TrimPrefix(err.Error(), "filter: ")}
			}
			m.Criteria = c
			m.Cursor = 0
			if m.CurrentView == ViewBoard {
				m.CurrentView = ViewSections
			}
			return commands.Result{Message: "filter: " + filter.Describe(c)}, nil
		},
		Clear: func() (commands.Result, error) {
			m.Criteria = filter.Criteria{}
			m.Cursor = 0
			return commands.Result{Message: "filter cleared"}, nil
		},
		Share: func() (commands.Result, error) {
			sectionID, ok := m.selectedSection()
			if !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "select a section first"}
			}
			next = m.shareCmd(sectionID)
			return commands.Result{Message: "requesting share link"}, nil
		},
		Public: func() (commands.Result, error) {
			sectionID, ok := m.selectedSection()
			if !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "select a section first"}
			}
			next = m.waitForMutationCmd("public view updated", m.svc.TogglePublicView(ctx, sectionID))
			return commands.Result{Message: "toggling public view"}, nil
		},
		Open: func(a commands.OpenArgs) (commands.Result, error) {
			m.Busy = true
			next = tea.Batch(m.openSharedCmd(a.Token), m.busySpinner.Tick)
			return commands.Result{Message: "opening shared section"}, nil
		},
		Dark: func(a commands.DarkArgs) (commands.Result, error) {
			m.DarkMode = a.On
			next = m.darkModeCmd(a.On)
			return commands.Result{Message: fmt.Sprintf("dark mode %s", onOff(a.On))}, nil
		},
		Refresh: func() (commands.Result, error) {
			updated, c := m.startRefresh()
			m, next = updated, c
			return commands.Result{Message: "refreshing"}, nil
		},
		Logout: func() (commands.Result, error) {
			next = m.logoutCmd()
			return commands.Result{Message: "signing out"}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.pushNotification(notify.Notification{Title: "Command failed", Body: err.Error(), Level: levelFromError(true), At: time.Now().UTC()})
		return m, nil
	}
	m.Status = StatusBar{Text: res.Message}
	return m, next
}

// boardSubTask is the highlighted subtask when the board is open.
func (m Model) boardSubTask() (model.SubTask, bool) {
	if m.CurrentView != ViewBoard {
		return model.SubTask{}, false
	}
	return m.selectedSubTask()
}

func (m Model) patchTask(ctx context.Context, next *tea.Cmd, label string, patch model.TaskPatch) (commands.Result, error) {
	sectionID, taskID, ok := m.selectedTask()
	if !ok {
		return commands.Result{}, errNoTask
	}
	*next = m.waitForMutationCmd(label, m.svc.UpdateTask(ctx, sectionID, taskID, patch))
	return commands.Result{Message: "updating task"}, nil
}
