package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/tasktree/internal/filter"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/views"
)

// rows flattens the filtered workspace into section headers followed by
// their tasks.
func (m Model) rows() []row {
	var out []row
	for _, sec := range m.svc.Filtered(m.Criteria) {
		out = append(out, row{sectionID: sec.ID})
		for _, task := range sec.Tasks {
			out = append(out, row{sectionID: sec.ID, taskID: task.ID})
		}
	}
	return out
}

func (m Model) selectedRow() (row, bool) {
	rows := m.rows()
	if m.Cursor < 0 || m.Cursor >= len(rows) {
		return row{}, false
	}
	return rows[m.Cursor], true
}

// selectedTask resolves the task the next command applies to: the board's
// task on the board, the highlighted row elsewhere.
func (m Model) selectedTask() (string, string, bool) {
	if m.CurrentView == ViewBoard && m.TaskID != "" {
		return m.SectionID, m.TaskID, true
	}
	r, ok := m.selectedRow()
	if !ok || r.taskID == "" {
		return "", "", false
	}
	return r.sectionID, r.taskID, true
}

func (m Model) selectedSection() (string, bool) {
	if m.CurrentView == ViewBoard && m.SectionID != "" {
		return m.SectionID, true
	}
	r, ok := m.selectedRow()
	if !ok {
		return "", false
	}
	return r.sectionID, true
}

func (m *Model) clampCursors() {
	n := len(m.rows())
	if m.Cursor >= n {
		m.Cursor = n - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.CurrentView == ViewBoard {
		if _, ok := m.svc.Tree().Task(m.SectionID, m.TaskID); !ok {
			m.CurrentView = ViewSections
			m.Status = StatusBar{Text: "task no longer exists", IsError: true}
			return
		}
		m.clampBoardCursor()
	}
}

func (m Model) handleSectionsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.Cursor < len(m.rows())-1 {
			m.Cursor++
		}
		return m, nil
	case "k", "up":
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m, nil
	case "g", "home":
		m.Cursor = 0
		return m, nil
	case "G", "end":
		m.Cursor = max(len(m.rows())-1, 0)
		return m, nil
	case "enter", "b":
		sectionID, taskID, ok := m.selectedTask()
		if !ok {
			m.Status = StatusBar{Text: "select a task to open its board", IsError: true}
			return m, nil
		}
		m.CurrentView = ViewBoard
		m.SectionID, m.TaskID = sectionID, taskID
		m.Board = BoardCursor{}
		m.clampBoardCursor()
		return m, nil
	case " ", "x":
		return m.toggleSelected()
	case "d", "delete":
		return m.removeSelected()
	case "p":
		sectionID, ok := m.selectedSection()
		if !ok {
			return m, nil
		}
		return m, m.waitForMutationCmd("public view updated", m.svc.TogglePublicView(context.Background(), sectionID))
	}
	return m, nil
}

func (m Model) toggleSelected() (Model, tea.Cmd) {
	if m.CurrentView == ViewBoard {
		sub, ok := m.selectedSubTask()
		if !ok {
			return m, nil
		}
		return m, m.waitForMutationCmd("subtask updated", m.svc.ToggleSubTaskDone(context.Background(), m.SectionID, m.TaskID, sub.ID))
	}
	sectionID, taskID, ok := m.selectedTask()
	if !ok {
		m.Status = StatusBar{Text: "select a task first", IsError: true}
		return m, nil
	}
	return m, m.waitForMutationCmd("task updated", m.svc.ToggleTaskDone(context.Background(), sectionID, taskID))
}

func (m Model) removeSelected() (Model, tea.Cmd) {
	if m.CurrentView == ViewBoard {
		sub, ok := m.selectedSubTask()
		if !ok {
			return m, nil
		}
		return m, m.waitForMutationCmd(fmt.Sprintf("deleted subtask %s", sub.Name), m.svc.DeleteSubTask(context.Background(), m.SectionID, m.TaskID, sub.ID))
	}
	r, ok := m.selectedRow()
	if !ok {
		return m, nil
	}
	if r.taskID != "" {
		return m, m.waitForMutationCmd("task deleted", m.svc.DeleteTask(context.Background(), r.sectionID, r.taskID))
	}
	return m, m.waitForMutationCmd("section deleted", m.svc.DeleteSection(context.Background(), r.sectionID))
}

func (m Model) renderSectionsView() string {
	user, _ := m.auth.User()
	rows := make([]views.SectionRowData, 0)
	i := 0
	for _, sec := range m.svc.Filtered(m.Criteria) {
		rows = append(rows, views.SectionRowData{
			IsSection: true,
			Name:      sec.Name,
			Owner:     sec.IsOwner(user.ID),
			Public:    sec.IsPubliclyShared,
			Tentative: model.IsTempID(sec.ID),
			Selected:  i == m.Cursor,
		})
		i++
		for _, task := range sec.Tasks {
			data := taskRow(task)
			data.Selected = i == m.Cursor
			rows = append(rows, data)
			i++
		}
	}
	return views.RenderSections(views.SectionsData{Filter: filter.Describe(m.Criteria), Rows: rows})
}

func taskRow(task model.Task) views.SectionRowData {
	data := views.SectionRowData{
		Name:      task.Name,
		Done:      task.IsDone,
		Important: task.IsImportant,
		Priority:  string(task.Priority),
		Due:       formatDate(task.DueDate),
		Tags:      task.Tags,
		Tentative: model.IsTempID(task.ID),
	}
	if task.SubtaskCount > 0 {
		data.Progress = fmt.Sprintf("%d/%d", task.SubtaskCompleted, task.SubtaskCount)
	}
	return data
}

func (m Model) renderTaskDetail() string {
	sectionID, taskID, ok := m.selectedTask()
	if !ok {
		return views.RenderTaskDetail(views.TaskDetailData{})
	}
	task, ok := m.svc.Tree().Task(sectionID, taskID)
	if !ok {
		return views.RenderTaskDetail(views.TaskDetailData{})
	}
	pct := 0.0
	if task.SubtaskCount > 0 {
		pct = float64(task.SubtaskCompleted) / float64(task.SubtaskCount)
	}
	detail := m.detail
	detail.SetContent(views.RenderMarkdown(task.Description, m.DarkMode))
	return views.RenderTaskDetail(views.TaskDetailData{
		Name:         task.Name,
		Priority:     string(task.Priority),
		Due:          formatDate(task.DueDate),
		Tags:         task.Tags,
		AssignedTo:   assigneeEmails(task.AssignedTo),
		ProgressView: fmt.Sprintf("%s %d/%d", m.taskProgress.ViewAs(pct), task.SubtaskCompleted, task.SubtaskCount),
		Description:  detail.View(),
	})
}

func (m Model) handleSharedKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() != "esc" {
		return m, nil
	}
	if _, ok := m.auth.User(); ok {
		m.CurrentView = ViewSections
	} else {
		m.CurrentView = ViewLogin
	}
	return m, nil
}

func (m Model) renderSharedView() string {
	sec, ok := m.svc.Tree().Shared()
	if !ok {
		return "shared section:\n(nothing open)"
	}
	rows := make([]views.SectionRowData, 0, len(sec.Tasks))
	for _, task := range sec.Tasks {
		rows = append(rows, taskRow(task))
	}
	return views.RenderShared(views.SharedData{Name: sec.Name, Token: sec.ShareToken, Tasks: rows})
}
