package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/tasktree/internal/board"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/views"
)

var laneTitles = map[model.SubTaskStatus]string{
	model.StatusPending:    "Pending",
	model.StatusInProgress: "In progress",
	model.StatusDone:       "Done",
}

func (m Model) currentBoard() (board.Board, bool) {
	b, err := m.svc.Board(m.SectionID, m.TaskID)
	return b, err == nil
}

func (m *Model) clampBoardCursor() {
	b, ok := m.currentBoard()
	if !ok {
		return
	}
	m.Board.Lane = min(max(m.Board.Lane, 0), len(board.Lanes)-1)
	n := len(b.Lane(board.Lanes[m.Board.Lane]))
	m.Board.Index = min(max(m.Board.Index, 0), max(n-1, 0))
}

func (m Model) selectedSubTask() (model.SubTask, bool) {
	b, ok := m.currentBoard()
	if !ok {
		return model.SubTask{}, false
	}
	lane := b.Lane(board.Lanes[m.Board.Lane])
	if m.Board.Index < 0 || m.Board.Index >= len(lane) {
		return model.SubTask{}, false
	}
	return lane[m.Board.Index], true
}

func (m Model) handleBoardKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.CurrentView = ViewSections
		return m, nil
	case "h", "left":
		m.Board.Lane--
		m.clampBoardCursor()
		return m, nil
	case "l", "right":
		m.Board.Lane++
		m.clampBoardCursor()
		return m, nil
	case "j", "down":
		m.Board.Index++
		m.clampBoardCursor()
		return m, nil
	case "k", "up":
		m.Board.Index--
		m.clampBoardCursor()
		return m, nil
	case "H", "shift+left":
		return m.moveSelected(-1, 0)
	case "L", "shift+right":
		return m.moveSelected(1, 0)
	case "K", "shift+up":
		return m.moveSelected(0, -1)
	case "J", "shift+down":
		return m.moveSelected(0, 1)
	case " ", "x":
		return m.toggleSelected()
	case "d", "delete":
		return m.removeSelected()
	}
	return m, nil
}

// moveSelected shifts the highlighted subtask by dLane lanes (appending to
// the end of the target lane) or by dIndex positions within its lane. The
// cursor follows the subtask.
func (m Model) moveSelected(dLane, dIndex int) (Model, tea.Cmd) {
	sub, ok := m.selectedSubTask()
	if !ok {
		return m, nil
	}
	b, _ := m.currentBoard()
	destLane := m.Board.Lane + dLane
	if destLane < 0 || destLane >= len(board.Lanes) {
		return m, nil
	}
	move := board.Move{
		SourceLane:  board.Lanes[m.Board.Lane],
		SourceIndex: m.Board.Index,
		DestLane:    board.Lanes[destLane],
		DestIndex:   m.Board.Index + dIndex,
	}
	if dLane != 0 {
		move.DestIndex = len(b.Lane(move.DestLane))
	} else if move.DestIndex < 0 || move.DestIndex >= len(b.Lane(move.SourceLane)) {
		return m, nil
	}

	p := m.svc.MoveSubTask(context.Background(), m.SectionID, m.TaskID, move)
	if next, _, err := b.Apply(move); err == nil {
		if lane, idx, found := next.Locate(sub.ID); found {
			m.Board.Lane = laneIndex(lane)
			m.Board.Index = idx
		}
	}
	return m, m.waitForMutationCmd(fmt.Sprintf("moved %s to %s", sub.Name, laneTitles[move.DestLane]), p)
}

func laneIndex(status model.SubTaskStatus) int {
	for i, lane := range board.Lanes {
		if lane == status {
			return i
		}
	}
	return 0
}

func (m Model) renderBoardView() string {
	b, ok := m.currentBoard()
	if !ok {
		return "board:\n(task not found)"
	}
	task, _ := m.svc.Tree().Task(m.SectionID, m.TaskID)
	sec, _ := m.svc.Tree().Section(m.SectionID)

	lanes := make([]views.LaneData, 0, len(board.Lanes))
	for li, status := range board.Lanes {
		items := b.Lane(status)
		lane := views.LaneData{Title: laneTitles[status], Active: li == m.Board.Lane}
		for i, sub := range items {
			lane.Items = append(lane.Items, views.BoardItemData{
				Name:      sub.Name,
				Priority:  string(sub.Priority),
				Deadline:  formatDate(sub.Deadline),
				Tentative: model.IsTempID(sub.ID),
				Selected:  li == m.Board.Lane && i == m.Board.Index,
			})
		}
		lanes = append(lanes, lane)
	}
	return views.RenderBoard(views.BoardData{Section: sec.Name, Task: task.Name, Lanes: lanes})
}
