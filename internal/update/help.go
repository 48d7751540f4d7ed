package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/tasktree/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return "\n\n" + m.renderHelpView()
}

func (m Model) renderHelpView() string {
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: m.helpBindings(m.globalBindings()),
			full:  [][]key.Binding{m.helpBindings(m.globalBindings())},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: "/", Action: "command palette"},
		{Key: m.Keys.Refresh, Action: "refresh"},
		{Key: m.Keys.Help, Action: "toggle help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewSections:
		return []KeyBinding{
			{Key: "j/k", Action: "move cursor"},
			{Key: "enter", Action: "open subtask board"},
			{Key: "space", Action: "toggle task done"},
			{Key: "d", Action: "delete task or section"},
			{Key: "p", Action: "toggle public view"},
			{Key: "/task name p:high due:2026-01-31 tag:a,b !", Action: "create task"},
			{Key: "/filter status:completed tag:ops", Action: "filter tasks"},
		}
	case ViewBoard:
		return []KeyBinding{
			{Key: "h/l j/k", Action: "move cursor"},
			{Key: "H/L", Action: "move subtask to another lane"},
			{Key: "J/K", Action: "reorder within lane"},
			{Key: "space", Action: "toggle subtask done"},
			{Key: "d", Action: "delete subtask"},
			{Key: "/subtask name status:in-progress", Action: "create subtask"},
			{Key: "esc", Action: "back to sections"},
		}
	case ViewShared:
		return []KeyBinding{{Key: "esc", Action: "close shared section"}}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings(bindings []KeyBinding) []key.Binding {
	out := make([]key.Binding, 0, len(bindings))
	for _, kb := range bindings {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
