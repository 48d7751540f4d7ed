package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type LoginData struct {
	EmailView    string
	PasswordView string
	Busy         string
	Error        string
}

type SectionRowData struct {
	IsSection bool
	Name      string
	Owner     bool
	Public    bool
	Done      bool
	Important bool
	Priority  string
	Due       string
	Tags      []string
	Progress  string
	Tentative bool
	Selected  bool
}

type SectionsData struct {
	Filter string
	Rows   []SectionRowData
}

type TaskDetailData struct {
	Name         string
	Priority     string
	Due          string
	Tags         []string
	AssignedTo   []string
	ProgressView string
	Description  string
}

type BoardItemData struct {
	Name      string
	Priority  string
	Deadline  string
	Tentative bool
	Selected  bool
}

type LaneData struct {
	Title  string
	Items  []BoardItemData
	Active bool
}

type BoardData struct {
	Section string
	Task    string
	Lanes   []LaneData
}

type SharedData struct {
	Name  string
	Token string
	Tasks []SectionRowData
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

var (
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	laneStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Width(26)
	activeLane    = laneStyle.BorderForeground(lipgloss.Color("12"))
	priorityColor = map[string]lipgloss.Color{"high": "9", "medium": "11", "low": "10"}
)

func RenderLogin(data LoginData) string {
	var b strings.Builder
	b.WriteString("sign in:\n\n")
	b.WriteString(data.EmailView + "\n")
	b.WriteString(data.PasswordView + "\n\n")
	b.WriteString("actions: [tab]next field [enter]sign in [ctrl+o]open shared link\n")
	if data.Busy != "" {
		b.WriteString(data.Busy + "\n")
	}
	if data.Error != "" {
		b.WriteString(errorStyle.Render("error: "+data.Error) + "\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderSections(data SectionsData) string {
	var b strings.Builder
	b.WriteString("sections:")
	if data.Filter != "" {
		b.WriteString(mutedStyle.Render("  filter: " + data.Filter))
	}
	b.WriteString("\n")
	if len(data.Rows) == 0 {
		b.WriteString("(no sections, try /section <name>)")
		return b.String()
	}
	for _, row := range data.Rows {
		line := renderRow(row)
		if row.Selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderRow(row SectionRowData) string {
	if row.IsSection {
		badges := ""
		if !row.Owner {
			badges += " [shared with me]"
		}
		if row.Public {
			badges += " [public]"
		}
		if row.Tentative {
			badges += " (saving)"
		}
		return sectionStyle.Render(row.Name) + mutedStyle.Render(badges)
	}
	check := "[ ]"
	if row.Done {
		check = "[x]"
	}
	name := row.Name
	if row.Done {
		name = doneStyle.Render(name)
	}
	if row.Important {
		name = "! " + name
	}
	parts := []string{"  " + check, priorityBadge(row.Priority), name}
	if row.Progress != "" {
		parts = append(parts, mutedStyle.Render(row.Progress))
	}
	if row.Due != "" {
		parts = append(parts, mutedStyle.Render("due:"+row.Due))
	}
	if len(row.Tags) > 0 {
		parts = append(parts, mutedStyle.Render("#"+strings.Join(row.Tags, " #")))
	}
	if row.Tentative {
		parts = append(parts, mutedStyle.Render("(saving)"))
	}
	return strings.Join(parts, " ")
}

func priorityBadge(priority string) string {
	color, ok := priorityColor[priority]
	if !ok {
		return "[" + priority + "]"
	}
	return lipgloss.NewStyle().Foreground(color).Render("[" + strings.ToUpper(priority[:1]) + "]")
}

func RenderTaskDetail(data TaskDetailData) string {
	if data.Name == "" {
		return "details:\n(no task selected)"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("details:\nname: %s\npriority: %s\n", data.Name, data.Priority))
	if data.Due != "" {
		b.WriteString(fmt.Sprintf("due: %s\n", data.Due))
	}
	if len(data.Tags) > 0 {
		b.WriteString(fmt.Sprintf("tags: %s\n", strings.Join(data.Tags, ", ")))
	}
	if len(data.AssignedTo) > 0 {
		b.WriteString(fmt.Sprintf("assigned: %s\n", strings.Join(data.AssignedTo, ", ")))
	}
	b.WriteString(fmt.Sprintf("subtasks: %s\n", data.ProgressView))
	if strings.TrimSpace(data.Description) != "" {
		b.WriteString("\n" + data.Description)
	}
	return strings.TrimSpace(b.String())
}

func RenderBoard(data BoardData) string {
	lanes := make([]string, 0, len(data.Lanes))
	for _, lane := range data.Lanes {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("%s (%d)\n", lane.Title, len(lane.Items)))
		if len(lane.Items) == 0 {
			b.WriteString(mutedStyle.Render("(empty)"))
		}
		for _, item := range lane.Items {
			line := priorityBadge(item.Priority) + " " + item.Name
			if item.Deadline != "" {
				line += mutedStyle.Render(" " + item.Deadline)
			}
			if item.Tentative {
				line += mutedStyle.Render(" (saving)")
			}
			if item.Selected {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
		style := laneStyle
		if lane.Active {
			style = activeLane
		}
		lanes = append(lanes, style.Render(strings.TrimSuffix(b.String(), "\n")))
	}
	header := fmt.Sprintf("board: %s / %s", data.Section, data.Task)
	return header + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, lanes...)
}

func RenderShared(data SharedData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("shared section: %s\n", sectionStyle.Render(data.Name)))
	b.WriteString(mutedStyle.Render("read only, token "+data.Token) + "\n")
	if len(data.Tasks) == 0 {
		b.WriteString("(no tasks)")
	}
	for _, row := range data.Tasks {
		b.WriteString(renderRow(row) + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return input
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	line := fmt.Sprintf("[%s] %s", strings.ToUpper(level), body)
	if level == "error" {
		return errorStyle.Render(line)
	}
	return line
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
