package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/tasktree/internal/model"
)

type Type string

const (
	TypeSection  Type = "section"
	TypeTask     Type = "task"
	TypeSubTask  Type = "subtask"
	TypeRename   Type = "rename"
	TypePriority Type = "priority"
	TypeDue      Type = "due"
	TypeTags     Type = "tags"
	TypeRemove   Type = "rm"
	TypeDone     Type = "done"
	TypeAssign   Type = "assign"
	TypeFilter   Type = "filter"
	TypeClear    Type = "clear"
	TypeShare    Type = "share"
	TypePublic   Type = "public"
	TypeOpen     Type = "open"
	TypeDark     Type = "dark"
	TypeRefresh  Type = "refresh"
	TypeLogout   Type = "logout"
)

var aliases = map[string]Type{
	"new":      TypeTask,
	"add":      TypeTask,
	"sub":      TypeSubTask,
	"delete":   TypeRemove,
	"del":      TypeRemove,
	"toggle":   TypeDone,
	"f":        TypeFilter,
	"search":   TypeFilter,
	"theme":    TypeDark,
	"sync":     TypeRefresh,
	"shared":   TypeOpen,
	"sign-out": TypeLogout,
}

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type NameArgs struct {
	Name string
}

type TaskArgs struct {
	Task model.NewTask
}

type SubTaskArgs struct {
	SubTask model.NewSubTask
}

type PriorityArgs struct {
	Priority model.Priority
}

// DueArgs sets or clears (Date == nil) the selected task's due date.
type DueArgs struct {
	Date *time.Time
}

type TagsArgs struct {
	Tags []string
}

type AssignArgs struct {
	Email string
}

type FilterArgs struct {
	Terms []string
}

type OpenArgs struct {
	Token string
}

type DarkArgs struct {
	On bool
}

type Command struct {
	Type     Type
	Raw      string
	Name     *NameArgs
	Task     *TaskArgs
	SubTask  *SubTaskArgs
	Priority *PriorityArgs
	Due      *DueArgs
	Tags     *TagsArgs
	Assign   *AssignArgs
	Filter   *FilterArgs
	Open     *OpenArgs
	Dark     *DarkArgs
}

// Parse reads one palette line such as
//
//	task Ship release p:high due:2026-03-01 tag:ops !
//
// Dates are interpreted in the local time zone.
func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]
	typ := Type(head)
	if alias, ok := aliases[head]; ok {
		typ = alias
	}

	cmd := Command{Type: typ, Raw: input}
	switch typ {
	case TypeSection, TypeRename:
		name := strings.Join(args, " ")
		if name == "" {
			return Command{}, invalid("%s requires a name", typ)
		}
		cmd.Name = &NameArgs{Name: name}
	case TypeTask:
		task, err := parseTask(args)
		if err != nil {
			return Command{}, err
		}
		cmd.Task = &TaskArgs{Task: task}
	case TypeSubTask:
		sub, err := parseSubTask(args)
		if err != nil {
			return Command{}, err
		}
		cmd.SubTask = &SubTaskArgs{SubTask: sub}
	case TypePriority:
		if len(args) != 1 {
			return Command{}, invalid("priority requires one of low, medium, high")
		}
		p, err := parsePriority(args[0])
		if err != nil {
			return Command{}, err
		}
		cmd.Priority = &PriorityArgs{Priority: p}
	case TypeDue:
		if len(args) != 1 {
			return Command{}, invalid("due requires a date (YYYY-MM-DD) or none")
		}
		due, err := parseDue(args[0])
		if err != nil {
			return Command{}, err
		}
		cmd.Due = &DueArgs{Date: due}
	case TypeTags:
		cmd.Tags = &TagsArgs{Tags: splitList(strings.Join(args, ","))}
	case TypeAssign:
		if len(args) != 1 || !strings.Contains(args[0], "@") {
			return Command{}, invalid("assign requires an email")
		}
		cmd.Assign = &AssignArgs{Email: strings.ToLower(args[0])}
	case TypeFilter:
		if len(args) == 0 {
			return Command{}, invalid("filter requires at least one term, use clear to reset")
		}
		cmd.Filter = &FilterArgs{Terms: args}
	case TypeOpen:
		if len(args) != 1 {
			return Command{}, invalid("open requires a share token")
		}
		cmd.Open = &OpenArgs{Token: args[0]}
	case TypeDark:
		on, err := parseSwitch(args)
		if err != nil {
			return Command{}, err
		}
		cmd.Dark = &DarkArgs{On: on}
	case TypeRemove, TypeDone, TypeClear, TypeShare, TypePublic, TypeRefresh, TypeLogout:
		if len(args) > 0 {
			return Command{}, invalid("%s takes no arguments", typ)
		}
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
	return cmd, nil
}

func parseTask(args []string) (model.NewTask, error) {
	var task model.NewTask
	var words []string
	for _, arg := range args {
		key, value, ok := option(arg)
		switch {
		case arg == "!":
			task.IsImportant = true
		case ok && (key == "p" || key == "priority"):
			p, err := parsePriority(value)
			if err != nil {
				return task, err
			}
			task.Priority = p
		case ok && key == "due":
			due, err := parseDue(value)
			if err != nil {
				return task, err
			}
			task.DueDate = due
		case ok && (key == "tag" || key == "tags"):
			task.Tags = append(task.Tags, splitList(value)...)
		default:
			words = append(words, arg)
		}
	}
	task.Name = strings.Join(words, " ")
	if task.Name == "" {
		return task, invalid("task requires a name")
	}
	return task, nil
}

func parseSubTask(args []string) (model.NewSubTask, error) {
	var sub model.NewSubTask
	var words []string
	for _, arg := range args {
		key, value, ok := option(arg)
		switch {
		case ok && (key == "p" || key == "priority"):
			p, err := parsePriority(value)
			if err != nil {
				return sub, err
			}
			sub.Priority = p
		case ok && key == "status":
			status := model.SubTaskStatus(strings.ToLower(value))
			if !status.IsValid() {
				return sub, invalid("status must be pending, in-progress or done")
			}
			sub.Status = status
		case ok && (key == "due" || key == "deadline"):
			due, err := parseDue(value)
			if err != nil {
				return sub, err
			}
			sub.Deadline = due
		default:
			words = append(words, arg)
		}
	}
	sub.Name = strings.Join(words, " ")
	if sub.Name == "" {
		return sub, invalid("subtask requires a name")
	}
	return sub, nil
}

// option splits key:value words. Unknown keys are treated as plain words
// by the callers.
func option(arg string) (string, string, bool) {
	key, value, ok := strings.Cut(arg, ":")
	if !ok || key == "" || value == "" {
		return "", "", false
	}
	key = strings.ToLower(key)
	switch key {
	case "p", "priority", "due", "deadline", "tag", "tags", "status":
		return key, value, true
	}
	return "", "", false
}

func parsePriority(raw string) (model.Priority, error) {
	p := model.Priority(strings.ToLower(raw))
	if !p.IsValid() {
		return "", invalid("priority must be low, medium or high")
	}
	return p, nil
}

func parseDue(raw string) (*time.Time, error) {
	if strings.EqualFold(raw, "none") {
		return nil, nil
	}
	// Due dates are calendar days, stored as midnight UTC.
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, invalid("date %q must look like 2006-01-02", raw)
	}
	return &day, nil
}

func parseSwitch(args []string) (bool, error) {
	if len(args) != 1 {
		return false, invalid("expected on or off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, invalid("expected on or off, got %q", args[0])
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
