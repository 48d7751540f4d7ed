package commands

import "fmt"

type Result struct {
	Message string
}

// Handlers binds command types to actions. Context such as the selected
// section or task is the handler's concern.
type Handlers struct {
	Section  func(NameArgs) (Result, error)
	Task     func(TaskArgs) (Result, error)
	SubTask  func(SubTaskArgs) (Result, error)
	Rename   func(NameArgs) (Result, error)
	Priority func(PriorityArgs) (Result, error)
	Due      func(DueArgs) (Result, error)
	Tags     func(TagsArgs) (Result, error)
	Remove   func() (Result, error)
	Done     func() (Result, error)
	Assign   func(AssignArgs) (Result, error)
	Filter   func(FilterArgs) (Result, error)
	Clear    func() (Result, error)
	Share    func() (Result, error)
	Public   func() (Result, error)
	Open     func(OpenArgs) (Result, error)
	Dark     func(DarkArgs) (Result, error)
	Refresh  func() (Result, error)
	Logout   func() (Result, error)
}

func Execute(cmd Command, h Handlers) (Result, error) {
	switch cmd.Type {
	case TypeSection:
		return call(cmd.Type, h.Section, cmd.Name)
	case TypeTask:
		return call(cmd.Type, h.Task, cmd.Task)
	case TypeSubTask:
		return call(cmd.Type, h.SubTask, cmd.SubTask)
	case TypeRename:
		return call(cmd.Type, h.Rename, cmd.Name)
	case TypePriority:
		return call(cmd.Type, h.Priority, cmd.Priority)
	case TypeDue:
		return call(cmd.Type, h.Due, cmd.Due)
	case TypeTags:
		return call(cmd.Type, h.Tags, cmd.Tags)
	case TypeAssign:
		return call(cmd.Type, h.Assign, cmd.Assign)
	case TypeFilter:
		return call(cmd.Type, h.Filter, cmd.Filter)
	case TypeOpen:
		return call(cmd.Type, h.Open, cmd.Open)
	case TypeDark:
		return call(cmd.Type, h.Dark, cmd.Dark)
	case TypeRemove:
		return call0(cmd.Type, h.Remove)
	case TypeDone:
		return call0(cmd.Type, h.Done)
	case TypeClear:
		return call0(cmd.Type, h.Clear)
	case TypeShare:
		return call0(cmd.Type, h.Share)
	case TypePublic:
		return call0(cmd.Type, h.Public)
	case TypeRefresh:
		return call0(cmd.Type, h.Refresh)
	case TypeLogout:
		return call0(cmd.Type, h.Logout)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func call[A any](typ Type, fn func(A) (Result, error), args *A) (Result, error) {
	if fn == nil {
		return Result{}, missing(typ)
	}
	if args == nil {
		return Result{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s is missing its arguments", typ)}
	}
	return fn(*args)
}

func call0(typ Type, fn func() (Result, error)) (Result, error) {
	if fn == nil {
		return Result{}, missing(typ)
	}
	return fn()
}

func missing(typ Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", typ)}
}
