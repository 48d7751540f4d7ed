package workspace

import (
	"slices"
	"sync"

	"github.com/sandeepkv93/tasktree/internal/model"
)

// SectionsKey is the lane for the section list itself.
const SectionsKey = "sections"

// SectionKey is the lane shared by a section's tasks and their subtasks.
func SectionKey(sectionID string) string {
	return "section:" + sectionID
}

// Tree holds every section the user can see. Readers always get copies;
// writers go through Replace or one of the collection lenses.
type Tree struct {
	mu       sync.RWMutex
	sections []model.Section
	shared   *model.Section
	version  uint64
	changed  chan struct{}
}

func NewTree() *Tree {
	return &Tree{changed: make(chan struct{}, 1)}
}

// Changed delivers a coalesced signal after any modification.
func (t *Tree) Changed() <-chan struct{} {
	return t.changed
}

func (t *Tree) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// touch must be called with t.mu held for writing.
func (t *Tree) touch() {
	t.version++
	select {
	case t.changed <- struct{}{}:
	default:
	}
}

// Replace installs an authoritative section list.
func (t *Tree) Replace(sections []model.Section) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sections = model.CloneSections(sections)
	t.touch()
}

func (t *Tree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sections = nil
	t.shared = nil
	t.touch()
}

func (t *Tree) Sections() []model.Section {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return model.CloneSections(t.sections)
}

func (t *Tree) Section(id string) (model.Section, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx := t.sectionIndex(id)
	if idx < 0 {
		return model.Section{}, false
	}
	return t.sections[idx].Clone(), true
}

func (t *Tree) Task(sectionID, taskID string) (model.Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx := t.sectionIndex(sectionID)
	if idx < 0 {
		return model.Task{}, false
	}
	sec := &t.sections[idx]
	ti := sec.TaskIndex(taskID)
	if ti < 0 {
		return model.Task{}, false
	}
	return sec.Tasks[ti].Clone(), true
}

// ReplaceTask swaps in an authoritative copy of one task.
func (t *Tree) ReplaceTask(sectionID string, task model.Task) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.sectionIndex(sectionID)
	if idx < 0 {
		return false
	}
	sec := &t.sections[idx]
	ti := sec.TaskIndex(task.ID)
	if ti < 0 {
		return false
	}
	sec.Tasks[ti] = task.Clone()
	t.touch()
	return true
}

func (t *Tree) SetShared(sec model.Section) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := sec.Clone()
	t.shared = &c
	t.touch()
}

func (t *Tree) Shared() (model.Section, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.shared == nil {
		return model.Section{}, false
	}
	return t.shared.Clone(), true
}

func (t *Tree) sectionIndex(id string) int {
	return slices.IndexFunc(t.sections, func(s model.Section) bool { return s.ID == id })
}

// SectionsLens views the section list. Tasks belong to the per-section
// lens, so a stored section keeps the tasks it currently has.
func (t *Tree) SectionsLens() SectionsLens {
	return SectionsLens{tree: t}
}

type SectionsLens struct{ tree *Tree }

func (l SectionsLens) Update(fn func([]model.Section) []model.Section) bool {
	t := l.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	next := fn(model.CloneSections(t.sections))
	for i := range next {
		if idx := t.sectionIndex(next[i].ID); idx >= 0 {
			next[i].Tasks = model.CloneTasks(t.sections[idx].Tasks)
		}
	}
	t.sections = next
	t.touch()
	return true
}

func (t *Tree) TasksLens(sectionID string) TasksLens {
	return TasksLens{tree: t, sectionID: sectionID}
}

type TasksLens struct {
	tree      *Tree
	sectionID string
}

func (l TasksLens) Update(fn func([]model.Task) []model.Task) bool {
	t := l.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.sectionIndex(l.sectionID)
	if idx < 0 {
		return false
	}
	t.sections[idx].Tasks = fn(model.CloneTasks(t.sections[idx].Tasks))
	t.touch()
	return true
}

func (t *Tree) SubTasksLens(sectionID, taskID string) SubTasksLens {
	return SubTasksLens{tree: t, sectionID: sectionID, taskID: taskID}
}

type SubTasksLens struct {
	tree      *Tree
	sectionID string
	taskID    string
}

// Update also refreshes the parent task's progress counters.
func (l SubTasksLens) Update(fn func([]model.SubTask) []model.SubTask) bool {
	t := l.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.sectionIndex(l.sectionID)
	if idx < 0 {
		return false
	}
	sec := &t.sections[idx]
	ti := sec.TaskIndex(l.taskID)
	if ti < 0 {
		return false
	}
	task := &sec.Tasks[ti]
	task.SubTasks = fn(model.CloneSubTasks(task.SubTasks))
	task.Recount()
	t.touch()
	return true
}
