package model

import (
	"errors"
	"strings"
)

type Section struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	OwnerUserID      string `json:"ownerUserId"`
	Tasks            []Task `json:"tasks"`
	IsPubliclyShared bool   `json:"isPubliclyShared"`
	ShareToken       string `json:"shareToken,omitempty"`
}

func (s Section) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("model: section name is required")
	}
	return nil
}

func (s Section) IsOwner(userID string) bool {
	return userID != "" && s.OwnerUserID == userID
}

func (s Section) Clone() Section {
	out := s
	out.Tasks = CloneTasks(s.Tasks)
	return out
}

func (s Section) TaskIndex(taskID string) int {
	for i := range s.Tasks {
		if s.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

func CloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// Share is the public link material returned when a section is shared.
type Share struct {
	Token string `json:"shareToken"`
	URL   string `json:"shareUrl"`
}
