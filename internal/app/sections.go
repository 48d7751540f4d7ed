package app

import (
	"context"
	"strings"

	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/mutation"
	"github.com/sandeepkv93/tasktree/internal/workspace"
)

func (s *Service) sectionTarget() mutation.Target[model.Section] {
	return mutation.Target[model.Section]{
		Key:    workspace.SectionsKey,
		Entity: "section",
		Lens:   s.tree.SectionsLens(),
		ID:     func(sec model.Section) string { return sec.ID },
	}
}

// ownedSection loads a section and checks that user owns it.
func (s *Service) ownedSection(op, sectionID string, user model.Profile) (model.Section, error) {
	sec, ok := s.tree.Section(sectionID)
	if !ok {
		return model.Section{}, apperr.NotFound(op, "section not found")
	}
	if !sec.IsOwner(user.ID) {
		return model.Section{}, apperr.Permission(op, "only the section owner can do that")
	}
	return sec, nil
}

func (s *Service) CreateSection(ctx context.Context, name string) *mutation.Pending {
	const op = "create section"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	name = strings.TrimSpace(name)
	tentative := model.Section{ID: model.NewTempID(), Name: name, OwnerUserID: user.ID, Tasks: []model.Task{}}
	if err := tentative.Validate(); err != nil {
		return mutation.Failed(apperr.Validation(op, "section name is required"))
	}
	return mutation.Submit(ctx, s.engine, mutation.Create(s.sectionTarget(), tentative, name, func(ctx context.Context) (model.Section, error) {
		sec, err := s.gw.CreateSection(ctx, name)
		if err != nil {
			return model.Section{}, err
		}
		if sec.Tasks == nil {
			sec.Tasks = []model.Task{}
		}
		return sec, nil
	}))
}

func (s *Service) DeleteSection(ctx context.Context, sectionID string) *mutation.Pending {
	const op = "delete section"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	sec, err := s.ownedSection(op, sectionID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	return mutation.Submit(ctx, s.engine, mutation.Delete(s.sectionTarget(), sectionID, sec.Name, func(ctx context.Context) error {
		return s.gw.DeleteSection(ctx, sectionID)
	}))
}

func (s *Service) TogglePublicView(ctx context.Context, sectionID string) *mutation.Pending {
	const op = "toggle public view"
	user, err := s.currentUser(op)
	if err != nil {
		return mutation.Failed(err)
	}
	sec, err := s.ownedSection(op, sectionID, user)
	if err != nil {
		return mutation.Failed(err)
	}
	return mutation.Submit(ctx, s.engine, mutation.Toggle(s.sectionTarget(), sectionID, sec.Name, func(local model.Section) model.Section {
		local.IsPubliclyShared = !local.IsPubliclyShared
		return local
	}, func(ctx context.Context, _ model.Section) (model.Section, error) {
		return s.gw.TogglePublicView(ctx, sectionID)
	}))
}

// ShareSection asks the backend for a share link and records the token on
// the section. It waits for the result since the link is server generated.
func (s *Service) ShareSection(ctx context.Context, sectionID string) (model.Share, error) {
	const op = "share section"
	user, err := s.currentUser(op)
	if err != nil {
		return model.Share{}, err
	}
	sec, err := s.ownedSection(op, sectionID, user)
	if err != nil {
		return model.Share{}, err
	}
	var share model.Share
	p := mutation.Submit(ctx, s.engine, mutation.Update(s.sectionTarget(), sectionID, sec.Name, func(local model.Section) model.Section {
		return local
	}, func(ctx context.Context) (model.Section, error) {
		out, err := s.gw.ShareSection(ctx, sectionID)
		if err != nil {
			return model.Section{}, err
		}
		share = out
		current, ok := s.tree.Section(sectionID)
		if !ok {
			current = sec
		}
		current.ShareToken = out.Token
		current.IsPubliclyShared = true
		return current, nil
	}))
	if err := p.Wait(ctx); err != nil {
		return model.Share{}, err
	}
	return share, nil
}
