package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"projector/internal/domain"
	"projector/internal/engines/dashboard"
	"projector/internal/executor"
	"projector/internal/hooks"
	"projector/internal/store"
	"projector/internal/template"
)

// Spaces projects spaces onto dashboard workspaces, space roles and the
// index patterns of their institution's repositories.
type Spaces struct {
	*base
}

func (s *Spaces) Kind() Kind { return KindSpaces }

func (s *Spaces) SyncAll(ctx context.Context) (executor.Result, error) {
	spaces, err := s.deps.Store.ListSpaces(ctx)
	if err != nil {
		return executor.Result{}, fmt.Errorf("list spaces: %w", err)
	}
	return syncEach(ctx, s.base, KindSpaces, spaces, s.sync)
}

// SyncSpace upserts the workspace, its roles and index patterns, then
// re-publishes the users holding a permission on it.
func (s *Spaces) SyncSpace(ctx context.Context, space domain.Space) error {
	return errors.Join(s.sync(ctx, space), s.cascade(ctx, space.ID))
}

// UnmountSpace deletes the workspace and its roles.
func (s *Spaces) UnmountSpace(ctx context.Context, space domain.Space) error {
	errs := []error{step("delete workspace "+space.ID, s.deps.Dashboard.DeleteWorkspace(ctx, space.ID))}
	for _, access := range accesses {
		name := domain.SpaceRoleName(space.ID, space.Type, access)
		errs = append(errs, step("delete space role "+name, s.deps.Dashboard.DeleteRole(ctx, name)))
	}
	errs = append(errs, s.cascade(ctx, space.ID))
	return errors.Join(errs...)
}

func (s *Spaces) sync(ctx context.Context, space domain.Space) error {
	inst, err := s.deps.Store.GetInstitution(ctx, space.InstitutionID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("space %s belongs to institution %s: %w", space.ID, space.InstitutionID, ErrMissingReference)
	}
	if err != nil {
		return fmt.Errorf("read institution %s: %w", space.InstitutionID, err)
	}

	ws, err := s.workspace(space, inst)
	if err != nil {
		return err
	}
	if err := step("upsert workspace "+space.ID, s.deps.Dashboard.CreateOrUpdateWorkspace(ctx, ws)); err != nil {
		// Roles and index patterns live inside the workspace.
		return err
	}

	var errs []error
	for _, access := range accesses {
		name := domain.SpaceRoleName(space.ID, space.Type, access)
		privilege := dashboard.PrivilegeRead
		if access == domain.AccessAll {
			privilege = dashboard.PrivilegeAll
		}
		role := dashboard.Role{Spaces: []dashboard.SpacePrivileges{{Base: []string{privilege}, Spaces: []string{space.ID}}}}
		errs = append(errs, step("upsert space role "+name, s.deps.Dashboard.PutRole(ctx, name, role)))
	}

	errs = append(errs, s.syncIndexPatterns(ctx, space))
	return errors.Join(errs...)
}

func (s *Spaces) workspace(space domain.Space, inst domain.Institution) (dashboard.Workspace, error) {
	ws := dashboard.Workspace{
		ID:          space.ID,
		Name:        space.Name,
		Description: space.Description,
		Color:       space.Color,
		Initials:    space.Initials,
	}
	if ws.Name == "" {
		ws.Name = inst.Name
	}
	if inst.LogoID != "" && s.deps.Config.LogoBaseURL != "" {
		ws.ImageURL = strings.TrimSuffix(s.deps.Config.LogoBaseURL, "/") + "/" + inst.LogoID
	}

	if tpl := s.deps.Config.DescriptionTemplate; tpl != "" {
		desc, err := s.deps.Templates.Render(tpl, template.MergeContexts(
			template.Fields("space", map[string]interface{}{
				"id":          space.ID,
				"type":        space.Type,
				"name":        ws.Name,
				"description": space.Description,
			}),
			template.Fields("institution", map[string]interface{}{
				"id":      inst.ID,
				"name":    inst.Name,
				"acronym": inst.Acronym,
			}),
		))
		if err != nil {
			return ws, fmt.Errorf("render description of space %s: %w", space.ID, err)
		}
		ws.Description = desc
	}
	return ws, nil
}

// syncIndexPatterns creates an index pattern for every repository of the
// institution with the space's type. Existing patterns are never removed.
// When the workspace has no default pattern, the first one is selected.
func (s *Spaces) syncIndexPatterns(ctx context.Context, space domain.Space) error {
	repos, err := s.deps.Store.RepositoriesOfInstitution(ctx, space.InstitutionID)
	if err != nil {
		return step("list repositories of institution "+space.InstitutionID, err)
	}
	existing, err := s.deps.Dashboard.ListIndexPatterns(ctx, space.ID)
	if err != nil {
		return step("list index patterns of "+space.ID, err)
	}

	titles := make(map[string]bool, len(existing))
	for _, p := range existing {
		titles[p.Title] = true
	}

	var errs []error
	patterns := existing
	for _, repo := range repos {
		if repo.Type != space.Type || titles[repo.Pattern] {
			continue
		}
		created, err := s.deps.Dashboard.CreateIndexPattern(ctx, space.ID, repo.Pattern, s.deps.Config.TimeField(repo.Type))
		if err != nil {
			errs = append(errs, step("create index pattern "+repo.Pattern+" in "+space.ID, err))
			continue
		}
		titles[repo.Pattern] = true
		patterns = append(patterns, created)
	}

	if len(patterns) == 0 {
		return errors.Join(errs...)
	}
	current, err := s.deps.Dashboard.GetDefaultIndexPattern(ctx, space.ID)
	if err != nil {
		errs = append(errs, step("read default index pattern of "+space.ID, err))
	} else if current == "" {
		errs = append(errs, step("set default index pattern of "+space.ID, s.deps.Dashboard.SetDefaultIndexPattern(ctx, space.ID, patterns[0].ID)))
	}
	return errors.Join(errs...)
}

func (s *Spaces) cascade(ctx context.Context, spaceID string) error {
	if s.deps.Bus == nil {
		return nil
	}
	users, err := s.deps.Store.UsersWithSpacePermission(ctx, spaceID)
	if err != nil {
		return step("list users of space "+spaceID, err)
	}
	return s.republishUsers(ctx, users)
}

// RepublishSpaces re-publishes every space of inst, as workspaces carry the
// institution's name and logo.
func (s *Spaces) RepublishSpaces(ctx context.Context, inst domain.Institution) error {
	if s.deps.Bus == nil {
		return nil
	}
	spaces, err := s.deps.Store.SpacesOfInstitution(ctx, inst.ID)
	if err != nil {
		return fmt.Errorf("list spaces of institution %s: %w", inst.ID, err)
	}
	for _, space := range spaces {
		s.publish(hooks.SpaceUpsert, space)
	}
	return nil
}
