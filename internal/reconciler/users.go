package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"projector/internal/domain"
	"projector/internal/engines/search"
	"projector/internal/executor"
	"projector/internal/store"
	"projector/pkg/logging"
)

// Users projects platform users onto search users carrying their derived
// roles.
type Users struct {
	*base
}

func (u *Users) Kind() Kind { return KindUsers }

// SyncAll upserts every user, plus the configured administrator.
func (u *Users) SyncAll(ctx context.Context) (executor.Result, error) {
	users, err := u.deps.Store.ListUsers(ctx)
	if err != nil {
		return executor.Result{}, fmt.Errorf("list users: %w", err)
	}
	if admin := u.deps.Config.Admin; admin.Username != "" && !containsUser(users, admin.Username) {
		admin.IsAdmin = true
		users = append(users, admin)
	}
	return syncEach(ctx, u.base, KindUsers, users, u.SyncUser)
}

// GenerateUserRoles computes every search role implied by user: repository,
// space and alias roles from its memberships, custom roles granted directly
// or through institutions, and superuser for administrators. The result is
// sorted and free of duplicates.
func (u *Users) GenerateUserRoles(ctx context.Context, user domain.User) ([]string, error) {
	roles := make(map[string]struct{})
	add := func(name string) { roles[name] = struct{}{} }

	memberships, err := u.deps.Store.MembershipsOfUser(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("list memberships of %s: %w", user.Username, err)
	}

	for _, m := range memberships {
		for _, p := range m.RepositoryPermissions {
			repo, err := u.deps.Store.GetRepository(ctx, p.Pattern)
			if errors.Is(err, store.ErrNotFound) {
				logging.Warn("Reconciler", "User %s has a permission on unknown repository %s", user.Username, p.Pattern)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read repository %s: %w", p.Pattern, err)
			}
			add(domain.RepositoryRoleName(repo.Pattern, repo.Type, domain.AccessFor(p.Readonly)))
		}

		for _, p := range m.SpacePermissions {
			space, err := u.deps.Store.GetSpace(ctx, p.SpaceID)
			if errors.Is(err, store.ErrNotFound) {
				logging.Warn("Reconciler", "User %s has a permission on unknown space %s", user.Username, p.SpaceID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read space %s: %w", p.SpaceID, err)
			}
			add(domain.SpaceRoleName(space.ID, space.Type, domain.AccessFor(p.Readonly)))
		}

		for _, p := range m.AliasPermissions {
			alias, err := u.deps.Store.GetAlias(ctx, p.Pattern)
			if errors.Is(err, store.ErrNotFound) {
				logging.Warn("Reconciler", "User %s has a permission on unknown alias %s", user.Username, p.Pattern)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read alias %s: %w", p.Pattern, err)
			}
			add(domain.AliasRoleName(alias.Pattern))
		}

		inst, err := u.deps.Store.GetInstitution(ctx, m.InstitutionID)
		switch {
		case errors.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("read institution %s: %w", m.InstitutionID, err)
		default:
			for _, r := range inst.ElasticRoles {
				add(r)
			}
		}
	}

	for _, r := range user.Roles {
		add(r)
	}
	if user.IsAdmin {
		add(domain.SuperuserRole)
	}

	out := make([]string, 0, len(roles))
	for r := range roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out, nil
}

// SyncUser upserts the search user with its derived roles.
func (u *Users) SyncUser(ctx context.Context, user domain.User) error {
	roles, err := u.GenerateUserRoles(ctx, user)
	if err != nil {
		return err
	}
	return step("upsert user "+user.Username, u.deps.Search.UpsertUser(ctx, search.User{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    roles,
	}))
}

// SyncUserByName re-reads the user from the store. A user that no longer
// exists is ignored.
func (u *Users) SyncUserByName(ctx context.Context, username string) error {
	user, err := u.deps.Store.GetUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read user %s: %w", username, err)
	}
	return u.SyncUser(ctx, user)
}

// UnmountUser deletes the search user.
func (u *Users) UnmountUser(ctx context.Context, user domain.User) error {
	return step("delete user "+user.Username, u.deps.Search.DeleteUser(ctx, user.Username))
}

// EnsureAdmin upserts the global administrator. A zero user selects the
// configured one.
func (u *Users) EnsureAdmin(ctx context.Context, admin domain.User) error {
	if admin.Username == "" {
		admin = u.deps.Config.Admin
	}
	if admin.Username == "" {
		logging.Debug("Reconciler", "No administrator configured, nothing to ensure")
		return nil
	}
	admin.IsAdmin = true
	return u.SyncUser(ctx, admin)
}

func containsUser(users []domain.User, username string) bool {
	for _, u := range users {
		if u.Username == username {
			return true
		}
	}
	return false
}
