package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"projector/internal/domain"
	"projector/internal/engines/reporting"
	"projector/internal/executor"
	"projector/internal/template"
)

// Reporting projects institutions onto reporting namespaces and users onto
// reporting accounts, with memberships derived from reporting permissions.
type Reporting struct {
	*base
}

func (r *Reporting) Kind() Kind { return KindReporting }

// SyncAll upserts every user, then every namespace together with its
// memberships.
func (r *Reporting) SyncAll(ctx context.Context) (executor.Result, error) {
	users, err := r.deps.Store.ListUsers(ctx)
	if err != nil {
		return executor.Result{}, fmt.Errorf("list users: %w", err)
	}
	result, err := syncEach(ctx, r.base, KindReporting, users, r.upsertUser)
	if err != nil {
		return result, err
	}

	institutions, err := r.deps.Store.ListInstitutions(ctx)
	if err != nil {
		return result, fmt.Errorf("list institutions: %w", err)
	}
	nsResult, err := syncEach(ctx, r.base, KindReporting, institutions, r.SyncInstitution)
	result.Add(nsResult)
	return result, err
}

// SyncInstitution upserts the namespace of inst and the memberships of its
// members.
func (r *Reporting) SyncInstitution(ctx context.Context, inst domain.Institution) error {
	ns, err := r.namespace(ctx, inst)
	if err != nil {
		return err
	}
	if err := step("upsert namespace "+inst.ID, r.deps.Reporting.UpsertNamespace(ctx, ns)); err != nil {
		return err
	}

	usernames, err := r.deps.Store.UsersOfInstitution(ctx, inst.ID)
	if err != nil {
		return step("list members of "+inst.ID, err)
	}
	var errs []error
	for _, username := range usernames {
		memberships, err := r.deps.Store.MembershipsOfUser(ctx, username)
		if err != nil {
			errs = append(errs, step("list memberships of "+username, err))
			continue
		}
		for _, m := range memberships {
			if m.InstitutionID == inst.ID {
				errs = append(errs, r.SyncMembership(ctx, m))
			}
		}
	}
	return errors.Join(errs...)
}

// UnmountInstitution deletes the namespace.
func (r *Reporting) UnmountInstitution(ctx context.Context, inst domain.Institution) error {
	return step("delete namespace "+inst.ID, r.deps.Reporting.DeleteNamespace(ctx, inst.ID))
}

// SyncUser upserts the reporting account and every membership of user.
func (r *Reporting) SyncUser(ctx context.Context, user domain.User) error {
	if err := r.upsertUser(ctx, user); err != nil {
		return err
	}
	memberships, err := r.deps.Store.MembershipsOfUser(ctx, user.Username)
	if err != nil {
		return step("list memberships of "+user.Username, err)
	}
	var errs []error
	for _, m := range memberships {
		errs = append(errs, r.SyncMembership(ctx, m))
	}
	return errors.Join(errs...)
}

// UnmountUser deletes the reporting account.
func (r *Reporting) UnmountUser(ctx context.Context, user domain.User) error {
	return step("delete reporting user "+user.Username, r.deps.Reporting.DeleteUser(ctx, user.Username))
}

// SyncMembership grants the access implied by the membership's reporting
// permissions, or revokes it when it carries none.
func (r *Reporting) SyncMembership(ctx context.Context, m domain.Membership) error {
	access, ok := reportingAccess(m)
	if !ok {
		return r.UnmountMembership(ctx, m)
	}
	return step("upsert reporting membership "+m.Key(), r.deps.Reporting.UpsertMembership(ctx, m.InstitutionID, m.Username, access))
}

// UnmountMembership revokes the user's access to the namespace.
func (r *Reporting) UnmountMembership(ctx context.Context, m domain.Membership) error {
	return step("delete reporting membership "+m.Key(), r.deps.Reporting.DeleteMembership(ctx, m.InstitutionID, m.Username))
}

func (r *Reporting) upsertUser(ctx context.Context, user domain.User) error {
	return step("upsert reporting user "+user.Username, r.deps.Reporting.UpsertUser(ctx, reporting.User{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		IsAdmin:  user.IsAdmin,
	}))
}

// namespace builds the namespace of inst. Its fetch options carry the
// read-only roles of the institution's repositories, used by the reporting
// service to query the search engine.
func (r *Reporting) namespace(ctx context.Context, inst domain.Institution) (reporting.Namespace, error) {
	ns := reporting.Namespace{ID: inst.ID, Name: inst.Name, LogoID: inst.LogoID}

	if tpl := r.deps.Config.NamespaceNameTemplate; tpl != "" {
		name, err := r.deps.Templates.Render(tpl, template.Fields("institution", map[string]interface{}{
			"id":      inst.ID,
			"name":    inst.Name,
			"acronym": inst.Acronym,
		}))
		if err != nil {
			return ns, fmt.Errorf("render namespace name of %s: %w", inst.ID, err)
		}
		ns.Name = name
	}

	repos, err := r.deps.Store.RepositoriesOfInstitution(ctx, inst.ID)
	if err != nil {
		return ns, fmt.Errorf("list repositories of institution %s: %w", inst.ID, err)
	}
	roles := make([]string, 0, len(repos))
	for _, repo := range repos {
		roles = append(roles, domain.RepositoryRoleName(repo.Pattern, repo.Type, domain.AccessReadonly))
	}
	sort.Strings(roles)
	ns.Attrs = map[string]any{"elastic": map[string]any{"roles": roles}}
	return ns, nil
}

func reportingAccess(m domain.Membership) (reporting.Access, bool) {
	switch {
	case m.HasPermission(domain.PermissionReportingWrite):
		return reporting.AccessReadWrite, true
	case m.HasPermission(domain.PermissionReportingRead):
		return reporting.AccessRead, true
	default:
		return "", false
	}
}
