package reconciler

import (
	"context"
	"errors"
	"fmt"

	"projector/internal/domain"
	"projector/internal/hooks"
)

// ErrUnexpectedPayload is returned by handlers given a payload of the wrong
// kind for their event.
var ErrUnexpectedPayload = errors.New("unexpected payload")

// Registrar is the part of the event bus used to wire handlers.
type Registrar interface {
	Register(event hooks.Event, name string, handler hooks.Handler, opts ...hooks.Option)
}

// RegisterHooks wires every projection of set to the events it reacts to.
// It is called once at startup, before anything is published.
func RegisterHooks(bus Registrar, set *Set) {
	on := func(events []hooks.Event, name string, handler hooks.Handler, opts ...hooks.Option) {
		for _, e := range events {
			bus.Register(e, name, handler, opts...)
		}
	}
	byUser := hooks.WithUniqueKey(usernameKey)

	on(upserts("repository"), "repository-sync", typed(set.Repositories.SyncRepository))
	on(deletes("repository"), "repository-unmount", typed(set.Repositories.UnmountRepository))

	on(upserts("repository_alias"), "alias-sync", typed(set.Aliases.SyncAlias))
	on(deletes("repository_alias"), "alias-unmount", typed(set.Aliases.UnmountAlias))

	on(upserts("elastic_role"), "elastic-role-sync", typed(set.ElasticRoles.SyncElasticRole))
	on(deletes("elastic_role"), "elastic-role-unmount", typed(set.ElasticRoles.UnmountElasticRole))
	roleEdges := append(all("elastic_role_repository_permission"), all("elastic_role_repository_alias_permission")...)
	on(roleEdges, "elastic-role-edge-sync", parentOf(func(ctx context.Context, role domain.ElasticRole) error {
		return set.ElasticRoles.SyncElasticRoleByName(ctx, role.Name)
	}))

	on(upserts("user"), "user-sync", typed(set.Users.SyncUser))
	on(deletes("user"), "user-unmount", typed(set.Users.UnmountUser))
	on([]hooks.Event{hooks.UserCreateAdmin}, "admin-sync", typed(set.Users.EnsureAdmin))

	userEdges := all("membership")
	userEdges = append(userEdges, all("repository_permission")...)
	userEdges = append(userEdges, all("repository_alias_permission")...)
	userEdges = append(userEdges, all("space_permission")...)
	on(userEdges, "user-roles-sync", func(ctx context.Context, p domain.Payload) error {
		username := usernameKey(p)
		if username == "" {
			return fmt.Errorf("%w: %T carries no username", ErrUnexpectedPayload, p)
		}
		return set.Users.SyncUserByName(ctx, username)
	}, byUser)

	on(upserts("space"), "space-sync", typed(set.Spaces.SyncSpace))
	on(deletes("space"), "space-unmount", typed(set.Spaces.UnmountSpace))
	on(upserts("institution"), "institution-spaces-sync", typed(set.Spaces.RepublishSpaces))

	if set.Reporting == nil {
		return
	}
	on(upserts("institution"), "reporting-namespace-sync", typed(set.Reporting.SyncInstitution))
	on(deletes("institution"), "reporting-namespace-unmount", typed(set.Reporting.UnmountInstitution))
	on(upserts("user"), "reporting-user-sync", typed(set.Reporting.SyncUser))
	on(deletes("user"), "reporting-user-unmount", typed(set.Reporting.UnmountUser))
	on(upserts("membership"), "reporting-membership-sync", typed(set.Reporting.SyncMembership))
	on(deletes("membership"), "reporting-membership-unmount", typed(set.Reporting.UnmountMembership))
}

func upserts(entity string) []hooks.Event {
	return []hooks.Event{
		hooks.EventName(entity, hooks.ActionCreate),
		hooks.EventName(entity, hooks.ActionUpdate),
		hooks.EventName(entity, hooks.ActionUpsert),
	}
}

func deletes(entity string) []hooks.Event {
	return []hooks.Event{hooks.EventName(entity, hooks.ActionDelete)}
}

func all(entity string) []hooks.Event {
	return append(upserts(entity), deletes(entity)...)
}

// typed adapts a handler of one concrete payload type.
func typed[T domain.Payload](fn func(context.Context, T) error) hooks.Handler {
	return func(ctx context.Context, p domain.Payload) error {
		v, ok := p.(T)
		if !ok {
			var want T
			return fmt.Errorf("%w: got %T, want %T", ErrUnexpectedPayload, p, want)
		}
		return fn(ctx, v)
	}
}

// parentOf adapts a handler to relation events by passing the edge's parent.
func parentOf[T domain.Payload](fn func(context.Context, T) error) hooks.Handler {
	return func(ctx context.Context, p domain.Payload) error {
		rel, ok := p.(domain.Relation)
		if !ok {
			return fmt.Errorf("%w: got %T, want relation", ErrUnexpectedPayload, p)
		}
		return typed(fn)(ctx, rel.Parent)
	}
}

// usernameKey keys user-level work by username, so that membership and
// permission edge events for one user collapse into a single recomputation.
func usernameKey(p domain.Payload) string {
	switch v := p.(type) {
	case domain.User:
		return v.Username
	case domain.Membership:
		return v.Username
	case domain.Relation:
		if v.Parent == nil {
			return ""
		}
		return usernameKey(v.Parent)
	default:
		return ""
	}
}
