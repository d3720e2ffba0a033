package file

import (
	"reflect"

	"projector/internal/domain"
	"projector/internal/hooks"
	"projector/internal/store"
)

// Change is one entity-level difference between two snapshots.
type Change struct {
	Event   hooks.Event
	Payload domain.Payload
}

// Diff lists the events that turn old into next. Creates and updates come
// first, parents before children; deletes follow, children before parents.
func Diff(old, next store.Snapshot) []Change {
	var upserts, deletes [][]Change

	add := func(u, d []Change) {
		upserts = append(upserts, u)
		deletes = append([][]Change{d}, deletes...)
	}
	add(diffKind(old.Institutions, next.Institutions))
	add(diffKind(old.Repositories, next.Repositories))
	add(diffKind(old.Aliases, next.Aliases))
	add(diffKind(old.ElasticRoles, next.ElasticRoles))
	add(diffKind(old.Users, next.Users))
	add(diffKind(old.Spaces, next.Spaces))
	add(diffKind(old.Memberships, next.Memberships))

	var out []Change
	for _, group := range append(upserts, deletes...) {
		out = append(out, group...)
	}
	return out
}

func diffKind[T domain.Payload](old, next []T) (upserts, deletes []Change) {
	before := make(map[string]T, len(old))
	for _, v := range old {
		before[v.Key()] = v
	}
	after := make(map[string]struct{}, len(next))

	for _, v := range next {
		after[v.Key()] = struct{}{}
		prev, existed := before[v.Key()]
		switch {
		case !existed:
			upserts = append(upserts, Change{Event: event(v, hooks.ActionCreate), Payload: v})
		case !reflect.DeepEqual(prev, v):
			upserts = append(upserts, Change{Event: event(v, hooks.ActionUpdate), Payload: v})
		}
	}
	for _, v := range old {
		if _, ok := after[v.Key()]; !ok {
			deletes = append(deletes, Change{Event: event(v, hooks.ActionDelete), Payload: v})
		}
	}
	return upserts, deletes
}

func event(p domain.Payload, action string) hooks.Event {
	return hooks.EventName(string(p.Kind()), action)
}
