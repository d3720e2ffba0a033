package enginetest

import (
	"context"

	"projector/internal/engines/reporting"
)

// Reporting is an in-memory reporting.Engine.
type Reporting struct {
	recorder

	namespaces map[string]reporting.Namespace
	users      map[string]reporting.User
	members    map[string]map[string]reporting.Access
}

var _ reporting.Engine = (*Reporting)(nil)

// NewReporting returns an empty fake.
func NewReporting() *Reporting {
	return &Reporting{
		namespaces: make(map[string]reporting.Namespace),
		users:      make(map[string]reporting.User),
		members:    make(map[string]map[string]reporting.Access),
	}
}

func (r *Reporting) UpsertNamespace(_ context.Context, ns reporting.Namespace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("UpsertNamespace", ns.ID); err != nil {
		return err
	}
	r.namespaces[ns.ID] = ns
	return nil
}

func (r *Reporting) DeleteNamespace(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("DeleteNamespace", id); err != nil {
		return err
	}
	delete(r.namespaces, id)
	delete(r.members, id)
	return nil
}

func (r *Reporting) UpsertUser(_ context.Context, user reporting.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("UpsertUser", user.Username); err != nil {
		return err
	}
	r.users[user.Username] = user
	return nil
}

func (r *Reporting) DeleteUser(_ context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("DeleteUser", username); err != nil {
		return err
	}
	delete(r.users, username)
	for _, m := range r.members {
		delete(m, username)
	}
	return nil
}

func (r *Reporting) UpsertMembership(_ context.Context, namespaceID, username string, access reporting.Access) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("UpsertMembership", namespaceID+"/"+username); err != nil {
		return err
	}
	if r.members[namespaceID] == nil {
		r.members[namespaceID] = make(map[string]reporting.Access)
	}
	r.members[namespaceID][username] = access
	return nil
}

func (r *Reporting) DeleteMembership(_ context.Context, namespaceID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record("DeleteMembership", namespaceID+"/"+username); err != nil {
		return err
	}
	delete(r.members[namespaceID], username)
	return nil
}

// Namespace returns a stored namespace.
func (r *Reporting) Namespace(id string) (reporting.Namespace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, ok := r.namespaces[id]
	return ns, ok
}

// User returns a stored user.
func (r *Reporting) User(username string) (reporting.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	return u, ok
}

// Membership returns the access of username in a namespace.
func (r *Reporting) Membership(namespaceID, username string) (reporting.Access, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.members[namespaceID][username]
	return a, ok
}
