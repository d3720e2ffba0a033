package reconciler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"projector/internal/domain"
	"projector/internal/engines/enginetest"
	"projector/internal/hooks"
	"projector/internal/store"
)

// published is one event captured by captureBus.
type published struct {
	Event   hooks.Event
	Payload domain.Payload
}

// captureBus records cascaded events instead of dispatching them.
type captureBus struct {
	mu     sync.Mutex
	events []published
}

func (b *captureBus) Publish(event hooks.Event, payload domain.Payload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{Event: event, Payload: payload})
}

func (b *captureBus) keys(event hooks.Event) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, p := range b.events {
		if p.Event == event {
			out = append(out, p.Payload.Key())
		}
	}
	return out
}

type fixture struct {
	store     *store.Memory
	search    *enginetest.Search
	dashboard *enginetest.Dashboard
	reporting *enginetest.Reporting
	bus       *captureBus
	set       *Set
}

func testSnapshot() store.Snapshot {
	return store.Snapshot{
		Institutions: []domain.Institution{
			{ID: "i1", Name: "University One", Acronym: "U1", LogoID: "logo-1"},
		},
		Repositories: []domain.Repository{
			{Pattern: "x-*", Type: "ezpaarse", InstitutionIDs: []string{"i1"}},
			{Pattern: "y-*", Type: "publisher"},
		},
		Users: []domain.User{
			{Username: "alice", Email: "alice@example.org", FullName: "Alice"},
		},
		Memberships: []domain.Membership{
			{
				Username:              "alice",
				InstitutionID:         "i1",
				RepositoryPermissions: []domain.RepositoryPermission{{Pattern: "x-*", Readonly: true}},
				SpacePermissions:      []domain.SpacePermission{{SpaceID: "s1", Readonly: false}},
			},
		},
		Spaces: []domain.Space{
			{ID: "s1", Type: "ezpaarse", InstitutionID: "i1", Name: "Consultations"},
		},
	}
}

func newFixture(t *testing.T, snap store.Snapshot, mutate ...func(*Dependencies)) *fixture {
	t.Helper()
	f := &fixture{
		store:     store.NewMemory(snap),
		search:    enginetest.NewSearch(),
		dashboard: enginetest.NewDashboard(),
		reporting: enginetest.NewReporting(),
		bus:       &captureBus{},
	}
	deps := Dependencies{
		Store:       f.store,
		Search:      f.search,
		Dashboard:   f.dashboard,
		Reporting:   f.reporting,
		Bus:         f.bus,
		Concurrency: 4,
		Config: Config{
			TemplatePrefix:   "projector.",
			DefaultTimeField: "datetime",
			TimeFields:       map[string]string{"publisher": "date"},
		},
	}
	for _, fn := range mutate {
		fn(&deps)
	}

	set, err := NewSet(deps)
	require.NoError(t, err)
	f.set = set
	return f
}
