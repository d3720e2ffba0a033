package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projector/internal/domain"
	"projector/internal/hooks"
	"projector/internal/store"
)

func writeFile(t *testing.T, base, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(base, dir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, dir, name), []byte(content), 0644))
}

func TestOpen_LoadsEntities(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "repositories", "x.yaml", `
pattern: x-*
type: ezpaarse
institutionIds: [i1]
mapping:
  properties:
    date: {type: date}
`)
	writeFile(t, base, "memberships", "alice.yaml", `
username: alice
institutionId: i1
repositoryPermissions:
  - pattern: x-*
    readonly: true
`)
	writeFile(t, base, "users", "README.md", "ignored")

	s, err := Open(base)
	require.NoError(t, err)

	ctx := context.Background()
	repo, err := s.GetRepository(ctx, "x-*")
	require.NoError(t, err)
	assert.Equal(t, "ezpaarse", repo.Type)
	assert.Contains(t, repo.Mapping, "properties")

	ms, err := s.MembershipsOfUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.True(t, ms[0].RepositoryPermissions[0].Readonly)

	for _, dir := range Dirs() {
		assert.DirExists(t, filepath.Join(base, dir))
	}
}

func TestLoad_ReportsInvalidFiles(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "spaces", "a.yaml", "id: s1\n")
	writeFile(t, base, "spaces", "b.yaml", "id: s1\n")
	writeFile(t, base, "users", "broken.yaml", "username: [\n")
	writeFile(t, base, "roles", "anonymous.yaml", "repositoryPermissions: []\n")

	_, err := Load(base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defined")
	assert.Contains(t, err.Error(), "broken.yaml")
	assert.Contains(t, err.Error(), "has no identifier")
}

func TestStore_PutRemoveRoundTrip(t *testing.T) {
	base := t.TempDir()
	s, err := Open(base)
	require.NoError(t, err)

	ctx := context.Background()
	ms := domain.Membership{Username: "alice", InstitutionID: "i1", Permissions: []string{domain.PermissionReportingRead}}
	require.NoError(t, s.Put(ctx, ms))
	assert.FileExists(t, filepath.Join(base, "memberships", "alice%2Fi1.yaml"))

	reopened, err := Open(base)
	require.NoError(t, err)
	got, err := reopened.MembershipsOfUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.Membership{ms}, got)

	require.NoError(t, s.Remove(ctx, ms))
	require.NoError(t, s.Remove(ctx, ms), "removing twice is not an error")
	assert.NoFileExists(t, filepath.Join(base, "memberships", "alice%2Fi1.yaml"))

	assert.Error(t, s.Put(ctx, domain.Space{}))
	assert.Error(t, s.Put(ctx, domain.APIKey{ID: "k1"}))
}

func TestDiff(t *testing.T) {
	old := store.Snapshot{
		Repositories: []domain.Repository{{Pattern: "a-*", Type: "t1"}, {Pattern: "b-*", Type: "t1"}},
		Memberships:  []domain.Membership{{Username: "u", InstitutionID: "i"}},
	}
	next := store.Snapshot{
		Repositories: []domain.Repository{{Pattern: "a-*", Type: "t2"}, {Pattern: "c-*"}},
		Users:        []domain.User{{Username: "u"}},
	}

	changes := Diff(old, next)
	var events []hooks.Event
	for _, c := range changes {
		events = append(events, c.Event)
	}
	assert.Equal(t, []hooks.Event{
		hooks.RepositoryUpdate,
		hooks.RepositoryCreate,
		hooks.UserCreate,
		hooks.MembershipDelete,
		hooks.RepositoryDelete,
	}, events)
	assert.Equal(t, "b-*", changes[4].Payload.Key())

	assert.Empty(t, Diff(next, next))
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []hooks.Event
}

func (p *capturingPublisher) Publish(event hooks.Event, _ domain.Payload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturingPublisher) snapshot() []hooks.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]hooks.Event(nil), p.events...)
}

func TestWatcher_PublishesChanges(t *testing.T) {
	base := t.TempDir()
	s, err := Open(base)
	require.NoError(t, err)

	pub := &capturingPublisher{}
	w := NewWatcher(s, pub, 50*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	writeFile(t, base, "spaces", "s1.yaml", "id: s1\ntype: ezpaarse\ninstitutionId: i1\n")

	require.Eventually(t, func() bool {
		return len(pub.snapshot()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, hooks.SpaceCreate, pub.snapshot()[0])

	require.NoError(t, os.Remove(filepath.Join(base, "spaces", "s1.yaml")))
	require.Eventually(t, func() bool {
		events := pub.snapshot()
		return len(events) == 2 && events[1] == hooks.SpaceDelete
	}, 5*time.Second, 20*time.Millisecond)

	_, err = s.GetSpace(context.Background(), "s1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	w := NewWatcher(s, &capturingPublisher{}, 0)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
