// Package file keeps the domain in a directory of YAML files, one file per
// entity, and turns edits of that directory into hook events.
//
//	<base>/institutions/<id>.yaml
//	<base>/repositories/<pattern>.yaml
//	<base>/aliases/<pattern>.yaml
//	<base>/roles/<name>.yaml
//	<base>/users/<username>.yaml
//	<base>/memberships/<username>%2F<institution>.yaml
//	<base>/spaces/<id>.yaml
//
// File names are the path-escaped entity keys; the identity stored inside
// the file is authoritative.
package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"projector/internal/domain"
	"projector/internal/store"
	"projector/pkg/logging"
)

const subsystem = "FileStore"

// kindDirs maps entity kinds to their directory names.
var kindDirs = map[domain.Kind]string{
	domain.KindInstitution: "institutions",
	domain.KindRepository:  "repositories",
	domain.KindAlias:       "aliases",
	domain.KindElasticRole: "roles",
	domain.KindUser:        "users",
	domain.KindMembership:  "memberships",
	domain.KindSpace:       "spaces",
}

// Dirs returns the entity directory names, sorted.
func Dirs() []string {
	out := make([]string, 0, len(kindDirs))
	for _, d := range kindDirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Store is a store.ReadWriter persisted as YAML files. Reads are served from
// memory; Reload re-reads the directory.
type Store struct {
	*store.Memory

	mu       sync.Mutex
	basePath string
}

var _ store.ReadWriter = (*Store)(nil)

// Open loads the directory at basePath, creating missing entity directories.
func Open(basePath string) (*Store, error) {
	for _, dir := range kindDirs {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	s := &Store{Memory: store.NewMemory(store.Snapshot{}), basePath: basePath}
	snap, err := Load(basePath)
	if err != nil {
		return nil, err
	}
	s.Memory.Replace(snap)

	logging.Info(subsystem, "Loaded %d entities from %s", len(snap.Payloads()), basePath)
	return s, nil
}

// Path returns the base directory.
func (s *Store) Path() string {
	return s.basePath
}

// Reload re-reads the directory and returns what changed since the last
// load. On a read error the in-memory state is left untouched.
func (s *Store) Reload() ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Load(s.basePath)
	if err != nil {
		return nil, err
	}
	changes := Diff(s.Memory.Snapshot(), next)
	s.Memory.Replace(next)
	return changes, nil
}

// Put writes the entity file and updates memory.
func (s *Store) Put(ctx context.Context, p domain.Payload) error {
	path, err := s.filePath(p)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode %s %q: %w", p.Kind(), p.Key(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return s.Memory.Put(ctx, p)
}

// Remove deletes the entity file and updates memory.
func (s *Store) Remove(ctx context.Context, p domain.Payload) error {
	path, err := s.filePath(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return s.Memory.Remove(ctx, p)
}

func (s *Store) filePath(p domain.Payload) (string, error) {
	if p == nil {
		return "", errors.New("nil payload")
	}
	dir, ok := kindDirs[p.Kind()]
	if !ok {
		return "", fmt.Errorf("kind %s is not stored on disk", p.Kind())
	}
	if p.Key() == "" {
		return "", fmt.Errorf("%s has an empty identifier", p.Kind())
	}
	return filepath.Join(s.basePath, dir, fileName(p.Key())), nil
}

func fileName(key string) string {
	return url.PathEscape(key) + ".yaml"
}

// Load reads every entity file under basePath.
func Load(basePath string) (store.Snapshot, error) {
	var (
		snap store.Snapshot
		errs []error
	)

	errs = append(errs,
		loadDir(basePath, domain.KindInstitution, &snap.Institutions),
		loadDir(basePath, domain.KindRepository, &snap.Repositories),
		loadDir(basePath, domain.KindAlias, &snap.Aliases),
		loadDir(basePath, domain.KindElasticRole, &snap.ElasticRoles),
		loadDir(basePath, domain.KindUser, &snap.Users),
		loadDir(basePath, domain.KindMembership, &snap.Memberships),
		loadDir(basePath, domain.KindSpace, &snap.Spaces),
	)
	if err := errors.Join(errs...); err != nil {
		return store.Snapshot{}, err
	}
	return snap, nil
}

func loadDir[T domain.Payload](basePath string, kind domain.Kind, out *[]T) error {
	dir := filepath.Join(basePath, kindDirs[kind])
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	seen := make(map[string]string)
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read file %s: %w", path, err))
			continue
		}

		var v T
		if err := yaml.Unmarshal(data, &v); err != nil {
			errs = append(errs, fmt.Errorf("failed to parse %s: %w", path, err))
			continue
		}
		if v.Key() == "" {
			errs = append(errs, fmt.Errorf("%s: %s has no identifier", path, kind))
			continue
		}
		if prev, dup := seen[v.Key()]; dup {
			errs = append(errs, fmt.Errorf("%s: %s %q already defined in %s", path, kind, v.Key(), prev))
			continue
		}
		seen[v.Key()] = path
		*out = append(*out, v)
	}
	return errors.Join(errs...)
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
