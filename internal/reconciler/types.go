package reconciler

import (
	"context"
	"errors"
	"time"

	"projector/internal/domain"
	"projector/internal/engines/dashboard"
	"projector/internal/engines/reporting"
	"projector/internal/engines/search"
	"projector/internal/executor"
	"projector/internal/hooks"
	"projector/internal/store"
	"projector/internal/template"
)

// Kind names a family of entities synchronized together.
type Kind string

const (
	KindRepositories Kind = "repositories"
	KindAliases      Kind = "aliases"
	KindElasticRoles Kind = "roles"
	KindUsers        Kind = "users"
	KindSpaces       Kind = "spaces"
	KindReporting    Kind = "reporting"
)

// Order is the dependency order of a full sweep: roles must exist before
// users reference them.
var Order = []Kind{KindRepositories, KindAliases, KindElasticRoles, KindUsers, KindSpaces, KindReporting}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Order {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// ErrMissingReference is returned when an entity points at one that does not
// exist, e.g. an alias whose target repository was deleted. The entity is
// skipped.
var ErrMissingReference = errors.New("missing referenced entity")

// Synchronizer projects every entity of one kind onto the external engines.
type Synchronizer interface {
	// Kind returns the kind handled by this synchronizer.
	Kind() Kind

	// SyncAll lists every entity of the kind and synchronizes each one. Per
	// entity failures are counted in the result, never returned.
	SyncAll(ctx context.Context) (executor.Result, error)
}

// Publisher is the part of the event bus synchronizers use to cascade work
// to dependent entities.
type Publisher interface {
	Publish(event hooks.Event, payload domain.Payload)
}

// Config holds the naming and presentation settings of the projections.
type Config struct {
	// TemplatePrefix is prepended to every managed index template name.
	TemplatePrefix string

	// DefaultTimeField is the time field of index patterns whose repository
	// type has no entry in TimeFields.
	DefaultTimeField string
	TimeFields       map[string]string

	// DescriptionTemplate renders workspace descriptions. Empty means the
	// space's own description.
	DescriptionTemplate string

	// NamespaceNameTemplate renders reporting namespace names. Empty means
	// the institution name.
	NamespaceNameTemplate string

	// LogoBaseURL is joined with institution logo identifiers.
	LogoBaseURL string

	// Admin is the global administrator ensured on user:create-admin.
	Admin domain.User
}

// TimeField returns the index pattern time field for a repository type.
func (c Config) TimeField(repoType string) string {
	if f, ok := c.TimeFields[repoType]; ok {
		return f
	}
	return c.DefaultTimeField
}

// Dependencies are the collaborators shared by every synchronizer.
type Dependencies struct {
	Store     store.Reader
	Search    search.Engine
	Dashboard dashboard.Engine

	// Reporting is optional; nil disables the reporting projection.
	Reporting reporting.Engine

	// Bus receives cascaded events. nil disables cascading.
	Bus Publisher

	Templates   *template.Engine
	Concurrency int
	Config      Config
}

// KindResult is the outcome of one kind within a sweep.
type KindResult struct {
	Kind     Kind            `json:"kind"`
	Result   executor.Result `json:"result"`
	Duration time.Duration   `json:"duration"`
	Error    string          `json:"error,omitempty"`
}

// Report summarizes one full sweep.
type Report struct {
	RunID      string       `json:"runId"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Results    []KindResult `json:"results"`
}

// Total sums the results of every kind.
func (r Report) Total() executor.Result {
	var total executor.Result
	for _, kr := range r.Results {
		total.Add(kr.Result)
	}
	return total
}

// Failed reports whether any entity failed or any kind could not run.
func (r Report) Failed() bool {
	for _, kr := range r.Results {
		if kr.Result.Errors > 0 || kr.Error != "" {
			return true
		}
	}
	return false
}

// SyncState describes where a kind stands.
type SyncState string

const (
	// StatePending means the kind has not been swept yet.
	StatePending SyncState = "Pending"

	// StateSyncing means a sweep of the kind is in progress.
	StateSyncing SyncState = "Syncing"

	// StateSynced means the last sweep had no failures.
	StateSynced SyncState = "Synced"

	// StateError means the last sweep had failures.
	StateError SyncState = "Error"
)

// KindStatus is the latest known state of a kind.
type KindStatus struct {
	Kind         Kind            `json:"kind"`
	State        SyncState       `json:"state"`
	LastSyncTime *time.Time      `json:"lastSyncTime,omitempty"`
	LastResult   executor.Result `json:"lastResult"`
	LastError    string          `json:"lastError,omitempty"`
}
