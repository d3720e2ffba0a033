package reconciler

import (
	"context"
	"errors"
	"fmt"

	"projector/internal/domain"
	"projector/internal/executor"
	"projector/internal/hooks"
	"projector/internal/store"
	"projector/internal/template"
	"projector/pkg/logging"
)

// Set holds one synchronizer per kind, all sharing the same dependencies.
type Set struct {
	Repositories *Repositories
	Aliases      *Aliases
	ElasticRoles *ElasticRoles
	Users        *Users
	Spaces       *Spaces

	// Reporting is nil when no reporting engine is configured.
	Reporting *Reporting
}

// NewSet validates deps and builds the synchronizers.
func NewSet(deps Dependencies) (*Set, error) {
	var errs []error
	if deps.Store == nil {
		errs = append(errs, errors.New("store is required"))
	}
	if deps.Search == nil {
		errs = append(errs, errors.New("search engine is required"))
	}
	if deps.Dashboard == nil {
		errs = append(errs, errors.New("dashboard engine is required"))
	}
	if deps.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", executor.ErrInvalidConcurrency, deps.Concurrency))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid reconciler dependencies: %w", err)
	}

	if deps.Concurrency == 0 {
		deps.Concurrency = executor.DefaultConcurrency
	}
	if deps.Templates == nil {
		deps.Templates = template.New()
	}

	b := &base{deps: &deps}
	set := &Set{
		Repositories: &Repositories{base: b},
		Aliases:      &Aliases{base: b},
		ElasticRoles: &ElasticRoles{base: b},
		Users:        &Users{base: b},
		Spaces:       &Spaces{base: b},
	}
	if deps.Reporting != nil {
		set.Reporting = &Reporting{base: b}
	}
	return set, nil
}

// Synchronizers returns the configured synchronizers in sweep order.
func (s *Set) Synchronizers() []Synchronizer {
	out := []Synchronizer{s.Repositories, s.Aliases, s.ElasticRoles, s.Users, s.Spaces}
	if s.Reporting != nil {
		out = append(out, s.Reporting)
	}
	return out
}

// base carries the dependencies and helpers shared by the synchronizers.
type base struct {
	deps *Dependencies
}

// syncEach runs fn over items through the throttled executor. Failures are
// logged with the entity identity and counted.
func syncEach[T domain.Payload](ctx context.Context, b *base, kind Kind, items []T, fn func(context.Context, T) error) (executor.Result, error) {
	jobs := make([]executor.Job, 0, len(items))
	for _, item := range items {
		item := item // explicit copy: go 1.21 loop variables are shared across iterations
		jobs = append(jobs, func(ctx context.Context) error {
			if err := fn(ctx, item); err != nil {
				return fmt.Errorf("%s %q: %w", item.Kind(), item.Key(), err)
			}
			return nil
		})
	}

	onError := func(err error) {
		if errors.Is(err, ErrMissingReference) {
			logging.Warn("Reconciler", "Skipped during %s sweep: %v", kind, err)
			return
		}
		logging.Error("Reconciler", err, "Failed to sync during %s sweep", kind)
	}

	return executor.Run(ctx, jobs, onError, b.deps.Concurrency)
}

// publish cascades an event when a bus is configured.
func (b *base) publish(event hooks.Event, payload domain.Payload) {
	if b.deps.Bus == nil {
		return
	}
	b.deps.Bus.Publish(event, payload)
}

// republishUsers re-publishes user:upsert for every named user still in the
// store.
func (b *base) republishUsers(ctx context.Context, usernames []string) error {
	if b.deps.Bus == nil {
		return nil
	}
	var errs []error
	for _, name := range usernames {
		user, err := b.deps.Store.GetUser(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.publish(hooks.UserUpsert, user)
	}
	return errors.Join(errs...)
}

// step runs one isolated sub-step and logs its failure. The error is returned
// for joining; it never stops the caller.
func step(what string, err error) error {
	if err == nil {
		return nil
	}
	logging.Error("Reconciler", err, "Failed to %s", what)
	return fmt.Errorf("%s: %w", what, err)
}
