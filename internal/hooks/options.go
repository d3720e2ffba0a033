package hooks

import (
	"context"
	"time"

	"projector/internal/domain"
)

// DefaultDebounce is the trailing-edge debounce applied when a registration
// does not set one.
const DefaultDebounce = 250 * time.Millisecond

// Handler reacts to a published payload. The context is cancelled when the
// bus is closed.
type Handler func(ctx context.Context, payload domain.Payload) error

// KeyFunc resolves the key used to debounce and serialize a payload.
type KeyFunc func(payload domain.Payload) string

// Registration binds a named handler to an event.
type Registration struct {
	Event     Event
	Name      string
	Handler   Handler
	Debounce  time.Duration
	Serialize bool
	UniqueKey KeyFunc

	id int
}

// Option customizes a Registration.
type Option func(*Registration)

// WithDebounce sets the quiet period after the last publish for a key before
// the handler runs. Zero disables debouncing.
func WithDebounce(d time.Duration) Option {
	return func(r *Registration) {
		if d < 0 {
			d = 0
		}
		r.Debounce = d
	}
}

// WithSerialize controls whether invocations for the same key may overlap.
func WithSerialize(serialize bool) Option {
	return func(r *Registration) {
		r.Serialize = serialize
	}
}

// WithUniqueKey overrides the default key, payload.Key().
func WithUniqueKey(fn KeyFunc) Option {
	return func(r *Registration) {
		if fn != nil {
			r.UniqueKey = fn
		}
	}
}

// Recorder receives one observation per handler invocation. Outcome is one
// of "success", "error" or "panic".
type Recorder interface {
	ObserveHook(event, handler, outcome string)
}

// BusOption customizes a Bus.
type BusOption func(*Bus)

// WithDefaultDebounce replaces DefaultDebounce for registrations on this bus.
func WithDefaultDebounce(d time.Duration) BusOption {
	return func(b *Bus) {
		if d >= 0 {
			b.defaultDebounce = d
		}
	}
}

// WithDefaultSerialize sets whether registrations serialize per key unless
// they say otherwise.
func WithDefaultSerialize(serialize bool) BusOption {
	return func(b *Bus) {
		b.defaultSerialize = serialize
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) BusOption {
	return func(b *Bus) {
		b.recorder = r
	}
}

func defaultKey(payload domain.Payload) string {
	if payload == nil {
		return ""
	}
	return payload.Key()
}
