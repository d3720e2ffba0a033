package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"projector/internal/domain"
	"projector/pkg/logging"
)

// proxyKey identifies the debounced, serialized wrapper of one handler for
// one resolved key.
type proxyKey struct {
	event Event
	reg   int
	key   string
}

// proxy is the state behind a proxyKey. A proxy with no armed timer, no
// running invocation and nothing pending is idle and gets evicted.
type proxy struct {
	reg *Registration

	// timer is armed while the debounce window is open; gen invalidates
	// callbacks of timers that were reset after they fired. Generations are
	// drawn from the bus so a callback never matches a recreated proxy.
	timer  *time.Timer
	gen    uint64
	latest domain.Payload

	running    bool
	pending    domain.Payload
	hasPending bool
}

func (p *proxy) idle() bool {
	return p.timer == nil && !p.running && !p.hasPending
}

// Bus dispatches published payloads to registered handlers.
type Bus struct {
	mu   sync.Mutex
	cond *sync.Cond

	ctx    context.Context
	cancel context.CancelFunc

	handlers map[Event][]*Registration
	proxies  map[proxyKey]*proxy
	nextID   int
	gen      uint64

	// active counts armed timers plus running invocations.
	active int
	closed bool

	defaultDebounce  time.Duration
	defaultSerialize bool
	recorder         Recorder
}

// New creates an empty bus.
func New(opts ...BusOption) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		ctx:              ctx,
		cancel:           cancel,
		handlers:         make(map[Event][]*Registration),
		proxies:          make(map[proxyKey]*proxy),
		defaultDebounce:  DefaultDebounce,
		defaultSerialize: true,
	}
	b.cond = sync.NewCond(&b.mu)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register adds a handler for event. Handlers of the same event are scheduled
// independently of each other.
func (b *Bus) Register(event Event, name string, handler Handler, opts ...Option) {
	b.mu.Lock()
	defer b.mu.Unlock()

	reg := &Registration{
		Event:     event,
		Name:      name,
		Handler:   handler,
		Debounce:  b.defaultDebounce,
		Serialize: b.defaultSerialize,
		UniqueKey: defaultKey,
		id:        b.nextID,
	}
	b.nextID++
	for _, opt := range opts {
		opt(reg)
	}

	b.handlers[event] = append(b.handlers[event], reg)
	logging.Debug("Hooks", "Registered handler %s for %s (debounce %s, serialize %t)", name, event, reg.Debounce, reg.Serialize)
}

// Registrations returns a copy of every registration, sorted by event then
// registration order.
func (b *Bus) Registrations() []Registration {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Registration
	for _, regs := range b.handlers {
		for _, r := range regs {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Event != out[j].Event {
			return out[i].Event < out[j].Event
		}
		return out[i].id < out[j].id
	})
	return out
}

// Publish schedules every handler registered for event. It never blocks on
// handlers and never fails because of them.
func (b *Bus) Publish(event Event, payload domain.Payload) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		logging.Debug("Hooks", "Dropping %s published after close", event)
		return
	}

	for _, reg := range b.handlers[event] {
		key := resolveKey(reg, payload)
		if reg.Debounce == 0 && !reg.Serialize {
			b.startLocked(reg, key, payload)
			continue
		}

		pk := proxyKey{event: event, reg: reg.id, key: key}
		p, ok := b.proxies[pk]
		if !ok {
			p = &proxy{reg: reg}
			b.proxies[pk] = p
		}
		p.latest = payload

		if reg.Debounce == 0 {
			b.fireLocked(pk, p)
			continue
		}

		if p.timer != nil && p.timer.Stop() {
			b.active--
		}
		b.gen++
		p.gen = b.gen
		gen := p.gen
		b.active++
		p.timer = time.AfterFunc(reg.Debounce, func() {
			b.onTimer(pk, gen)
		})
	}
}

func (b *Bus) onTimer(pk proxyKey, gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active--
	p, ok := b.proxies[pk]
	if !ok || p.gen != gen || b.closed {
		b.broadcastIfIdleLocked()
		return
	}
	p.timer = nil
	b.fireLocked(pk, p)
}

// fireLocked hands the latest payload to the handler, or parks it in the
// pending slot when a serialized invocation is already running.
func (b *Bus) fireLocked(pk proxyKey, p *proxy) {
	payload := p.latest
	p.latest = nil

	if !p.reg.Serialize {
		b.startLocked(p.reg, pk.key, payload)
		b.evictLocked(pk, p)
		return
	}

	if p.running {
		if p.hasPending {
			logging.Debug("Hooks", "Replacing pending %s payload for key %q", pk.event, pk.key)
		}
		p.pending = payload
		p.hasPending = true
		return
	}

	p.running = true
	b.active++
	go b.runSerialized(pk, p, payload)
}

func (b *Bus) startLocked(reg *Registration, key string, payload domain.Payload) {
	b.active++
	go func() {
		b.invoke(reg, key, payload)

		b.mu.Lock()
		b.active--
		b.broadcastIfIdleLocked()
		b.mu.Unlock()
	}()
}

func (b *Bus) runSerialized(pk proxyKey, p *proxy, payload domain.Payload) {
	for {
		b.invoke(p.reg, pk.key, payload)

		b.mu.Lock()
		if p.hasPending && !b.closed {
			payload = p.pending
			p.pending = nil
			p.hasPending = false
			b.mu.Unlock()
			continue
		}
		p.pending = nil
		p.hasPending = false
		p.running = false
		b.active--
		b.evictLocked(pk, p)
		b.broadcastIfIdleLocked()
		b.mu.Unlock()
		return
	}
}

func (b *Bus) evictLocked(pk proxyKey, p *proxy) {
	if p.idle() && b.proxies[pk] == p {
		delete(b.proxies, pk)
	}
}

func (b *Bus) broadcastIfIdleLocked() {
	if b.active == 0 {
		b.cond.Broadcast()
	}
}

// invoke runs the handler, converting panics into errors.
func (b *Bus) invoke(reg *Registration, key string, payload domain.Payload) {
	outcome := "success"
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				outcome = "panic"
				err = fmt.Errorf("handler panicked: %v", r)
			}
		}()
		return reg.Handler(b.ctx, payload)
	}()

	if err != nil {
		if outcome != "panic" {
			outcome = "error"
		}
		logging.Error("Hooks", err, "Handler %s failed for %s (key %q)", reg.Name, reg.Event, key)
	}
	if b.recorder != nil {
		b.recorder.ObserveHook(string(reg.Event), reg.Name, outcome)
	}
}

// Wait blocks until no debounce timer is armed and no handler is running.
func (b *Bus) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.active > 0 {
		b.cond.Wait()
	}
}

// Pending returns the number of live proxies, i.e. keys with an armed timer,
// a running handler or a queued payload.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.proxies)
}

// Close stops accepting publishes, drops armed timers and queued payloads,
// cancels the handler context and waits for running handlers to return.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.Wait()
		return
	}
	b.closed = true
	for pk, p := range b.proxies {
		if p.timer != nil && p.timer.Stop() {
			b.active--
		}
		p.timer = nil
		b.evictLocked(pk, p)
	}
	b.broadcastIfIdleLocked()
	b.mu.Unlock()

	b.cancel()
	b.Wait()
	logging.Debug("Hooks", "Event bus closed")
}

func resolveKey(reg *Registration, payload domain.Payload) (key string) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Hooks", "Key resolution for %s handler %s panicked: %v", reg.Event, reg.Name, r)
			key = ""
		}
	}()
	return reg.UniqueKey(payload)
}
