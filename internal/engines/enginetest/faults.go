// Package enginetest provides in-memory engines for tests. Each fake keeps
// the state a real engine would hold, logs every call and can be told to
// fail specific operations.
package enginetest

import (
	"sort"
	"sync"
)

// Call is one recorded operation.
type Call struct {
	Method string
	Key    string
}

type recorder struct {
	mu     sync.Mutex
	calls  []Call
	faults map[Call]error
}

// Fail makes method return err for key. An empty key matches every key.
func (r *recorder) Fail(method, key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.faults == nil {
		r.faults = make(map[Call]error)
	}
	r.faults[Call{Method: method, Key: key}] = err
}

// Heal removes every injected fault.
func (r *recorder) Heal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults = nil
}

// Calls returns the recorded calls in order.
func (r *recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallCount returns how many times method was called.
func (r *recorder) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log, keeping state and faults.
func (r *recorder) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// record logs the call and returns the injected fault, if any. Callers must
// hold r.mu.
func (r *recorder) record(method, key string) error {
	r.calls = append(r.calls, Call{Method: method, Key: key})
	if err, ok := r.faults[Call{Method: method, Key: key}]; ok {
		return err
	}
	return r.faults[Call{Method: method}]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
