package render

import (
	"fmt"
	"sync"
)

// Future is a parameter value that may resolve after rendering starts.
// Hosts pass a Future where data arrives asynchronously; the instance
// suspends with DataUnavailable when it needs the value before Resolve has
// been called. Safe for concurrent use.
type Future struct {
	mu       sync.Mutex
	resolved bool
	value    any
}

// NewFuture returns an unresolved Future.
func NewFuture() *Future {
	return &Future{}
}

// ResolvedFuture returns a Future already holding a value.
func ResolvedFuture(value any) *Future {
	return &Future{resolved: true, value: value}
}

// Resolve supplies the value. Resolving twice is an error: a parameter's
// value must not change once observed.
func (f *Future) Resolve(value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return fmt.Errorf("render: future resolved twice")
	}
	f.resolved = true
	f.value = value
	return nil
}

// Ready reports whether the value has been supplied.
func (f *Future) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Value returns the resolved value. It must not be called before Ready
// returns true.
func (f *Future) Value() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}
