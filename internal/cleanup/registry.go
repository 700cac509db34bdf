package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/specialistvlad/launchgrid/internal/ctxlog"
)

// Hook is a unit of shutdown work.
type Hook func(ctx context.Context) error

// Failure records a hook that returned an error or panicked.
type Failure struct {
	Hook string
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("cleanup hook %q failed: %v", f.Hook, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

type entry struct {
	name string
	once sync.Once
	fn   Hook
}

// Registry is a LIFO stack of shutdown hooks. It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	stack []*entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register pushes a hook onto the stack.
func (r *Registry) Register(name string, fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stack = append(r.stack, &entry{name: name, fn: fn})
}

// RegisterRemove pushes a hook that removes path. A path that is already
// gone is not a failure.
func (r *Registry) RegisterRemove(path string) {
	r.Register("remove "+path, func(context.Context) error {
		if err := os.RemoveAll(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
}

// Len returns the number of hooks that have not run yet.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack)
}

// Run executes all pending hooks in reverse registration order and empties
// the stack. Hooks registered while Run is in progress are picked up before
// it returns. The returned error joins every *Failure.
func (r *Registry) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	var failures []error
	for {
		e := r.pop()
		if e == nil {
			break
		}
		ran := false
		e.once.Do(func() {
			ran = true
			logger.Debug("Running cleanup hook.", "hook", e.name)
			if err := safeCall(ctx, e.fn); err != nil {
				f := &Failure{Hook: e.name, Err: err}
				logger.Error("🔥 Cleanup hook failed.", "hook", e.name, "error", err)
				failures = append(failures, f)
			}
		})
		if !ran {
			logger.Debug("Cleanup hook already ran, skipping.", "hook", e.name)
		}
	}
	return errors.Join(failures...)
}

func (r *Registry) pop() *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.stack)
	if n == 0 {
		return nil
	}
	e := r.stack[n-1]
	r.stack = r.stack[:n-1]
	return e
}

func safeCall(ctx context.Context, fn Hook) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}
