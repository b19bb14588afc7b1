// Package host abstracts the surrounding application: command registration,
// command dispatch, and user-facing notifications. The lifecycle manager
// talks to a Host instead of a concrete editor runtime so the same core
// serves the terminal frontend, the MCP server, and tests.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrCommandExists is returned when a command id is registered twice.
	ErrCommandExists = errors.New("command already registered")

	// ErrUnknownCommand is returned when dispatching an unregistered id.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("nil command handler")
)

// CommandHandler is invoked when a registered command fires.
type CommandHandler func(ctx context.Context) error

// Disposable releases a resource handed to the host.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a plain function to [Disposable].
type DisposableFunc func()

// Dispose calls the wrapped function.
func (f DisposableFunc) Dispose() { f() }

// Host is the surface the surrounding application provides to the lifecycle
// manager.
type Host interface {
	// RegisterCommand associates a user-facing action id with a handler.
	// The returned Disposable removes the registration.
	RegisterCommand(id string, handler CommandHandler) (Disposable, error)

	// ExecuteCommand dispatches a previously registered command.
	ExecuteCommand(ctx context.Context, id string) error

	// ShowInfo displays an informational notification to the user.
	ShowInfo(message string)

	// ShowWarning displays a warning notification to the user.
	ShowWarning(message string)

	// ShowError displays an error notification to the user.
	ShowError(message string)
}

// DisposeBag accumulates disposables and releases them on unload. It is the
// analog of an editor extension context: ownership of registrations is
// handed to the bag, which guarantees cleanup exactly once, in reverse
// registration order.
type DisposeBag struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add hands ownership of a disposable to the bag. Adding to an already
// disposed bag releases the item immediately.
func (b *DisposeBag) Add(item Disposable) {
	if item == nil {
		return
	}

	b.mu.Lock()

	if b.disposed {
		b.mu.Unlock()
		item.Dispose()

		return
	}

	b.items = append(b.items, item)
	b.mu.Unlock()
}

// Len reports the number of disposables currently held.
func (b *DisposeBag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.items)
}

// Dispose releases all held items in reverse order. Subsequent calls are
// no-ops.
func (b *DisposeBag) Dispose() {
	b.mu.Lock()

	if b.disposed {
		b.mu.Unlock()

		return
	}

	b.disposed = true
	items := b.items
	b.items = nil
	b.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

// Registry is a command table shared by Host implementations.
type Registry struct {
	mu       sync.Mutex
	handlers map[string]CommandHandler
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]CommandHandler)}
}

// Register adds a command handler under id. The returned Disposable removes
// it again.
func (r *Registry) Register(id string, handler CommandHandler) (Disposable, error) {
	if handler == nil {
		return nil, fmt.Errorf("register %q: %w", id, ErrNilHandler)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[id]; exists {
		return nil, fmt.Errorf("register %q: %w", id, ErrCommandExists)
	}

	r.handlers[id] = handler

	return DisposableFunc(func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		delete(r.handlers, id)
	}), nil
}

// Execute dispatches the command registered under id.
func (r *Registry) Execute(ctx context.Context, id string) error {
	r.mu.Lock()
	handler, ok := r.handlers[id]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("execute %q: %w", id, ErrUnknownCommand)
	}

	return handler(ctx)
}

// Commands returns the currently registered command ids.
func (r *Registry) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}

	return ids
}
