// Package registry holds the in-process function catalog the event loop
// resolves invocations against. The loop itself only consumes the Catalog
// interface, so applications may bring their own implementation.
package registry

import (
	"fmt"
	"mime"
	"sort"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
)

// Function is a resolved reference to one registered function. Invoke
// consumes the decoded event message and returns the result message, or nil
// for consumer-style functions that produce no output.
type Function interface {
	// Name is the human-readable identifier used in logs and diagnostics.
	Name() string
	// Supplier reports whether the function accepts no input.
	Supplier() bool
	Invoke(msg *message.Message) (*message.Message, error)
}

// Catalog is the lookup surface the event loop depends on.
type Catalog interface {
	// Lookup returns the function registered under name that accepts
	// contentType, or nil. An empty name selects the registry default:
	// the single registered function, if there is exactly one.
	Lookup(name, contentType string) Function
	// Names returns the sorted identifiers of all registered functions.
	Names() []string
}

type entry struct {
	fn           Function
	contentTypes []string
}

// Registry is the default Catalog implementation: a name-keyed map guarded
// by a read/write mutex. True ownership of functions stays here; the loop
// holds handles only for the duration of one iteration.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{functions: make(map[string]entry)}
}

// Register adds fn under its own name. When contentTypes are given the
// function only matches lookups with one of those media types; otherwise it
// accepts any content type.
func (r *Registry) Register(fn Function, contentTypes ...string) error {
	if fn == nil {
		return errspkg.ErrFunctionRequired
	}
	name := fn.Name()
	if name == "" {
		return errspkg.ErrFunctionNameRequired
	}

	normalized := make([]string, 0, len(contentTypes))
	for _, ct := range contentTypes {
		normalized = append(normalized, normalizeMediaType(ct))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("lambdaloop: function %q is already registered", name)
	}
	r.functions[name] = entry{fn: fn, contentTypes: normalized}
	return nil
}

// Lookup implements Catalog.
func (r *Registry) Lookup(name, contentType string) Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		if len(r.functions) != 1 {
			return nil
		}
		for _, e := range r.functions {
			if e.accepts(contentType) {
				return e.fn
			}
		}
		return nil
	}

	e, ok := r.functions[name]
	if !ok || !e.accepts(contentType) {
		return nil
	}
	return e.fn
}

// Names implements Catalog.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e entry) accepts(contentType string) bool {
	if len(e.contentTypes) == 0 {
		return true
	}
	want := normalizeMediaType(contentType)
	if want == "" {
		// Events without a declared content type match any registration.
		return true
	}
	for _, ct := range e.contentTypes {
		if ct == want {
			return true
		}
	}
	return false
}

func normalizeMediaType(ct string) string {
	if ct == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return parsed
}

type funcHandle struct {
	name     string
	supplier bool
	invoke   func(msg *message.Message) (*message.Message, error)
}

func (f *funcHandle) Name() string   { return f.name }
func (f *funcHandle) Supplier() bool { return f.supplier }
func (f *funcHandle) Invoke(msg *message.Message) (*message.Message, error) {
	return f.invoke(msg)
}

// NewFunction wraps a raw message handler as a Function.
func NewFunction(name string, invoke func(msg *message.Message) (*message.Message, error)) Function {
	return &funcHandle{name: name, invoke: invoke}
}

// NewSupplierFunction wraps a producer-only handler: the incoming event
// payload is ignored and only the returned message matters.
func NewSupplierFunction(name string, invoke func(msg *message.Message) (*message.Message, error)) Function {
	return &funcHandle{name: name, supplier: true, invoke: invoke}
}
