package chain

import (
	"fmt"
	"sort"
	"sync"

	"github.com/govm-net/harness/api"
)

// Type names a simulated chain implementation.
type Type string

const (
	// MemoryType keeps the chain in process memory.
	MemoryType Type = "memory"
	// DBType persists the chain in a sqlite database.
	DBType Type = "db"
)

// Constructor creates a chain client from free-form parameters such as
// "db_path".
type Constructor func(params map[string]any) (api.ChainClient, error)

// Registry manages the available chain implementations.
type Registry interface {
	// Register adds an implementation
	Register(t Type, constructor Constructor) error
	// SetDefault selects the implementation Open uses for an empty type
	SetDefault(t Type) error
	// Open returns a new client of type t
	Open(t Type, params map[string]any) (api.ChainClient, error)
	// DefaultType returns the current default
	DefaultType() Type
	// ListRegistered returns the registered types, sorted
	ListRegistered() []Type
}

type registry struct {
	mu           sync.RWMutex
	constructors map[Type]Constructor
	defaultType  Type
}

var defaultRegistry Registry = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return &registry{constructors: make(map[Type]Constructor)}
}

// GetRegistry returns the process-wide registry the implementations
// register into.
func GetRegistry() Registry {
	return defaultRegistry
}

func (r *registry) Register(t Type, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[t]; exists {
		return fmt.Errorf("chain type %s already registered", t)
	}
	r.constructors[t] = constructor
	return nil
}

func (r *registry) SetDefault(t Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[t]; !exists {
		return fmt.Errorf("chain type %s not registered", t)
	}
	r.defaultType = t
	return nil
}

func (r *registry) Open(t Type, params map[string]any) (api.ChainClient, error) {
	if t == "" {
		t = r.DefaultType()
	}
	r.mu.RLock()
	constructor, exists := r.constructors[t]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("chain type %s not found", t)
	}
	return constructor(params)
}

func (r *registry) DefaultType() Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultType == "" {
		return MemoryType
	}
	return r.defaultType
}

func (r *registry) ListRegistered() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Type, 0, len(r.constructors))
	for t := range r.constructors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Register adds an implementation to the process-wide registry.
func Register(t Type, constructor Constructor) error {
	return GetRegistry().Register(t, constructor)
}

// SetDefault sets the process-wide default type.
func SetDefault(t Type) error {
	return GetRegistry().SetDefault(t)
}

// Open returns a new client from the process-wide registry. An empty type
// selects the default.
func Open(t Type, params map[string]any) (api.ChainClient, error) {
	return GetRegistry().Open(t, params)
}

// ListRegistered lists the process-wide registered types.
func ListRegistered() []Type {
	return GetRegistry().ListRegistered()
}
