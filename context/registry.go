package context

import (
	"fmt"
	"sync"
)

// StoreType identifies a registered store implementation.
type StoreType string

const (
	// MemoryStoreType is the in-memory implementation.
	MemoryStoreType StoreType = "memory"
	// DBStoreType is the SQLite-backed implementation.
	DBStoreType StoreType = "db"
)

// StoreConstructor builds a store from implementation-specific parameters.
type StoreConstructor func(params map[string]any) (Store, error)

// Registry manages the available store implementations.
type Registry interface {
	Register(st StoreType, constructor StoreConstructor) error
	SetDefault(st StoreType) error
	Get(st StoreType, params map[string]any) (Store, error)
	GetDefault(params map[string]any) (Store, error)
	DefaultStoreType() StoreType
	ListRegistered() []StoreType
}

type registry struct {
	mu        sync.RWMutex
	stores    map[StoreType]StoreConstructor
	defaultSt StoreType
}

var defaultRegistry Registry = &registry{
	stores: make(map[StoreType]StoreConstructor),
}

// GetRegistry returns the global registry instance.
func GetRegistry() Registry {
	return defaultRegistry
}

// Register adds a store implementation to the global registry. Store
// packages call it from init, so importing a store package is what makes
// it available.
func Register(st StoreType, constructor StoreConstructor) error {
	return defaultRegistry.Register(st, constructor)
}

// Get builds a store of the given type from the global registry.
func Get(st StoreType, params map[string]any) (Store, error) {
	return defaultRegistry.Get(st, params)
}

func (r *registry) Register(st StoreType, constructor StoreConstructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[st]; exists {
		return fmt.Errorf("store type %s already registered", st)
	}
	r.stores[st] = constructor
	if r.defaultSt == "" {
		r.defaultSt = st
	}
	return nil
}

func (r *registry) SetDefault(st StoreType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stores[st]; !exists {
		return fmt.Errorf("store type %s not registered", st)
	}
	r.defaultSt = st
	return nil
}

func (r *registry) Get(st StoreType, params map[string]any) (Store, error) {
	r.mu.RLock()
	constructor, exists := r.stores[st]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("store type %s not found", st)
	}
	return constructor(params)
}

func (r *registry) GetDefault(params map[string]any) (Store, error) {
	r.mu.RLock()
	st := r.defaultSt
	r.mu.RUnlock()

	if st == "" {
		return nil, fmt.Errorf("no store type registered")
	}
	return r.Get(st, params)
}

func (r *registry) DefaultStoreType() StoreType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultSt
}

func (r *registry) ListRegistered() []StoreType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StoreType, 0, len(r.stores))
	for st := range r.stores {
		out = append(out, st)
	}
	return out
}
