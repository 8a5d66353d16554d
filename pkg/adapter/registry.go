package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapclean/pkg/core"
)

// ErrNoEngineType is returned by NewAdapter when target.type is empty.
var ErrNoEngineType = errors.New("adapter type not specified")

// Factory builds an unconnected adapter. The logger is never nil.
type Factory func(logger *slog.Logger) Adapter

// engines maps a target.type value to the factory of its columnar engine.
var engines = struct {
	sync.RWMutex
	byType map[string]Factory
}{byType: map[string]Factory{}}

// Register makes an engine available under name. Engine packages call it
// from init(); registering a name twice keeps the last factory.
func Register(name string, factory Factory) {
	engines.Lock()
	engines.byType[name] = factory
	engines.Unlock()
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	engines.RLock()
	defer engines.RUnlock()
	factory, ok := engines.byType[name]
	return factory, ok
}

// IsRegistered reports whether an engine is registered under name.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// ListAdapters returns the registered engine names in sorted order.
func ListAdapters() []string {
	engines.RLock()
	defer engines.RUnlock()
	return slices.Sorted(maps.Keys(engines.byType))
}

// NewAdapter builds the engine named by cfg.Type. It does not connect.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, ErrNoEngineType
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// UnknownAdapterError reports a target.type no engine is registered for.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown engine type %q\nAvailable engines: %v\nHint: Check target.type in leapclean.yaml", e.Type, e.Available)
}
