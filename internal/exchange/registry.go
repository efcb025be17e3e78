package exchange

import (
	"fmt"
	"sort"
	"sync"

	"unifex/logger"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register installs an adapter factory under its exchange id. Adapters call
// it from init; a duplicate id is a programming error.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("exchange %q registered twice", name))
	}
	registry[name] = factory
}

// New builds the named adapter.
func New(name string, cfg Config, log *logger.Entry) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q (have %v)", name, Names())
	}
	return factory(cfg, log)
}

// Names lists the registered exchange ids, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
