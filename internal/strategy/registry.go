package strategy

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a strategy with its default configuration.
type Factory func() Strategy

var (
	registry     = make(map[string]Factory)
	registryLock sync.RWMutex
)

// Register adds a strategy factory under a unique name. Later
// registrations replace earlier ones.
func Register(name string, factory Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[name] = factory
}

// Get builds the named strategy.
func Get(name string) (Strategy, error) {
	registryLock.RLock()
	factory, ok := registry[name]
	registryLock.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s (available: %v)", name, List())
	}
	return factory(), nil
}

// List returns the registered names, sorted.
func List() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All builds every registered strategy in List order.
func All() []Strategy {
	names := List()
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		if s, err := Get(name); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func init() {
	Register("trend", func() Strategy {
		return NewTrendStrategy(DefaultTrendConfig())
	})
	Register("breakout", func() Strategy {
		return NewBreakoutStrategy(DefaultBreakoutConfig())
	})
	Register("sentiment", func() Strategy {
		return NewSentimentStrategy(DefaultSentimentConfig())
	})
}
