package strategy

import (
	"fmt"
	"sort"
	"strings"

	"equity-backtest/internal/config"
)

// Constructor builds a strategy from the loaded configuration.
type Constructor func(cfg *config.Config) (Strategy, error)

var registry = map[string]Constructor{}

// Register adds a named strategy constructor. Strategies register
// themselves from init; resolving a name never touches the filesystem.
func Register(name string, c Constructor) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("strategy %q registered twice", name))
	}
	registry[name] = c
}

// New resolves cfg.Strategy.Name against the registry.
func New(cfg *config.Config) (Strategy, error) {
	c, ok := registry[cfg.Strategy.Name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %s)",
			cfg.Strategy.Name, strings.Join(Names(), ", "))
	}
	return c(cfg)
}

// Names lists the registered strategy names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Param helpers shared by strategy constructors.

func numParam(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != nil {
		switch x := v.(type) {
		case float64:
			return x
		case int:
			return float64(x)
		}
	}
	return def
}

func intParam(m map[string]any, key string, def int) int {
	return int(numParam(m, key, float64(def)))
}
