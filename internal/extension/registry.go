// Package extension loads dynamically configured approaches into the
// registry.
//
// Extension implementations are Go code registered by name at link time via
// RegisterFactory (typically from an init function behind a blank import).
// YAML manifests scanned from a bundled directory and an optional local
// directory bind a slug to a factory plus its config; a local manifest
// overrides a bundled one carrying the same slug.
package extension

import (
	"github.com/cortexflow-ai/reasongate/internal/approach"
)

// Factory builds an approach entry from manifest config.
type Factory func(config map[string]any) (approach.Entry, error)

// factories is the process-wide registry of extension factories.
var factories = map[string]Factory{}

// RegisterFactory registers an extension factory by name.
func RegisterFactory(name string, f Factory) {
	factories[name] = f
}

// GetFactory returns an extension factory by name.
func GetFactory(name string) (Factory, bool) {
	f, ok := factories[name]
	return f, ok
}

// RegisteredFactories returns the names of all registered factories.
func RegisteredFactories() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
