package extension

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cortexflow-ai/reasongate/internal/approach"
	"github.com/cortexflow-ai/reasongate/internal/logging"
	"github.com/cortexflow-ai/reasongate/internal/metrics"
)

// Manifest is one extension declaration on disk.
type Manifest struct {
	Slug    string         `yaml:"slug"`
	Factory string         `yaml:"factory"`
	Config  map[string]any `yaml:"config"`
}

// Load scans the bundled directory then the local directory for *.yaml
// manifests and builds the extension entry set. The local directory is
// skipped when it equals the bundled one; a local slug overrides a bundled
// one. Per-file failures are logged and isolated: one broken manifest never
// prevents loading the rest.
func Load(bundledDir, localDir string) map[string]approach.Entry {
	log := logging.Logger

	type source struct {
		dir  string
		name string
	}
	sources := []source{{bundledDir, "bundled"}}
	if localDir != "" && localDir != bundledDir {
		sources = append(sources, source{localDir, "local"})
	}

	entries := map[string]approach.Entry{}
	for _, src := range sources {
		if src.dir == "" {
			continue
		}
		log.Info("scanning for extensions", "source", src.name, "dir", src.dir)
		if _, err := os.Stat(src.dir); err != nil {
			log.Debug("extension directory not found", "source", src.name, "dir", src.dir)
			continue
		}

		files, err := filepath.Glob(filepath.Join(src.dir, "*.yaml"))
		if err == nil {
			more, _ := filepath.Glob(filepath.Join(src.dir, "*.yml"))
			files = append(files, more...)
		}
		if len(files) == 0 {
			log.Debug("no extension manifests found", "source", src.name, "dir", src.dir)
			continue
		}

		for _, file := range files {
			entry, err := loadManifest(file)
			if err != nil {
				metrics.ExtensionLoadErrors.WithLabelValues(src.name).Inc()
				log.Error("error loading extension", "source", src.name, "file", file, "error", err.Error())
				continue
			}
			if _, exists := entries[entry.Slug]; exists {
				log.Info("overriding extension", "source", src.name, "slug", entry.Slug)
			}
			entries[entry.Slug] = entry
			log.Info("loaded extension", "source", src.name, "slug", entry.Slug)
		}
	}

	if len(entries) == 0 {
		log.Warn("no extensions loaded from any location")
	}
	return entries
}

// Reload rebuilds the extension set from disk and swaps it into the
// registry atomically.
func Reload(reg *approach.Registry, bundledDir, localDir string) {
	reg.SetExtensions(Load(bundledDir, localDir))
}

func loadManifest(path string) (approach.Entry, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return approach.Entry{}, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return approach.Entry{}, fmt.Errorf("parsing manifest: %w", err)
	}
	if strings.TrimSpace(m.Slug) == "" || strings.TrimSpace(m.Factory) == "" {
		return approach.Entry{}, fmt.Errorf("manifest missing required slug and factory attributes")
	}
	factory, ok := GetFactory(m.Factory)
	if !ok {
		return approach.Entry{}, fmt.Errorf("unknown extension factory: %s", m.Factory)
	}
	entry, err := factory(m.Config)
	if err != nil {
		return approach.Entry{}, fmt.Errorf("factory %s: %w", m.Factory, err)
	}
	entry.Slug = m.Slug
	return entry, nil
}
