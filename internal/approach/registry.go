package approach

import (
	"sort"
	"sync/atomic"
)

// Source says where a resolved slug came from.
type Source int

// Resolution sources.
const (
	SourceUnknown Source = iota
	SourceBuiltin
	SourceExtension
)

// snapshot is an immutable registry state. Reloads build a new snapshot and
// swap it in atomically; in-flight lookups keep reading the old one.
type snapshot struct {
	builtins   map[string]Entry
	extensions map[string]Entry
}

// Registry holds the known approaches: the fixed built-in set plus the
// currently loaded extension set. Reads are lock-free.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a registry populated with the built-in approaches.
func NewRegistry() *Registry {
	builtins := map[string]Entry{}
	for _, e := range builtinEntries() {
		builtins[e.Slug] = e
	}
	r := &Registry{}
	r.snap.Store(&snapshot{builtins: builtins, extensions: map[string]Entry{}})
	return r
}

// Resolve looks up a slug. Extensions shadow built-ins of the same slug.
func (r *Registry) Resolve(slug string) (Entry, Source) {
	s := r.snap.Load()
	if e, ok := s.extensions[slug]; ok {
		return e, SourceExtension
	}
	if e, ok := s.builtins[slug]; ok {
		return e, SourceBuiltin
	}
	return Entry{}, SourceUnknown
}

// Known reports whether slug names a built-in or registered extension.
func (r *Registry) Known(slug string) bool {
	_, src := r.Resolve(slug)
	return src != SourceUnknown
}

// SetExtensions replaces the extension set wholesale. Called by the loader
// after a (re)scan; never mutates a snapshot in place.
func (r *Registry) SetExtensions(entries map[string]Entry) {
	old := r.snap.Load()
	ext := make(map[string]Entry, len(entries))
	for slug, e := range entries {
		ext[slug] = e
	}
	r.snap.Store(&snapshot{builtins: old.builtins, extensions: ext})
}

// Register adds or replaces a single extension entry. Intended for
// programmatic registration (tests, embedded use); the manifest loader goes
// through SetExtensions.
func (r *Registry) Register(e Entry) {
	old := r.snap.Load()
	ext := make(map[string]Entry, len(old.extensions)+1)
	for slug, entry := range old.extensions {
		ext[slug] = entry
	}
	ext[e.Slug] = e
	r.snap.Store(&snapshot{builtins: old.builtins, extensions: ext})
}

// Slugs returns every known slug, built-ins first, each set sorted.
func (r *Registry) Slugs() []string {
	s := r.snap.Load()
	builtins := make([]string, 0, len(s.builtins))
	for slug := range s.builtins {
		builtins = append(builtins, slug)
	}
	sort.Strings(builtins)
	exts := make([]string, 0, len(s.extensions))
	for slug := range s.extensions {
		if _, shadowed := s.builtins[slug]; !shadowed {
			exts = append(exts, slug)
		}
	}
	sort.Strings(exts)
	return append(builtins, exts...)
}
