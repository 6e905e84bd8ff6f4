package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// Registry resolves table identifiers to schemas. It is built once at
// startup and only read afterwards.
type Registry struct {
	byName map[string]*Schema
	names  []string
}

// NewRegistry indexes schemas by name. Duplicate names are an error.
func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		name := s.Name()
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate schema %q", name)
		}
		r.byName[name] = s
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Load parses every *.json document in dir of fsys.
func Load(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	var schemas []*Schema
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		s, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		schemas = append(schemas, s)
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("no schema documents in %s", dir)
	}
	return NewRegistry(schemas...)
}

// Builtin returns the registry of the portal's bundled schemas.
func Builtin() (*Registry, error) {
	return Load(builtinFS, "builtin")
}

// Get resolves name or fails with a not-found error.
func (r *Registry) Get(name string) (*Schema, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, errs.NotFound("schema %q not found", name)
	}
	return s, nil
}

// Has reports whether name is a known table.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names lists the known table identifiers, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns the schemas in name order.
func (r *Registry) All() []*Schema {
	out := make([]*Schema, len(r.names))
	for i, n := range r.names {
		out[i] = r.byName[n]
	}
	return out
}
