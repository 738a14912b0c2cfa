package dialect

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/wildfly/cmpql/nodes"
)

type document struct {
	Dialects []dialectDoc `yaml:"dialects"`
}

type dialectDoc struct {
	Name             string            `yaml:"name"`
	Extends          string            `yaml:"extends"`
	Subqueries       *bool             `yaml:"subqueries"`
	Alias            *aliasDoc         `yaml:"alias"`
	True             string            `yaml:"trueLiteral"`
	False            string            `yaml:"falseLiteral"`
	Placeholder      string            `yaml:"placeholder"`
	BackslashEscapes *bool             `yaml:"backslashEscapes"`
	Functions        map[string]string `yaml:"functions"`
	RowLocking       *string           `yaml:"rowLocking"`
}

type aliasDoc struct {
	Prefix    string `yaml:"prefix"`
	Suffix    string `yaml:"suffix"`
	MaxLength int    `yaml:"maxLength"`
}

// Registry resolves dialect names to built-in and loaded dialects.
type Registry struct {
	dialects map[string]*Dialect
}

// NewRegistry returns a registry holding the built-in dialects.
func NewRegistry() *Registry {
	r := &Registry{dialects: make(map[string]*Dialect, len(builtins))}
	for n, d := range builtins {
		r.dialects[n] = d
	}
	return r
}

// Lookup returns the named dialect.
func (r *Registry) Lookup(name string) (*Dialect, error) {
	if d, ok := r.dialects[name]; ok {
		return d, nil
	}
	return Lookup(name)
}

// Names lists every registered dialect name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.dialects))
	for n := range r.dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load decodes a YAML dialect document into r. A dialect may extend a
// built-in dialect or one declared earlier, in the same document or in a
// previous Load.
func (r *Registry) Load(rd io.Reader) ([]*Dialect, error) {
	var doc document
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("dialect: decode: %w", err)
	}
	var loaded []*Dialect
	for _, dd := range doc.Dialects {
		d, err := r.build(dd)
		if err != nil {
			return nil, err
		}
		r.dialects[d.Name()] = d
		loaded = append(loaded, d)
	}
	return loaded, nil
}

// LoadFile reads a YAML dialect document from path into r.
func (r *Registry) LoadFile(path string) ([]*Dialect, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dialect: %w", err)
	}
	defer func() { _ = f.Close() }()
	return r.Load(f)
}

func (r *Registry) build(dd dialectDoc) (*Dialect, error) {
	if dd.Name == "" {
		return nil, errors.New("dialect: entry without a name")
	}
	opts := []Option{func(d *Dialect) { d.name = dd.Name }}
	if dd.Subqueries != nil {
		opts = append(opts, WithSubqueries(*dd.Subqueries))
	}
	if dd.Alias != nil {
		opts = append(opts, WithAlias(dd.Alias.Prefix, dd.Alias.Suffix, dd.Alias.MaxLength))
	}
	if dd.True != "" || dd.False != "" {
		t, f := dd.True, dd.False
		opts = append(opts, func(d *Dialect) {
			if t != "" {
				d.trueLiteral = t
			}
			if f != "" {
				d.falseLiteral = f
			}
		})
	}
	switch dd.Placeholder {
	case "":
	case "?", "question":
		opts = append(opts, WithPlaceholder(Question))
	case "$n", "dollar":
		opts = append(opts, WithPlaceholder(Dollar))
	default:
		return nil, fmt.Errorf("dialect %s: unknown placeholder style %q", dd.Name, dd.Placeholder)
	}
	if dd.BackslashEscapes != nil {
		opts = append(opts, WithBackslashEscapes(*dd.BackslashEscapes))
	}
	for name, src := range dd.Functions {
		f, ok := nodes.ParseFunc(name)
		if !ok {
			return nil, fmt.Errorf("dialect %s: unknown function %q", dd.Name, name)
		}
		if src == "" {
			opts = append(opts, WithoutFunction(f))
			continue
		}
		opts = append(opts, WithFunction(f, src))
	}
	if dd.RowLocking != nil {
		opts = append(opts, WithRowLocking(*dd.RowLocking))
	}

	if dd.Extends == "" {
		return New(dd.Name, append(options(), opts...)...)
	}
	base, err := r.Lookup(dd.Extends)
	if err != nil {
		return nil, fmt.Errorf("dialect %s: extends: %w", dd.Name, err)
	}
	return base.With(opts...)
}
