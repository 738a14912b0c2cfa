package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/dialect"
	"github.com/wildfly/cmpql/nodes"
	"github.com/wildfly/cmpql/plugins"
	"github.com/wildfly/cmpql/plugins/opa"
	"github.com/wildfly/cmpql/plugins/softdelete"
	"github.com/wildfly/cmpql/qlparse"
)

var errNoCatalog = errors.New("no catalog loaded (use --catalog, CMPQL_CATALOG or 'catalog <file>')")

// project is the catalog and dialect a command compiles against.
type project struct {
	ctx      context.Context
	fs       afero.Fs
	cfg      *Config
	logger   *slog.Logger
	registry *dialect.Registry
	dialect  *dialect.Dialect
	catalog  *catalog.Catalog
}

func openProject(ctx context.Context, fs afero.Fs, cfg *Config, logger *slog.Logger) (*project, error) {
	p := &project{ctx: ctx, fs: fs, cfg: cfg, logger: logger, registry: dialect.NewRegistry()}
	if cfg.Dialects != "" {
		f, err := fs.Open(cfg.Dialects)
		if err != nil {
			return nil, fmt.Errorf("dialects: %w", err)
		}
		loaded, err := p.registry.Load(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded dialects", "file", cfg.Dialects, "count", len(loaded))
	}
	if err := p.setDialect(cfg.Dialect); err != nil {
		return nil, err
	}
	if cfg.Catalog != "" {
		if err := p.loadCatalog(cfg.Catalog); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *project) setDialect(name string) error {
	d, err := p.registry.Lookup(name)
	if err != nil {
		return err
	}
	p.dialect = d
	return nil
}

func (p *project) loadCatalog(path string) error {
	f, err := p.fs.Open(path)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	c, err := catalog.Load(f)
	if err != nil {
		return err
	}
	p.catalog = c
	p.logger.Debug("loaded catalog", "file", path, "entities", len(c.Entities()))
	return nil
}

func (p *project) compiler() (*compiler.Compiler, error) {
	if p.catalog == nil {
		return nil, errNoCatalog
	}
	return compiler.New(p.catalog, p.dialect, compiler.WithLogger(p.logger)), nil
}

// transformers returns the query rewrites the configuration enables:
// the soft-delete filter, then the OPA row policy.
func (p *project) transformers() ([]plugins.Transformer, error) {
	var ts []plugins.Transformer
	if p.cfg.SoftDelete != "" && p.catalog != nil {
		ts = append(ts, softdelete.New(softdelete.WithField(p.cfg.SoftDelete), softdelete.WithSchema(p.catalog)))
	}
	if p.cfg.OPAURL != "" {
		if p.cfg.OPAPolicy == "" {
			return nil, errors.New("opa: --opa-policy is required with --opa-url")
		}
		var input map[string]any
		if p.cfg.OPAInput != "" {
			if err := json.Unmarshal([]byte(p.cfg.OPAInput), &input); err != nil {
				return nil, fmt.Errorf("opa: invalid input document: %w", err)
			}
		}
		opts := []opa.Option{opa.WithContext(p.ctx)}
		if p.catalog != nil {
			opts = append(opts, opa.WithSchema(p.catalog))
		}
		ts = append(ts, opa.NewFromServer(p.cfg.OPAURL, p.cfg.OPAPolicy, input, opts...))
	}
	return ts, nil
}

// compiled is one query taken from text to SQL.
type compiled struct {
	Name   string
	Query  *nodes.Query
	Result *compiler.Result
}

// compile parses text, applies the configured transformers and compiles
// the result with c.
func (p *project) compile(c *compiler.Compiler, text string, qf *queryFlags) (*compiled, error) {
	q, err := qlparse.Parse(text)
	if err != nil {
		return nil, err
	}
	ts, err := p.transformers()
	if err != nil {
		return nil, err
	}
	q, err = plugins.Apply(q, ts...)
	if err != nil {
		return nil, err
	}
	ret, args, opts, err := qf.resolve()
	if err != nil {
		return nil, err
	}
	res, err := c.Compile(q, ret, args, opts...)
	if err != nil {
		return nil, err
	}
	return &compiled{Query: q, Result: res}, nil
}

// queryFlags are the per-query compile settings shared by compile, exec
// and the REPL.
type queryFlags struct {
	Return    string
	Args      []string
	Eager     string
	LeftJoins []string
	Lock      bool
}

func (qf *queryFlags) register(set *pflag.FlagSet) {
	set.StringVarP(&qf.Return, "return", "r", "collection", "result type (collection|set|single)")
	set.StringSliceVarP(&qf.Args, "types", "t", nil, "declared argument types, e.g. string,entity:Item")
	set.StringVar(&qf.Eager, "eager", "", "load group read with a selected entity (\"*\" for all fields)")
	set.StringSliceVar(&qf.LeftJoins, "left-join", nil, "read a relationship ahead, as path or path:group")
	set.BoolVar(&qf.Lock, "lock", false, "wrap the query in the dialect's row-locking template")
}

func (qf *queryFlags) resolve() (compiler.ReturnType, []catalog.Type, []compiler.QueryOption, error) {
	ret, err := parseReturn(qf.Return)
	if err != nil {
		return 0, nil, nil, err
	}
	args, err := parseTypes(qf.Args)
	if err != nil {
		return 0, nil, nil, err
	}
	var opts []compiler.QueryOption
	if qf.Eager != "" {
		opts = append(opts, compiler.WithEagerLoad(qf.Eager))
	}
	for _, lj := range qf.LeftJoins {
		path, group, _ := strings.Cut(lj, ":")
		opts = append(opts, compiler.WithLeftJoins(compiler.LeftJoin{Path: path, EagerLoad: group}))
	}
	if qf.Lock {
		opts = append(opts, compiler.WithRowLocking())
	}
	return ret, args, opts, nil
}

func parseReturn(s string) (compiler.ReturnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "collection":
		return compiler.ReturnCollection, nil
	case "set":
		return compiler.ReturnSet, nil
	case "single":
		return compiler.ReturnSingle, nil
	}
	return 0, fmt.Errorf("invalid return type %q: must be collection, set or single", s)
}

func parseTypes(names []string) ([]catalog.Type, error) {
	types := make([]catalog.Type, 0, len(names))
	for _, n := range names {
		t, err := catalog.ParseType(n)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}
