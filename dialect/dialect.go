// Package dialect holds the per-database configuration the compiler
// targets: function templates, boolean spellings, alias decoration and
// limits, placeholder style, and whether correlated subqueries are
// available.
//
// Dialects are immutable once built and safe for concurrent use.
package dialect

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wildfly/cmpql/internal/quoting"
	"github.com/wildfly/cmpql/nodes"
)

// Placeholder selects how bind parameters are written for the driver.
type Placeholder int

const (
	// Question uses positional ? markers.
	Question Placeholder = iota
	// Dollar uses numbered $1, $2 markers (PostgreSQL).
	Dollar
)

func (p Placeholder) String() string {
	if p == Dollar {
		return "$n"
	}
	return "?"
}

// Dialect is a validated target database configuration.
type Dialect struct {
	name             string
	subqueries       bool
	aliasPrefix      string
	aliasSuffix      string
	aliasMaxLength   int
	trueLiteral      string
	falseLiteral     string
	placeholder      Placeholder
	backslashEscapes bool

	functionSources map[nodes.Func]string
	rowLockingSource string

	functions  map[nodes.Func]*Template
	rowLocking *Template
}

// Option configures a Dialect under construction.
type Option func(*Dialect)

// WithSubqueries sets whether correlated EXISTS subqueries are supported.
func WithSubqueries(on bool) Option {
	return func(d *Dialect) { d.subqueries = on }
}

// WithAlias sets the alias decoration and the maximum identifier length.
// A maxLength of zero means unlimited.
func WithAlias(prefix, suffix string, maxLength int) Option {
	return func(d *Dialect) {
		d.aliasPrefix = prefix
		d.aliasSuffix = suffix
		d.aliasMaxLength = maxLength
	}
}

// WithBooleans sets the spellings of TRUE and FALSE.
func WithBooleans(t, f string) Option {
	return func(d *Dialect) {
		d.trueLiteral = t
		d.falseLiteral = f
	}
}

// WithPlaceholder sets the driver placeholder style.
func WithPlaceholder(p Placeholder) Option {
	return func(d *Dialect) { d.placeholder = p }
}

// WithBackslashEscapes makes string literals double backslashes.
func WithBackslashEscapes(on bool) Option {
	return func(d *Dialect) { d.backslashEscapes = on }
}

// WithFunction sets the template for a function.
func WithFunction(f nodes.Func, template string) Option {
	return func(d *Dialect) { d.functionSources[f] = template }
}

// WithoutFunction removes the template for a function.
func WithoutFunction(f nodes.Func) Option {
	return func(d *Dialect) { delete(d.functionSources, f) }
}

// WithRowLocking sets the row-locking template. Its arguments are the
// select list (?1), the FROM clause (?2), the WHERE clause including its
// keyword or empty (?3) and the ORDER BY clause including its keyword or
// empty (?4). An empty template disables row locking.
func WithRowLocking(template string) Option {
	return func(d *Dialect) { d.rowLockingSource = template }
}

// New builds and validates a dialect.
func New(name string, opts ...Option) (*Dialect, error) {
	d := &Dialect{
		name:            name,
		subqueries:      true,
		aliasPrefix:     "t_",
		trueLiteral:     "TRUE",
		falseLiteral:    "FALSE",
		functionSources: make(map[nodes.Func]string),
	}
	for _, o := range opts {
		o(d)
	}
	if err := d.build(); err != nil {
		return nil, err
	}
	return d, nil
}

// With derives a new dialect from d with the given options applied.
func (d *Dialect) With(opts ...Option) (*Dialect, error) {
	c := *d
	c.functionSources = make(map[nodes.Func]string, len(d.functionSources))
	for f, src := range d.functionSources {
		c.functionSources[f] = src
	}
	for _, o := range opts {
		o(&c)
	}
	if err := c.build(); err != nil {
		return nil, err
	}
	return &c, nil
}

// MustWith is like With but panics on error.
func (d *Dialect) MustWith(opts ...Option) *Dialect {
	c, err := d.With(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (d *Dialect) build() error {
	var errs []error
	if d.name == "" {
		errs = append(errs, errors.New("dialect: empty name"))
	}
	if d.aliasMaxLength != 0 && d.aliasMaxLength < 16 {
		errs = append(errs, fmt.Errorf("dialect %s: alias max length %d is below 16", d.name, d.aliasMaxLength))
	}
	if d.aliasMaxLength != 0 && len(d.aliasPrefix)+len(d.aliasSuffix)+10 > d.aliasMaxLength {
		errs = append(errs, fmt.Errorf("dialect %s: alias decoration %q/%q leaves no room within %d characters",
			d.name, d.aliasPrefix, d.aliasSuffix, d.aliasMaxLength))
	}
	if d.trueLiteral == "" || d.falseLiteral == "" {
		errs = append(errs, fmt.Errorf("dialect %s: boolean literals must not be empty", d.name))
	}
	d.functions = make(map[nodes.Func]*Template, len(d.functionSources))
	for f, src := range d.functionSources {
		t, err := ParseTemplate(src)
		if err != nil {
			errs = append(errs, fmt.Errorf("dialect %s: %s: %w", d.name, f, err))
			continue
		}
		_, max := f.Arity()
		if f.Aggregate() {
			max = 1
		}
		if t.Arity() > max {
			errs = append(errs, fmt.Errorf("dialect %s: %s template %q references ?%d but the function takes %d arguments",
				d.name, f, src, t.Arity(), max))
			continue
		}
		d.functions[f] = t
	}
	d.rowLocking = nil
	if d.rowLockingSource != "" {
		t, err := ParseTemplate(d.rowLockingSource)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("dialect %s: row locking: %w", d.name, err))
		case t.Arity() > 4:
			errs = append(errs, fmt.Errorf("dialect %s: row locking template references ?%d, at most ?4 is available", d.name, t.Arity()))
		default:
			d.rowLocking = t
		}
	}
	return errors.Join(errs...)
}

// Name returns the dialect name.
func (d *Dialect) Name() string { return d.name }

// Subqueries reports whether correlated EXISTS subqueries are supported.
func (d *Dialect) Subqueries() bool { return d.subqueries }

// AliasPrefix returns the string prepended to every table alias.
func (d *Dialect) AliasPrefix() string { return d.aliasPrefix }

// AliasSuffix returns the string appended to every table alias.
func (d *Dialect) AliasSuffix() string { return d.aliasSuffix }

// AliasMaxLength returns the identifier length limit, zero if unlimited.
func (d *Dialect) AliasMaxLength() int { return d.aliasMaxLength }

// Placeholder returns the driver placeholder style.
func (d *Dialect) Placeholder() Placeholder { return d.placeholder }

// Function returns the template for f.
func (d *Dialect) Function(f nodes.Func) (*Template, bool) {
	t, ok := d.functions[f]
	return t, ok
}

// RowLocking returns the row-locking template, if any.
func (d *Dialect) RowLocking() (*Template, bool) {
	return d.rowLocking, d.rowLocking != nil
}

// Bool spells a boolean literal.
func (d *Dialect) Bool(v bool) string {
	if v {
		return d.trueLiteral
	}
	return d.falseLiteral
}

// String quotes a string literal.
func (d *Dialect) String(s string) string {
	return quoting.Literal(s, d.backslashEscapes)
}

// Rebind rewrites the ? placeholders of sql into the dialect's style.
// Question marks inside string literals are left alone.
func (d *Dialect) Rebind(sql string) string {
	if d.placeholder != Dollar || !strings.Contains(sql, "?") {
		return sql
	}
	var sb strings.Builder
	sb.Grow(len(sql) + 8)
	n := 0
	for i := 0; i < len(sql); {
		switch sql[i] {
		case '\'':
			end := quoting.SkipLiteral(sql, i)
			sb.WriteString(sql[i:end])
			i = end
		case '?':
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			i++
		default:
			sb.WriteByte(sql[i])
			i++
		}
	}
	return sb.String()
}

// Describe renders the configuration as sorted "key: value" lines.
func (d *Dialect) Describe() []string {
	lines := []string{
		"name: " + d.name,
		"subqueries: " + strconv.FormatBool(d.subqueries),
		fmt.Sprintf("alias: prefix=%q suffix=%q max=%d", d.aliasPrefix, d.aliasSuffix, d.aliasMaxLength),
		"booleans: " + d.trueLiteral + "/" + d.falseLiteral,
		"placeholder: " + d.placeholder.String(),
	}
	var funcs []string
	for f, t := range d.functions {
		funcs = append(funcs, fmt.Sprintf("function %s: %s", f, t.Source()))
	}
	sort.Strings(funcs)
	lines = append(lines, funcs...)
	if d.rowLocking != nil {
		lines = append(lines, "row locking: "+d.rowLocking.Source())
	}
	return lines
}
