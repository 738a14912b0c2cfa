// Package runner executes compiled queries through database/sql.
//
// The compiler emits ? placeholders and leaves LIMIT and OFFSET to the
// caller. A Runner rebinds the placeholders for the target dialect, binds
// the parameter plan against the call arguments, and applies the offset
// and limit while reading rows.
package runner

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/dialect"
)

var driverName = map[string]string{
	"postgres": "pgx",
	"mysql":    "mysql",
	"sqlite":   "sqlite",
}

// DefaultMaxRows caps the rows read by a Runner unless WithMaxRows says
// otherwise.
const DefaultMaxRows = 1000

// Driver returns the database/sql driver name for a dialect. Dialect
// names such as "mysql-legacy" resolve through their engine prefix.
func Driver(dialectName string) (string, error) {
	if d, ok := driverName[dialectName]; ok {
		return d, nil
	}
	if engine, _, ok := strings.Cut(dialectName, "-"); ok {
		if d, ok := driverName[engine]; ok {
			return d, nil
		}
	}
	return "", fmt.Errorf("runner: no driver for dialect %q", dialectName)
}

// Open opens and pings a database for the dialect's engine.
func Open(ctx context.Context, d *dialect.Dialect, dsn string) (*sql.DB, error) {
	driver, err := Driver(d.Name())
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("runner: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("runner: ping: %w", err)
	}
	return db, nil
}

// Queryer is the subset of *sql.DB, *sql.Conn and *sql.Tx a Runner needs.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Runner executes compiled queries for one dialect.
type Runner struct {
	db      Queryer
	dialect *dialect.Dialect
	logger  *slog.Logger
	maxRows int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger receiving the executed SQL at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMaxRows caps the number of rows read. Zero or less disables the cap.
func WithMaxRows(n int) Option {
	return func(r *Runner) { r.maxRows = n }
}

// New returns a Runner over db.
func New(db Queryer, d *dialect.Dialect, opts ...Option) *Runner {
	r := &Runner{
		db:      db,
		dialect: d,
		logger:  slog.New(slog.DiscardHandler),
		maxRows: DefaultMaxRows,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Rows holds the rows read for one query.
type Rows struct {
	Columns []string
	Values  [][]any
	// Truncated is set when the row cap stopped reading early.
	Truncated bool
}

// Strings renders every value as text, NULL for nil.
func (r *Rows) Strings() [][]string {
	out := make([][]string, len(r.Values))
	for i, row := range r.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v == nil {
				out[i][j] = "NULL"
			} else {
				out[i][j] = fmt.Sprint(v)
			}
		}
	}
	return out
}

// Statement returns the SQL and bound values a query would execute with.
func (r *Runner) Statement(res *compiler.Result, args []any) (string, []any, error) {
	params, err := res.Bind(args)
	if err != nil {
		return "", nil, err
	}
	return r.dialect.Rebind(res.SQL), params, nil
}

// Query executes res with the given call arguments.
func (r *Runner) Query(ctx context.Context, res *compiler.Result, args []any) (*Rows, error) {
	query, params, err := r.Statement(res, args)
	if err != nil {
		return nil, err
	}
	offset, _, err := res.Offset.Resolve(args)
	if err != nil {
		return nil, err
	}
	limit, hasLimit, err := res.Limit.Resolve(args)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("executing query",
		"dialect", r.dialect.Name(),
		"sql", query,
		"params", len(params),
		"offset", offset,
		"limit", limit,
	)
	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("runner: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("runner: columns: %w", err)
	}
	out := &Rows{Columns: columns}
	for skipped := int64(0); rows.Next(); {
		if skipped < offset {
			skipped++
			continue
		}
		if hasLimit && int64(len(out.Values)) >= limit {
			break
		}
		if r.maxRows > 0 && len(out.Values) >= r.maxRows {
			out.Truncated = true
			break
		}
		row, err := scanRow(rows, len(columns))
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runner: rows: %w", err)
	}
	return out, nil
}

func scanRow(rows *sql.Rows, n int) ([]any, error) {
	vals := make([]any, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("runner: scan: %w", err)
	}
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			vals[i] = string(b)
		}
	}
	return vals, nil
}
