package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wildfly/cmpql/catalog"
	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/runner"
)

type execOptions struct {
	query queryFlags
}

func newExecCommand(a *app) *cobra.Command {
	opts := &execOptions{}

	cmd := &cobra.Command{
		Use:   "exec <query> [value...]",
		Short: "Compile a query and run it against a database",
		Long: `Compile a query and run it against the database named by --dsn or
DATABASE_URL. Values bind ?1, ?2 and so on, converted by the types given
with --types. Entity and composite values are written as key=value pairs
separated by commas; "null" binds NULL.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, a, opts, args[0], args[1:])
		},
	}
	opts.query.register(cmd.Flags())
	return cmd
}

func runExec(cmd *cobra.Command, a *app, opts *execOptions, text string, values []string) error {
	if a.cfg.DSN == "" {
		return errors.New("no database configured (use --dsn or DATABASE_URL)")
	}
	c, err := a.project.compiler()
	if err != nil {
		return err
	}
	r, err := a.project.compile(c, text, &opts.query)
	if err != nil {
		return err
	}
	types, err := parseTypes(opts.query.Args)
	if err != nil {
		return err
	}
	args, err := convertArgs(types, values)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a.logger.Debug("connecting", "dsn", runner.SanitizeDSN(a.cfg.DSN))
	db, err := runner.Open(ctx, a.project.dialect, a.cfg.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	rows, err := runner.New(db, a.project.dialect,
		runner.WithLogger(a.logger),
		runner.WithMaxRows(a.cfg.MaxRows),
	).Query(ctx, r.Result, args)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), formatRows(rows, a.cfg.MaxRows))
	return err
}

// convertArgs turns command-line values into call arguments, using the
// declared type at the same position. Undeclared values stay strings.
func convertArgs(types []catalog.Type, values []string) ([]any, error) {
	args := make([]any, len(values))
	for i, v := range values {
		t := catalog.String
		if i < len(types) {
			t = types[i]
		}
		a, err := convertArg(t, v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i+1, err)
		}
		args[i] = a
	}
	return args, nil
}

func convertArg(t catalog.Type, s string) (any, error) {
	if strings.EqualFold(s, "null") {
		return nil, nil
	}
	switch t.Kind {
	case catalog.KindInteger, catalog.KindLong:
		return strconv.ParseInt(s, 10, 64)
	case catalog.KindDouble, catalog.KindDecimal:
		return strconv.ParseFloat(s, 64)
	case catalog.KindBoolean:
		return strconv.ParseBool(s)
	case catalog.KindBytes:
		return []byte(s), nil
	case catalog.KindEntity, catalog.KindValue:
		if !strings.Contains(s, "=") {
			return scalar(s), nil
		}
		return parseValues(s)
	}
	return s, nil
}

// parseValues parses "k=v,k2=v2" into a composite argument. A dotted key
// nests: "id.region=eu" sets region inside id.
func parseValues(s string) (compiler.Values, error) {
	out := compiler.Values{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed component %q, want name=value", pair)
		}
		m := out
		parts := strings.Split(k, ".")
		for _, p := range parts[:len(parts)-1] {
			next, ok := m[p].(compiler.Values)
			if !ok {
				next = compiler.Values{}
				m[p] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = scalar(strings.TrimSpace(v))
	}
	return out, nil
}

// scalar reads an untyped key component: integers become int64.
func scalar(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
