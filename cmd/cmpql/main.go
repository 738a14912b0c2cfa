// Command cmpql compiles object queries to SQL and runs them.
//
// Configuration (flags override environment, environment overrides
// ./.cmpql.yaml):
//
//	CMPQL_DIALECT=postgres|mysql|mysql-legacy|sqlite
//	CMPQL_CATALOG=<catalog.yaml>
//	DATABASE_URL=<dsn>                (exec and repl)
//
// Usage:
//
//	cmpql compile -c catalog.yaml -e "SELECT OBJECT(o) FROM Order o WHERE o.status = ?1" -t string
//	cmpql exec -d sqlite --dsn shop.db "SELECT o.number FROM Order o"
//	cmpql repl
package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/afero"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := NewRootCommand(afero.NewOsFs())
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}
