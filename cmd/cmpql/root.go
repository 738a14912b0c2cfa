package main

import (
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/wildfly/cmpql/compiler"
	"github.com/wildfly/cmpql/runner"
)

// app carries the state shared by every command once flags and
// configuration are resolved.
type app struct {
	fs         afero.Fs
	configFile string
	cfg        *Config
	logger     *slog.Logger
	project    *project
}

// NewRootCommand creates the cmpql command tree. Files are read through
// fs.
func NewRootCommand(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}

	cmd := &cobra.Command{
		Use:   "cmpql",
		Short: "Compile object queries to SQL",
		Long: `cmpql compiles queries over an entity catalog into SQL for a target
dialect, and can execute them against PostgreSQL, MySQL or SQLite.

Settings are read from flags, CMPQL_* environment variables, a .env file
and ./.cmpql.yaml, in that order of priority.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./.cmpql.yaml)")
	pf.StringP("dialect", "d", "postgres", "target dialect")
	pf.StringP("catalog", "c", "", "catalog YAML file")
	pf.String("dialects", "", "YAML file of custom dialects")
	pf.String("dsn", "", "database to execute against (default $DATABASE_URL)")
	pf.Int("max-rows", runner.DefaultMaxRows, "maximum rows read by exec")
	pf.String("soft-delete", "", "exclude rows whose named field is set")
	pf.String("opa-url", "", "OPA server whose policy filters every entity")
	pf.String("opa-policy", "", "policy rule evaluated on the OPA server, e.g. data.shop.allow")
	pf.String("opa-input", "", "JSON input document sent with OPA requests")
	pf.String("format", "text", "output format (text|json)")
	pf.Bool("pretty", false, "print SQL over several lines")
	pf.BoolP("verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(newCompileCommand(a))
	cmd.AddCommand(newExecCommand(a))
	cmd.AddCommand(newExplainCommand(a))
	cmd.AddCommand(newDialectsCommand(a))
	cmd.AddCommand(newReplCommand(a))

	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.fs, cmd.Flags(), a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cmd, cfg.Verbose)
	a.project, err = openProject(cmd.Context(), a.fs, cfg, a.logger)
	return err
}

func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (a *app) renderer(w io.Writer, format string) *renderer {
	return &renderer{
		w:      w,
		format: format,
		pretty: a.cfg.Pretty,
		sqlFor: func(res *compiler.Result) string { return a.project.dialect.Rebind(res.SQL) },
	}
}
