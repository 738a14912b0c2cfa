package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type compileOptions struct {
	query   queryFlags
	queries []string
}

func newCompileCommand(a *app) *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile [file...]",
		Short: "Compile queries to SQL",
		Long: `Compile queries to SQL for the configured dialect.

Each file holds one query; "-" reads standard input. Queries may also be
given inline with --query. Files are compiled concurrently and printed in
argument order, each followed by its parameter plan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, a, opts, args)
		},
	}

	opts.query.register(cmd.Flags())
	cmd.Flags().StringArrayVarP(&opts.queries, "query", "e", nil, "query text (repeatable)")

	return cmd
}

type source struct {
	name string
	text string
}

func readSources(fs afero.Fs, stdin io.Reader, inline, files []string) ([]source, error) {
	sources := make([]source, 0, len(inline)+len(files))
	for i, q := range inline {
		sources = append(sources, source{name: "query " + strconv.Itoa(i+1), text: q})
	}
	for _, f := range files {
		var (
			b   []byte
			err error
		)
		if f == "-" {
			b, err = io.ReadAll(stdin)
		} else {
			b, err = afero.ReadFile(fs, f)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		sources = append(sources, source{name: f, text: string(b)})
	}
	return sources, nil
}

func runCompile(cmd *cobra.Command, a *app, opts *compileOptions, files []string) error {
	sources, err := readSources(a.fs, cmd.InOrStdin(), opts.queries, files)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("nothing to compile: pass files or --query")
	}
	c, err := a.project.compiler()
	if err != nil {
		return err
	}

	results := make([]*compiled, len(sources))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := a.project.compile(c, src.text, &opts.query)
			if err != nil {
				return fmt.Errorf("%s: %w", src.name, err)
			}
			r.Name = src.name
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Debug("compiled queries", "count", len(results), "dialect", a.project.dialect.Name())
	return a.renderer(cmd.OutOrStdout(), a.cfg.Format).render(results)
}
