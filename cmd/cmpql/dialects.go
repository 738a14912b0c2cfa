package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDialectsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects [name]",
		Short: "List dialects or show one dialect's settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, n := range a.project.registry.Names() {
					marker := "  "
					if n == a.project.dialect.Name() {
						marker = "* "
					}
					_, _ = fmt.Fprintln(w, marker+n)
				}
				return nil
			}
			d, err := a.project.registry.Lookup(args[0])
			if err != nil {
				return err
			}
			for _, line := range d.Describe() {
				_, _ = fmt.Fprintln(w, line)
			}
			return nil
		},
	}
}
