package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zeusync/behave/internal/core/bt/loader"
	"github.com/zeusync/behave/internal/injector"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate TREE_FILE...",
		Short: "Load and build tree files without running them",
		Long: `Validate loads every tree file, builds it against the builtin action
registry and prints its node count and shape hash. Two files with the
same shape differ only in parameters that can be patched live.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := injector.ProvideRegistry()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tTREE\tNODES\tSHAPE")

			var errs []error
			for _, path := range args {
				cfg, err := loader.LoadFile(path)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				tree, err := cfg.Build(reg)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%016x\n", path, tree.Name, len(tree.Nodes), tree.Shape)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the actions and conditions trees can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := injector.ProvideRegistry()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "actions:")
			for _, name := range reg.Actions() {
				fmt.Fprintln(out, "  "+name)
			}
			fmt.Fprintln(out, "conditions:")
			for _, name := range reg.Conditions() {
				fmt.Fprintln(out, "  "+name)
			}
			return nil
		},
	}
}
