package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "btrun",
		Short: "Run behaviour trees frame by frame",
		Long: `btrun loads a behaviour tree from YAML, JSON or HCL and drives a
population of agents running it at a fixed frame rate.

Tree files can be edited while btrun is running: parameter changes
(loop modes, timeouts) are patched into the live trees, structural
changes rebuild them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newListCmd())
	return root
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newRootCmd().ExecuteContext(ctx)
}
