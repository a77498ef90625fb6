package commands

import (
	"context"
	"fmt"

	"github.com/amirphl/demo-sequences/app/bootstrap"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the counter objects managed by demo-sequences.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
			backend, err := rt.CounterBackend()
			if err != nil {
				return err
			}
			names, err := backend.Names(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

var dropAllCmd = &cobra.Command{
	Use:   "drop-all",
	Short: "Drop every managed counter object.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
			backend, err := rt.CounterBackend()
			if err != nil {
				return err
			}
			dropped, err := backend.DropAll(ctx)
			for _, name := range dropped {
				fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", name)
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(dropAllCmd)
}
