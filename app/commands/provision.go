package commands

import (
	"context"
	"fmt"

	"github.com/amirphl/demo-sequences/app/bootstrap"
	"github.com/amirphl/demo-sequences/sequence"
	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision <table> <attribute>...",
	Short: "Create counter objects starting past the values already stored.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, attributes := args[0], args[1:]

		return withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
			backend, err := rt.CounterBackend()
			if err != nil {
				return err
			}
			entity, err := rt.Entity(ctx, table)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, attribute := range attributes {
				p, err := backend.Provision(ctx, entity, attribute, sequence.Identity)
				if err != nil {
					return fmt.Errorf("provision %s.%s: %w", table, attribute, err)
				}
				if p.Created {
					fmt.Fprintf(out, "created %s starting at %d\n", p.Name, p.Start)
				} else {
					fmt.Fprintf(out, "%s already exists\n", p.Name)
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}
