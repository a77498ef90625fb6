package commands

import (
	"context"
	"fmt"

	"github.com/amirphl/demo-sequences/app/bootstrap"
	"github.com/amirphl/demo-sequences/tracking"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// EventAllocation prefixes the structured events emitted around a next run
const EventAllocation = "demo.sequence_allocation"

var nextCmd = &cobra.Command{
	Use:   "next <table> <attribute>",
	Short: "Allocate the next values of a table attribute.",
	Long: "`next <table> <attribute> --count n` prints n successive values. Values come " +
		"from the stored data, or from the counter object when SEQUENCE_USE_DATABASE is set.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		if count < 1 {
			return fmt.Errorf("--count must be at least 1, got %d", count)
		}
		table, attribute := args[0], args[1]

		return withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
			entity, err := rt.Entity(ctx, table)
			if err != nil {
				return err
			}

			fields := logrus.Fields{"table": table, "attribute": attribute, "count": count}
			return tracking.Observe(ctx, rt.Logger, EventAllocation, fields, func(ctx context.Context) error {
				seq := rt.Registry.Lookup(entity, attribute)
				for range count {
					value, err := seq.Next(ctx)
					if err != nil {
						return err
					}
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), value); err != nil {
						return err
					}
				}
				return nil
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(nextCmd)
	nextCmd.Flags().Int("count", 1, "Number of values to allocate")
}
