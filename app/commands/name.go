package commands

import (
	"fmt"

	"github.com/amirphl/demo-sequences/dbsequence"
	"github.com/spf13/cobra"
)

var nameCmd = &cobra.Command{
	Use:   "name <table> <attribute>",
	Short: "Print the counter object name for a table attribute.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), dbsequence.SequenceName(args[0], args[1]))
		return err
	},
}

func init() {
	rootCmd.AddCommand(nameCmd)
}
