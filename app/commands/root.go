// Package commands provides the command-line interface for demo-sequences.
package commands

import (
	"context"
	"os"

	"github.com/amirphl/demo-sequences/app/bootstrap"
	"github.com/amirphl/demo-sequences/config"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "demo-sequences",
	Short: "Allocate and manage per-attribute sequences for stored entities.",
	Long: `demo-sequences hands out successive unique values for entity attributes, ` +
		`either counted in process from the data already stored or drawn from ` +
		`store-native counters that concurrent processes share.`,
	SilenceUsage: true,
}

var envFiles []string

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil,
		"env files to load before reading configuration (default .env)")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// withRuntime loads configuration, opens a runtime for the duration of fn and closes it
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *bootstrap.Runtime) error) error {
	cfg, err := config.LoadConfig(envFiles...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	return fn(ctx, rt)
}
