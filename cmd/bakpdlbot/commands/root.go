package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	debug      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json5", "The config file to read.")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging.")
}

var rootCmd = &cobra.Command{
	Use:   "bakpdlbot",
	Short: "bakpdlbot is the discord bot of the Backpedal cycling club.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
