package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "esgate <command>",
	Short:         "Write, list and bulk delete event store streams",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("ESGATE_CONFIG"), "path to a TOML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(streamsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
