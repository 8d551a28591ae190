package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information, set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "switchboard",
		Short: "Version switchboard for the Minecraft modding ecosystem",
		Long: `Switchboard resolves Minecraft versions against the releases of
loaders, mappings and patch distributions and serves the results over HTTP.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
