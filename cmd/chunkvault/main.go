// chunkvault
//
// Entry point: the serve command wires all components together and manages
// graceful shutdown; the remaining commands are gRPC clients.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chunkvault",
		Short: "chunkvault - chunked, versioned file storage",
		Long: `chunkvault stores named files as 1 MiB chunks with version history,
tag search and a 1 GiB storage quota.

Run a server:
  chunkvault serve --config chunkvault.yaml

Talk to it:
  chunkvault upload report.pdf --tag work
  chunkvault search --tag work`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	addClientCommands(rootCmd)
	return rootCmd
}

// envOrDefault reads an env variable or returns the fallback.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
