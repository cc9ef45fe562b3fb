package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "authdash-dashboard",
		Short: "Terminal front end for authdash",
		Long: `authdash-dashboard is a terminal client for an authdash server.

It keeps the session token in a local state file, sends private
routes through the login flow and refreshes the token in the
background while watching.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.register(rootCmd)

	rootCmd.AddCommand(
		openCmd(opts),
		statusCmd(opts),
		logoutCmd(opts),
		watchCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
