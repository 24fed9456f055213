// root.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shareform",
	Short: "shareform keeps form fields in sync across browsers and terminals",
	Long: `shareform relays debounced form edits between peers over a WebSocket.
Run "serve" for the relay and form page, or "peer" to join a form from a terminal.`,
	SilenceUsage: true,
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("schema", "", "YAML form schema (overrides SCHEMA_PATH)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file read before the environment")
}
