// Package main is the CLI entry point for the agent session core's server
// and interactive client.
//
// # Basic Usage
//
// Start the server:
//
//	agentcored agent --config agentcore.yaml
//
// Talk to a running server from an interactive REPL:
//
//	agentcored session --addr http://localhost:3000
//
// # Environment Variables
//
//   - GOOSE_PORT: listen port
//   - GOOSE_SERVER__SECRET_KEY: auth secret, required at startup
//   - ANTHROPIC_API_KEY, OPENAI_API_KEY, VENICE_API_KEY: provider credentials
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

// run builds and executes the root command, translating errors into the
// exit codes spec.md §6's CLI surface names: 0 normal, 1 user error, 2
// unrecoverable internal error, 130 cancelled.
func run() int {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		if code, ok := exitCodeFor(err); ok {
			return code
		}
		return 1
	}
	return 0
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "agentcored",
		Short:         "Agent session core — server and interactive client",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(buildAgentCmd(), buildSessionCmd())
	return cmd
}
