package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/agentcore/internal/autopilot"
	"github.com/haasonsaas/agentcore/internal/config"
	"github.com/haasonsaas/agentcore/internal/mcp"
	"github.com/haasonsaas/agentcore/internal/observability"
	"github.com/haasonsaas/agentcore/internal/policy"
	"github.com/haasonsaas/agentcore/internal/providers"
	"github.com/haasonsaas/agentcore/internal/sessionmgr"
	"github.com/haasonsaas/agentcore/internal/transport"
	"github.com/haasonsaas/agentcore/internal/turn"

	// Provider factories self-register into providers.DefaultRegistry
	// from their own init(), the same name->factory wiring spec.md §4.3
	// and §9 describe ("provider lookup is by name, never by compiled-in
	// switch").
	_ "github.com/haasonsaas/agentcore/internal/providers/anthropic"
	_ "github.com/haasonsaas/agentcore/internal/providers/bedrock"
	_ "github.com/haasonsaas/agentcore/internal/providers/openai"
	_ "github.com/haasonsaas/agentcore/internal/providers/venice"
)

// buildAgentCmd creates the "agent" command that runs the server, the
// CLI surface's primary subcommand per spec.md §6.
func buildAgentCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the agent session core server",
		Long: `Run the agent session core server: HTTP control plane, SSE reply
stream, and JSON-RPC IDE binding (spec.md §6).

The server reads its listen port and auth secret from the config file and
the GOOSE_PORT/GOOSE_SERVER__SECRET_KEY environment variables, refusing to
start without a secret. Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentcore.yaml", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func runAgent(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return internalError(fmt.Errorf("load config: %w", err))
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	format := observability.LogFormatJSON
	logger := observability.NewLogger(format, debug)
	slog.SetDefault(logger)

	logger.Info("starting agent session core", "version", version, "commit", commit, "config", configPath)

	mcpManager := mcp.NewManager()
	policyManager := policy.NewManager()
	sessions := sessionmgr.NewManager(sessionmgr.NewMemoryStore(), mcpManager, policyManager, providers.DefaultRegistry, cfg.Session.Capacity)

	driverCfg := turn.DefaultConfig()
	driverCfg.Mode = config.ModeFor(cfg.Mode)
	driver := turn.NewDriver(sessions, driverCfg)

	rules := make([]autopilot.Rule, 0, len(cfg.Autopilot))
	for _, ruleCfg := range cfg.Autopilot {
		rules = append(rules, ruleCfg.ToRule())
	}

	metrics := observability.NewMetrics("agentcore")
	server := transport.NewServer(cfg.Server, sessions, driver, metrics, logger, rules)

	if err := server.Start(); err != nil {
		return internalError(fmt.Errorf("start server: %w", err))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down agent session core")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Session.TurnTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return internalError(fmt.Errorf("shutdown: %w", err))
	}
	return cancelledError(ctx.Err())
}
