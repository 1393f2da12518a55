package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// buildSessionCmd creates the "session" command: a REPL that talks to a
// running agentcored server over its HTTP control plane and streams
// /reply SSE frames to the terminal, the interactive counterpart to the
// IDE binding's JSON-RPC prompt method (spec.md §6). The teacher's own
// cmd/nexus/commands_sessions.go is branch-management tooling over a
// remote channel API, not a chat REPL, so this loop is grounded instead
// on api_client.go's request plumbing plus handleReply's SSE frame
// vocabulary (message/thinking/tool_call/tool_result/usage/end/
// cancelled/error).
func buildSessionCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		secretKey  string
		workingDir string
		provider   string
		model      string
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Start an interactive REPL against a running agent session core",
		Long: `Open a new session on a running agentcored server and read
messages from stdin, streaming each turn's /reply SSE frames back to
the terminal. Type a message and press Enter to send it; an empty line
or Ctrl-D ends the REPL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), sessionOpts{
				configPath: configPath,
				addr:       addr,
				secretKey:  secretKey,
				workingDir: workingDir,
				provider:   provider,
				model:      model,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentcore.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "Server base URL (defaults to the config file's server.host:port)")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Auth secret (defaults to the config file's / GOOSE_SERVER__SECRET_KEY value)")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "Working directory for the new session")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name for the new session")
	cmd.Flags().StringVar(&model, "model", "", "Model name for the new session")
	return cmd
}

type sessionOpts struct {
	configPath string
	addr       string
	secretKey  string
	workingDir string
	provider   string
	model      string
}

func runSession(ctx context.Context, opts sessionOpts) error {
	baseURL, err := resolveBaseURL(opts.configPath, opts.addr)
	if err != nil {
		return internalError(err)
	}
	client := newAgentClient(baseURL, secretKeyFor(opts.configPath, opts.secretKey))

	var created struct {
		SessionID string `json:"id"`
	}
	createReq := map[string]any{
		"working_dir":   opts.workingDir,
		"provider_name": opts.provider,
	}
	if opts.model != "" {
		createReq["model_config"] = map[string]string{"model_name": opts.model}
	}
	if err := client.postJSON(ctx, "/sessions", createReq, &created); err != nil {
		return internalError(fmt.Errorf("create session: %w", err))
	}
	fmt.Printf("session %s (Ctrl-D to exit)\n", created.SessionID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return nil
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			return nil
		}

		replyReq := map[string]any{
			"session_id":   created.SessionID,
			"user_message": text,
		}
		if err := client.streamReply(ctx, replyReq, printReplyFrame); err != nil {
			fmt.Fprintf(os.Stderr, "reply failed: %v\n", err)
		}
	}
}

// printReplyFrame renders one SSE frame from handleReply's vocabulary to
// stdout; unrecognized frame kinds are printed as raw JSON rather than
// silently dropped, so a reader can see new frame kinds as they're added.
func printReplyFrame(kind string, data []byte) {
	switch kind {
	case "message", "thinking":
		var frame struct {
			Delta json.RawMessage `json:"delta"`
		}
		if err := json.Unmarshal(data, &frame); err == nil {
			fmt.Print(textFromPart(frame.Delta))
		}
	case "tool_call":
		var frame struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &frame); err == nil {
			fmt.Printf("\n[tool call: %s]\n", frame.Name)
		}
	case "tool_result":
		var frame struct {
			OK bool `json:"ok"`
		}
		if err := json.Unmarshal(data, &frame); err == nil {
			status := "ok"
			if !frame.OK {
				status = "error"
			}
			fmt.Printf("[tool result: %s]\n", status)
		}
	case "end":
		fmt.Println()
	case "cancelled":
		fmt.Println("\n[cancelled]")
	case "error":
		fmt.Printf("\n[error] %s\n", string(data))
	default:
		fmt.Printf("\n[%s] %s\n", kind, string(data))
	}
}

func textFromPart(raw json.RawMessage) string {
	var part struct {
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	}
	if err := json.Unmarshal(raw, &part); err != nil {
		return ""
	}
	if part.Text != "" {
		return part.Text
	}
	return part.Thinking
}
