package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/haasonsaas/agentcore/internal/config"
)

// agentClient talks to a running agentcored server over the HTTP control
// plane (spec.md §6), grounded on the teacher's cmd/nexus/api_client.go
// apiClient: same secret-header auth and getJSON/postJSON shape, adapted
// to this server's single static secret key instead of the teacher's
// bearer-token-plus-API-key pair.
type agentClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func newAgentClient(baseURL, secretKey string) *agentClient {
	return &agentClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 0, // SSE streams stay open for the life of a turn
		},
	}
}

func (c *agentClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(path, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *agentClient) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(path, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// streamReply opens "POST /reply" (spec.md §6) and invokes onEvent for
// every "event: <kind>\ndata: <json>\n\n" frame until the stream closes,
// grounded on the same request/response shape handleReply writes.
func (c *agentClient) streamReply(ctx context.Context, payload any, onEvent func(kind string, data []byte)) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reply", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus("/reply", resp); err != nil {
		return err
	}

	reader := bufio.NewReader(resp.Body)
	var kind string
	for {
		line, err := reader.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(trimmed, "event: "):
			kind = strings.TrimPrefix(trimmed, "event: ")
		case strings.HasPrefix(trimmed, "data: "):
			onEvent(kind, []byte(strings.TrimPrefix(trimmed, "data: ")))
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (c *agentClient) setAuth(req *http.Request) {
	if c.secretKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
	}
}

func checkStatus(path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if len(body) > 0 {
		return fmt.Errorf("request %s failed: %s (%s)", path, resp.Status, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("request %s failed: %s", path, resp.Status)
}

// resolveBaseURL mirrors the teacher's resolveHTTPBaseURL: an explicit
// --addr flag wins, otherwise the listen address is read from the same
// config file the server itself loads.
func resolveBaseURL(configPath, addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		host := cfg.Server.Host
		if host == "" {
			host = "localhost"
		}
		port := cfg.Server.Port
		if port == 0 {
			port = 3000
		}
		addr = fmt.Sprintf("%s:%d", host, port)
	}
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/"), nil
	}
	return "http://" + strings.TrimRight(addr, "/"), nil
}

// secretKeyFor resolves the secret key the client should present,
// preferring an explicit flag/env value over the config file's
// (a client run against a remote server won't have the server's config
// file at all, hence the separate GOOSE_SERVER__SECRET_KEY lookup).
func secretKeyFor(configPath, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg, err := config.Load(configPath); err == nil {
		cfg.ApplyEnv()
		return cfg.Server.SecretKey
	}
	return ""
}
