// Package venice implements providers.LLMProvider against Venice AI's
// OpenAI-compatible proxy, mirroring the static-catalog-with-discovery
// pattern this module's teacher used for the same API.
package venice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	oai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/providers"
	"github.com/haasonsaas/agentcore/internal/providers/openai"
)

const (
	// BaseURL is Venice's OpenAI-compatible API endpoint.
	BaseURL = "https://api.venice.ai/api/v1"

	// DefaultModel is used when a request does not name one.
	DefaultModel = "llama-3.3-70b"
)

// CatalogEntry describes one Venice model's capabilities beyond what
// providers.ModelInfo carries: whether it runs fully private or is
// anonymized through Venice's proxy to a third-party backend, and
// whether it exposes reasoning/thinking output.
type CatalogEntry struct {
	providers.ModelInfo
	Privacy   string // "private" or "anonymized"
	Reasoning bool
}

// Catalog is the static fallback used when API discovery fails or no key
// is configured.
var Catalog = []CatalogEntry{
	{ModelInfo: providers.ModelInfo{ID: "llama-3.3-70b", ContextTokens: 131072, MaxOutput: 8192, SupportsTools: true}, Privacy: "private"},
	{ModelInfo: providers.ModelInfo{ID: "llama-3.2-3b", ContextTokens: 131072, MaxOutput: 8192, SupportsTools: true}, Privacy: "private"},
	{ModelInfo: providers.ModelInfo{ID: "qwen3-235b-a22b-thinking-2507", ContextTokens: 131072, MaxOutput: 8192, SupportsTools: true}, Privacy: "private", Reasoning: true},
	{ModelInfo: providers.ModelInfo{ID: "deepseek-v3.2", ContextTokens: 163840, MaxOutput: 8192, SupportsTools: true}, Privacy: "private", Reasoning: true},
	{ModelInfo: providers.ModelInfo{ID: "claude-opus-45", ContextTokens: 202752, MaxOutput: 8192, SupportsTools: true}, Privacy: "anonymized", Reasoning: true},
	{ModelInfo: providers.ModelInfo{ID: "openai-gpt-52", ContextTokens: 262144, MaxOutput: 8192, SupportsTools: true}, Privacy: "anonymized", Reasoning: true},
}

// Provider wraps an OpenAI-compatible client pointed at Venice's base URL.
type Provider struct {
	client       *oai.Client
	apiKey       string
	defaultModel string
	catalog      []CatalogEntry
}

// New builds a Venice provider. config["api_key"] is required;
// config["base_url"] overrides BaseURL; config["default_model"]
// overrides DefaultModel. The model catalog is discovered from Venice's
// /models endpoint at construction time, falling back to the static
// Catalog on any failure.
func New(config map[string]string) (providers.LLMProvider, error) {
	apiKey := config["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("venice: api_key is required")
	}
	baseURL := config["base_url"]
	if baseURL == "" {
		baseURL = BaseURL
	}
	defaultModel := config["default_model"]
	if defaultModel == "" {
		defaultModel = DefaultModel
	}

	clientConfig := oai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL

	p := &Provider{
		client:       oai.NewClientWithConfig(clientConfig),
		apiKey:       apiKey,
		defaultModel: defaultModel,
		catalog:      Catalog,
	}
	if discovered, err := DiscoverModels(context.Background(), apiKey, baseURL); err == nil {
		p.catalog = discovered
	}
	return p, nil
}

// Metadata implements providers.LLMProvider.
func (p *Provider) Metadata() providers.Metadata {
	return providers.Metadata{
		Name:              "venice",
		SupportsStreaming: true,
		SupportsTools:     true,
		SupportsVision:    true,
	}
}

// Models implements providers.LLMProvider.
func (p *Provider) Models() []providers.ModelInfo {
	out := make([]providers.ModelInfo, len(p.catalog))
	for i, entry := range p.catalog {
		out[i] = entry.ModelInfo
	}
	return out
}

// SupportsStreaming implements providers.LLMProvider.
func (p *Provider) SupportsStreaming(model string) bool {
	return true
}

// CompleteWithModel implements providers.LLMProvider by delegating to the
// OpenAI-compatible chat completion endpoint.
func (p *Provider) CompleteWithModel(ctx context.Context, req providers.Request) (convo.Message, providers.Usage, error) {
	chatReq, err := p.buildRequest(req)
	if err != nil {
		return convo.Message{}, providers.Usage{}, err
	}
	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return convo.Message{}, providers.Usage{}, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return convo.Message{}, providers.Usage{}, convo.NewError(convo.ErrorProviderProtocol, "venice: empty choices in response")
	}
	assistant := openai.FromMessage(resp.Choices[0].Message)
	usage := providers.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}.Normalize()
	return assistant, usage, nil
}

// Stream implements providers.LLMProvider by delegating to the
// OpenAI-compatible streaming endpoint; delta/tool-call accumulation
// mirrors the providers/openai package, since Venice speaks the same wire
// protocol through its proxy.
func (p *Provider) Stream(ctx context.Context, req providers.Request) (<-chan providers.StreamEvent, error) {
	chatReq, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}
	chatReq.Stream = true
	chatReq.StreamOptions = &oai.StreamOptions{IncludeUsage: true}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, wrapError(err)
	}

	events := make(chan providers.StreamEvent)
	go openai.RunStream(ctx, stream, events)
	return events, nil
}

func (p *Provider) buildRequest(req providers.Request) (oai.ChatCompletionRequest, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	messages, err := openai.ToMessages(req.Messages, req.System)
	if err != nil {
		return oai.ChatCompletionRequest{}, err
	}
	chatReq := oai.ChatCompletionRequest{Model: model, Messages: messages}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = openai.ToTools(req.Tools)
	}
	return chatReq, nil
}

// DiscoverModels fetches Venice's model list and merges it against
// Catalog for metadata, falling back to Catalog entirely on any
// transport or decode failure.
func DiscoverModels(ctx context.Context, apiKey, baseURL string) ([]CatalogEntry, error) {
	if apiKey == "" {
		return Catalog, nil
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return Catalog, nil
	}
	request.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpClient.Do(request)
	if err != nil {
		return Catalog, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Catalog, nil
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || len(result.Data) == 0 {
		return Catalog, nil
	}

	known := make(map[string]CatalogEntry, len(Catalog))
	for _, entry := range Catalog {
		known[entry.ID] = entry
	}

	merged := make([]CatalogEntry, 0, len(result.Data))
	for _, m := range result.Data {
		if entry, ok := known[m.ID]; ok {
			merged = append(merged, entry)
			continue
		}
		merged = append(merged, CatalogEntry{
			ModelInfo: providers.ModelInfo{ID: m.ID, ContextTokens: 32000, MaxOutput: 4096, SupportsTools: true},
			Privacy:   "private",
		})
	}
	return merged, nil
}

func wrapError(err error) error {
	return convo.NewError(convo.ErrorProviderRequest, err.Error())
}

func init() {
	providers.DefaultRegistry.Register("venice", New)
}
