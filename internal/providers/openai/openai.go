// Package openai implements providers.LLMProvider against OpenAI's Chat
// Completions API via github.com/sashabaranov/go-openai, mirroring the
// retry-with-backoff and delta tool-call accumulation this module's
// teacher used for the same client.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	oai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/providers"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

var catalog = []providers.ModelInfo{
	{ID: "gpt-4o", ContextTokens: 128000, MaxOutput: 16384, SupportsTools: true},
	{ID: "gpt-4-turbo", ContextTokens: 128000, MaxOutput: 4096, SupportsTools: true},
	{ID: "gpt-3.5-turbo", ContextTokens: 16385, MaxOutput: 4096, SupportsTools: true},
	{ID: "o1", ContextTokens: 200000, MaxOutput: 100000, SupportsTools: true},
	{ID: "o3-mini", ContextTokens: 200000, MaxOutput: 100000, SupportsTools: true},
}

// Provider wraps an *oai.Client to implement providers.LLMProvider.
type Provider struct {
	client     *oai.Client
	maxRetries int
	retryDelay time.Duration
}

// New builds an OpenAI provider. config["api_key"] is required;
// config["base_url"] overrides the default endpoint.
func New(config map[string]string) (providers.LLMProvider, error) {
	apiKey := config["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api_key is required")
	}
	clientConfig := oai.DefaultConfig(apiKey)
	if base := config["base_url"]; base != "" {
		clientConfig.BaseURL = base
	}
	return &Provider{
		client:     oai.NewClientWithConfig(clientConfig),
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}, nil
}

// Metadata implements providers.LLMProvider.
func (p *Provider) Metadata() providers.Metadata {
	return providers.Metadata{
		Name:              "openai",
		SupportsStreaming: true,
		SupportsTools:     true,
		SupportsVision:    true,
	}
}

// Models implements providers.LLMProvider.
func (p *Provider) Models() []providers.ModelInfo {
	return catalog
}

// SupportsStreaming implements providers.LLMProvider.
func (p *Provider) SupportsStreaming(model string) bool {
	return true
}

// CompleteWithModel implements providers.LLMProvider via a non-streaming
// chat completion.
func (p *Provider) CompleteWithModel(ctx context.Context, req providers.Request) (convo.Message, providers.Usage, error) {
	chatReq, err := buildRequest(req)
	if err != nil {
		return convo.Message{}, providers.Usage{}, err
	}

	resp, err := p.createWithRetry(ctx, chatReq)
	if err != nil {
		return convo.Message{}, providers.Usage{}, wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return convo.Message{}, providers.Usage{}, convo.NewError(convo.ErrorProviderProtocol, "openai: empty choices in response")
	}

	assistant := FromMessage(resp.Choices[0].Message)
	usage := providers.Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}.Normalize()
	return assistant, usage, nil
}

// Stream implements providers.LLMProvider, handing the stream to RunStream,
// which accumulates per-index tool call delta fragments and forwards text
// deltas as they arrive.
func (p *Provider) Stream(ctx context.Context, req providers.Request) (<-chan providers.StreamEvent, error) {
	chatReq, err := buildRequest(req)
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
	go RunStream(ctx, stream, events)
	return events, nil
}

type pendingToolCall struct {
	id   string
	name string
	args strings.Builder
}

func RunStream(ctx context.Context, stream *oai.ChatCompletionStream, events chan<- providers.StreamEvent) {
	defer close(events)
	defer stream.Close()

	var textParts []convo.Part
	var textBuilder strings.Builder
	toolCalls := make(map[int]*pendingToolCall)
	var usage providers.Usage

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			events <- providers.StreamEvent{Err: wrapError(err)}
			return
		}
		if resp.Usage != nil {
			usage = providers.Usage{
				InputTokens:  resp.Usage.PromptTokens,
				OutputTokens: resp.Usage.CompletionTokens,
				TotalTokens:  resp.Usage.TotalTokens,
			}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			textBuilder.WriteString(delta.Content)
			part := convo.NewText(delta.Content)
			events <- providers.StreamEvent{Delta: &part}
		}
		for _, tc := range delta.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			pending, ok := toolCalls[index]
			if !ok {
				pending = &pendingToolCall{}
				toolCalls[index] = pending
			}
			if tc.ID != "" {
				pending.id = tc.ID
			}
			if tc.Function.Name != "" {
				pending.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				pending.args.WriteString(tc.Function.Arguments)
			}
		}

		select {
		case <-ctx.Done():
			events <- providers.StreamEvent{Err: ctx.Err()}
			return
		default:
		}
	}

	if textBuilder.Len() > 0 {
		textParts = []convo.Part{convo.NewText(textBuilder.String())}
	}
	toolParts := make([]convo.Part, 0, len(toolCalls))
	for i := 0; i < len(toolCalls); i++ {
		pending, ok := toolCalls[i]
		if !ok || pending.id == "" || pending.name == "" {
			continue
		}
		toolParts = append(toolParts, decodeToolCall(pending))
	}

	assistant := convo.Message{Role: convo.RoleAssistant, Content: append(textParts, toolParts...)}
	normalized := usage.Normalize()
	events <- providers.StreamEvent{Message: &assistant, Usage: &normalized}
}

func decodeToolCall(pending *pendingToolCall) convo.Part {
	var args map[string]any
	if err := json.Unmarshal([]byte(pending.args.String()), &args); err != nil {
		return convo.NewToolRequestError(pending.id, convo.ErrorInvalidToolArguments)
	}
	return convo.NewToolRequest(pending.id, convo.ToolCall{Name: pending.name, Arguments: args})
}

func (p *Provider) createWithRetry(ctx context.Context, req oai.ChatCompletionRequest) (oai.ChatCompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return oai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return oai.ChatCompletionResponse{}, err
		}
	}
	return oai.ChatCompletionResponse{}, lastErr
}

func buildRequest(req providers.Request) (oai.ChatCompletionRequest, error) {
	model, _ := providers.SplitReasoningEffort(req.Model)
	messages, err := ToMessages(req.Messages, req.System)
	if err != nil {
		return oai.ChatCompletionRequest{}, err
	}
	chatReq := oai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = ToTools(req.Tools)
	}
	return chatReq, nil
}

func ToMessages(messages []convo.Message, system string) ([]oai.ChatCompletionMessage, error) {
	out := make([]oai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, oai.ChatCompletionMessage{Role: oai.ChatMessageRoleSystem, Content: system})
	}

	for _, msg := range messages {
		role := oai.ChatMessageRoleUser
		if msg.Role == convo.RoleAssistant {
			role = oai.ChatMessageRoleAssistant
		}

		var toolResults []convo.Part
		var toolCalls []oai.ToolCall
		var text strings.Builder
		var multiContent []oai.ChatMessagePart

		for _, part := range msg.Content {
			switch part.Type {
			case convo.PartText:
				text.WriteString(part.Text)
			case convo.PartImage:
				multiContent = append(multiContent, oai.ChatMessagePart{
					Type: oai.ChatMessagePartTypeImageURL,
					ImageURL: &oai.ChatMessageImageURL{
						URL:    "data:" + part.MimeType + ";base64," + part.ImageData,
						Detail: oai.ImageURLDetailAuto,
					},
				})
			case convo.PartToolRequest:
				if part.ToolCall == nil {
					continue
				}
				args, marshalErr := json.Marshal(part.ToolCall.Arguments)
				if marshalErr != nil {
					return nil, marshalErr
				}
				toolCalls = append(toolCalls, oai.ToolCall{
					ID:   part.ID,
					Type: oai.ToolTypeFunction,
					Function: oai.FunctionCall{
						Name:      part.ToolCall.Name,
						Arguments: string(args),
					},
				})
			case convo.PartToolResponse:
				toolResults = append(toolResults, part)
			}
		}

		if len(toolResults) > 0 {
			for _, part := range toolResults {
				content := convo.TextContent(part.ResponseContent)
				if part.ResponseErr != nil {
					content = part.ResponseErr.Message
				}
				out = append(out, oai.ChatCompletionMessage{
					Role:       oai.ChatMessageRoleTool,
					Content:    content,
					ToolCallID: part.ID,
				})
			}
			continue
		}

		oaiMsg := oai.ChatCompletionMessage{Role: role}
		if len(multiContent) > 0 {
			if text.Len() > 0 {
				multiContent = append([]oai.ChatMessagePart{{Type: oai.ChatMessagePartTypeText, Text: text.String()}}, multiContent...)
			}
			oaiMsg.MultiContent = multiContent
		} else {
			oaiMsg.Content = text.String()
		}
		if len(toolCalls) > 0 {
			oaiMsg.ToolCalls = toolCalls
		}
		out = append(out, oaiMsg)
	}
	return out, nil
}

func ToTools(tools []convo.Tool) []oai.Tool {
	out := make([]oai.Tool, len(tools))
	for i, tool := range tools {
		out[i] = oai.Tool{
			Type: oai.ToolTypeFunction,
			Function: &oai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		}
	}
	return out
}

func FromMessage(msg oai.ChatCompletionMessage) convo.Message {
	var parts []convo.Part
	if msg.Content != "" {
		parts = append(parts, convo.NewText(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			parts = append(parts, convo.NewToolRequestError(tc.ID, convo.ErrorInvalidToolArguments))
			continue
		}
		parts = append(parts, convo.NewToolRequest(tc.ID, convo.ToolCall{Name: tc.Function.Name, Arguments: args}))
	}
	return convo.Message{Role: convo.RoleAssistant, Content: parts}
}

func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func wrapError(err error) error {
	return convo.NewError(convo.ErrorProviderRequest, err.Error())
}

func init() {
	providers.DefaultRegistry.Register("openai", New)
}
