// Package anthropic implements providers.LLMProvider against Anthropic's
// Messages API via the official github.com/anthropics/anthropic-sdk-go
// client, mirroring the request/response shaping goa-ai's model/anthropic
// feature uses for the same SDK.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/providers"
)

const defaultMaxTokens = 4096

// catalog is the set of models this provider advertises; pricing and
// context limits beyond what's listed here are resolved through the
// Canonical Model Registry, not duplicated here.
var catalog = []providers.ModelInfo{
	{ID: "claude-opus-4-20250514", ContextTokens: 200000, MaxOutput: 32000, SupportsTools: true},
	{ID: "claude-sonnet-4-20250514", ContextTokens: 200000, MaxOutput: 64000, SupportsTools: true},
	{ID: "claude-3-5-haiku-20241022", ContextTokens: 200000, MaxOutput: 8192, SupportsTools: true},
}

// Provider wraps an *sdk.Client to implement providers.LLMProvider.
type Provider struct {
	client sdk.Client
}

// New builds an Anthropic provider. config["api_key"] is required;
// config["base_url"] overrides the default endpoint (used for proxies).
func New(config map[string]string) (providers.LLMProvider, error) {
	apiKey := config["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: api_key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := config["base_url"]; base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &Provider{client: sdk.NewClient(opts...)}, nil
}

// Metadata implements providers.LLMProvider.
func (p *Provider) Metadata() providers.Metadata {
	return providers.Metadata{
		Name:              "anthropic",
		SupportsStreaming: true,
		SupportsTools:     true,
		SupportsVision:    true,
	}
}

// Models implements providers.LLMProvider.
func (p *Provider) Models() []providers.ModelInfo {
	return catalog
}

// SupportsStreaming implements providers.LLMProvider; every Anthropic
// chat model supports streaming.
func (p *Provider) SupportsStreaming(model string) bool {
	return true
}

// CompleteWithModel implements providers.LLMProvider.
func (p *Provider) CompleteWithModel(ctx context.Context, req providers.Request) (convo.Message, providers.Usage, error) {
	params, err := buildParams(req)
	if err != nil {
		return convo.Message{}, providers.Usage{}, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return convo.Message{}, providers.Usage{}, wrapError(err)
	}

	assistant, convErr := toAssistantMessage(msg)
	if convErr != nil {
		return convo.Message{}, providers.Usage{}, convErr
	}
	usage := toUsage(msg.Usage).Normalize()
	return assistant, usage, nil
}

// Stream implements providers.LLMProvider, forwarding text/thinking deltas
// as they arrive and emitting the assembled message plus usage as the
// terminal frame, per spec.md §4.3's streaming protocol.
func (p *Provider) Stream(ctx context.Context, req providers.Request) (<-chan providers.StreamEvent, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	events := make(chan providers.StreamEvent)

	go func() {
		defer close(events)

		acc := sdk.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				events <- providers.StreamEvent{Err: wrapError(err)}
				return
			}

			switch delta := event.AsAny().(type) {
			case sdk.ContentBlockDeltaEvent:
				switch d := delta.Delta.AsAny().(type) {
				case sdk.TextDelta:
					part := convo.NewText(d.Text)
					events <- providers.StreamEvent{Delta: &part}
				case sdk.ThinkingDelta:
					part := convo.NewThinking(d.Thinking, "")
					events <- providers.StreamEvent{Delta: &part}
				}
			}
		}
		if err := stream.Err(); err != nil {
			events <- providers.StreamEvent{Err: wrapError(err)}
			return
		}

		assistant, convErr := toAssistantMessage(&acc)
		if convErr != nil {
			events <- providers.StreamEvent{Err: convErr}
			return
		}
		usage := toUsage(acc.Usage).Normalize()
		events <- providers.StreamEvent{Message: &assistant, Usage: &usage}
	}()

	return events, nil
}

func buildParams(req providers.Request) (sdk.MessageNewParams, error) {
	model, _ := providers.SplitReasoningEffort(req.Model)

	messages, err := toSDKMessages(req.Messages)
	if err != nil {
		return sdk.MessageNewParams{}, err
	}

	maxTokens := int64(defaultMaxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		tools, err := toSDKTools(req.Tools)
		if err != nil {
			return sdk.MessageNewParams{}, err
		}
		params.Tools = tools
	}
	return params, nil
}

func toSDKMessages(messages []convo.Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, msg := range messages {
		blocks, err := toSDKBlocks(msg.Content)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == convo.RoleUser {
			out = append(out, sdk.NewUserMessage(blocks...))
		} else {
			out = append(out, sdk.NewAssistantMessage(blocks...))
		}
	}
	return out, nil
}

func toSDKBlocks(parts []convo.Part) ([]sdk.ContentBlockParamUnion, error) {
	blocks := make([]sdk.ContentBlockParamUnion, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case convo.PartText:
			blocks = append(blocks, sdk.NewTextBlock(part.Text))
		case convo.PartThinking:
			// Thinking blocks are provider output, not resent verbatim on
			// the next turn; represented here only so a round trip through
			// the transcript doesn't panic on an unhandled part type.
			blocks = append(blocks, sdk.NewTextBlock(part.Thinking))
		case convo.PartImage:
			mediaType, ok := imageMediaType(part.MimeType)
			if !ok {
				continue
			}
			blocks = append(blocks, sdk.ContentBlockParamUnion{
				OfImage: &sdk.ImageBlockParam{
					Source: sdk.ImageBlockParamSourceUnion{
						OfBase64: &sdk.Base64ImageSourceParam{
							Data:      part.ImageData,
							MediaType: mediaType,
						},
					},
				},
			})
		case convo.PartToolRequest:
			if part.ToolCall == nil {
				continue
			}
			blocks = append(blocks, sdk.NewToolUseBlock(part.ID, part.ToolCall.Arguments, part.ToolCall.Name))
		case convo.PartToolResponse:
			content := convo.TextContent(part.ResponseContent)
			isError := part.ResponseErr != nil
			if isError {
				content = part.ResponseErr.Message
			}
			blocks = append(blocks, sdk.NewToolResultBlock(part.ID, content, isError))
		}
	}
	return blocks, nil
}

func imageMediaType(mimeType string) (sdk.Base64ImageSourceMediaType, bool) {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return sdk.Base64ImageSourceMediaTypeImageJPEG, true
	case "image/png":
		return sdk.Base64ImageSourceMediaTypeImagePNG, true
	case "image/gif":
		return sdk.Base64ImageSourceMediaTypeImageGIF, true
	case "image/webp":
		return sdk.Base64ImageSourceMediaTypeImageWebP, true
	default:
		return "", false
	}
}

func toSDKTools(tools []convo.Tool) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		schema := sdk.ToolInputSchemaParam{ExtraFields: tool.InputSchema}
		u := sdk.ToolUnionParamOfTool(schema, tool.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(tool.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

// toAssistantMessage normalizes an SDK response into convo's part
// ordering: text/thinking parts first, then tool_request parts, per
// spec.md §4.3.
func toAssistantMessage(msg *sdk.Message) (convo.Message, error) {
	var textParts, toolParts []convo.Part
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				textParts = append(textParts, convo.NewText(block.Text))
			}
		case "thinking":
			textParts = append(textParts, convo.NewThinking(block.Thinking, block.Signature))
		case "tool_use":
			args, err := decodeToolInput(block.Input)
			if err != nil {
				toolParts = append(toolParts, convo.NewToolRequestError(block.ID, convo.ErrorInvalidToolArguments))
				continue
			}
			toolParts = append(toolParts, convo.NewToolRequest(block.ID, convo.ToolCall{Name: block.Name, Arguments: args}))
		}
	}
	return convo.Message{Role: convo.RoleAssistant, Content: append(textParts, toolParts...)}, nil
}

func decodeToolInput(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func toUsage(u sdk.Usage) providers.Usage {
	return providers.Usage{
		InputTokens:  int(u.InputTokens),
		OutputTokens: int(u.OutputTokens),
		CachedTokens: int(u.CacheReadInputTokens),
	}
}

func wrapError(err error) error {
	return convo.NewError(convo.ErrorProviderRequest, err.Error())
}

func init() {
	providers.DefaultRegistry.Register("anthropic", New)
}
