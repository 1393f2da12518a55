// Package bedrock implements providers.LLMProvider against AWS Bedrock's
// Converse/ConverseStream APIs via aws-sdk-go-v2, mirroring the event
// handling this module's teacher used for the same client. Errors are
// wrapped and returned; the package does not retry.
package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/providers"
)

const defaultRegion = "us-east-1"

var catalog = []providers.ModelInfo{
	{ID: "anthropic.claude-3-opus-20240229-v1:0", ContextTokens: 200000, SupportsTools: true},
	{ID: "anthropic.claude-3-sonnet-20240229-v1:0", ContextTokens: 200000, SupportsTools: true},
	{ID: "anthropic.claude-3-haiku-20240307-v1:0", ContextTokens: 200000, SupportsTools: true},
	{ID: "amazon.titan-text-express-v1", ContextTokens: 8192, SupportsTools: false},
	{ID: "meta.llama3-70b-instruct-v1:0", ContextTokens: 8192, SupportsTools: false},
	{ID: "mistral.mixtral-8x7b-instruct-v0:1", ContextTokens: 32768, SupportsTools: false},
	{ID: "cohere.command-r-plus-v1:0", ContextTokens: 128000, SupportsTools: false},
}

// Provider wraps a *bedrockruntime.Client to implement providers.LLMProvider.
type Provider struct {
	client       *bedrockruntime.Client
	defaultModel string
}

// New builds a Bedrock provider. config["region"] defaults to us-east-1;
// config["access_key_id"]/["secret_access_key"]/["session_token"] supply
// explicit credentials, otherwise the default AWS credential chain (env,
// IAM role) is used.
func New(config_ map[string]string) (providers.LLMProvider, error) {
	region := config_["region"]
	if region == "" {
		region = defaultRegion
	}
	defaultModel := config_["default_model"]
	if defaultModel == "" {
		defaultModel = "anthropic.claude-3-sonnet-20240229-v1:0"
	}

	var awsCfg aws.Config
	var err error
	if accessKey, secretKey := config_["access_key_id"], config_["secret_access_key"]; accessKey != "" && secretKey != "" {
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, config_["session_token"])),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	}
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	return &Provider{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: defaultModel,
	}, nil
}

// Metadata implements providers.LLMProvider.
func (p *Provider) Metadata() providers.Metadata {
	return providers.Metadata{
		Name:              "bedrock",
		SupportsStreaming: true,
		SupportsTools:     true,
		SupportsVision:    true,
	}
}

// Models implements providers.LLMProvider.
func (p *Provider) Models() []providers.ModelInfo {
	return catalog
}

// SupportsStreaming implements providers.LLMProvider; every Converse-API
// model on Bedrock supports streaming.
func (p *Provider) SupportsStreaming(model string) bool {
	return true
}

// CompleteWithModel implements providers.LLMProvider via a non-streaming
// Converse call.
func (p *Provider) CompleteWithModel(ctx context.Context, req providers.Request) (convo.Message, providers.Usage, error) {
	input, err := buildInput(req, p.defaultModel)
	if err != nil {
		return convo.Message{}, providers.Usage{}, err
	}

	converseInput := &bedrockruntime.ConverseInput{
		ModelId:         input.ModelId,
		Messages:        input.Messages,
		System:          input.System,
		InferenceConfig: input.InferenceConfig,
		ToolConfig:      input.ToolConfig,
	}
	out, err := p.client.Converse(ctx, converseInput)
	if err != nil {
		return convo.Message{}, providers.Usage{}, wrapError(err)
	}

	output, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return convo.Message{}, providers.Usage{}, convo.NewError(convo.ErrorProviderProtocol, "bedrock: response carried no message")
	}
	assistant := toAssistantMessage(output.Value.Content)

	usage := providers.Usage{}
	if out.Usage != nil {
		usage = providers.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:  int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}
	return assistant, usage.Normalize(), nil
}

// Stream implements providers.LLMProvider via ConverseStream, forwarding
// text deltas and assembling tool_use blocks from their input-JSON
// fragments as the teacher's processStream did.
func (p *Provider) Stream(ctx context.Context, req providers.Request) (<-chan providers.StreamEvent, error) {
	input, err := buildInput(req, p.defaultModel)
	if err != nil {
		return nil, err
	}

	streamInput := &bedrockruntime.ConverseStreamInput{
		ModelId:         input.ModelId,
		Messages:        input.Messages,
		System:          input.System,
		InferenceConfig: input.InferenceConfig,
		ToolConfig:      input.ToolConfig,
	}
	out, err := p.client.ConverseStream(ctx, streamInput)
	if err != nil {
		return nil, wrapError(err)
	}

	events := make(chan providers.StreamEvent)
	go p.runStream(ctx, out, events)
	return events, nil
}

type convertedInput struct {
	ModelId         *string
	Messages        []types.Message
	System          []types.SystemContentBlock
	InferenceConfig *types.InferenceConfiguration
	ToolConfig      *types.ToolConfiguration
}

func buildInput(req providers.Request, defaultModel string) (*convertedInput, error) {
	model, _ := providers.SplitReasoningEffort(req.Model)
	if model == "" {
		model = defaultModel
	}

	messages, err := toBedrockMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	input := &convertedInput{ModelId: aws.String(model), Messages: messages}
	if req.System != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: req.System}}
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig = &types.InferenceConfiguration{MaxTokens: aws.Int32(int32(req.MaxTokens))}
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = toBedrockTools(req.Tools)
	}
	return input, nil
}

func toBedrockTools(tools []convo.Tool) *types.ToolConfiguration {
	specs := make([]types.Tool, 0, len(tools))
	for _, tool := range tools {
		specs = append(specs, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Name),
				Description: aws.String(tool.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(tool.InputSchema)},
			},
		})
	}
	return &types.ToolConfiguration{Tools: specs}
}

func toBedrockMessages(messages []convo.Message) ([]types.Message, error) {
	out := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		var content []types.ContentBlock
		for _, part := range msg.Content {
			switch part.Type {
			case convo.PartText:
				if part.Text != "" {
					content = append(content, &types.ContentBlockMemberText{Value: part.Text})
				}
			case convo.PartImage:
				format, ok := bedrockImageFormat(part.MimeType)
				if !ok {
					continue
				}
				data, err := decodeBase64(part.ImageData)
				if err != nil {
					return nil, err
				}
				content = append(content, &types.ContentBlockMemberImage{
					Value: types.ImageBlock{Format: format, Source: &types.ImageSourceMemberBytes{Value: data}},
				})
			case convo.PartToolRequest:
				if part.ToolCall == nil {
					continue
				}
				content = append(content, &types.ContentBlockMemberToolUse{
					Value: types.ToolUseBlock{
						ToolUseId: aws.String(part.ID),
						Name:      aws.String(part.ToolCall.Name),
						Input:     document.NewLazyDocument(part.ToolCall.Arguments),
					},
				})
			case convo.PartToolResponse:
				text := convo.TextContent(part.ResponseContent)
				if part.ResponseErr != nil {
					text = part.ResponseErr.Message
				}
				content = append(content, &types.ContentBlockMemberToolResult{
					Value: types.ToolResultBlock{
						ToolUseId: aws.String(part.ID),
						Content:   []types.ToolResultContentBlock{&types.ToolResultContentBlockMemberText{Value: text}},
					},
				})
			}
		}
		if len(content) == 0 {
			continue
		}
		role := types.ConversationRoleUser
		if msg.Role == convo.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		out = append(out, types.Message{Role: role, Content: content})
	}
	return out, nil
}

func toAssistantMessage(content []types.ContentBlock) convo.Message {
	var parts []convo.Part
	for _, block := range content {
		switch v := block.(type) {
		case *types.ContentBlockMemberText:
			parts = append(parts, convo.NewText(v.Value))
		case *types.ContentBlockMemberToolUse:
			args, err := decodeDocument(v.Value.Input)
			if err != nil {
				parts = append(parts, convo.NewToolRequestError(aws.ToString(v.Value.ToolUseId), convo.ErrorInvalidToolArguments))
				continue
			}
			parts = append(parts, convo.NewToolRequest(aws.ToString(v.Value.ToolUseId), convo.ToolCall{Name: aws.ToString(v.Value.Name), Arguments: args}))
		}
	}
	return convo.Message{Role: convo.RoleAssistant, Content: parts}
}

func decodeDocument(doc document.Interface) (map[string]any, error) {
	if doc == nil {
		return map[string]any{}, nil
	}
	raw, err := doc.MarshalSmithyDocument()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Provider) runStream(ctx context.Context, stream *bedrockruntime.ConverseStreamOutput, events chan<- providers.StreamEvent) {
	defer close(events)
	eventStream := stream.GetStream()
	defer eventStream.Close()

	var textParts []convo.Part
	var toolParts []convo.Part
	var currentToolID, currentToolName string
	var toolInput strings.Builder
	usage := providers.Usage{}

	eventChan := eventStream.Events()
	for {
		select {
		case <-ctx.Done():
			events <- providers.StreamEvent{Err: ctx.Err()}
			return
		case event, ok := <-eventChan:
			if !ok {
				if currentToolID != "" {
					toolParts = append(toolParts, decodeStreamedTool(currentToolID, currentToolName, toolInput.String()))
				}
				if err := eventStream.Err(); err != nil {
					events <- providers.StreamEvent{Err: wrapError(err)}
					return
				}
				assistant := convo.Message{Role: convo.RoleAssistant, Content: append(textParts, toolParts...)}
				normalized := usage.Normalize()
				events <- providers.StreamEvent{Message: &assistant, Usage: &normalized}
				return
			}

			switch ev := event.(type) {
			case *types.ConverseStreamOutputMemberContentBlockStart:
				if toolUse, ok := ev.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
					currentToolID = aws.ToString(toolUse.Value.ToolUseId)
					currentToolName = aws.ToString(toolUse.Value.Name)
					toolInput.Reset()
				}
			case *types.ConverseStreamOutputMemberContentBlockDelta:
				switch delta := ev.Value.Delta.(type) {
				case *types.ContentBlockDeltaMemberText:
					if delta.Value != "" {
						part := convo.NewText(delta.Value)
						textParts = append(textParts, part)
						events <- providers.StreamEvent{Delta: &part}
					}
				case *types.ContentBlockDeltaMemberToolUse:
					if delta.Value.Input != nil {
						toolInput.WriteString(*delta.Value.Input)
					}
				}
			case *types.ConverseStreamOutputMemberContentBlockStop:
				if currentToolID != "" {
					toolParts = append(toolParts, decodeStreamedTool(currentToolID, currentToolName, toolInput.String()))
					currentToolID = ""
					toolInput.Reset()
				}
			case *types.ConverseStreamOutputMemberMetadata:
				if ev.Value.Usage != nil {
					usage = providers.Usage{
						InputTokens:  int(aws.ToInt32(ev.Value.Usage.InputTokens)),
						OutputTokens: int(aws.ToInt32(ev.Value.Usage.OutputTokens)),
						TotalTokens:  int(aws.ToInt32(ev.Value.Usage.TotalTokens)),
					}
				}
			}
		}
	}
}

func decodeStreamedTool(id, name, rawInput string) convo.Part {
	var args map[string]any
	if rawInput == "" {
		args = map[string]any{}
	} else if err := json.Unmarshal([]byte(rawInput), &args); err != nil {
		return convo.NewToolRequestError(id, convo.ErrorInvalidToolArguments)
	}
	return convo.NewToolRequest(id, convo.ToolCall{Name: name, Arguments: args})
}

func decodeBase64(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}

func bedrockImageFormat(mimeType string) (types.ImageFormat, bool) {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return types.ImageFormatPng, true
	case "image/jpeg", "image/jpg":
		return types.ImageFormatJpeg, true
	case "image/gif":
		return types.ImageFormatGif, true
	case "image/webp":
		return types.ImageFormatWebp, true
	default:
		return "", false
	}
}

func wrapError(err error) error {
	return convo.NewError(convo.ErrorProviderRequest, err.Error())
}

func init() {
	providers.DefaultRegistry.Register("bedrock", New)
}
