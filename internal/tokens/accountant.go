// Package tokens is the Token Accountant (spec.md §4.2): it counts tokens
// for plain text, tool schemas, and full chat requests against a model's
// tokenizer, and exposes the count a caller compares to a context limit
// before issuing a provider request.
package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/haasonsaas/agentcore/internal/convo"
)

// encodingForModel maps a canonical or provider-reported model name to a
// tiktoken encoding name. Anthropic and Google models have no public
// tokenizer; cl100k_base is used as the nearest stand-in, matching the
// accounting convention of "reproduce the source's openai-family
// accounting" for non-OpenAI providers.
func encodingForModel(model string) string {
	switch {
	case hasAnyPrefix(model, "gpt-4o", "o1", "o3", "o4"):
		return "o200k_base"
	case hasAnyPrefix(model, "gpt-4", "gpt-3.5", "text-embedding"):
		return "cl100k_base"
	default:
		return "cl100k_base"
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

// encodingCache is process-wide and concurrent-safe: loading a tiktoken
// encoding parses a multi-megabyte BPE rank file, so every Accountant for
// the same model shares one loaded *tiktoken.Tiktoken rather than paying
// that cost per session.
var (
	encodingCache   = map[string]*tiktoken.Tiktoken{}
	encodingCacheMu sync.RWMutex
)

func loadEncoding(name string) (*tiktoken.Tiktoken, error) {
	encodingCacheMu.RLock()
	enc, ok := encodingCache[name]
	encodingCacheMu.RUnlock()
	if ok {
		return enc, nil
	}

	encodingCacheMu.Lock()
	defer encodingCacheMu.Unlock()
	if enc, ok := encodingCache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("tokens: load encoding %q: %w", name, err)
	}
	encodingCache[name] = enc
	return enc, nil
}

// textCacheEntry holds the token count computed for one cached text.
type textCacheEntry struct {
	count int
}

// Accountant counts tokens for one model's tokenizer. It holds a small
// bounded cache of per-text counts, evicting the oldest-inserted text first
// (a cache hit does not refresh an entry), so a caller re-checking the
// same system prompt or tool schema set across turns does not re-tokenize
// it every time.
type Accountant struct {
	model string
	enc   *tiktoken.Tiktoken

	mu        sync.Mutex
	textCache map[string]textCacheEntry
	order     []string
	cacheCap  int
}

// DefaultTextCacheSize bounds the per-Accountant text cache.
const DefaultTextCacheSize = 512

// NewAccountant builds a Token Accountant for model, loading (or reusing,
// via encodingCache) the tokenizer encoding appropriate for it.
func NewAccountant(model string) (*Accountant, error) {
	enc, err := loadEncoding(encodingForModel(model))
	if err != nil {
		return nil, err
	}
	return &Accountant{
		model:     model,
		enc:       enc,
		textCache: make(map[string]textCacheEntry),
		cacheCap:  DefaultTextCacheSize,
	}, nil
}

// CountText returns the token count of a string.
func (a *Accountant) CountText(text string) int {
	if text == "" {
		return 0
	}
	a.mu.Lock()
	if entry, ok := a.textCache[text]; ok {
		a.mu.Unlock()
		return entry.count
	}
	a.mu.Unlock()

	n := len(a.enc.Encode(text, nil, nil))

	a.mu.Lock()
	a.rememberLocked(text, n)
	a.mu.Unlock()
	return n
}

func (a *Accountant) rememberLocked(text string, n int) {
	if _, ok := a.textCache[text]; !ok {
		if len(a.order) >= a.cacheCap {
			oldest := a.order[0]
			a.order = a.order[1:]
			delete(a.textCache, oldest)
		}
		a.order = append(a.order, text)
	}
	a.textCache[text] = textCacheEntry{count: n}
}

// toolSchemaOverhead, toolPropertyOverhead, toolEnumOverhead and
// toolSetOverhead reproduce the openai-family function-schema token
// accounting constants spec.md §4.2 specifies.
const (
	toolSchemaOverhead   = 7
	toolPropertyOverhead = 3
	toolEnumOverhead     = 3
	toolSetOverhead      = 12
)

// CountTools returns the token cost of a tool set: for each tool,
// 7 + tokens(name:description) + 3·props + tokens(prop_name:type:description)·props
// + Σ(3·enum_values + tokens(enum_value)), plus a flat 12 for the set.
func (a *Accountant) CountTools(tools []convo.Tool) int {
	if len(tools) == 0 {
		return 0
	}
	total := toolSetOverhead
	for _, tool := range tools {
		total += a.countTool(tool)
	}
	return total
}

func (a *Accountant) countTool(tool convo.Tool) int {
	desc := trimTrailingDot(tool.Description)
	n := toolSchemaOverhead + a.CountText(tool.Name+":"+desc)

	props, _ := tool.InputSchema["properties"].(map[string]any)
	for name, raw := range props {
		prop, _ := raw.(map[string]any)
		n += toolPropertyOverhead
		n += a.CountText(propertySignature(name, prop))
		if enumVals, ok := prop["enum"].([]any); ok {
			for _, v := range enumVals {
				n += toolEnumOverhead + a.CountText(fmt.Sprint(v))
			}
		}
	}
	return n
}

func propertySignature(name string, prop map[string]any) string {
	typ, _ := prop["type"].(string)
	desc, _ := prop["description"].(string)
	return name + ":" + typ + ":" + desc
}

func trimTrailingDot(s string) string {
	if s != "" && s[len(s)-1] == '.' {
		return s[:len(s)-1]
	}
	return s
}

// CountChat returns the total token cost of a request: 4 + tokens(system)
// when system is non-empty, plus 4 + Σ tokens(part) per message, plus
// count_tools(tools) when any tools are offered, plus a flat 3-token reply
// primer.
func (a *Accountant) CountChat(system string, messages []convo.Message, tools []convo.Tool) int {
	total := 0
	if system != "" {
		total += 4 + a.CountText(system)
	}
	for _, msg := range messages {
		total += 4 + a.countMessageParts(msg)
	}
	total += 3
	if len(tools) > 0 {
		total += a.CountTools(tools)
	}
	return total
}

func (a *Accountant) countMessageParts(msg convo.Message) int {
	total := 0
	for _, part := range msg.Content {
		switch part.Type {
		case convo.PartText:
			total += a.CountText(part.Text)
		case convo.PartThinking:
			total += a.CountText(part.Thinking)
		case convo.PartImage:
			// images are skipped, per spec.md §4.2.
		case convo.PartToolRequest:
			if part.ToolCall != nil {
				total += a.CountText(part.ID + ":" + part.ToolCall.Name + ":" + part.ToolCall.MarshalArguments())
			}
		case convo.PartToolResponse:
			total += a.CountText(convo.TextContent(part.ResponseContent))
		}
	}
	return total
}

// Model returns the model name this accountant was built for.
func (a *Accountant) Model() string {
	return a.model
}
