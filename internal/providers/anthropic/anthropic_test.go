package anthropic

import (
	"encoding/json"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/haasonsaas/agentcore/internal/convo"
	"github.com/haasonsaas/agentcore/internal/providers"
)

func TestBuildParamsDefaultsMaxTokens(t *testing.T) {
	params, err := buildParams(providers.Request{Model: "claude-sonnet-4-20250514"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.MaxTokens != defaultMaxTokens {
		t.Fatalf("expected default max tokens %d, got %d", defaultMaxTokens, params.MaxTokens)
	}
}

func TestToSDKBlocksSkipsUnsupportedImageMime(t *testing.T) {
	parts := []convo.Part{convo.NewImage("ZGF0YQ==", "image/tiff")}
	blocks, err := toSDKBlocks(parts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("expected unsupported mime type to be skipped, got %d blocks", len(blocks))
	}
}

func TestToSDKBlocksKeepsSupportedImageMime(t *testing.T) {
	parts := []convo.Part{convo.NewImage("ZGF0YQ==", "image/png")}
	blocks, err := toSDKBlocks(parts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 1 || blocks[0].OfImage == nil {
		t.Fatalf("expected one image block, got %+v", blocks)
	}
}

func TestImageMediaTypeCaseInsensitive(t *testing.T) {
	mt, ok := imageMediaType("IMAGE/PNG")
	if !ok || mt != sdk.Base64ImageSourceMediaTypeImagePNG {
		t.Fatalf("expected PNG media type, got %v ok=%v", mt, ok)
	}
	if _, ok := imageMediaType("application/pdf"); ok {
		t.Fatal("expected unsupported mime type to report false")
	}
}

func TestDecodeToolInputRejectsMalformedJSON(t *testing.T) {
	if _, err := decodeToolInput(json.RawMessage("{not json")); err == nil {
		t.Fatal("expected an error decoding malformed tool input")
	}
}

func TestDecodeToolInputTreatsEmptyAsNoArguments(t *testing.T) {
	args, err := decodeToolInput(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(args) != 0 {
		t.Fatalf("expected no arguments, got %v", args)
	}
}

func TestToUsageNormalizesFromSDKFields(t *testing.T) {
	u := toUsage(sdk.Usage{InputTokens: 10, OutputTokens: 5, CacheReadInputTokens: 2}).Normalize()
	if u.InputTokens != 10 || u.OutputTokens != 5 || u.CachedTokens != 2 || u.TotalTokens != 15 {
		t.Fatalf("unexpected usage conversion: %+v", u)
	}
}
