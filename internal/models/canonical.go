package models

import (
	"regexp"
	"strings"
)

// hostingProviders are vendor names that host other vendors' models and must
// never be reported as the canonical vendor themselves; the real vendor is
// inferred from the model name's lexical shape instead.
var hostingProviders = map[string]bool{
	"databricks": true,
	"openrouter": true,
	"azure":      true,
	"bedrock":    true,
}

// knownProviders is tried, in order, as a literal "<provider>/" or
// "<provider>-" prefix on the model name, and stripped if present.
var knownProviders = []string{
	"anthropic", "openai", "google", "mistral", "cohere",
	"meta-llama", "meta", "deepseek", "qwen", "amazon",
}

// versionDashPattern rewrites a "-<digit>-<digit>" version segment that is
// followed by "-" or the end of the name (e.g. "claude-3-5-sonnet") into dotted form ("claude-3.5-sonnet") so the
// rest of the pipeline only has to deal with one separator convention.
var versionDashPattern = regexp.MustCompile(`-(\d)-(\d)(-|$)`)

// stripPatterns are applied to fixed point: each removes a date stamp,
// "-latest"/"-preview"/"-exp" marker, version tag, or redundant qualifier
// that does not change which model family a name refers to. This mirrors
// spec.md §4.1 rule 2's suffix list exactly. Order matters only in that
// later passes clean up what earlier passes expose.
var stripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`-\d{8}$`),             // -20241022
	regexp.MustCompile(`-\d{4}-\d{2}-\d{2}$`), // -2024-10-22
	regexp.MustCompile(`-latest$`),
	regexp.MustCompile(`-preview(-\d+)*$`), // -preview, -preview-1, -preview-1-2
	regexp.MustCompile(`-exp(-\d+)*$`),     // -exp, -exp-1
	regexp.MustCompile(`-\d{2}-\d{2}$`),    // -01-31
	regexp.MustCompile(`@\d{8}$`),          // @20241022 (vertex style)
	regexp.MustCompile(`:exacto$`),
	regexp.MustCompile(`:\d+$`),                       // :0 (ollama tag)
	regexp.MustCompile(`-v\d+(\.\d+)*(:\d+)?$`),       // -v1, -v1.2, -v2:0 (bedrock style)
	regexp.MustCompile(`-\d{3,}$`),                    // -NNN+, three or more digits
	regexp.MustCompile(`-bedrock$`),
}

// claudeWordOrder reorders "claude-<generation>-<tier>" into the publicly
// recognized "claude-<tier>-<generation>" form (e.g. "claude-4-opus" ->
// "claude-opus-4"). Anthropic's own naming flipped word order between the
// 3.x and 4.x generations; canonicalizing removes that wrinkle.
var claudeWordOrder = regexp.MustCompile(`^claude-(\d+(?:\.\d+)?)-(opus|sonnet|haiku)$`)

// CanonicalName derives the canonical "<vendor>/<model>" identifier for a
// model name reported by a provider, mirroring the normalization pipeline a
// canonical model registry needs to de-duplicate the same underlying model
// surfaced under different provider-specific spellings (hosting gateways,
// dated snapshots, regional prefixes).
func CanonicalName(provider, modelName string) string {
	name := strings.ToLower(strings.TrimSpace(modelName))
	name = versionDashPattern.ReplaceAllString(name, "-$1.$2$3")

	for {
		stripped := name
		for _, p := range stripPatterns {
			stripped = p.ReplaceAllString(stripped, "")
		}
		if stripped == name {
			break
		}
		name = stripped
	}

	vendor := inferVendor(provider, name)
	name = stripKnownProviderPrefix(name)
	name = stripCommonPrefix(name, vendor)

	if m := claudeWordOrder.FindStringSubmatch(name); m != nil {
		name = "claude-" + m[2] + "-" + m[1]
	}

	return vendor + "/" + name
}

// inferVendor resolves the reported provider id to the vendor that actually
// trains the model. Hosting providers (bedrock, azure, openrouter,
// databricks) are routed through lexical inference on the model name since
// the same gateway fronts models from many vendors.
func inferVendor(provider, name string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if !hostingProviders[p] {
		return p
	}
	switch {
	case strings.Contains(name, "claude"):
		return "anthropic"
	case strings.Contains(name, "gpt") || strings.Contains(name, "o1") || strings.Contains(name, "o3"):
		return "openai"
	case strings.Contains(name, "gemini"):
		return "google"
	case strings.Contains(name, "llama"):
		return "meta"
	case strings.Contains(name, "mistral") || strings.Contains(name, "mixtral"):
		return "mistral"
	case strings.Contains(name, "command"):
		return "cohere"
	case strings.Contains(name, "deepseek"):
		return "deepseek"
	case strings.Contains(name, "titan") || strings.Contains(name, "nova"):
		return "amazon"
	default:
		return p
	}
}

// stripCommonPrefix removes a leading "<vendor>." or "<vendor>-" segment
// some hosting gateways prepend to the underlying model id (bedrock's
// "anthropic.claude-3-sonnet", vertex's "google.gemini-pro").
func stripCommonPrefix(name, vendor string) string {
	for _, sep := range []string{".", "-", "/"} {
		prefix := vendor + sep
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

// stripKnownProviderPrefix removes a leading "<provider>/" or "<provider>-"
// segment for providers not covered by stripCommonPrefix, e.g. openrouter
// ids of the form "meta-llama/llama-3-70b".
func stripKnownProviderPrefix(name string) string {
	for _, p := range knownProviders {
		for _, sep := range []string{"/", "-"} {
			prefix := p + sep
			if strings.HasPrefix(name, prefix) {
				return strings.TrimPrefix(name, prefix)
			}
		}
	}
	return name
}
