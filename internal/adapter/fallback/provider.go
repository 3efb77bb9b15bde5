package fallback

import (
	"strings"

	"github.com/thushan/switchback/internal/core/constants"
	"github.com/thushan/switchback/internal/core/domain"
)

var modelPrefixes = []struct {
	prefix   string
	provider domain.Provider
}{
	{"claude", domain.ProviderClaude},
	{"gpt", domain.ProviderCodex},
	{"codex", domain.ProviderCodex},
	{"o1", domain.ProviderCodex},
	{"o3", domain.ProviderCodex},
	{"o4", domain.ProviderCodex},
	{"gemini", domain.ProviderGemini},
	{"qwen", domain.ProviderQwen},
	{"glm", domain.ProviderIFlow},
	{"kimi", domain.ProviderIFlow},
	{"deepseek", domain.ProviderIFlow},
}

// DetectProvider infers the provider family a client targeted, first from the model
// name and then from the API path
func DetectProvider(path, model string) domain.Provider {
	m := strings.ToLower(model)
	for _, mp := range modelPrefixes {
		if strings.HasPrefix(m, mp.prefix) {
			return mp.provider
		}
	}

	switch {
	case strings.HasPrefix(path, constants.PathAnthropicMessages):
		return domain.ProviderClaude
	case strings.HasPrefix(path, constants.PathOpenAIChat),
		strings.HasPrefix(path, constants.PathOpenAIResponses),
		strings.HasPrefix(path, constants.PathOpenAICompletions):
		return domain.ProviderCodex
	case strings.HasPrefix(path, constants.PathGeminiPrefix),
		strings.HasPrefix(path, constants.PathGeminiCLIPrefix):
		return domain.ProviderGemini
	}
	return domain.ProviderUnknown
}

// ModelFromPath extracts the model of gemini style paths such as
// /v1beta/models/gemini-2.5-pro:streamGenerateContent
func ModelFromPath(path string) string {
	rest, ok := strings.CutPrefix(path, constants.PathGeminiPrefix)
	if !ok {
		return ""
	}
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		rest = rest[:q]
	}
	model, _, _ := strings.Cut(rest, ":")
	return model
}
