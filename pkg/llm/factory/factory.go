package factory

import (
	"strings"

	"bank-support-be/internal/pkg/logger"
	"bank-support-be/pkg/llm"
	"bank-support-be/pkg/llm/mock"
	"bank-support-be/pkg/llm/ollama"
	"bank-support-be/pkg/llm/openai"
)

type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// NewLLMProvider picks a backend by name. Unknown names and missing
// credentials fall back to the mock provider so the chat path keeps working.
func NewLLMProvider(s Settings, log logger.ILogger) llm.Provider {
	switch strings.ToLower(s.Provider) {
	case "ollama":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, s.Model)
	case "openai":
		p, err := openai.NewOpenAIProvider(s.BaseURL, s.APIKey, s.Model)
		if err != nil {
			log.Warn("LLM", "OpenAI provider unavailable, falling back to mock", map[string]interface{}{"error": err.Error()})
			return mock.New()
		}
		return p
	case "mock", "":
		return mock.New()
	default:
		log.Warn("LLM", "Unknown LLM provider, falling back to mock", map[string]interface{}{"provider": s.Provider})
		return mock.New()
	}
}
