package assistant

import (
	"fmt"

	"github.com/lehigh-university-libraries/library-assistant/internal/gemini"
	"github.com/lehigh-university-libraries/library-assistant/internal/ollama"
	"github.com/lehigh-university-libraries/library-assistant/internal/openai"
	"github.com/lehigh-university-libraries/library-assistant/internal/providers"
)

// NewProvider returns the chat provider registered under name.
func NewProvider(name string) (providers.Provider, error) {
	switch name {
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	case "ollama":
		return ollama.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

// DefaultModel is the model used when none is configured for provider.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4"
	case "gemini":
		return "gemini-1.5-flash"
	case "ollama":
		return "llama3.1"
	default:
		return ""
	}
}
