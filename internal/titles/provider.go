package titles

import (
	"fmt"

	"github.com/phonecase-tools/lister/internal/config"
	"github.com/phonecase-tools/lister/internal/gemini"
	"github.com/phonecase-tools/lister/internal/ollama"
	"github.com/phonecase-tools/lister/internal/openai"
	"github.com/phonecase-tools/lister/internal/providers"
)

// ProviderFor builds the vision provider selected by the configuration.
func ProviderFor(cfg *config.Config) (providers.Provider, error) {
	switch cfg.Provider {
	case "ark":
		base := cfg.APIBaseURL
		if base == "" {
			base = openai.ArkBaseURL
		}
		return openai.New(base, cfg.APIKey), nil
	case "openai":
		return openai.New(cfg.APIBaseURL, cfg.APIKey), nil
	case "ollama":
		return ollama.New(cfg.APIBaseURL), nil
	case "gemini":
		return gemini.New(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
