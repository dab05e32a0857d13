package semantic

import (
	"strings"

	gconfig "github.com/Laisky/go-config/v2"
)

// Settings captures runtime configuration for semantic paper search.
type Settings struct {
	Enabled        bool
	TopKDefault    int
	TopKLimit      int
	MaxChunkChars  int
	EmbeddingModel string
	OpenAIBaseURL  string
	OpenAIAPIKey   string
}

// LoadSettingsFromConfig reads the shared configuration and returns a
// sanitized Settings instance.
func LoadSettingsFromConfig() Settings {
	cfg := Settings{
		Enabled:        gconfig.S.GetBool("settings.semantic.enabled"),
		TopKDefault:    gconfig.S.GetInt("settings.semantic.top_k_default"),
		TopKLimit:      gconfig.S.GetInt("settings.semantic.top_k_limit"),
		MaxChunkChars:  gconfig.S.GetInt("settings.semantic.max_chunk_chars"),
		EmbeddingModel: strings.TrimSpace(gconfig.S.GetString("settings.openai.embedding_model")),
		OpenAIBaseURL:  strings.TrimSpace(gconfig.S.GetString("settings.openai.base_url")),
		OpenAIAPIKey:   strings.TrimSpace(gconfig.S.GetString("settings.openai.api_key")),
	}

	if cfg.TopKDefault <= 0 {
		cfg.TopKDefault = 5
	}
	if cfg.TopKLimit <= 0 {
		cfg.TopKLimit = 20
	}
	if cfg.TopKDefault > cfg.TopKLimit {
		cfg.TopKDefault = cfg.TopKLimit
	}
	if cfg.MaxChunkChars <= 200 {
		cfg.MaxChunkChars = 1200
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = "https://api.openai.com"
	}

	return cfg
}
