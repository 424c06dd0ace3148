package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port      string
	DataDir   string
	PublicDir string

	StoreDriver string // "file" or "sqlite"
	StorePath   string

	OpenAIKey        string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIImageModel string

	AnthropicKey     string
	AnthropicBaseURL string
	AnthropicModel   string

	OllamaHost  string
	OllamaModel string

	StabilityKey     string
	StabilityBaseURL string
	StabilityEngine  string

	// Failover priority per capability, highest first.
	TextOrder  []string
	ImageOrder []string

	ProviderTimeout time.Duration

	// Time of day (UTC) after which the dynamic track may generate.
	DynamicCutoff string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.DataDir = getenv("DATA_DIR", "./data")
	c.PublicDir = getenv("PUBLIC_DIR", "./public")
	c.StoreDriver = getenv("STORE_DRIVER", "file")
	c.StorePath = os.Getenv("STORE_PATH")
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	c.OpenAIModel = getenv("OPENAI_MODEL", "gpt-4o-mini")
	c.OpenAIImageModel = getenv("OPENAI_IMAGE_MODEL", "dall-e-3")
	c.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	c.AnthropicBaseURL = getenv("ANTHROPIC_BASE_URL", "https://api.anthropic.com")
	c.AnthropicModel = getenv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest")
	c.OllamaHost = os.Getenv("OLLAMA_HOST")
	c.OllamaModel = getenv("OLLAMA_MODEL", "llama3.1")
	c.StabilityKey = os.Getenv("STABILITY_API_KEY")
	c.StabilityBaseURL = getenv("STABILITY_BASE_URL", "https://api.stability.ai")
	c.StabilityEngine = getenv("STABILITY_ENGINE", "stable-diffusion-v1-6")
	c.TextOrder = splitList(getenv("RV_TEXT_ORDER", "openai,anthropic,ollama"))
	c.ImageOrder = splitList(getenv("RV_IMAGE_ORDER", "openai,stability"))
	c.ProviderTimeout = getduration("PROVIDER_TIMEOUT", 30*time.Second)
	c.DynamicCutoff = getenv("RV_DYNAMIC_CUTOFF", "08:55")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
