// Package config loads the model catalog used to resolve --model: a
// MINICODER_MODEL_CONFIG env var override, an XDG-located models.json file,
// or an environment-derived set of defaults when neither is present.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andrewchambers/minicoder/llm"
)

const defaultMaxTokens = 128000

// modelFile is the on-disk models.json schema: an ordered object keyed by
// logical model name, first key is the default.
type modelFile map[string]modelEntry

type modelEntry struct {
	Type      string         `json:"type"`
	Endpoint  string         `json:"endpoint"`
	Model     string         `json:"model"`
	APIKey    string         `json:"api_key"`
	APIKeyEnv string         `json:"api_key_env"`
	Params    map[string]any `json:"params"`
	MaxTokens int            `json:"max_tokens"`
}

// Load resolves the model catalog in priority order: MINICODER_MODEL_CONFIG
// env var path, then $XDG_CONFIG_HOME/minicoder/models.json or
// ~/.config/minicoder/models.json, falling back to environment-derived
// defaults when no config file exists.
func Load() (llm.Config, error) {
	if path := os.Getenv("MINICODER_MODEL_CONFIG"); path != "" {
		return loadFromFile(path)
	}

	path, err := configFilePath()
	if err != nil {
		return llm.Config{}, err
	}

	if _, statErr := os.Stat(path); statErr == nil {
		return loadFromFile(path)
	}

	return defaultCatalog(), nil
}

// configFilePath returns $XDG_CONFIG_HOME/minicoder/models.json or
// ~/.config/minicoder/models.json.
func configFilePath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "minicoder", "models.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "minicoder", "models.json"), nil
}

func loadFromFile(path string) (llm.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.Config{}, fmt.Errorf("reading model config %s: %w", path, err)
	}

	// decode into an ordered-key-preserving structure: encoding/json's map
	// decoding loses key order, so decode via a json.Decoder token stream
	// to recover declaration order for "first key is default".
	names, err := objectKeyOrder(data)
	if err != nil {
		return llm.Config{}, fmt.Errorf("parsing model config %s: %w", path, err)
	}

	var raw modelFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return llm.Config{}, fmt.Errorf("parsing model config %s: %w", path, err)
	}
	if len(raw) == 0 {
		return llm.Config{}, fmt.Errorf("model config %s contains no models", path)
	}

	cfg := llm.Config{}
	for _, name := range names {
		entry, ok := raw[name]
		if !ok {
			continue
		}
		if entry.Type != "openai" {
			return llm.Config{}, fmt.Errorf("model %q has invalid type %q (must be \"openai\")", name, entry.Type)
		}
		if entry.Endpoint == "" {
			return llm.Config{}, fmt.Errorf("model %q missing required \"endpoint\" field", name)
		}

		apiKey := entry.APIKey
		if apiKey == "" && entry.APIKeyEnv != "" {
			apiKey = os.Getenv(entry.APIKeyEnv)
		}

		maxTokens := entry.MaxTokens
		if maxTokens == 0 {
			maxTokens = defaultMaxTokens
		}

		cfg.Models = append(cfg.Models, llm.Descriptor{
			Name:      name,
			MaxTokens: maxTokens,
			Endpoint:  entry.Endpoint,
			Model:     entry.Model,
			APIKey:    apiKey,
			Params:    entry.Params,
		})
	}

	return cfg, nil
}

// objectKeyOrder returns the top-level object's keys in declaration order.
func objectKeyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("config file must contain a JSON object")
	}

	var names []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected non-string key in model config")
		}
		names = append(names, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// defaultCatalog builds an environment-derived catalog when no config file
// is present: OpenRouter models first, then OpenAI, Gemini and xAI models,
// each group only when its API key variable is set. When none is set, the
// catalog holds a single local Ollama model with a placeholder API key.
func defaultCatalog() llm.Config {
	openrouterKey := os.Getenv("OPENROUTER_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	xaiKey := os.Getenv("XAI_API_KEY")

	reasoningParams := map[string]any{
		"reasoning": map[string]any{"effort": "high"},
		"stream":    true,
	}

	var models []llm.Descriptor

	if openrouterKey != "" {
		const endpoint = "https://openrouter.ai/api/v1/chat/completions"
		models = append(models,
			llm.Descriptor{Name: "o3", MaxTokens: 128000, Endpoint: endpoint, Model: "openai/o3", APIKey: openrouterKey, Params: reasoningParams},
			llm.Descriptor{Name: "o4-mini", MaxTokens: 128000, Endpoint: endpoint, Model: "openai/o4-mini", APIKey: openrouterKey, Params: reasoningParams},
			llm.Descriptor{Name: "grok-4", MaxTokens: 131000, Endpoint: endpoint, Model: "x-ai/grok-4", APIKey: openrouterKey, Params: reasoningParams},
			llm.Descriptor{Name: "gemini", MaxTokens: 524000, Endpoint: endpoint, Model: "google/gemini-2.5-pro", APIKey: openrouterKey, Params: reasoningParams},
			llm.Descriptor{Name: "deepseek", MaxTokens: 131000, Endpoint: endpoint, Model: "deepseek/deepseek-r1-0528", APIKey: openrouterKey, Params: reasoningParams},
		)
	}

	if openaiKey != "" {
		const endpoint = "https://api.openai.com/v1/chat/completions"
		models = append(models,
			llm.Descriptor{Name: "o4-mini", MaxTokens: 128000, Endpoint: endpoint, Model: "o4-mini", APIKey: openaiKey, Params: reasoningParams},
			llm.Descriptor{Name: "o3", MaxTokens: 128000, Endpoint: endpoint, Model: "o3", APIKey: openaiKey, Params: reasoningParams},
		)
	}

	if geminiKey != "" {
		models = append(models, llm.Descriptor{
			Name:      "gemini-direct",
			MaxTokens: 524000,
			Endpoint:  "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions",
			Model:     "gemini-2.5-pro",
			APIKey:    geminiKey,
			Params:    map[string]any{"stream": true},
		})
	}

	if xaiKey != "" {
		models = append(models, llm.Descriptor{
			Name:      "grok-direct",
			MaxTokens: 131000,
			Endpoint:  "https://api.x.ai/v1/chat/completions",
			Model:     "grok-4",
			APIKey:    xaiKey,
			Params:    map[string]any{"stream": true},
		})
	}

	if len(models) == 0 {
		models = append(models, llm.Descriptor{
			Name:      "qwen3-32b",
			MaxTokens: 32000,
			Endpoint:  "http://localhost:11434/v1/chat/completions",
			Model:     "qwen3:32b",
			APIKey:    "ollama",
			Params:    map[string]any{"stream": true},
		})
	}

	return llm.Config{Models: models}
}
