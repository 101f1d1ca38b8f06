// Package config loads and saves the YAML application configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelConfig identifies one selectable model. Temperature 0 means the
// provider default.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// APIKey holds a provider credential. An empty key falls back to the
// <PROVIDER>_API_KEY environment variable.
type APIKey struct {
	Provider string `yaml:"provider"`
	Key      string `yaml:"api_key"`
}

// LLMConfig groups the model list, credentials and system prompt.
type LLMConfig struct {
	Models       []ModelConfig `yaml:"models"`
	APIKeys      []APIKey      `yaml:"api_keys"`
	SystemPrompt string        `yaml:"system_prompt"`
}

// UIConfig controls prompt and role presentation.
type UIConfig struct {
	PromptSymbol string `yaml:"prompt_symbol"`
	User         string `yaml:"user"`
	Assistant    string `yaml:"assistant"`
}

// ColorConfig names the terminal colors per role.
type ColorConfig struct {
	User      string `yaml:"user"`
	Assistant string `yaml:"assistant"`
	System    string `yaml:"system"`
}

// AppConfig is the full configuration document.
type AppConfig struct {
	LLM    LLMConfig   `yaml:"llm"`
	UI     UIConfig    `yaml:"ui"`
	Colors ColorConfig `yaml:"colors"`
}

const defaultSystemPrompt = "You are a helpful assistant responding to a user's questions in a PC terminal application.\n" +
	"The user is an experienced software engineer, your answers should be concise and not repetitive.\n" +
	"Skip conclusions and summarizations of your answers.\n" +
	"If the user asks for a change in code, don't return the whole code, just the changed segment(s).\n" +
	"Return your answers in markdown format, and wrap code in ``` blocks, but avoid using headings."

// Default returns the configuration written on first run.
func Default() *AppConfig {
	return &AppConfig{
		LLM: LLMConfig{
			Models: []ModelConfig{
				{Provider: "anthropic", Name: "claude-sonnet-4-20250514"},
				{Provider: "openai", Name: "gpt-4o"},
				{Provider: "openai", Name: "o3-mini"},
			},
			APIKeys: []APIKey{
				{Provider: "anthropic"},
				{Provider: "openai"},
			},
			SystemPrompt: defaultSystemPrompt,
		},
		UI: UIConfig{
			PromptSymbol: ">>> ",
			User:         "user",
			Assistant:    "assistant",
		},
		Colors: ColorConfig{
			User:      "cyan",
			Assistant: "grey",
			System:    "yellow",
		},
	}
}

// Load reads the configuration at path. A missing file is created with the
// defaults so the user has something to edit.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stdout, "Created default configuration file at %s\n", path)
		return cfg, nil
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg *AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Key resolves the credential for a provider: the config value if set,
// otherwise the <PROVIDER>_API_KEY environment variable.
func (c *AppConfig) Key(provider string) string {
	for _, k := range c.LLM.APIKeys {
		if k.Provider == provider && k.Key != "" {
			return k.Key
		}
	}
	return os.Getenv(strings.ToUpper(provider) + "_API_KEY")
}

// FirstUsableModel returns the first configured model whose provider has a
// usable key. The mock provider needs none.
func (c *AppConfig) FirstUsableModel() (ModelConfig, error) {
	for _, m := range c.LLM.Models {
		if m.Provider == "mock" || c.Key(m.Provider) != "" {
			return m, nil
		}
	}
	return ModelConfig{}, fmt.Errorf("no configured model has an API key; set one in the config file or via environment")
}

// Model returns the configured model with the given name.
func (c *AppConfig) Model(name string) (ModelConfig, bool) {
	for _, m := range c.LLM.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelConfig{}, false
}
