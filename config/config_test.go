package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatterm/config"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.LLM.Models) == 0 {
		t.Fatal("default config has no models")
	}
	if cfg.LLM.SystemPrompt == "" {
		t.Error("default config has no system prompt")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if !strings.Contains(string(data), "anthropic") {
		t.Errorf("written config missing providers:\n%s", data)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "ui:\n  prompt_symbol: '$ '\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UI.PromptSymbol != "$ " {
		t.Errorf("override lost: %q", cfg.UI.PromptSymbol)
	}
	if cfg.LLM.SystemPrompt == "" {
		t.Error("defaults lost for unspecified fields")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err == nil {
		t.Error("malformed yaml accepted")
	}
}

func TestKeyEnvFallback(t *testing.T) {
	cfg := config.Default()
	t.Setenv("ANTHROPIC_API_KEY", "from-env")

	if got := cfg.Key("anthropic"); got != "from-env" {
		t.Errorf("Key = %q, want env fallback", got)
	}

	cfg.LLM.APIKeys = []config.APIKey{{Provider: "anthropic", Key: "from-file"}}
	if got := cfg.Key("anthropic"); got != "from-file" {
		t.Errorf("config value should win over env, got %q", got)
	}
}

func TestFirstUsableModel(t *testing.T) {
	cfg := config.Default()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "set")

	model, err := cfg.FirstUsableModel()
	if err != nil {
		t.Fatalf("FirstUsableModel: %v", err)
	}
	if model.Provider != "openai" {
		t.Errorf("picked %+v, want the first openai model", model)
	}

	t.Setenv("OPENAI_API_KEY", "")
	if _, err := cfg.FirstUsableModel(); err == nil {
		t.Error("expected error with no keys anywhere")
	}
}
