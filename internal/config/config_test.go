package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	// Create a temp config file
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	// When no config exists anywhere, should error
	// (Save and restore CWD to avoid finding the repo's config.yaml)
	dir := t.TempDir()
	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(`listen:
  port: 9000
anthropic:
  api_key: sk-ant-test
  model: claude-3-5-sonnet-latest
  max_tokens: 2000
binance:
  api_key: binance-key
mcp:
  command: ./tradewind-mcp
  args: ["-config", "mcp.yaml"]
agent:
  max_rounds: 25
stream:
  enabled: true
  symbols: [BTCUSDT, ETHUSDT]
log_level: debug
`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Listen.Port != 9000 {
		t.Errorf("port = %d", cfg.Listen.Port)
	}
	if cfg.Anthropic.Model != "claude-3-5-sonnet-latest" || cfg.Anthropic.MaxTokens != 2000 {
		t.Errorf("anthropic = %+v", cfg.Anthropic)
	}
	if cfg.MCP.Command != "./tradewind-mcp" || len(cfg.MCP.Args) != 2 {
		t.Errorf("mcp = %+v", cfg.MCP)
	}
	if cfg.Agent.MaxRounds != 25 {
		t.Errorf("max_rounds = %d", cfg.Agent.MaxRounds)
	}
	if !cfg.Stream.Enabled || len(cfg.Stream.Symbols) != 2 {
		t.Errorf("stream = %+v", cfg.Stream)
	}
	// Untouched fields keep their defaults.
	if cfg.Transcript.Dir != "transcripts" {
		t.Errorf("transcript dir = %q", cfg.Transcript.Dir)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("binance:\n  api_secret: ${TRADEWIND_TEST_SECRET}\n"), 0600)
	os.Setenv("TRADEWIND_TEST_SECRET", "secret123")
	defer os.Unsetenv("TRADEWIND_TEST_SECRET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Binance.APISecret != "secret123" {
		t.Errorf("api_secret = %q, want %q", cfg.Binance.APISecret, "secret123")
	}
}

func TestLoad_InlineSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("anthropic:\n  api_key: sk-ant-test-key\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-test-key" {
		t.Errorf("api_key = %q, want %q", cfg.Anthropic.APIKey, "sk-ant-test-key")
	}
}

func TestParseLogLevel(t *testing.T) {
	for input, want := range map[string]string{
		"trace": "TRACE",
		"debug": "DEBUG",
		"":      "INFO",
		"WARN":  "WARN",
		"error": "ERROR",
	} {
		level, err := ParseLogLevel(input)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) error: %v", input, err)
			continue
		}
		got := level.String()
		if input == "trace" {
			if level != LevelTrace {
				t.Errorf("ParseLogLevel(trace) = %v", level)
			}
			continue
		}
		if got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", input, got, want)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
