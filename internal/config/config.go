// Package config handles Tradewind configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/tradewind/config.yaml,
// /etc/tradewind/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tradewind", "config.yaml"))
	}

	paths = append(paths, "/etc/tradewind/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Tradewind configuration.
type Config struct {
	Listen     ListenConfig     `yaml:"listen"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Binance    BinanceConfig    `yaml:"binance"`
	MCP        MCPConfig        `yaml:"mcp"`
	Screenshot ScreenshotConfig `yaml:"screenshot"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Agent      AgentConfig      `yaml:"agent"`
	Stream     StreamConfig     `yaml:"stream"`
	LogLevel   string           `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// BinanceConfig defines exchange API settings. Market data works with
// empty credentials; account and order tools need both keys.
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	// BaseURL overrides the production endpoint, mainly for testnets.
	BaseURL string `yaml:"base_url"`
}

// MCPConfig defines how the agent reaches its tool server. Command
// spawns a stdio subprocess; URL selects streamable HTTP instead.
type MCPConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	URL     string   `yaml:"url"`
}

// ScreenshotConfig defines the chart-capture service location. Empty
// URL disables the screenshot tool.
type ScreenshotConfig struct {
	URL string `yaml:"url"`
}

// TranscriptConfig defines conversation persistence locations.
type TranscriptConfig struct {
	Dir string `yaml:"dir"` // session snapshot files
	DB  string `yaml:"db"`  // archive database
}

// AgentConfig defines orchestration loop settings.
type AgentConfig struct {
	// MaxRounds caps model round-trips per query. Zero means no cap.
	MaxRounds int `yaml:"max_rounds"`
}

// StreamConfig defines the live ticker stream subscription.
type StreamConfig struct {
	Enabled bool     `yaml:"enabled"`
	Symbols []string `yaml:"symbols"`
}

// Load reads configuration from a YAML file. Environment variable
// references in the file ($VAR or ${VAR}) are expanded before parsing,
// so API keys can stay out of the file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		MCP: MCPConfig{
			Command: "tradewind-mcp",
		},
		Transcript: TranscriptConfig{
			Dir: "transcripts",
			DB:  "transcripts/archive.db",
		},
	}
}
