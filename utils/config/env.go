package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kris-hansen/pfmea/utils/fileutil"
	"gopkg.in/yaml.v3"
)

// Verbose and Debug are set from the root command's persistent flags.
var (
	Verbose bool
	Debug   bool
)

const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.7
	DefaultMinRows     = 10
	DefaultSeparator   = "strict"
	DefaultExamples    = "PFMEA.xlsx"
	DefaultOutputFile  = "PFMEA_Output.xlsx"
	DefaultHistoryFile = "~/.pfmea/history.db"
	// HistoryOff in history_file disables the generation history
	HistoryOff = "off"
)

// Provider holds the credentials and endpoint for one model provider
type Provider struct {
	APIKey  string   `yaml:"api_key,omitempty"`
	BaseURL string   `yaml:"base_url,omitempty"`
	Models  []string `yaml:"models,omitempty"`
}

// EnvConfig is the on-disk configuration for the generator
type EnvConfig struct {
	Providers    map[string]*Provider `yaml:"providers,omitempty"`
	DefaultModel string               `yaml:"default_model,omitempty"`
	Temperature  *float64             `yaml:"temperature,omitempty"`
	MaxTokens    int                  `yaml:"max_tokens,omitempty"`
	MinRows      int                  `yaml:"min_rows,omitempty"`
	Separator    string               `yaml:"separator,omitempty"`
	ExamplesFile string               `yaml:"examples_file,omitempty"`
	OutputFile   string               `yaml:"output_file,omitempty"`
	HistoryFile  string               `yaml:"history_file,omitempty"`
	Log          LogConfig            `yaml:"log,omitempty"`
	Server       *ServerConfig        `yaml:"server,omitempty"`
}

// GetEnvPath returns the config path, honoring PFMEA_ENV
func GetEnvPath() string {
	if p := os.Getenv("PFMEA_ENV"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pfmea.yaml"
	}
	return filepath.Join(home, ".pfmea", "config.yaml")
}

// LoadEnvConfig reads the YAML config at path. A missing file yields defaults.
func LoadEnvConfig(path string) (*EnvConfig, error) {
	cfg := &EnvConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			DebugLog("[Config] No configuration file at %s, using defaults", path)
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// SaveEnvConfig writes the config as YAML, creating the parent directory
func SaveEnvConfig(path string, cfg *EnvConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

func (c *EnvConfig) applyDefaults() {
	if c.Providers == nil {
		c.Providers = make(map[string]*Provider)
	}
	if c.DefaultModel == "" {
		c.DefaultModel = DefaultModel
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.MinRows <= 0 {
		c.MinRows = DefaultMinRows
	}
	if c.Separator == "" {
		c.Separator = DefaultSeparator
	}
	if c.ExamplesFile == "" {
		c.ExamplesFile = DefaultExamples
	}
	if c.OutputFile == "" {
		c.OutputFile = DefaultOutputFile
	}
	if c.HistoryFile == "" {
		c.HistoryFile = DefaultHistoryFile
	}
	if c.Server == nil {
		c.Server = DefaultServerConfig()
	}
}

// GetProviderConfig returns the named provider's settings
func (c *EnvConfig) GetProviderConfig(name string) (*Provider, error) {
	if p, ok := c.Providers[name]; ok && p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("provider %s not found", name)
}

// AddProvider registers or replaces a provider entry
func (c *EnvConfig) AddProvider(name string, p Provider) {
	if c.Providers == nil {
		c.Providers = make(map[string]*Provider)
	}
	c.Providers[name] = &p
}

// GetTemperature returns the configured sampling temperature
func (c *EnvConfig) GetTemperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// HistoryPath returns the expanded history database path, or "" when the
// history is turned off
func (c *EnvConfig) HistoryPath() (string, error) {
	if c.HistoryFile == "" || strings.EqualFold(c.HistoryFile, HistoryOff) {
		return "", nil
	}
	return fileutil.ExpandPath(c.HistoryFile)
}

// GetServerConfig returns the server settings, never nil
func (c *EnvConfig) GetServerConfig() *ServerConfig {
	if c.Server == nil {
		c.Server = DefaultServerConfig()
	}
	return c.Server
}

// ProviderForModel returns the name of a configured provider that lists
// modelName explicitly, or "" if none does.
func (c *EnvConfig) ProviderForModel(modelName string) string {
	modelName = strings.ToLower(strings.TrimSpace(modelName))
	for name, p := range c.Providers {
		if p == nil {
			continue
		}
		for _, m := range p.Models {
			if strings.ToLower(m) == modelName {
				return name
			}
		}
	}
	return ""
}

// LoadSecrets loads .env style secret files into the process environment.
// Files that do not exist are skipped; variables already set win.
func LoadSecrets(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load secrets from %s: %w", p, err)
		}
		DebugLog("[Config] Loaded secrets from %s", p)
	}
	return nil
}

// ResolveAPIKeys fills any provider lacking an api_key from its
// <PROVIDER>_API_KEY environment variable. Providers that only exist in the
// environment are added.
func (c *EnvConfig) ResolveAPIKeys(providerNames []string) {
	for _, name := range providerNames {
		envKey := strings.ToUpper(name) + "_API_KEY"
		value := os.Getenv(envKey)
		if value == "" {
			continue
		}
		p, err := c.GetProviderConfig(name)
		if err != nil {
			c.AddProvider(name, Provider{APIKey: value})
			DebugLog("[Config] Provider %s configured from %s", name, envKey)
			continue
		}
		if p.APIKey == "" {
			p.APIKey = value
			DebugLog("[Config] API key for %s taken from %s", name, envKey)
		}
	}
}

// DebugLog prints only when --debug is set
func DebugLog(format string, args ...interface{}) {
	if Debug {
		log.Printf("[DEBUG] "+format+"\n", args...)
	}
}

// VerboseLog prints when --verbose or --debug is set
func VerboseLog(format string, args ...interface{}) {
	if Verbose || Debug {
		log.Printf(format+"\n", args...)
	}
}
