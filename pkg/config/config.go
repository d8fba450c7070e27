package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/routegate/pkg/policy"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	KillSwitchEnv   string
	Profiles        *ProfilesConfig
	ConfigDir       string
}

// FileConfig represents the structure of ~/.routegate/config.yaml
type FileConfig struct {
	APIKeys APIKeysConfig `yaml:"api_keys"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration. The
// kill-switch value is captured raw; parsing it is the engine's job.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return loadFrom(configDir, filepath.Join(configDir, "profiles.yaml"))
}

// LoadWithProfilesFile loads config with a specific profiles file.
func LoadWithProfilesFile(profilesPath string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	cfg, err := loadFrom(configDir, "")
	if err != nil {
		return nil, err
	}

	profiles, err := LoadProfilesConfig(profilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles config from %s: %w", profilesPath, err)
	}
	cfg.Profiles = profiles
	return cfg, nil
}

func loadFrom(configDir, profilesPath string) (*Config, error) {
	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		KillSwitchEnv:   os.Getenv(policy.KillSwitchEnvVar),
		ConfigDir:       configDir,
	}

	if profilesPath != "" {
		if _, err := os.Stat(profilesPath); err == nil {
			profiles, err := LoadProfilesConfig(profilesPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load profiles config: %w", err)
			}
			cfg.Profiles = profiles
			return cfg, nil
		}
	}
	cfg.Profiles = DefaultProfilesConfig()
	return cfg, nil
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	default:
		return false
	}
}

// KeyDir returns the directory used for audit signing keys.
func (c *Config) KeyDir() string {
	return filepath.Join(c.ConfigDir, "keys")
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".routegate")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
