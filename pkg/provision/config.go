package provision

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SecretsDirEnv names the environment variable holding the default secrets directory
const SecretsDirEnv = "PROVTOOLS_SECRETS_DIR"

// CleanConfig configures a clean-secrets run
type CleanConfig struct {
	Dir      string   `yaml:"dir"`
	Files    []string `yaml:"files,omitempty"`
	Verify   bool     `yaml:"verify,omitempty"`
	Password string   `yaml:"password,omitempty"`
}

// LoadCleanConfig reads a YAML config file. An empty path yields an empty config.
func LoadCleanConfig(path string) (*CleanConfig, error) {
	cfg := &CleanConfig{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects empty file entries
func (c *CleanConfig) Validate() error {
	for i, f := range c.Files {
		if f == "" {
			return fmt.Errorf("files[%d] is empty", i)
		}
	}
	return nil
}

// ApplyDefaults fills unset fields from the environment and built-in defaults
func (c *CleanConfig) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = os.Getenv(SecretsDirEnv)
	}
	if c.Dir == "" {
		c.Dir = "."
	}
	if len(c.Files) == 0 {
		c.Files = append([]string(nil), DefaultSecretFiles...)
	}
}
