package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clawshield/internal/models"
)

// Config holds all configuration for ClawShield
type Config struct {
	// Scan limits
	MaxFiles    int   `mapstructure:"max_files" yaml:"max_files"`
	MaxFileSize int64 `mapstructure:"max_file_size" yaml:"max_file_size"`
	Workers     int   `mapstructure:"workers" yaml:"workers"`

	// Apply the root safety multiplier and escalation when running as root
	RootSafetyMode bool `mapstructure:"root_safety_mode" yaml:"root_safety_mode"`

	// Report the line of the actual match rather than the first occurrence
	PreciseLines bool `mapstructure:"precise_lines" yaml:"precise_lines"`

	// Optional YAML rule pack merged over the built-in catalog
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file"`

	// Install gate threshold: BLOCKED, WARNING or CAUTION (empty picks by privilege)
	FailOn string `mapstructure:"fail_on" yaml:"fail_on"`

	// Output format (text, json, sarif)
	Format string `mapstructure:"format" yaml:"format"`

	// Scan history
	StorageDir string `mapstructure:"storage_dir" yaml:"storage_dir"`
	Store      bool   `mapstructure:"store" yaml:"store"`

	// Install orchestration
	InstallCmd    string `mapstructure:"install_cmd" yaml:"install_cmd"`
	QuarantineDir string `mapstructure:"quarantine_dir" yaml:"quarantine_dir"`

	// Cloud reporting (CLAWSHIELD_CLOUD, CLAWSHIELD_API_KEY, CLAWSHIELD_ENDPOINT)
	Cloud    bool   `mapstructure:"cloud" yaml:"cloud"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Verbose output
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		MaxFiles:       100,
		MaxFileSize:    1024 * 1024,
		Workers:        4,
		RootSafetyMode: true,
		Format:         "text",
		StorageDir:     ".clawshield",
		InstallCmd:     "clawhub install",
	}
}

// Load loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file (./clawshield.yaml, ~/clawshield.yaml or $XDG_CONFIG_HOME/clawshield/clawshield.yaml)
// 3. Environment variables (CLAWSHIELD_*, CLAW_INSTALL_CMD)
// 4. CLI flags (handled by caller)
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile loads configuration from a specific file path
// If path is empty, it searches for config in standard locations
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("max_files", defaults.MaxFiles)
	v.SetDefault("max_file_size", defaults.MaxFileSize)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("root_safety_mode", defaults.RootSafetyMode)
	v.SetDefault("precise_lines", defaults.PreciseLines)
	v.SetDefault("rules_file", "")
	v.SetDefault("fail_on", "")
	v.SetDefault("format", defaults.Format)
	v.SetDefault("storage_dir", defaults.StorageDir)
	v.SetDefault("store", false)
	v.SetDefault("install_cmd", defaults.InstallCmd)
	v.SetDefault("quarantine_dir", "")
	v.SetDefault("cloud", false)
	v.SetDefault("api_key", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)

	// Set config file settings
	v.SetConfigName("clawshield")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}

		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			v.AddConfigPath(filepath.Join(xdgConfig, "clawshield"))
		}
	}

	// Enable environment variable support
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	v.SetEnvPrefix("CLAWSHIELD")
	v.AutomaticEnv()
	// The installer command keeps its historical variable name.
	if err := v.BindEnv("install_cmd", "CLAWSHIELD_INSTALL_CMD", "CLAW_INSTALL_CMD"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DotEnvFile is read from the working directory before the environment.
const DotEnvFile = ".env"

// loadDotEnv copies CLAWSHIELD_* and CLAW_INSTALL_CMD entries of a dotenv
// file into the environment. Variables already set win, other keys are
// ignored and a missing file is not an error.
func loadDotEnv(path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for key, value := range vars {
		if !strings.HasPrefix(key, "CLAWSHIELD_") && key != "CLAW_INSTALL_CMD" {
			continue
		}
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validFormats := map[string]bool{
		"text":  true,
		"json":  true,
		"sarif": true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid format: %s (must be text, json, or sarif)", c.Format)
	}

	if c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}

	if c.FailOn != "" {
		if _, ok := models.ParseStatus(strings.ToUpper(c.FailOn)); !ok || strings.EqualFold(c.FailOn, string(models.StatusClean)) {
			return fmt.Errorf("invalid fail_on: %s (must be BLOCKED, WARNING, or CAUTION)", c.FailOn)
		}
	}

	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir cannot be empty")
	}

	if strings.TrimSpace(c.InstallCmd) == "" {
		return fmt.Errorf("install_cmd cannot be empty")
	}

	return nil
}

// GetStoragePath returns the absolute path to the storage directory
func (c *Config) GetStoragePath() (string, error) {
	if strings.HasPrefix(c.StorageDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, c.StorageDir[2:]), nil
	}

	absPath, err := filepath.Abs(c.StorageDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// GetQuarantineDir returns the directory quarantine copies are created under.
func (c *Config) GetQuarantineDir() string {
	if c.QuarantineDir != "" {
		return c.QuarantineDir
	}
	return filepath.Join(os.TempDir(), "clawshield-quarantine")
}

// CloudEnabled reports whether scan results should be sent to the cloud.
func (c *Config) CloudEnabled() bool {
	return c.Cloud && c.APIKey != "" && c.Endpoint != ""
}

// ConfigPath returns the file written by activate when --config is not given.
func ConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "clawshield", "clawshield.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "clawshield.yaml")
	}
	return "clawshield.yaml"
}

// WriteActivation stores the cloud credentials in the config file at path,
// keeping every other key already present. The file is written 0600.
func WriteActivation(apiKey, endpoint, path string) error {
	doc := map[string]interface{}{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse existing config: %w", err)
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("read existing config: %w", err)
	}

	doc["api_key"] = apiKey
	doc["cloud"] = true
	if endpoint != "" {
		doc["endpoint"] = endpoint
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0600)
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# ClawShield Configuration
# Save this file as ./clawshield.yaml, ~/clawshield.yaml
# or $XDG_CONFIG_HOME/clawshield/clawshield.yaml

# Scan limits
max_files: 100
max_file_size: 1048576
workers: 4

# Multiply the score by 1.5 and escalate the status when running as root
root_safety_mode: true

# Report the line of the actual match instead of the first occurrence
precise_lines: false

# Extra rules merged over the built-in catalog
# rules_file: ./clawshield-rules.yaml

# Install gate: BLOCKED, WARNING or CAUTION
# Empty means WARNING, or CAUTION when running as root
fail_on: ""

# Output format: text, json, or sarif
format: text

# Scan history
storage_dir: .clawshield
store: false

# Installer invoked after a passing scan (also CLAW_INSTALL_CMD)
install_cmd: clawhub install
# quarantine_dir: /tmp/clawshield-quarantine

# Cloud reporting (also CLAWSHIELD_CLOUD, CLAWSHIELD_API_KEY, CLAWSHIELD_ENDPOINT)
cloud: false
# api_key: sk_your_key_here
# endpoint: https://example.invalid/scan-report

# Enable verbose output
verbose: false

# Enable debug mode
debug: false
`
}
