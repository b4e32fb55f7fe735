package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	dberrors "github.com/daybook-bot/daybook/pkg/errors"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "openai/gpt-3.5-turbo"

	// DefaultModelTimeout bounds a single analysis call. The session stays
	// locked for the duration, so an unbounded call would freeze that user's
	// conversation indefinitely.
	DefaultModelTimeout = 90 * time.Second
)

// Environment overrides applied after file loading.
const (
	EnvAPIKey       = "DAYBOOK_OPENROUTER_API_KEY"
	EnvModel        = "DAYBOOK_MODEL"
	EnvDataDir      = "DAYBOOK_DATA_DIR"
	EnvAllowedUsers = "DAYBOOK_ALLOWED_USERS"
	EnvLogLevel     = "DAYBOOK_LOG_LEVEL"
)

// Config represents the complete daybook configuration
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Access   AccessConfig   `yaml:"access"`
	Storage  StorageConfig  `yaml:"storage"`
	Speech   SpeechConfig   `yaml:"speech"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProviderConfig configures the OpenRouter analysis backend
type ProviderConfig struct {
	APIKey     string        `yaml:"api_key"`
	APIKeyFile string        `yaml:"api_key_file"` // read when api_key is empty
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
}

// AccessConfig is the allow-list gating every conversation entry point
type AccessConfig struct {
	AllowedUserIDs []string `yaml:"allowed_user_ids"`
}

// StorageConfig locates the data tree
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// SpeechConfig configures optional per-section audio synthesis
type SpeechConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Language string `yaml:"language"`
}

// LoggingConfig controls the structured event log
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL: defaultBaseURL,
			Model:   defaultModel,
			Timeout: DefaultModelTimeout,
		},
		Speech: SpeechConfig{
			Enabled:  true,
			Language: "en",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration file at path (if present), merges it over
// the defaults, and applies environment overrides. A missing file is not
// an error; a missing API key is, since nothing works without it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return nil, dberrors.Wrap(err, dberrors.ErrCodeConfigLoad, "reading config file").
				WithContext("path", path)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, dberrors.Wrap(err, dberrors.ErrCodeConfigLoad, "parsing config file").
					WithContext("path", path)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Provider.APIKey == "" && cfg.Provider.APIKeyFile != "" {
		key, err := os.ReadFile(cfg.Provider.APIKeyFile)
		if err != nil {
			return nil, dberrors.Wrap(err, dberrors.ErrCodeConfigLoad, "reading API key file").
				WithContext("path", cfg.Provider.APIKeyFile)
		}
		cfg.Provider.APIKey = strings.TrimSpace(string(key))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Provider.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAllowedUsers)); v != "" {
		ids := strings.Split(v, ",")
		cfg.Access.AllowedUserIDs = cfg.Access.AllowedUserIDs[:0]
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				cfg.Access.AllowedUserIDs = append(cfg.Access.AllowedUserIDs, id)
			}
		}
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return dberrors.New(dberrors.ErrCodeConfigInvalid,
			fmt.Sprintf("no OpenRouter API key configured (set %s or provider.api_key)", EnvAPIKey))
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = DefaultModelTimeout
	}
	if c.Provider.Model == "" {
		c.Provider.Model = defaultModel
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = defaultBaseURL
	}
	return nil
}

// Authorized reports whether userID is on the allow-list. An empty
// allow-list admits nobody; this gate runs before any session state or
// storage is touched.
func (c *Config) Authorized(userID string) bool {
	for _, id := range c.Access.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
