package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultPurchaseRating = 5.0

// APIURLEnv overrides api.base_url when set.
const APIURLEnv = "STOREFRONT_API_URL"

// APIConfig holds connection details for the recommendation backend.
type APIConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=1"`
	MaxRetries  int    `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// Timeout returns the per-request timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// StoreConfig selects and configures the durable key/value store.
type StoreConfig struct {
	Type string `yaml:"type" validate:"oneof=badger memory"`
	Path string `yaml:"path" validate:"required_if=Type badger"`
}

// InteractionsConfig configures the optimistic interaction feedback windows.
type InteractionsConfig struct {
	SuccessResetMs int     `yaml:"success_reset_ms" validate:"gt=0"`
	ErrorResetMs   int     `yaml:"error_reset_ms" validate:"gt=0"`
	// PurchaseRating is optional so that an explicit 0 is kept.
	PurchaseRating *float64 `yaml:"purchase_rating" validate:"omitempty,gte=0,lte=5"`
}

// Rating returns the rating sent with purchases.
func (c InteractionsConfig) Rating() float64 {
	if c.PurchaseRating == nil {
		return defaultPurchaseRating
	}
	return *c.PurchaseRating
}

// SuccessWindow is how long a success state is displayed before resetting.
func (c InteractionsConfig) SuccessWindow() time.Duration {
	return time.Duration(c.SuccessResetMs) * time.Millisecond
}

// ErrorWindow is how long an error state is displayed before resetting.
func (c InteractionsConfig) ErrorWindow() time.Duration {
	return time.Duration(c.ErrorResetMs) * time.Millisecond
}

// RecommendationsConfig configures recommendation fetching and display.
type RecommendationsConfig struct {
	Limit            int `yaml:"limit" validate:"gte=1,lte=50"`
	ExplanationLimit int `yaml:"explanation_limit" validate:"gte=1"`
}

// LogConfig configures the file logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	File   string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	API             APIConfig             `yaml:"api"`
	Store           StoreConfig           `yaml:"store"`
	Interactions    InteractionsConfig    `yaml:"interactions"`
	Recommendations RecommendationsConfig `yaml:"recommendations"`
	Log             LogConfig             `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/storefront/config.yaml.
// If neither exists, it writes defaults to ~/.config/storefront/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks field constraints on the loaded configuration.
func (c *AppConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "storefront", "config.yaml"), nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".storefront", "state")
	}
	return filepath.Join(home, ".local", "share", "storefront", "state")
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		API:             APIConfig{BaseURL: "http://localhost:8000", TimeoutSecs: 10, MaxRetries: 2},
		Store:           StoreConfig{Type: "badger", Path: defaultStorePath()},
		Interactions:    InteractionsConfig{SuccessResetMs: 2000, ErrorResetMs: 4000, PurchaseRating: ptr(defaultPurchaseRating)},
		Recommendations: RecommendationsConfig{Limit: 5, ExplanationLimit: 150},
		Log:             LogConfig{Level: "info", Format: "json", File: "storefront.log"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = 10
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "badger"
	}
	if cfg.Store.Type == "badger" && cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}
	if cfg.Interactions.SuccessResetMs == 0 {
		cfg.Interactions.SuccessResetMs = 2000
	}
	if cfg.Interactions.ErrorResetMs == 0 {
		cfg.Interactions.ErrorResetMs = 4000
	}
	if cfg.Interactions.PurchaseRating == nil {
		cfg.Interactions.PurchaseRating = ptr(defaultPurchaseRating)
	}
	if cfg.Recommendations.Limit == 0 {
		cfg.Recommendations.Limit = 5
	}
	if cfg.Recommendations.ExplanationLimit == 0 {
		cfg.Recommendations.ExplanationLimit = 150
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

func ptr[T any](v T) *T { return &v }

func applyEnvOverrides(cfg *AppConfig) {
	if v, ok := os.LookupEnv(APIURLEnv); ok && v != "" {
		cfg.API.BaseURL = v
	}
}
