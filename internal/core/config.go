// Package core contains the run observer: content-type dispatch, iteration
// bookkeeping, the built-in artifact handlers and configuration loading.
package core

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/valter-silva-au/runboard/pkg/models"
)

// ConfigFileName is the name of the configuration file, without extension.
const ConfigFileName = ".runboard"

// ConfigurationManager loads and validates runboard configuration.
type ConfigurationManager interface {
	Load() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading .runboard.yaml and RUNBOARD_* environment overrides.
type viperConfigManager struct {
	// basePath is the directory where .runboard.yaml resides.
	basePath string
	// file, when set, replaces the .runboard.yaml lookup.
	file string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .runboard.yaml from basePath. A non-empty file overrides the lookup.
func NewConfigurationManager(basePath, file string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath, file: file}
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *models.Config {
	return &models.Config{
		BaseDir:  "runs",
		EventLog: true,
		Log: models.LogConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load reads the configuration file and environment. A missing file yields
// the defaults. A relative base_dir is resolved against the base path.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	def := DefaultConfig()

	v := viper.New()
	if cm.file != "" {
		v.SetConfigFile(cm.file)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(cm.basePath)
	}
	v.SetEnvPrefix("RUNBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults double as the key list AutomaticEnv binds during Unmarshal.
	v.SetDefault("base_dir", def.BaseDir)
	v.SetDefault("event_log", def.EventLog)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.output", def.Log.Output)
	v.SetDefault("log.file_path", def.Log.FilePath)
	v.SetDefault("log.max_size", def.Log.MaxSize)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("log.max_age", def.Log.MaxAge)
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.slack_webhook_url", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.BaseDir != "" && !filepath.IsAbs(cfg.BaseDir) {
		cfg.BaseDir = filepath.Join(cm.basePath, cfg.BaseDir)
	}
	if cfg.Log.FilePath != "" && !filepath.IsAbs(cfg.Log.FilePath) {
		cfg.Log.FilePath = filepath.Join(cm.basePath, cfg.Log.FilePath)
	}
	return cfg, nil
}

// ValidateConfig checks cfg for invalid values and returns a clear error
// naming the offending key.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}
	if cfg.BaseDir == "" {
		return fmt.Errorf("base_dir must not be empty")
	}
	if !oneOf(cfg.Log.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", cfg.Log.Level)
	}
	if !oneOf(cfg.Log.Format, "console", "json") {
		return fmt.Errorf("log.format %q must be console or json", cfg.Log.Format)
	}
	if !oneOf(cfg.Log.Output, "stdout", "stderr", "file", "both") {
		return fmt.Errorf("log.output %q must be one of stdout, stderr, file, both", cfg.Log.Output)
	}
	if (cfg.Log.Output == "file" || cfg.Log.Output == "both") && cfg.Log.FilePath == "" {
		return fmt.Errorf("log.file_path is required when log.output is %q", cfg.Log.Output)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.SlackWebhookURL == "" {
		return fmt.Errorf("notifications.slack_webhook_url is required when notifications are enabled")
	}
	return nil
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
