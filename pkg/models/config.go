package models

// LogConfig controls the structured logger.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format     string `yaml:"format" mapstructure:"format"` // console, json
	Output     string `yaml:"output" mapstructure:"output"` // stderr, stdout, file, both
	FilePath   string `yaml:"file_path,omitempty" mapstructure:"file_path"`
	MaxSize    int    `yaml:"max_size,omitempty" mapstructure:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups,omitempty" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age,omitempty" mapstructure:"max_age"` // days
}

// NotificationConfig controls run-start notifications.
type NotificationConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	SlackWebhookURL string `yaml:"slack_webhook_url,omitempty" mapstructure:"slack_webhook_url"`
}

// Config holds runboard settings read from .runboard.yaml via Viper.
type Config struct {
	BaseDir       string             `yaml:"base_dir" mapstructure:"base_dir"`
	EventLog      bool               `yaml:"event_log" mapstructure:"event_log"`
	Log           LogConfig          `yaml:"log" mapstructure:"log"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}
