package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig             `mapstructure:"server"`
	Logging   LoggingConfig            `mapstructure:"logging"`
	Drive     DriveConfig              `mapstructure:"drive"`
	Auth      AuthConfig               `mapstructure:"auth"`
	Secrets   SecretsConfig            `mapstructure:"secrets"`
	Notify    NotifyConfig             `mapstructure:"notify"`
	Ingestion IngestionConfig          `mapstructure:"ingestion"`
	Triggers  map[string]TriggerConfig `mapstructure:"triggers"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DriveConfig struct {
	FolderID string `mapstructure:"folder_id"`
}

type AuthConfig struct {
	Method          string   `mapstructure:"method"`
	CredentialsJSON string   `mapstructure:"credentials_json"`
	CredentialsFile string   `mapstructure:"credentials_file"`
	EnvFile         string   `mapstructure:"env_file"`
	EnvVar          string   `mapstructure:"env_var"`
	TokenJSON       string   `mapstructure:"token_json"`
	Scopes          []string `mapstructure:"scopes"`
}

type SecretsConfig struct {
	ProjectID  string `mapstructure:"project_id"`
	SecretName string `mapstructure:"secret_name"`
}

// Enabled reports whether both secret coordinates are configured.
func (s SecretsConfig) Enabled() bool {
	return s.ProjectID != "" && s.SecretName != ""
}

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type IngestionConfig struct {
	TriggerField string `mapstructure:"trigger_field"`
	MaxBodySize  int64  `mapstructure:"max_body_size"`
}

// TriggerConfig describes one registered trigger category.
type TriggerConfig struct {
	FileName      string `mapstructure:"file_name"`
	ParquetFileID string `mapstructure:"parquet_file_id"`
	ExcelFileID   string `mapstructure:"excel_file_id"`
	CompareField  string `mapstructure:"compare_field"`
}

// Trigger resolves the configuration for a classification value with an
// explicit unknown-trigger error.
func (c *Config) Trigger(key string) (TriggerConfig, error) {
	tc, ok := c.Triggers[key]
	if !ok {
		return TriggerConfig{}, fmt.Errorf("unknown trigger %q: no configuration registered", key)
	}
	return tc, nil
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("auth.method", "oauth")
	v.SetDefault("auth.env_var", "GOOGLE_CREDENTIALS")
	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("ingestion.trigger_field", "_context_trigger_key")
	v.SetDefault("ingestion.max_body_size", 1048576)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/plansink")
	}

	// Environment variables override
	v.SetEnvPrefix("PLANSINK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the trigger registry at startup so dispatch failures at
// request time can only mean an unregistered classification value.
func (c *Config) Validate() error {
	switch c.Auth.Method {
	case "oauth", "service_account":
	default:
		return fmt.Errorf("auth.method must be oauth or service_account, got %q", c.Auth.Method)
	}

	for key, tc := range c.Triggers {
		if tc.FileName == "" {
			return fmt.Errorf("trigger %q: file_name is required", key)
		}
		if tc.CompareField == "" {
			return fmt.Errorf("trigger %q: compare_field is required", key)
		}
	}
	return nil
}
