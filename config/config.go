package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kjayal/clientvault/database"
	vaulthttp "github.com/kjayal/clientvault/http"
	"github.com/kjayal/clientvault/objectstore"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for clientvault.
type Config struct {
	Server      ServerConfig          `mapstructure:"server"`
	Service     ServiceConfig         `mapstructure:"service"`
	Broker      BrokerConfig          `mapstructure:"broker"`
	Database    database.Config       `mapstructure:"database"`
	ObjectStore objectstore.Config    `mapstructure:"object_store"`
	CORS        vaulthttp.CORSConfig  `mapstructure:"cors"`
	Log         LogConfig             `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// ServiceConfig holds record-service configuration.
type ServiceConfig struct {
	OpTimeout     int  `mapstructure:"op_timeout" validate:"min=1"`
	VerifyUploads bool `mapstructure:"verify_uploads"`
}

// BrokerConfig holds upload-broker configuration.
type BrokerConfig struct {
	GrantTTL  int    `mapstructure:"grant_ttl" validate:"min=60,max=900"`
	KeyPrefix string `mapstructure:"key_prefix" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type": "database.type",
	"db-dsn":  "database.dsn",
	"bucket":  "object_store.bucket",
	"region":  "object_store.region",
	"port":    "server.port",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5810)

	v.SetDefault("service.op_timeout", 30) // seconds
	v.SetDefault("service.verify_uploads", false)

	v.SetDefault("broker.grant_ttl", 300) // seconds
	v.SetDefault("broker.key_prefix", "clients")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "clientvault.db")
	v.SetDefault("database.tables.clients", "clients")
	v.SetDefault("database.tables.client_files", "client_files")

	v.SetDefault("object_store.region", "us-east-1")
	v.SetDefault("object_store.bucket", "clientvault")
	v.SetDefault("object_store.use_path_style", false)

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("CLIENTVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
