package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Auth code store backends selectable with storage.auth_codes.
const (
	StoreMongoDB = "mongodb"
	StoreMemory  = "memory"
	StoreRedis   = "redis"
	StoreBBolt   = "bbolt"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPAddr  string `mapstructure:"http_addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDBName string `mapstructure:"mongo_db_name"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`

	BBoltPath string `mapstructure:"bbolt_path"`

	Storage       StorageConfig `mapstructure:"storage"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// JWTSecret verifies the HS256 session tokens minted by the user service.
	JWTSecret string `mapstructure:"jwt_secret"`

	OAuth OAuthConfig `mapstructure:"oauth"`

	// AuditLog writes OAuth audit events as JSON lines to stdout.
	AuditLog bool `mapstructure:"audit_log"`

	OtelServiceName string `mapstructure:"otel_service_name"`
	TracingEnabled  bool   `mapstructure:"tracing_enabled"`
}

type StorageConfig struct {
	AuthCodes string `mapstructure:"auth_codes"`
}

type OAuthConfig struct {
	// LoginURL is where GET /oauth/authorize sends users without a session.
	LoginURL string `mapstructure:"login_url"`
	// RefreshScope is reported in refresh_token grant responses.
	RefreshScope string `mapstructure:"refresh_scope"`
	// ClientSecretHashing is "plain" or "bcrypt".
	ClientSecretHashing string `mapstructure:"client_secret_hashing"`
}

// LoadConfig reads configuration from file, environment variables, and
// defaults. When configFile is empty the default search paths are used.
func LoadConfig(configFile string) (*ServerConfig, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("betwiz_oauth")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/betwiz/")
		v.AddConfigPath("$HOME/.betwiz")
	}

	// BETWIZ_OAUTH_LOGIN_URL -> oauth.login_url
	v.SetEnvPrefix("BETWIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "betwiz")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "betwiz")
	v.SetDefault("bbolt_path", "data/auth_codes.db")
	v.SetDefault("storage.auth_codes", StoreMongoDB)
	v.SetDefault("sweep_interval", time.Minute)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("oauth.login_url", "http://localhost:3000/login")
	v.SetDefault("oauth.refresh_scope", "betting_events:read betting_events:subscribe")
	v.SetDefault("oauth.client_secret_hashing", "plain")
	v.SetDefault("audit_log", true)
	v.SetDefault("otel_service_name", "betwiz-oauth")
	v.SetDefault("tracing_enabled", false)
}

// Validate checks the settings the server cannot start without.
func (c *ServerConfig) Validate() error {
	switch c.Storage.AuthCodes {
	case StoreMongoDB, StoreMemory, StoreRedis, StoreBBolt:
	default:
		return fmt.Errorf("unknown storage.auth_codes backend %q", c.Storage.AuthCodes)
	}

	switch c.OAuth.ClientSecretHashing {
	case "plain", "bcrypt":
	default:
		return fmt.Errorf("unknown oauth.client_secret_hashing %q", c.OAuth.ClientSecretHashing)
	}

	if c.JWTSecret == "" {
		return errors.New("jwt_secret must be set")
	}

	return nil
}
