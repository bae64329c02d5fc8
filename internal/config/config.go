package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ServiceName    = "clob-gateway"
	ServiceVersion = ""
)

var (
	Env *EnvConfig
)

type EnvConfig struct {
	Env                     string            `mapstructure:"env"`
	Log                     LogConfig         `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration     `mapstructure:"graceful_shutdown_timeout"`
	Port                    map[string]string `mapstructure:"port"`
	CORS                    CORSConfig        `mapstructure:"cors"`
	Venue                   VenueConfig       `mapstructure:"venue"`
	Stream                  StreamConfig      `mapstructure:"stream"`
	CredentialFile          string            `mapstructure:"credential_file"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type VenueConfig struct {
	ClobHost      string `mapstructure:"clob_host"`
	GammaHost     string `mapstructure:"gamma_host"`
	DataHost      string `mapstructure:"data_host"`
	UserStreamURL string `mapstructure:"user_stream_url"`
	ChainID       int    `mapstructure:"chain_id"`
	SignatureType int    `mapstructure:"signature_type"`
	SigningKey    string `mapstructure:"signing_key"`
	Funder        string `mapstructure:"funder"`
}

type StreamConfig struct {
	CredentialPollInterval time.Duration `mapstructure:"credential_poll_interval"`
	BackoffInterval        time.Duration `mapstructure:"backoff_interval"`
	SubscriberBufferSize   int           `mapstructure:"subscriber_buffer_size"`
}

func LoadConfig(configPath string) error {
	viper.Reset()

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	err = viper.Unmarshal(&Env)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	applyDefaults(Env)

	return nil
}

func applyDefaults(cfg *EnvConfig) {
	if cfg == nil {
		return
	}

	if strings.TrimSpace(cfg.Venue.ClobHost) == "" {
		cfg.Venue.ClobHost = "https://clob.polymarket.com"
	}
	if strings.TrimSpace(cfg.Venue.GammaHost) == "" {
		cfg.Venue.GammaHost = "https://gamma-api.polymarket.com"
	}
	if strings.TrimSpace(cfg.Venue.DataHost) == "" {
		cfg.Venue.DataHost = "https://data-api.polymarket.com"
	}
	if strings.TrimSpace(cfg.Venue.UserStreamURL) == "" {
		cfg.Venue.UserStreamURL = "wss://ws-subscriptions-clob.polymarket.com/ws/user"
	}
	if cfg.Venue.ChainID == 0 {
		cfg.Venue.ChainID = 137 // polygon mainnet
	}
	if cfg.Stream.CredentialPollInterval <= 0 {
		cfg.Stream.CredentialPollInterval = 5 * time.Second
	}
	if cfg.Stream.BackoffInterval <= 0 {
		cfg.Stream.BackoffInterval = 5 * time.Second
	}
	if cfg.Stream.SubscriberBufferSize <= 0 {
		cfg.Stream.SubscriberBufferSize = 64
	}
	if strings.TrimSpace(cfg.CredentialFile) == "" {
		cfg.CredentialFile = ".env"
	}
}
