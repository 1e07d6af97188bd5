package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8080"
	DefaultJWTExpiresIn  = "24h"
	DefaultPGHost        = "127.0.0.1"
	DefaultPGPort        = 5432
	DefaultPGUser        = "postgres"
	DefaultPGDatabase    = "pingbacker"
	DefaultPGSSLMode     = "disable"
	DefaultGraphBaseURL  = "https://graph.facebook.com"
	DefaultGraphVersion  = "v18.0"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAITimeout = 30
	DefaultSendTimeout   = 10
	DefaultHistoryLimit  = 10
	DefaultPersona       = "You are a helpful assistant."
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	WhatsApp WhatsAppConfig `toml:"whatsapp"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Chat     ChatConfig     `toml:"chat"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	AdminSecret  string `toml:"admin_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// DSN renders a pgx-compatible connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type WhatsAppConfig struct {
	VerifyToken        string `toml:"verify_token"`
	GraphBaseURL       string `toml:"graph_base_url"`
	APIVersion         string `toml:"api_version"`
	SendTimeoutSeconds int    `toml:"send_timeout_seconds"`
}

type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ChatConfig struct {
	HistoryLimit   int    `toml:"history_limit"`
	DefaultPersona string `toml:"default_persona"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		WhatsApp: WhatsAppConfig{
			GraphBaseURL:       DefaultGraphBaseURL,
			APIVersion:         DefaultGraphVersion,
			SendTimeoutSeconds: DefaultSendTimeout,
		},
		OpenAI: OpenAIConfig{
			BaseURL:        DefaultOpenAIBaseURL,
			Model:          DefaultOpenAIModel,
			TimeoutSeconds: DefaultOpenAITimeout,
		},
		Chat: ChatConfig{
			HistoryLimit:   DefaultHistoryLimit,
			DefaultPersona: DefaultPersona,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment environments inject secrets without
// writing them into the config file.
func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	overrideString(&cfg.WhatsApp.VerifyToken, "PINGBACKER_VERIFY_TOKEN")
	overrideString(&cfg.Auth.JWTSecret, "PINGBACKER_JWT_SECRET")
	overrideString(&cfg.Auth.AdminSecret, "PINGBACKER_ADMIN_SECRET")
	overrideString(&cfg.Postgres.Password, "PINGBACKER_PG_PASSWORD")
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
