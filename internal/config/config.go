package config

import (
	"fmt"
	"time"

	"github.com/vovakirdan/flowchat/internal/proto"
)

// Config holds server configuration values.
type Config struct {
	TCPAddr   string `mapstructure:"tcp_addr" yaml:"tcp_addr"`
	UDPAddr   string `mapstructure:"udp_addr" yaml:"udp_addr"`
	AdminAddr string `mapstructure:"admin_addr" yaml:"admin_addr"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// SessionTTL drops sessions unused for this long. Zero keeps them until restart.
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`

	// AllowRemoteQuit lets a QUIT_SERVER request stop the server.
	AllowRemoteQuit bool `mapstructure:"allow_remote_quit" yaml:"allow_remote_quit"`

	AdminJWTSecret string `mapstructure:"admin_jwt_secret" yaml:"admin_jwt_secret"`
	AdminJWTIssuer string `mapstructure:"admin_jwt_issuer" yaml:"admin_jwt_issuer"`

	// TranslateURL points at a LibreTranslate compatible endpoint. Empty disables translation.
	TranslateURL     string        `mapstructure:"translate_url" yaml:"translate_url"`
	TranslateAPIKey  string        `mapstructure:"translate_api_key" yaml:"translate_api_key"`
	TranslateTimeout time.Duration `mapstructure:"translate_timeout" yaml:"translate_timeout"`

	// WSRateLimit is the number of frames per second allowed on one /ws connection.
	WSRateLimit int `mapstructure:"ws_rate_limit" yaml:"ws_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		TCPAddr:          fmt.Sprintf("%s:%d", proto.Localhost, proto.TCPPort),
		UDPAddr:          fmt.Sprintf("%s:%d", proto.Localhost, proto.UDPPort),
		AdminAddr:        "127.0.0.1:8080",
		DatabasePath:     "flowchat.db",
		LogLevel:         "info",
		ReadTimeout:      5 * time.Minute,
		WriteTimeout:     10 * time.Second,
		ShutdownTimeout:  5 * time.Second,
		SessionTTL:       24 * time.Hour,
		AdminJWTIssuer:   "flowchat",
		TranslateTimeout: 10 * time.Second,
		WSRateLimit:      10,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// AllowRemoteQuit is only ever switched on.
func (c *Config) UpdateFrom(other Config) {
	setString(&c.TCPAddr, other.TCPAddr)
	setString(&c.UDPAddr, other.UDPAddr)
	setString(&c.AdminAddr, other.AdminAddr)
	setString(&c.DatabasePath, other.DatabasePath)
	setString(&c.LogLevel, other.LogLevel)
	setDuration(&c.ReadTimeout, other.ReadTimeout)
	setDuration(&c.WriteTimeout, other.WriteTimeout)
	setDuration(&c.ShutdownTimeout, other.ShutdownTimeout)
	setDuration(&c.SessionTTL, other.SessionTTL)
	if other.AllowRemoteQuit {
		c.AllowRemoteQuit = true
	}
	setString(&c.AdminJWTSecret, other.AdminJWTSecret)
	setString(&c.AdminJWTIssuer, other.AdminJWTIssuer)
	setString(&c.TranslateURL, other.TranslateURL)
	setString(&c.TranslateAPIKey, other.TranslateAPIKey)
	setDuration(&c.TranslateTimeout, other.TranslateTimeout)
	if other.WSRateLimit != 0 {
		c.WSRateLimit = other.WSRateLimit
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
