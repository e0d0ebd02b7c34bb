package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Zoho     ZohoConfig     `yaml:"zoho"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Telegram TelegramConfig `yaml:"telegram"`
	Audit    AuditConfig    `yaml:"audit"`
}

// ServerConfig contains server-related configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
}

// APIConfig contains API-related configuration.
type APIConfig struct {
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig contains authentication configuration for operational endpoints.
type AuthConfig struct {
	APIKeys    []string `yaml:"api_keys"`
	HeaderName string   `yaml:"header_name"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// ZohoConfig contains OAuth client and CRM endpoint configuration.
type ZohoConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	RedirectURI  string        `yaml:"redirect_uri"`
	AccountsURL  string        `yaml:"accounts_url"`
	APIURL       string        `yaml:"api_url"`
	Scopes       []string      `yaml:"scopes"`
	TokenFile    string        `yaml:"token_file"`
	Timeout      time.Duration `yaml:"timeout"`
	Company      string        `yaml:"company"`
	LeadSource   string        `yaml:"lead_source"`
}

// SMTPConfig contains the SMTP relay configuration for notification email.
type SMTPConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Secure      bool          `yaml:"secure"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	FromAddress string        `yaml:"from_address"`
	FromName    string        `yaml:"from_name"`
	ReplyTo     string        `yaml:"reply_to"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TelegramConfig contains the ops notification configuration.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// AuditConfig contains the audit trail configuration.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if err := c.Zoho.Validate(); err != nil {
		return fmt.Errorf("zoho: %w", err)
	}

	if err := c.SMTP.Validate(); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.HTTPPort == 0 {
		s.HTTPPort = 8318
	}
	if s.HTTPPort < 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535")
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 30 * time.Second
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.LogFormat == "" {
		s.LogFormat = "json"
	}
	return nil
}

// Validate validates API configuration.
func (a *APIConfig) Validate() error {
	if a.RateLimit.RequestsPerMinute <= 0 {
		a.RateLimit.RequestsPerMinute = 300
	}
	// Cap rate limit to prevent abuse
	if a.RateLimit.RequestsPerMinute > 100000 {
		a.RateLimit.RequestsPerMinute = 100000
	}
	if a.RateLimit.Burst <= 0 {
		a.RateLimit.Burst = 30
	}
	if a.RateLimit.Burst > 10000 {
		a.RateLimit.Burst = 10000
	}
	return nil
}

// Validate validates Zoho configuration and applies defaults. Client
// credentials may legitimately be absent until the operator completes the
// OAuth setup, so only structural fields are enforced here.
func (z *ZohoConfig) Validate() error {
	if z.AccountsURL == "" {
		z.AccountsURL = "https://accounts.zoho.com"
	}
	if z.APIURL == "" {
		z.APIURL = "https://www.zohoapis.com"
	}
	z.AccountsURL = strings.TrimRight(z.AccountsURL, "/")
	z.APIURL = strings.TrimRight(z.APIURL, "/")
	if len(z.Scopes) == 0 {
		z.Scopes = []string{"ZohoCRM.modules.ALL", "ZohoCRM.settings.ALL"}
	}
	if z.TokenFile == "" {
		z.TokenFile = "./data/zoho-tokens.json"
	}
	if z.Timeout <= 0 {
		z.Timeout = 10 * time.Second
	}
	if z.Timeout > time.Minute {
		return fmt.Errorf("timeout must not exceed 1m")
	}
	if z.Company == "" {
		z.Company = "BFIS Admission"
	}
	if z.LeadSource == "" {
		z.LeadSource = "Website - Admission Form"
	}
	return nil
}

// Validate validates SMTP configuration and applies defaults. An empty host
// disables the mailer; the lead pipeline then skips the thank-you email.
func (s *SMTPConfig) Validate() error {
	if s.Port == 0 {
		s.Port = 465
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	// The standard SSL port always means implicit TLS, whatever the flag says.
	if s.Port == 465 {
		s.Secure = true
	}
	if s.FromAddress == "" {
		s.FromAddress = s.User
	}
	if s.ReplyTo == "" {
		s.ReplyTo = s.FromAddress
	}
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	return nil
}

// Enabled reports whether the mailer has enough configuration to send.
func (s *SMTPConfig) Enabled() bool {
	return s.Host != "" && s.User != "" && s.Password != ""
}

// Validate validates audit configuration and applies defaults.
func (a *AuditConfig) Validate() error {
	if a.Enabled && a.DBPath == "" {
		a.DBPath = "./data/leadgate-audit.db"
	}
	return nil
}
