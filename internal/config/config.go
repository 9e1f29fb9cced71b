package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"SIGNAL_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"SIGNAL_DB_MAX_CONNS" default:"8"`

	GovInfoBaseURL string `envconfig:"GOVINFO_BASE_URL" default:"https://api.govinfo.gov"`
	GovInfoAPIKey  string `envconfig:"GOVINFO_API_KEY" default:""`

	ExtractBaseURL string `envconfig:"EXTRACT_BASE_URL" default:"https://api.firecrawl.dev"`
	ExtractAPIKey  string `envconfig:"EXTRACT_API_KEY" default:""`

	SimilarityBaseURL    string `envconfig:"SIMILARITY_BASE_URL" default:""`
	SimilarityServiceKey string `envconfig:"SIMILARITY_SERVICE_KEY" default:""`

	MailBaseURL      string `envconfig:"MAIL_BASE_URL" default:"https://api.resend.com"`
	MailAPIKey       string `envconfig:"MAIL_API_KEY" default:""`
	MailFromStandard string `envconfig:"MAIL_FROM_STANDARD" default:"Congress Signal <news-digest@congresssignal.com>"`
	MailFromPro      string `envconfig:"MAIL_FROM_PRO" default:"Congress Signal Pro <pro@congresssignal.com>"`

	WebhookSecret      string `envconfig:"WEBHOOK_SECRET" default:""`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("SIGNAL_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("SIGNAL_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("SIGNAL_DB_MIN_CONNS (%d) cannot exceed SIGNAL_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.GovInfoBaseURL) == "" {
		return fmt.Errorf("GOVINFO_BASE_URL is required")
	}
	if strings.TrimSpace(c.MailFromStandard) == "" {
		return fmt.Errorf("MAIL_FROM_STANDARD is required")
	}
	if strings.TrimSpace(c.MailFromPro) == "" {
		return fmt.Errorf("MAIL_FROM_PRO is required")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
