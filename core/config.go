package core

import (
	"fmt"
	"strings"
)

type GoogleOAuthConfig struct {
	ClientID     string   `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string   `koanf:"client_secret" mapstructure:"client_secret"`
	RedirectURI  string   `koanf:"redirect_uri" mapstructure:"redirect_uri"`
	Scopes       []string `koanf:"scopes" mapstructure:"scopes"`
}

type GoogleEndpointsConfig struct {
	AuthURL       string `koanf:"auth_url" mapstructure:"auth_url"`
	TokenURL      string `koanf:"token_url" mapstructure:"token_url"`
	AccountsURL   string `koanf:"accounts_url" mapstructure:"accounts_url"`
	LocationsURL  string `koanf:"locations_url" mapstructure:"locations_url"`
	LocalPostsURL string `koanf:"local_posts_url" mapstructure:"local_posts_url"`
}

type GoogleConfig struct {
	OAuth                 GoogleOAuthConfig     `koanf:"oauth" mapstructure:"oauth"`
	Endpoints             GoogleEndpointsConfig `koanf:"endpoints" mapstructure:"endpoints"`
	RequestTimeoutSeconds int                   `koanf:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
}

type SweepConfig struct {
	Schedule  string `koanf:"schedule" mapstructure:"schedule"`
	BatchSize int    `koanf:"batch_size" mapstructure:"batch_size"`
}

type Config struct {
	ServiceName string       `koanf:"service_name" mapstructure:"service_name"`
	Google      GoogleConfig `koanf:"google" mapstructure:"google"`
	Sweep       SweepConfig  `koanf:"sweep" mapstructure:"sweep"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "distribution",
		Google: GoogleConfig{
			OAuth: GoogleOAuthConfig{
				Scopes: []string{"https://www.googleapis.com/auth/business.manage"},
			},
			Endpoints: GoogleEndpointsConfig{
				AuthURL:       "https://accounts.google.com/o/oauth2/v2/auth",
				TokenURL:      "https://oauth2.googleapis.com/token",
				AccountsURL:   "https://mybusinessaccountmanagement.googleapis.com/v1",
				LocationsURL:  "https://mybusinessbusinessinformation.googleapis.com/v1",
				LocalPostsURL: "https://mybusiness.googleapis.com/v4",
			},
			RequestTimeoutSeconds: 10,
		},
		Sweep: SweepConfig{
			Schedule:  "0 * * * *",
			BatchSize: 100,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Google.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("core: google.request_timeout_seconds must not be negative")
	}
	if c.Sweep.BatchSize < 0 {
		return fmt.Errorf("core: sweep.batch_size must not be negative")
	}
	return nil
}
