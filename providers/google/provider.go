package google

import (
	"github.com/twjackysu/go-connectors/core"
	"github.com/twjackysu/go-connectors/providers"
)

const (
	ProviderID = "google"
	AuthURL    = "https://accounts.google.com/o/oauth2/v2/auth"
	TokenURL   = "https://oauth2.googleapis.com/token"
	RevokeURL  = "https://oauth2.googleapis.com/revoke"
)

type Config struct {
	ClientID      string
	ClientSecret  string
	AuthURL       string
	TokenURL      string
	RevokeURL     string
	DefaultScopes []string
	Services      []string
}

func DefaultConfig() Config {
	return Config{
		AuthURL:   AuthURL,
		TokenURL:  TokenURL,
		RevokeURL: RevokeURL,
		DefaultScopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Services: []string{"profile"},
	}
}

func New(cfg Config) (core.ProviderDefinition, error) {
	defaults := DefaultConfig()
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaults.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaults.TokenURL
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = defaults.RevokeURL
	}
	if len(cfg.DefaultScopes) == 0 {
		cfg.DefaultScopes = defaults.DefaultScopes
	}
	if len(cfg.Services) == 0 {
		cfg.Services = defaults.Services
	}
	return providers.NewDefinition(providers.DefinitionConfig{
		ID:           ProviderID,
		DisplayName:  "Google",
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		RevokeURL:    cfg.RevokeURL,
		Scopes:       cfg.DefaultScopes,
		Services:     cfg.Services,
	})
}
