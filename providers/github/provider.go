package github

import (
	"github.com/twjackysu/go-connectors/core"
	"github.com/twjackysu/go-connectors/providers"
)

const (
	ProviderID = "github"
	AuthURL    = "https://github.com/login/oauth/authorize"
	TokenURL   = "https://github.com/login/oauth/access_token"
)

type Config struct {
	ClientID      string
	ClientSecret  string
	AuthURL       string
	TokenURL      string
	DefaultScopes []string
	Services      []string
}

func DefaultConfig() Config {
	return Config{
		AuthURL:       AuthURL,
		TokenURL:      TokenURL,
		DefaultScopes: []string{"repo", "read:user"},
		Services:      []string{"repos", "issues"},
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
	if len(cfg.DefaultScopes) == 0 {
		cfg.DefaultScopes = defaults.DefaultScopes
	}
	if len(cfg.Services) == 0 {
		cfg.Services = defaults.Services
	}
	// GitHub's token endpoint rejects basic auth for the OAuth web flow,
	// so the secret travels in the form body.
	return providers.NewDefinition(providers.DefinitionConfig{
		ID:                 ProviderID,
		DisplayName:        "GitHub",
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		AuthURL:            cfg.AuthURL,
		TokenURL:           cfg.TokenURL,
		Scopes:             cfg.DefaultScopes,
		Services:           cfg.Services,
		ClientSecretInBody: true,
	})
}
