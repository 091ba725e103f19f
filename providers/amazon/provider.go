package amazon

import (
	"github.com/twjackysu/go-connectors/core"
	"github.com/twjackysu/go-connectors/providers"
)

const (
	ProviderID = "amazon"
	AuthURL    = "https://www.amazon.com/ap/oa"
	TokenURL   = "https://api.amazon.com/auth/o2/token"
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
		DefaultScopes: []string{"profile"},
		Services:      []string{"profile"},
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
	return providers.NewDefinition(providers.DefinitionConfig{
		ID:                 ProviderID,
		DisplayName:        "Amazon",
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		AuthURL:            cfg.AuthURL,
		TokenURL:           cfg.TokenURL,
		Scopes:             cfg.DefaultScopes,
		Services:           cfg.Services,
		ClientSecretInBody: true,
	})
}
