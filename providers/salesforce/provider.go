package salesforce

import (
	"strings"

	"github.com/twjackysu/go-connectors/core"
	"github.com/twjackysu/go-connectors/providers"
)

const (
	ProviderID = "salesforce"
	LoginHost  = "https://login.salesforce.com"
)

type Config struct {
	ClientID     string
	ClientSecret string
	// Host selects the login domain. Sandboxes use
	// https://test.salesforce.com, My Domain orgs use their own host.
	Host          string
	DefaultScopes []string
	Services      []string
}

func DefaultConfig() Config {
	return Config{
		Host:          LoginHost,
		DefaultScopes: []string{"api", "refresh_token"},
		Services:      []string{"crm"},
	}
}

func New(cfg Config) (core.ProviderDefinition, error) {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = defaults.Host
	}
	if len(cfg.DefaultScopes) == 0 {
		cfg.DefaultScopes = defaults.DefaultScopes
	}
	if len(cfg.Services) == 0 {
		cfg.Services = defaults.Services
	}
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	return providers.NewDefinition(providers.DefinitionConfig{
		ID:           ProviderID,
		DisplayName:  "Salesforce",
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		AuthURL:      host + "/services/oauth2/authorize",
		TokenURL:     host + "/services/oauth2/token",
		RevokeURL:    host + "/services/oauth2/revoke",
		Scopes:       cfg.DefaultScopes,
		Services:     cfg.Services,
	})
}
