package providers

import (
	"fmt"
	"strings"

	"github.com/twjackysu/go-connectors/core"
)

// DefinitionConfig is the shared shape the per-provider constructors build
// their catalog entries from.
type DefinitionConfig struct {
	ID                 string
	DisplayName        string
	ClientID           string
	ClientSecret       string
	AuthURL            string
	TokenURL           string
	RevokeURL          string
	Scopes             []string
	Services           []string
	ClientSecretInBody bool
}

// NewDefinition normalizes and validates a catalog entry.
func NewDefinition(cfg DefinitionConfig) (core.ProviderDefinition, error) {
	def := core.ProviderDefinition{
		ID:                 strings.TrimSpace(cfg.ID),
		DisplayName:        strings.TrimSpace(cfg.DisplayName),
		ClientID:           strings.TrimSpace(cfg.ClientID),
		ClientSecret:       cfg.ClientSecret,
		AuthURL:            strings.TrimSpace(cfg.AuthURL),
		TokenURL:           strings.TrimSpace(cfg.TokenURL),
		RevokeURL:          strings.TrimSpace(cfg.RevokeURL),
		Scope:              strings.Join(compactScopes(cfg.Scopes), " "),
		Services:           append([]string(nil), cfg.Services...),
		ClientSecretInBody: cfg.ClientSecretInBody,
	}
	if def.DisplayName == "" {
		def.DisplayName = def.ID
	}
	if err := def.Validate(); err != nil {
		return core.ProviderDefinition{}, fmt.Errorf("providers: %w", err)
	}
	return def, nil
}

func compactScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		out = append(out, scope)
	}
	return out
}
