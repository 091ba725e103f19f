package core

import (
	"fmt"
	"net/url"
	"strings"
)

// ProviderDefinition is a validated, immutable catalog entry.
type ProviderDefinition struct {
	ID                 string
	DisplayName        string
	ClientID           string
	ClientSecret       string
	AuthURL            string
	TokenURL           string
	RevokeURL          string
	Scope              string
	Services           []string
	ClientSecretInBody bool
}

func (d ProviderDefinition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("core: provider id is required")
	}
	if strings.TrimSpace(d.ClientID) == "" {
		return fmt.Errorf("core: provider %q client_id is required", d.ID)
	}
	if strings.TrimSpace(d.ClientSecret) == "" {
		return fmt.Errorf("core: provider %q client_secret is required", d.ID)
	}
	if err := validateProviderURL(d.AuthURL); err != nil {
		return fmt.Errorf("core: provider %q auth_url is invalid: %w", d.ID, err)
	}
	if err := validateProviderURL(d.TokenURL); err != nil {
		return fmt.Errorf("core: provider %q token_url is invalid: %w", d.ID, err)
	}
	if strings.TrimSpace(d.RevokeURL) != "" {
		if err := validateProviderURL(d.RevokeURL); err != nil {
			return fmt.Errorf("core: provider %q revoke_url is invalid: %w", d.ID, err)
		}
	}
	return nil
}

// SupportsRevocation reports whether the provider exposes a revocation
// endpoint.
func (d ProviderDefinition) SupportsRevocation() bool {
	return strings.TrimSpace(d.RevokeURL) != ""
}

func validateProviderURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url %q must be absolute http or https", trimmed)
	}
	if parsed.Host == "" {
		return fmt.Errorf("url %q is missing a host", trimmed)
	}
	return nil
}

// Catalog is the ordered, immutable set of providers the service knows
// about. Lookups are by ID; List preserves declaration order so status
// reads are stable.
type Catalog struct {
	order []string
	byID  map[string]ProviderDefinition
}

func NewCatalog(definitions []ProviderDefinition) (*Catalog, error) {
	catalog := &Catalog{
		order: make([]string, 0, len(definitions)),
		byID:  make(map[string]ProviderDefinition, len(definitions)),
	}
	for _, definition := range definitions {
		definition.ID = strings.TrimSpace(definition.ID)
		if err := definition.Validate(); err != nil {
			return nil, err
		}
		if _, exists := catalog.byID[definition.ID]; exists {
			return nil, fmt.Errorf("core: provider %q is declared more than once", definition.ID)
		}
		definition.Services = append([]string(nil), definition.Services...)
		catalog.order = append(catalog.order, definition.ID)
		catalog.byID[definition.ID] = definition
	}
	return catalog, nil
}

// NewCatalogFromConfig builds a catalog from provider config entries.
func NewCatalogFromConfig(entries []ProviderConfig) (*Catalog, error) {
	definitions := make([]ProviderDefinition, 0, len(entries))
	for _, entry := range entries {
		definitions = append(definitions, ProviderDefinition{
			ID:                 entry.ID,
			DisplayName:        entry.DisplayName,
			ClientID:           entry.ClientID,
			ClientSecret:       entry.ClientSecret,
			AuthURL:            entry.AuthURL,
			TokenURL:           entry.TokenURL,
			RevokeURL:          entry.RevokeURL,
			Scope:              entry.Scope,
			Services:           entry.Services,
			ClientSecretInBody: entry.ClientSecretInBody,
		})
	}
	return NewCatalog(definitions)
}

func (c *Catalog) Get(providerID string) (ProviderDefinition, bool) {
	if c == nil {
		return ProviderDefinition{}, false
	}
	definition, ok := c.byID[strings.TrimSpace(providerID)]
	return definition, ok
}

func (c *Catalog) List() []ProviderDefinition {
	if c == nil {
		return nil
	}
	out := make([]ProviderDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}
