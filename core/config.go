package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultStateTTL            = 10 * time.Minute
	defaultRefreshSafetyMargin = 2 * time.Minute
	defaultProviderCallTimeout = 10 * time.Second
	defaultSweepInterval       = 5 * time.Minute
)

// ProviderConfig declares one catalog entry. Entries are validated when the
// catalog is built; a misconfigured entry fails service construction rather
// than surfacing later as a broken redirect.
type ProviderConfig struct {
	ID                 string   `koanf:"id" mapstructure:"id"`
	DisplayName        string   `koanf:"display_name" mapstructure:"display_name"`
	ClientID           string   `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret       string   `koanf:"client_secret" mapstructure:"client_secret"`
	AuthURL            string   `koanf:"auth_url" mapstructure:"auth_url"`
	TokenURL           string   `koanf:"token_url" mapstructure:"token_url"`
	RevokeURL          string   `koanf:"revoke_url" mapstructure:"revoke_url"`
	Scope              string   `koanf:"scope" mapstructure:"scope"`
	Services           []string `koanf:"services" mapstructure:"services"`
	ClientSecretInBody bool     `koanf:"client_secret_in_body" mapstructure:"client_secret_in_body"`
}

type Config struct {
	ServiceName         string           `koanf:"service_name" mapstructure:"service_name"`
	CallbackBaseURL     string           `koanf:"callback_base_url" mapstructure:"callback_base_url"`
	DefaultReturnURL    string           `koanf:"default_return_url" mapstructure:"default_return_url"`
	StateTTL            time.Duration    `koanf:"state_ttl" mapstructure:"state_ttl"`
	RefreshSafetyMargin time.Duration    `koanf:"refresh_safety_margin" mapstructure:"refresh_safety_margin"`
	ProviderCallTimeout time.Duration    `koanf:"provider_call_timeout" mapstructure:"provider_call_timeout"`
	SweepInterval       time.Duration    `koanf:"sweep_interval" mapstructure:"sweep_interval"`
	Providers           []ProviderConfig `koanf:"providers" mapstructure:"providers"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:         "connectors",
		StateTTL:            defaultStateTTL,
		RefreshSafetyMargin: defaultRefreshSafetyMargin,
		ProviderCallTimeout: defaultProviderCallTimeout,
		SweepInterval:       defaultSweepInterval,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.StateTTL < 0 {
		return fmt.Errorf("core: state_ttl must not be negative")
	}
	if c.RefreshSafetyMargin < 0 {
		return fmt.Errorf("core: refresh_safety_margin must not be negative")
	}
	if c.ProviderCallTimeout < 0 {
		return fmt.Errorf("core: provider_call_timeout must not be negative")
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("core: sweep_interval must not be negative")
	}
	return nil
}

// RedirectURI is the callback URL registered with a provider, derived from
// the callback base URL and the provider ID.
func (c Config) RedirectURI(providerID string) string {
	base := strings.TrimSuffix(strings.TrimSpace(c.CallbackBaseURL), "/")
	return base + "/" + strings.TrimSpace(providerID) + "/callback"
}

func (c Config) stateTTL() time.Duration {
	if c.StateTTL > 0 {
		return c.StateTTL
	}
	return defaultStateTTL
}

func (c Config) refreshSafetyMargin() time.Duration {
	if c.RefreshSafetyMargin > 0 {
		return c.RefreshSafetyMargin
	}
	return defaultRefreshSafetyMargin
}

func (c Config) providerCallTimeout() time.Duration {
	if c.ProviderCallTimeout > 0 {
		return c.ProviderCallTimeout
	}
	return defaultProviderCallTimeout
}
