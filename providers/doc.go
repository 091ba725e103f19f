// Package providers hosts built-in provider catalog presets. Each
// subpackage pins the authorization and token endpoints for one provider
// and exposes a New constructor that fills in credentials and scopes.
package providers
