// Package core contains the connector domain contracts, entities, and
// lifecycle orchestration logic. Lower-level adapters must depend on this
// package; core must not depend on provider-specific or transport-specific
// adapters.
package core
