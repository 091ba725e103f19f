package query

import (
	"context"

	"github.com/twjackysu/go-connectors/core"
)

type StatusReader interface {
	Status(ctx context.Context, userID string) ([]core.ConnectorStatus, error)
	StatusFor(ctx context.Context, userID, providerID string) (core.ConnectorStatus, error)
}

type CatalogReader interface {
	Catalog() *core.Catalog
}

type StatusQuery struct {
	reader StatusReader
}

func NewStatusQuery(reader StatusReader) *StatusQuery {
	return &StatusQuery{reader: reader}
}

func (q *StatusQuery) Query(ctx context.Context, msg StatusMessage) ([]core.ConnectorStatus, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: status reader is required")
	}
	return q.reader.Status(ctx, msg.UserID)
}

type ProviderStatusQuery struct {
	reader StatusReader
}

func NewProviderStatusQuery(reader StatusReader) *ProviderStatusQuery {
	return &ProviderStatusQuery{reader: reader}
}

func (q *ProviderStatusQuery) Query(ctx context.Context, msg ProviderStatusMessage) (core.ConnectorStatus, error) {
	if q == nil || q.reader == nil {
		return core.ConnectorStatus{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.StatusFor(ctx, msg.UserID, msg.ProviderID)
}

type ListProvidersQuery struct {
	reader CatalogReader
}

func NewListProvidersQuery(reader CatalogReader) *ListProvidersQuery {
	return &ListProvidersQuery{reader: reader}
}

func (q *ListProvidersQuery) Query(ctx context.Context, msg ListProvidersMessage) ([]core.ProviderDefinition, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: catalog reader is required")
	}
	catalog := q.reader.Catalog()
	if catalog == nil {
		return nil, queryDependencyError("query: catalog is not configured")
	}
	definitions := catalog.List()
	// Client secrets stay inside the service boundary.
	for i := range definitions {
		definitions[i].ClientSecret = ""
	}
	return definitions, nil
}
