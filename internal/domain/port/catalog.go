package port

import (
	"context"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
)

// Catalog resolves a code to its product, returning ErrProductNotFound when absent.
type Catalog interface {
	Lookup(ctx context.Context, code string) (*entity.Product, error)
}

type ProductLister interface {
	ListProducts(ctx context.Context) ([]entity.Product, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// CatalogStore is what the HTTP layer needs from a catalog backend.
type CatalogStore interface {
	Catalog
	ProductLister
	HealthChecker
}
