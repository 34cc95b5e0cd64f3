package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
)

// CatalogRepository reads products from the produtos table.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) Lookup(ctx context.Context, code string) (*entity.Product, error) {
	query := `
		SELECT codigo_barra, nome_produto, localizacao
		FROM produtos WHERE codigo_barra=$1
		LIMIT 1`

	p := &entity.Product{}
	err := r.pool.QueryRow(ctx, query, code).Scan(&p.Code, &p.Name, &p.Location)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup %q: %w", code, port.ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}
	return p, nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]entity.Product, error) {
	query := `
		SELECT codigo_barra, nome_produto, localizacao
		FROM produtos ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Product, error) {
		var p entity.Product
		err := row.Scan(&p.Code, &p.Name, &p.Location)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

func (r *CatalogRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
