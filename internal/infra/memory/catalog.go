// Package memory holds an in-process catalog used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
)

type Catalog struct {
	mu       sync.RWMutex
	products map[string]entity.Product
	order    []string
}

func NewCatalog(products ...entity.Product) *Catalog {
	c := &Catalog{products: make(map[string]entity.Product, len(products))}
	for _, p := range products {
		if _, ok := c.products[p.Code]; !ok {
			c.order = append(c.order, p.Code)
		}
		c.products[p.Code] = p
	}
	return c
}

func (c *Catalog) Lookup(ctx context.Context, code string) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[code]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", code, port.ErrProductNotFound)
	}
	return &p, nil
}

func (c *Catalog) ListProducts(ctx context.Context) ([]entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]entity.Product, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.products[code])
	}
	return out, nil
}

func (c *Catalog) Ping(ctx context.Context) error {
	return ctx.Err()
}

// DemoProducts is the sample inventory also seeded into Postgres by migration.
func DemoProducts() []entity.Product {
	return []entity.Product{
		{Code: "7891234567890", Name: "Produto A", Location: "Estante 1A"},
		{Code: "7891234567891", Name: "Produto B", Location: "Estante 1B"},
		{Code: "7891234567892", Name: "Produto C", Location: "Estante 2A"},
		{Code: "7891234567893", Name: "Produto D", Location: "Estante 2B"},
		{Code: "1234567890123", Name: "Produto E", Location: "Estante 3A"},
		{Code: "9876543210987", Name: "Produto F", Location: "Estante 3B"},
		{Code: "5555555555555", Name: "Produto G", Location: "Estante 4A"},
		{Code: "1111111111111", Name: "Produto H", Location: "Estante 4B"},
	}
}
