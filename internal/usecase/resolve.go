package usecase

import (
	"context"
	"errors"

	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"github.com/olhodeaguia/scan-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// ReportBuilder resolves codes against the catalog, one lookup per code and
// no retries. Every lookup failure is reported as a missing product.
type ReportBuilder struct {
	catalog port.Catalog
	logger  *zap.Logger
}

func NewReportBuilder(catalog port.Catalog, logger *zap.Logger) *ReportBuilder {
	return &ReportBuilder{catalog: catalog, logger: logger}
}

func (b *ReportBuilder) Build(ctx context.Context, codes []string) *entity.ProcessingReport {
	entries := make([]entity.ResultEntry, 0, len(codes))
	for _, code := range codes {
		entries = append(entries, b.resolve(ctx, code))
	}
	return entity.NewProcessingReport(entries)
}

func (b *ReportBuilder) resolve(ctx context.Context, code string) entity.ResultEntry {
	product, err := b.catalog.Lookup(ctx, code)
	switch {
	case err == nil && product != nil:
		metrics.CatalogLookupsTotal.WithLabelValues("found").Inc()
		return entity.FoundEntry(code, *product)
	case err == nil, errors.Is(err, port.ErrProductNotFound):
		metrics.CatalogLookupsTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.CatalogLookupsTotal.WithLabelValues("error").Inc()
		b.logger.Warn("catalog lookup failed, reporting code as not found",
			zap.String("code", code),
			zap.Error(err),
		)
	}
	return entity.MissingEntry(code)
}
