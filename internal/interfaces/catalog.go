package interfaces

import (
	"context"

	"github.com/lunahan/aestimo/internal/models"
)

// CatalogService serves the static reference data (listings, company
// records, trade calendar) cached locally at bootstrap. Lookups are
// best-effort: a missing record returns ok=false, never an error, so the
// pipeline can run with a cold catalogue.
type CatalogService interface {
	// StockName resolves a stock code to its short company name; the code
	// itself when unknown.
	StockName(stockCode string) string

	// Basic returns the catalogue row for one listing.
	Basic(stockCode string) (models.StockBasic, bool)

	// Company returns the registration record for one listing.
	Company(stockCode string) (models.CompanyProfile, bool)

	// OverviewLines renders the company profile into the overview text
	// blocks attached to the fundamental tool result. Empty when unknown.
	OverviewLines(stockCode string) []string

	// Bootstrap refreshes the catalogue from the pinned provider. One-shot;
	// also run on the refresh schedule when enabled.
	Bootstrap(ctx context.Context) error

	// Count returns the number of cached listings, for health reporting.
	Count() int

	// Close releases the underlying store.
	Close() error
}
