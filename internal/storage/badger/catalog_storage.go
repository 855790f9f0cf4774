package badger

import (
	"fmt"

	"github.com/lunahan/aestimo/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// CatalogStorage persists the static reference catalogue: listings, company
// registration records and the trade calendar.
type CatalogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCatalogStorage creates a new CatalogStorage instance
func NewCatalogStorage(db *BadgerDB, logger arbor.ILogger) *CatalogStorage {
	return &CatalogStorage{
		db:     db,
		logger: logger,
	}
}

// StoreBasics upserts the listing rows. Bootstrap replaces the whole set;
// stale codes from delisted companies are left behind and simply unused.
func (s *CatalogStorage) StoreBasics(rows []models.StockBasic) error {
	for i := range rows {
		if rows[i].TSCode == "" {
			continue
		}
		if err := s.db.Store().Upsert(rows[i].TSCode, &rows[i]); err != nil {
			return fmt.Errorf("failed to store listing %s: %w", rows[i].TSCode, err)
		}
	}
	return nil
}

// GetBasic returns one listing row.
func (s *CatalogStorage) GetBasic(tsCode string) (*models.StockBasic, error) {
	var row models.StockBasic
	if err := s.db.Store().Get(tsCode, &row); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.Errorf(models.ErrNotFound, "catalog.basic", "listing not found: %s", tsCode)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &row, nil
}

// CountBasics returns the number of cached listings.
func (s *CatalogStorage) CountBasics() (int, error) {
	count, err := s.db.Store().Count(&models.StockBasic{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return int(count), nil
}

// StoreCompanies upserts the company registration records.
func (s *CatalogStorage) StoreCompanies(rows []models.CompanyProfile) error {
	for i := range rows {
		if rows[i].TSCode == "" {
			continue
		}
		if err := s.db.Store().Upsert(rows[i].TSCode, &rows[i]); err != nil {
			return fmt.Errorf("failed to store company %s: %w", rows[i].TSCode, err)
		}
	}
	return nil
}

// GetCompany returns one company registration record.
func (s *CatalogStorage) GetCompany(tsCode string) (*models.CompanyProfile, error) {
	var row models.CompanyProfile
	if err := s.db.Store().Get(tsCode, &row); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.Errorf(models.ErrNotFound, "catalog.company", "company not found: %s", tsCode)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &row, nil
}

// StoreTradeDays upserts the exchange calendar entries.
func (s *CatalogStorage) StoreTradeDays(rows []models.TradeDay) error {
	for i := range rows {
		if rows[i].CalDate == "" {
			continue
		}
		if err := s.db.Store().Upsert(rows[i].CalDate, &rows[i]); err != nil {
			return fmt.Errorf("failed to store trade day %s: %w", rows[i].CalDate, err)
		}
	}
	return nil
}

// GetTradeDay returns one calendar entry (date as YYYYMMDD).
func (s *CatalogStorage) GetTradeDay(calDate string) (*models.TradeDay, error) {
	var row models.TradeDay
	if err := s.db.Store().Get(calDate, &row); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.Errorf(models.ErrNotFound, "catalog.trade_cal", "trade day not found: %s", calDate)
		}
		return nil, fmt.Errorf("failed to get trade day: %w", err)
	}
	return &row, nil
}
