package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

// unknownName is returned for codes the catalogue has never seen.
const unknownName = "未知股票"

// Service serves the static reference catalogue out of badgerhold and
// refreshes it from the pinned provider on bootstrap.
type Service struct {
	registry interfaces.ProviderRegistry
	storage  *badger.CatalogStorage
	logger   arbor.ILogger
}

var _ interfaces.CatalogService = (*Service)(nil)

// NewService creates the catalogue service over an open store.
func NewService(registry interfaces.ProviderRegistry, storage *badger.CatalogStorage, logger arbor.ILogger) *Service {
	return &Service{
		registry: registry,
		storage:  storage,
		logger:   logger,
	}
}

// StockName resolves a stock code to its short company name; the code
// itself when unknown.
func (s *Service) StockName(stockCode string) string {
	row, err := s.storage.GetBasic(stockCode)
	if err != nil || row.Name == "" {
		return stockCode
	}
	return row.Name
}

// Basic returns the catalogue row for one listing.
func (s *Service) Basic(stockCode string) (models.StockBasic, bool) {
	row, err := s.storage.GetBasic(stockCode)
	if err != nil {
		return models.StockBasic{}, false
	}
	return *row, true
}

// Company returns the registration record for one listing.
func (s *Service) Company(stockCode string) (models.CompanyProfile, bool) {
	row, err := s.storage.GetCompany(stockCode)
	if err != nil {
		return models.CompanyProfile{}, false
	}
	return *row, true
}

// OverviewLines renders the company profile into the overview text blocks
// attached to the fundamental result: a listing sentence, a registration
// sentence and the introduction paragraph, in that order. Empty when the
// catalogue knows nothing about the code.
func (s *Service) OverviewLines(stockCode string) []string {
	var lines []string

	if basic, ok := s.Basic(stockCode); ok {
		lines = append(lines, listingSentence(basic))
	}
	if company, ok := s.Company(stockCode); ok {
		if sentence := registrationSentence(company); sentence != "" {
			lines = append(lines, sentence)
		}
		if intro := strings.TrimSpace(company.Introduction); intro != "" {
			lines = append(lines, intro)
		}
	}
	return lines
}

func listingSentence(basic models.StockBasic) string {
	name := basic.Name
	if name == "" {
		name = unknownName
	}
	parts := []string{fmt.Sprintf("%s是一家位于%s的%s公司", name, orUnknown(basic.Area), orUnknown(basic.Industry))}
	if basic.ListDate != "" {
		parts = append(parts, fmt.Sprintf("于%s在%s上市", basic.ListDate, orUnknown(basic.Market)))
	}
	return strings.Join(parts, "。") + "。"
}

func registrationSentence(company models.CompanyProfile) string {
	var parts []string
	if company.Chairman != "" {
		parts = append(parts, "现任董事长为"+company.Chairman)
	}
	if company.MainBusiness != "" {
		parts = append(parts, "主营业务为"+company.MainBusiness)
	}
	if company.Province != "" || company.City != "" {
		parts = append(parts, "注册地为"+company.Province+company.City)
	}
	if company.RegCapital != "" {
		parts = append(parts, "注册资本"+company.RegCapital+"万元")
	}
	if company.Employees > 0 {
		parts = append(parts, fmt.Sprintf("员工%d人", company.Employees))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "。") + "。"
}

func orUnknown(s string) string {
	if s == "" {
		return "未知"
	}
	return s
}

// Count returns the number of cached listings.
func (s *Service) Count() int {
	count, err := s.storage.CountBasics()
	if err != nil {
		return 0
	}
	return count
}

// Bootstrap refreshes the catalogue from the pinned provider: the full
// listing table, the trade calendar for the surrounding year, and every
// company registration record. Company records are fetched in one
// market-wide call; vendors that cannot serve it leave the profile store
// sparse, which lookups tolerate.
func (s *Service) Bootstrap(ctx context.Context) error {
	src, err := s.registry.Market()
	if err != nil {
		return fmt.Errorf("catalogue bootstrap needs a market provider: %w", err)
	}

	basicTable, err := src.StockBasic(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to fetch listings: %w", err)
	}
	basics := basicsFromTable(basicTable)
	if len(basics) == 0 {
		return fmt.Errorf("listing table came back empty")
	}
	if err := s.storage.StoreBasics(basics); err != nil {
		return err
	}
	s.logger.Info().Int("listings", len(basics)).Str("provider", src.Name()).Msg("Catalogue listings refreshed")

	now := time.Now()
	calTable, err := src.TradeCal(ctx, now.AddDate(-1, 0, 0), now.AddDate(0, 6, 0))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Trade calendar refresh failed")
	} else if err := s.storage.StoreTradeDays(tradeDaysFromTable(calTable)); err != nil {
		return err
	}

	companyTable, err := src.StockCompany(ctx, "")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Company record refresh failed")
		return nil
	}
	companies := companiesFromTable(companyTable)
	if err := s.storage.StoreCompanies(companies); err != nil {
		return err
	}
	s.logger.Info().Int("companies", len(companies)).Msg("Catalogue company records refreshed")
	return nil
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return nil
}

func basicsFromTable(table *models.Table) []models.StockBasic {
	if table == nil {
		return nil
	}
	out := make([]models.StockBasic, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		row := models.StockBasic{
			TSCode:   table.Cell(i, "ts_code").Text(),
			Symbol:   table.Cell(i, "symbol").Text(),
			Name:     table.Cell(i, "name").Text(),
			Area:     table.Cell(i, "area").Text(),
			Industry: table.Cell(i, "industry").Text(),
			Market:   table.Cell(i, "market").Text(),
			ListDate: table.Cell(i, "list_date").Text(),
		}
		if row.TSCode != "" {
			out = append(out, row)
		}
	}
	return out
}

func companiesFromTable(table *models.Table) []models.CompanyProfile {
	if table == nil {
		return nil
	}
	out := make([]models.CompanyProfile, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		row := models.CompanyProfile{
			TSCode:       table.Cell(i, "ts_code").Text(),
			ComName:      table.Cell(i, "com_name").Text(),
			Chairman:     table.Cell(i, "chairman").Text(),
			Manager:      table.Cell(i, "manager").Text(),
			RegCapital:   table.Cell(i, "reg_capital").Text(),
			SetupDate:    table.Cell(i, "setup_date").Text(),
			Province:     table.Cell(i, "province").Text(),
			City:         table.Cell(i, "city").Text(),
			Website:      table.Cell(i, "website").Text(),
			MainBusiness: table.Cell(i, "main_business").Text(),
			Introduction: table.Cell(i, "introduction").Text(),
		}
		if n, ok := table.Cell(i, "employees").Float64(); ok {
			row.Employees = int(n)
		}
		if row.TSCode != "" {
			out = append(out, row)
		}
	}
	return out
}

func tradeDaysFromTable(table *models.Table) []models.TradeDay {
	if table == nil {
		return nil
	}
	out := make([]models.TradeDay, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		row := models.TradeDay{
			CalDate:      table.Cell(i, "cal_date").Text(),
			Exchange:     table.Cell(i, "exchange").Text(),
			PretradeDate: table.Cell(i, "pretrade_date").Text(),
		}
		if open, ok := table.Cell(i, "is_open").Float64(); ok {
			row.IsOpen = open != 0
		}
		if row.CalDate != "" {
			out = append(out, row)
		}
	}
	return out
}
