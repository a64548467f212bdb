package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bastianns/tubes-lasti-t08/internal/inventory"
	"github.com/bastianns/tubes-lasti-t08/pkg/db/models"
	pkgerrors "github.com/bastianns/tubes-lasti-t08/pkg/errors"
)

// MonthlySales is the wire shape of one month's sales aggregate.
type MonthlySales struct {
	Month      int             `json:"month"`
	Year       int             `json:"year"`
	TotalSales decimal.Decimal `json:"total_sales"`
}

// Service exposes read-only projections over the ledger and the transaction
// history. Nothing here mutates state.
type Service interface {
	MonthlySales(ctx context.Context, year, month int) (*MonthlySales, error)
	LowStock(ctx context.Context) ([]inventory.LowStockItem, error)
}

type service struct {
	db     *gorm.DB
	ledger inventory.Service
}

// NewService wires the reporting views.
func NewService(db *gorm.DB, ledger inventory.Service) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{db: db, ledger: ledger}, nil
}

// MonthlySales sums total_amount over the UTC calendar month. Month
// boundaries are computed in Go so the query is identical across drivers.
func (s *service) MonthlySales(ctx context.Context, year, month int) (*MonthlySales, error) {
	if month < 1 || month > 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "month must be between 1 and 12")
	}
	if year < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "year must be positive")
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var rows []models.Transaction
	err := s.db.WithContext(ctx).
		Select("total_amount").
		Where("waktu_transaksi >= ? AND waktu_transaksi < ?", start, end).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate monthly sales")
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.TotalAmount)
	}

	return &MonthlySales{Month: month, Year: year, TotalSales: total}, nil
}

func (s *service) LowStock(ctx context.Context) ([]inventory.LowStockItem, error) {
	return s.ledger.LowStock(ctx)
}
