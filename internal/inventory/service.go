package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bastianns/tubes-lasti-t08/pkg/db"
	pkgerrors "github.com/bastianns/tubes-lasti-t08/pkg/errors"
	"github.com/bastianns/tubes-lasti-t08/pkg/metrics"
)

// Service is the inventory ledger. All stock mutation in the system routes
// through Reserve and Release so the no-overselling invariant lives in one
// place.
type Service interface {
	GetLot(ctx context.Context, sku, batch string) (*LotResponse, error)
	ListLots(ctx context.Context, filter ListFilter) ([]LotResponse, error)
	LowStock(ctx context.Context) ([]LowStockItem, error)
	CreateLot(ctx context.Context, input CreateLotInput) (*LotResponse, error)
	UpdateLot(ctx context.Context, sku, batch string, input UpdateLotInput) (*LotResponse, error)
	DeleteLot(ctx context.Context, sku, batch string) error
	Reserve(ctx context.Context, tx *gorm.DB, sku, batch string, qty int) error
	Release(ctx context.Context, tx *gorm.DB, sku, batch string, qty int) error
}

type service struct {
	repo    Repository
	metrics *metrics.EngineMetrics
}

// NewService wires the inventory ledger with its repository. Metrics may be nil.
func NewService(repo Repository, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, metrics: engineMetrics}, nil
}

func (s *service) GetLot(ctx context.Context, sku, batch string) (*LotResponse, error) {
	lot, err := s.repo.Find(ctx, sku, batch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory lot")
	}
	if lot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory lot not found")
	}
	resp := NewLotResponse(*lot)
	return &resp, nil
}

func (s *service) ListLots(ctx context.Context, filter ListFilter) ([]LotResponse, error) {
	lots, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory lots")
	}
	out := make([]LotResponse, 0, len(lots))
	for _, lot := range lots {
		out = append(out, NewLotResponse(lot))
	}
	return out, nil
}

func (s *service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	lots, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock lots")
	}
	out := make([]LowStockItem, 0, len(lots))
	for _, lot := range lots {
		out = append(out, NewLowStockItem(lot))
	}
	return out, nil
}

func (s *service) CreateLot(ctx context.Context, input CreateLotInput) (*LotResponse, error) {
	if err := validateLotNumbers(input.AvailableQty, input.MinimumQty, input.UnitPrice); err != nil {
		return nil, err
	}

	lot := input.toModel()
	if err := s.repo.Create(ctx, &lot); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateKey, "inventory lot already exists").
				WithDetails(map[string]any{"sku": input.SKU, "batch_number": input.BatchNumber})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory lot")
	}

	resp := NewLotResponse(lot)
	return &resp, nil
}

func (s *service) UpdateLot(ctx context.Context, sku, batch string, input UpdateLotInput) (*LotResponse, error) {
	lot, err := s.repo.Find(ctx, sku, batch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory lot")
	}
	if lot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory lot not found")
	}

	fields := map[string]any{}
	if input.Name != nil {
		lot.Name = *input.Name
		fields["nama_item"] = *input.Name
	}
	if input.Category != nil {
		lot.Category = *input.Category
		fields["kategori"] = *input.Category
	}
	if input.AvailableQty != nil {
		lot.AvailableQty = *input.AvailableQty
		fields["stok_tersedia"] = *input.AvailableQty
	}
	if input.MinimumQty != nil {
		lot.MinimumQty = *input.MinimumQty
		fields["stok_minimum"] = *input.MinimumQty
	}
	if input.UnitPrice != nil {
		lot.UnitPrice = *input.UnitPrice
		fields["harga"] = *input.UnitPrice
	}

	if err := validateLotNumbers(lot.AvailableQty, lot.MinimumQty, lot.UnitPrice); err != nil {
		return nil, err
	}

	lot.UpdatedAt = time.Now().UTC()
	fields["waktu_pembaruan"] = lot.UpdatedAt

	if err := s.repo.Update(ctx, sku, batch, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory lot")
	}

	resp := NewLotResponse(*lot)
	return &resp, nil
}

func (s *service) DeleteLot(ctx context.Context, sku, batch string) error {
	lot, err := s.repo.Find(ctx, sku, batch)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory lot")
	}
	if lot == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory lot not found")
	}

	refs, err := s.repo.CountTransactionRefs(ctx, sku, batch)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count transaction references")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "inventory lot is referenced by recorded transactions").
			WithDetails(map[string]any{"sku": sku, "batch_number": batch, "references": refs})
	}

	if err := s.repo.Delete(ctx, sku, batch); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory lot")
	}
	return nil
}

// Reserve atomically takes qty units from the lot. On refusal the error
// carries the lot's current availability so the caller can surface it.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, sku, batch string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	ok, err := repo.Reserve(ctx, sku, batch, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve inventory")
	}
	if ok {
		s.metrics.IncReserve("ok")
		return nil
	}

	s.metrics.IncReserve("rejected")
	lot, err := repo.Find(ctx, sku, batch)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory lot")
	}
	if lot == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory lot not found").
			WithDetails(map[string]any{"sku": sku, "batch_number": batch})
	}

	s.metrics.IncInsufficientStock(sku)
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %s batch %s", sku, batch)).
		WithDetails(map[string]any{
			"sku":           sku,
			"batch_number":  batch,
			"requested":     qty,
			"stok_tersedia": lot.AvailableQty,
		})
}

// Release returns qty units to the lot. A missing lot means the ledger and the
// transaction history have diverged, which is surfaced loudly.
func (s *service) Release(ctx context.Context, tx *gorm.DB, sku, batch string, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}

	ok, err := s.repo.WithTx(tx).Release(ctx, sku, batch, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release inventory")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeCorruptState,
			fmt.Sprintf("release against missing lot %s batch %s", sku, batch))
	}
	return nil
}

func validateLotNumbers(available, minimum int, unitPrice decimal.Decimal) error {
	if available < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stok_tersedia must not be negative")
	}
	if minimum < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stok_minimum must not be negative")
	}
	if unitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "harga must not be negative")
	}
	return nil
}
