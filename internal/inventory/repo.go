package inventory

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/bastianns/tubes-lasti-t08/internal/repo"
	"github.com/bastianns/tubes-lasti-t08/pkg/db/models"
)

// Repository manages persistence for inventory lots. Reserve and Release are
// the only two stock-mutating primitives; everything else is bookkeeping.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, sku, batch string) (*models.InventoryLot, error)
	List(ctx context.Context, filter ListFilter) ([]models.InventoryLot, error)
	ListLowStock(ctx context.Context) ([]models.InventoryLot, error)
	Create(ctx context.Context, lot *models.InventoryLot) error
	Update(ctx context.Context, sku, batch string, fields map[string]any) error
	Delete(ctx context.Context, sku, batch string) error
	CountTransactionRefs(ctx context.Context, sku, batch string) (int64, error)
	Reserve(ctx context.Context, sku, batch string, qty int) (bool, error)
	Release(ctx context.Context, sku, batch string, qty int) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Find(ctx context.Context, sku, batch string) (*models.InventoryLot, error) {
	var lot models.InventoryLot
	err := r.DB(ctx).
		Where("sku = ? AND batch_number = ?", sku, batch).
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.InventoryLot, error) {
	q := r.DB(ctx).Model(&models.InventoryLot{})
	if filter.Category != "" {
		q = q.Where("kategori = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(nama_item) LIKE ? OR LOWER(sku) LIKE ?", pattern, pattern)
	}

	var lots []models.InventoryLot
	if err := q.Order("sku ASC, batch_number ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// ListLowStock returns lots below their minimum, stocked-out lots first, then
// by ascending available/minimum ratio.
func (r *repository) ListLowStock(ctx context.Context) ([]models.InventoryLot, error) {
	var lots []models.InventoryLot
	err := r.DB(ctx).
		Where("stok_tersedia < stok_minimum").
		Order("CASE WHEN stok_tersedia = 0 THEN 0 ELSE 1 END ASC").
		Order("(1.0 * stok_tersedia) / stok_minimum ASC").
		Order("sku ASC, batch_number ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *repository) Create(ctx context.Context, lot *models.InventoryLot) error {
	return r.DB(ctx).Create(lot).Error
}

// Update writes only the given columns. stok_tersedia stays untouched unless
// it is explicitly part of the patch, so a reservation committed after the
// caller's read cannot be overwritten by a full row write.
func (r *repository) Update(ctx context.Context, sku, batch string, fields map[string]any) error {
	return r.DB(ctx).
		Model(&models.InventoryLot{}).
		Where("sku = ? AND batch_number = ?", sku, batch).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, sku, batch string) error {
	return r.DB(ctx).
		Where("sku = ? AND batch_number = ?", sku, batch).
		Delete(&models.InventoryLot{}).Error
}

func (r *repository) CountTransactionRefs(ctx context.Context, sku, batch string) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.TransactionLine{}).
		Where("sku = ? AND batch_number = ?", sku, batch).
		Count(&count).Error
	return count, err
}

// Reserve decrements available stock only when enough remains. The check and
// the decrement are one UPDATE, so concurrent reservations on the same lot
// serialize at the row and can never oversell.
func (r *repository) Reserve(ctx context.Context, sku, batch string, qty int) (bool, error) {
	res := r.DB(ctx).Exec(`
		UPDATE inventory
		SET stok_tersedia = stok_tersedia - ?,
			waktu_pembaruan = CURRENT_TIMESTAMP
		WHERE sku = ? AND batch_number = ? AND stok_tersedia >= ?
	`, qty, sku, batch, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Release restores previously reserved stock. Returns false when the lot no
// longer exists, which callers treat as corrupted state.
func (r *repository) Release(ctx context.Context, sku, batch string, qty int) (bool, error) {
	res := r.DB(ctx).Exec(`
		UPDATE inventory
		SET stok_tersedia = stok_tersedia + ?,
			waktu_pembaruan = CURRENT_TIMESTAMP
		WHERE sku = ? AND batch_number = ?
	`, qty, sku, batch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
