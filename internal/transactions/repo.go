package transactions

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bastianns/tubes-lasti-t08/internal/repo"
	"github.com/bastianns/tubes-lasti-t08/pkg/db/models"
	"github.com/bastianns/tubes-lasti-t08/pkg/pagination"
)

// Repository manages persistence for transactions and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	FindWithLines(ctx context.Context, id int64) (*models.Transaction, error)
	FindLot(ctx context.Context, sku, batch string) (*models.InventoryLot, error)
	ReplaceLines(ctx context.Context, txn *models.Transaction, lines []models.TransactionLine) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Transaction, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a transaction repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.DB(ctx).Create(txn).Error
}

func (r *repository) FindWithLines(ctx context.Context, id int64) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.DB(ctx).
		Preload("Lines", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") }).
		Where("id_transaksi = ?", id).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindLot(ctx context.Context, sku, batch string) (*models.InventoryLot, error) {
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

// ReplaceLines swaps the transaction's lines and total in place. created_at is
// never touched.
func (r *repository) ReplaceLines(ctx context.Context, txn *models.Transaction, lines []models.TransactionLine) error {
	conn := r.DB(ctx)
	if err := conn.Where("id_transaksi = ?", txn.ID).Delete(&models.TransactionLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].TransactionID = txn.ID
	}
	if err := conn.Create(&lines).Error; err != nil {
		return err
	}
	return conn.Model(&models.Transaction{}).
		Where("id_transaksi = ?", txn.ID).
		Update("total_amount", txn.TotalAmount).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	conn := r.DB(ctx)
	if err := conn.Where("id_transaksi = ?", id).Delete(&models.TransactionLine{}).Error; err != nil {
		return err
	}
	return conn.Where("id_transaksi = ?", id).Delete(&models.Transaction{}).Error
}

// List returns transactions newest first, ties broken by id descending. The
// date range is inclusive at day granularity; the id filter is a substring
// match over the numeric id.
func (r *repository) List(ctx context.Context, filter ListFilter, limit int, cursor *pagination.Cursor) ([]models.Transaction, error) {
	q := r.DB(ctx).
		Model(&models.Transaction{}).
		Preload("Lines", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") })

	if filter.IDQuery != "" {
		q = q.Where("CAST(id_transaksi AS TEXT) LIKE ?", "%"+filter.IDQuery+"%")
	}
	if filter.StartDate != nil {
		q = q.Where("waktu_transaksi >= ?", dayStart(*filter.StartDate))
	}
	if filter.EndDate != nil {
		q = q.Where("waktu_transaksi < ?", dayStart(*filter.EndDate).AddDate(0, 0, 1))
	}
	if cursor != nil {
		q = q.Where(
			"waktu_transaksi < ? OR (waktu_transaksi = ? AND id_transaksi < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var txns []models.Transaction
	err := q.Order("waktu_transaksi DESC, id_transaksi DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
