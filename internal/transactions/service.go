package transactions

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bastianns/tubes-lasti-t08/internal/inventory"
	"github.com/bastianns/tubes-lasti-t08/pkg/db/models"
	pkgerrors "github.com/bastianns/tubes-lasti-t08/pkg/errors"
	"github.com/bastianns/tubes-lasti-t08/pkg/metrics"
	"github.com/bastianns/tubes-lasti-t08/pkg/pagination"
)

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the transaction engine. Every mutation runs inside a single
// database transaction, so a failure at any step rolls the ledger back to the
// state it was in before the call began.
type Service interface {
	Create(ctx context.Context, input SubmitTransactionInput) (*TransactionResponse, error)
	Get(ctx context.Context, id int64) (*TransactionResponse, error)
	Update(ctx context.Context, id int64, input SubmitTransactionInput) (*TransactionResponse, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
}

type service struct {
	db      TxRunner
	repo    Repository
	ledger  inventory.Service
	metrics *metrics.EngineMetrics
}

// NewService wires the transaction engine. Metrics may be nil.
func NewService(db TxRunner, repo Repository, ledger inventory.Service, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{db: db, repo: repo, ledger: ledger, metrics: engineMetrics}, nil
}

func (s *service) Create(ctx context.Context, input SubmitTransactionInput) (*TransactionResponse, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOp("create", time.Since(start)) }()

	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	var resp *TransactionResponse
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		lines, total, err := s.reserveAndPrice(ctx, tx, input.Items)
		if err != nil {
			return err
		}

		txn := &models.Transaction{TotalAmount: total, Lines: lines}
		if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist transaction")
		}

		out := NewTransactionResponse(*txn)
		resp = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *service) Get(ctx context.Context, id int64) (*TransactionResponse, error) {
	txn, err := s.repo.FindWithLines(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find transaction")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	out := NewTransactionResponse(*txn)
	return &out, nil
}

// Update replaces the transaction's lines. Old reservations are released
// before the new ones are taken, inside the same database transaction, so a
// line can grow into stock its own prior version was holding. Any failure
// rolls back both phases and leaves the ledger exactly as it was.
func (s *service) Update(ctx context.Context, id int64, input SubmitTransactionInput) (*TransactionResponse, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOp("update", time.Since(start)) }()

	if err := validateItems(input.Items); err != nil {
		return nil, err
	}

	var resp *TransactionResponse
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindWithLines(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find transaction")
		}
		if existing == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}

		if err := s.releaseLines(ctx, tx, existing.Lines); err != nil {
			return err
		}

		lines, total, err := s.reserveAndPrice(ctx, tx, input.Items)
		if err != nil {
			return err
		}

		existing.TotalAmount = total
		if err := repo.ReplaceLines(ctx, existing, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace transaction lines")
		}

		existing.Lines = lines
		out := NewTransactionResponse(*existing)
		resp = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Delete removes the transaction and returns its stock to the ledger. A
// failed release aborts the whole deletion rather than losing stock.
func (s *service) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	defer func() { s.metrics.ObserveOp("delete", time.Since(start)) }()

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindWithLines(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find transaction")
		}
		if existing == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}

		if err := s.releaseLines(ctx, tx, existing.Lines); err != nil {
			return err
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete transaction")
		}
		return nil
	})
}

func (s *service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(filter.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(filter.Page.Limit)
	txns, err := s.repo.List(ctx, filter, pagination.LimitWithBuffer(filter.Page.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	result := &ListResult{Items: make([]TransactionResponse, 0, len(txns))}
	if len(txns) > limit {
		last := txns[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		txns = txns[:limit]
	}
	for _, txn := range txns {
		result.Items = append(result.Items, NewTransactionResponse(txn))
	}
	return result, nil
}

// reserveAndPrice takes stock for every item and snapshots each lot's name and
// price. Lots are visited in lexicographic (sku, batch) order so two engine
// calls touching the same lots cannot deadlock.
func (s *service) reserveAndPrice(ctx context.Context, tx *gorm.DB, items []LineItemInput) ([]models.TransactionLine, decimal.Decimal, error) {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := items[order[a]], items[order[b]]
		if ia.SKU != ib.SKU {
			return ia.SKU < ib.SKU
		}
		if ia.BatchNumber != ib.BatchNumber {
			return ia.BatchNumber < ib.BatchNumber
		}
		return order[a] < order[b]
	})

	for _, idx := range order {
		item := items[idx]
		if err := s.ledger.Reserve(ctx, tx, item.SKU, item.BatchNumber, item.Qty); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
				if details, ok := typed.Details().(map[string]any); ok {
					details["position"] = idx
				}
			}
			return nil, decimal.Zero, err
		}
	}

	repo := s.repo.WithTx(tx)
	lines := make([]models.TransactionLine, 0, len(items))
	total := decimal.Zero
	for i, item := range items {
		lot, err := repo.FindLot(ctx, item.SKU, item.BatchNumber)
		if err != nil {
			return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read reserved lot")
		}
		if lot == nil {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeCorruptState,
				fmt.Sprintf("reserved lot %s batch %s disappeared", item.SKU, item.BatchNumber))
		}

		subtotal := lot.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
		lines = append(lines, models.TransactionLine{
			Position:    i,
			SKU:         item.SKU,
			BatchNumber: item.BatchNumber,
			ItemName:    lot.Name,
			Qty:         item.Qty,
			UnitPrice:   lot.UnitPrice,
			Subtotal:    subtotal,
		})
		total = total.Add(subtotal)
	}
	return lines, total, nil
}

// releaseLines restores stock held by the given lines, in lexicographic lot
// order to match the reservation path. Every line is attempted and failures
// are collected, so one corrupt lot does not hide another.
func (s *service) releaseLines(ctx context.Context, tx *gorm.DB, lines []models.TransactionLine) error {
	sorted := make([]models.TransactionLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].SKU != sorted[b].SKU {
			return sorted[a].SKU < sorted[b].SKU
		}
		return sorted[a].BatchNumber < sorted[b].BatchNumber
	})

	var combined error
	for _, line := range sorted {
		if err := s.ledger.Release(ctx, tx, line.SKU, line.BatchNumber, line.Qty); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}

func validateItems(items []LineItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction requires at least one item")
	}

	var combined error
	for i, item := range items {
		if item.SKU == "" {
			combined = multierr.Append(combined, fmt.Errorf("item %d: sku is required", i))
		}
		if item.BatchNumber == "" {
			combined = multierr.Append(combined, fmt.Errorf("item %d: batch_number is required", i))
		}
		if item.Qty <= 0 {
			combined = multierr.Append(combined, fmt.Errorf("item %d: jumlah must be positive", i))
		}
	}
	if combined != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, combined, "invalid transaction items")
	}
	return nil
}
