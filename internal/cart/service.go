package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bastianns/tubes-lasti-t08/internal/inventory"
	"github.com/bastianns/tubes-lasti-t08/internal/transactions"
	"github.com/bastianns/tubes-lasti-t08/pkg/config"
	pkgerrors "github.com/bastianns/tubes-lasti-t08/pkg/errors"
	"github.com/bastianns/tubes-lasti-t08/pkg/redis"
)

type draftStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(ownerID string) string
}

// Service is the cart assembler. The draft lives in Redis per staff session
// and its stock checks are optimistic only; the transaction engine performs
// the authoritative reserve at checkout.
type Service interface {
	Get(ctx context.Context, ownerID string) (*Draft, error)
	AddItem(ctx context.Context, ownerID string, input AddItemInput) (*Draft, error)
	RemoveItem(ctx context.Context, ownerID, sku, batch string) (*Draft, error)
	Clear(ctx context.Context, ownerID string) error
	Checkout(ctx context.Context, ownerID string) (*transactions.TransactionResponse, error)
}

type service struct {
	store  draftStore
	ledger inventory.Service
	engine transactions.Service
	cfg    config.CartConfig
}

// NewService wires the cart assembler.
func NewService(store draftStore, ledger inventory.Service, engine transactions.Service, cfg config.CartConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("draft store is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("transaction engine is required")
	}
	if cfg.DraftTTL <= 0 {
		return nil, fmt.Errorf("draft ttl must be positive")
	}
	if cfg.MaxLines <= 0 {
		return nil, fmt.Errorf("max lines must be positive")
	}
	return &service{store: store, ledger: ledger, engine: engine, cfg: cfg}, nil
}

func (s *service) Get(ctx context.Context, ownerID string) (*Draft, error) {
	return s.load(ctx, ownerID)
}

// AddItem stages a line against the lot's last-known stock. Lines for the
// same lot merge into one.
func (s *service) AddItem(ctx context.Context, ownerID string, input AddItemInput) (*Draft, error) {
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "jumlah must be positive")
	}

	draft, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	lot, err := s.ledger.GetLot(ctx, input.SKU, input.BatchNumber)
	if err != nil {
		return nil, err
	}

	staged := input.Qty
	idx := draft.indexOf(input.SKU, input.BatchNumber)
	if idx >= 0 {
		staged += draft.Lines[idx].Qty
	}
	if staged > lot.AvailableQty {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for %s batch %s", input.SKU, input.BatchNumber)).
			WithDetails(map[string]any{
				"sku":           input.SKU,
				"batch_number":  input.BatchNumber,
				"requested":     staged,
				"stok_tersedia": lot.AvailableQty,
			})
	}

	if idx >= 0 {
		draft.Lines[idx].Qty = staged
		draft.Lines[idx].LastKnownStock = lot.AvailableQty
	} else {
		if len(draft.Lines) >= s.cfg.MaxLines {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("cart holds at most %d lines", s.cfg.MaxLines))
		}
		draft.Lines = append(draft.Lines, DraftLine{
			SKU:            input.SKU,
			BatchNumber:    input.BatchNumber,
			Name:           lot.Name,
			Qty:            input.Qty,
			UnitPrice:      lot.UnitPrice,
			LastKnownStock: lot.AvailableQty,
		})
	}

	if err := s.save(ctx, ownerID, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *service) RemoveItem(ctx context.Context, ownerID, sku, batch string) (*Draft, error) {
	draft, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	idx := draft.indexOf(sku, batch)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line not in cart")
	}
	draft.Lines = append(draft.Lines[:idx], draft.Lines[idx+1:]...)

	if err := s.save(ctx, ownerID, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *service) Clear(ctx context.Context, ownerID string) error {
	if err := s.store.Del(ctx, s.store.CartKey(ownerID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart draft")
	}
	return nil
}

// Checkout submits the staged lines to the transaction engine. The engine's
// refusal is returned verbatim; the draft survives a failed checkout so the
// user can adjust it.
func (s *service) Checkout(ctx context.Context, ownerID string) (*transactions.TransactionResponse, error) {
	draft, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(draft.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	items := make([]transactions.LineItemInput, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		items = append(items, transactions.LineItemInput{
			SKU:         line.SKU,
			BatchNumber: line.BatchNumber,
			Qty:         line.Qty,
		})
	}

	created, err := s.engine.Create(ctx, transactions.SubmitTransactionInput{Items: items})
	if err != nil {
		return nil, err
	}

	if err := s.Clear(ctx, ownerID); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) load(ctx context.Context, ownerID string) (*Draft, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	raw, err := s.store.Get(ctx, s.store.CartKey(ownerID))
	if err != nil {
		if redis.IsNil(err) {
			return &Draft{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart draft")
	}

	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeCorruptState, err, "decode cart draft")
	}
	return &draft, nil
}

func (s *service) save(ctx context.Context, ownerID string, draft *Draft) error {
	draft.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(draft)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart draft")
	}
	if err := s.store.Set(ctx, s.store.CartKey(ownerID), string(payload), s.cfg.DraftTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store cart draft")
	}
	return nil
}
