package transactions

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bastianns/tubes-lasti-t08/internal/inventory"
	"github.com/bastianns/tubes-lasti-t08/pkg/db"
	"github.com/bastianns/tubes-lasti-t08/pkg/db/models"
	pkgerrors "github.com/bastianns/tubes-lasti-t08/pkg/errors"
	"github.com/bastianns/tubes-lasti-t08/pkg/pagination"
)

func newTestEngine(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:transactions_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.InventoryLot{}, &models.Transaction{}, &models.TransactionLine{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ledger, err := inventory.NewService(inventory.NewRepository(conn), nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	svc, err := NewService(db.NewFromConn(conn), NewRepository(conn), ledger, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return svc, conn
}

func seedLot(t *testing.T, conn *gorm.DB, sku, batch string, available, minimum int, price int64) {
	t.Helper()
	lot := models.InventoryLot{
		SKU:          sku,
		BatchNumber:  batch,
		Name:         "Obat " + sku,
		AvailableQty: available,
		MinimumQty:   minimum,
		UnitPrice:    decimal.NewFromInt(price),
	}
	if err := conn.Create(&lot).Error; err != nil {
		t.Fatalf("seed lot %s/%s: %v", sku, batch, err)
	}
}

func lotStock(t *testing.T, conn *gorm.DB, sku, batch string) int {
	t.Helper()
	var lot models.InventoryLot
	if err := conn.Where("sku = ? AND batch_number = ?", sku, batch).First(&lot).Error; err != nil {
		t.Fatalf("reload lot %s/%s: %v", sku, batch, err)
	}
	return lot.AvailableQty
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	return typed.Code()
}

// Walks the lifecycle of one lot: a sale draws it down, an oversized second
// sale is refused without side effects, and shrinking the first sale gives
// the stock back.
func TestTransactionLifecycleScenario(t *testing.T) {
	svc, conn := newTestEngine(t)
	ctx := context.Background()
	seedLot(t, conn, "ASP001", "B1", 10, 5, 12000)

	created, err := svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{{SKU: "ASP001", BatchNumber: "B1", Qty: 7}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := lotStock(t, conn, "ASP001", "B1"); got != 3 {
		t.Fatalf("expected stock 3 after sale, got %d", got)
	}
	if !created.TotalAmount.Equal(decimal.NewFromInt(84000)) {
		t.Fatalf("unexpected total %s", created.TotalAmount)
	}

	_, err = svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{{SKU: "ASP001", BatchNumber: "B1", Qty: 5}},
	})
	if got := errCode(t, err); got != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %s", got)
	}
	if got := lotStock(t, conn, "ASP001", "B1"); got != 3 {
		t.Fatalf("failed sale must not move stock, got %d", got)
	}

	updated, err := svc.Update(ctx, created.ID, SubmitTransactionInput{
		Items: []LineItemInput{{SKU: "ASP001", BatchNumber: "B1", Qty: 3}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := lotStock(t, conn, "ASP001", "B1"); got != 7 {
		t.Fatalf("expected stock 7 after shrinking sale, got %d", got)
	}
	if !updated.TotalAmount.Equal(decimal.NewFromInt(36000)) {
		t.Fatalf("unexpected total after update %s", updated.TotalAmount)
	}
	if updated.CreatedAt.Unix() != created.CreatedAt.Unix() {
		t.Fatalf("created_at must be immutable")
	}
}

func TestUpdateCanGrowIntoOwnReservation(t *testing.T) {
	svc, conn := newTestEngine(t)
	ctx := context.Background()
	seedLot(t, conn, "ASP001", "B1", 10, 5, 1000)

	created, err := svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{{SKU: "ASP001", BatchNumber: "B1", Qty: 8}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 10 total, 8 already held by this sale: growing to 10 only works if the
	// old hold is released before the new reserve.
	if _, err := svc.Update(ctx, created.ID, SubmitTransactionInput{
		Items: []LineItemInput{{SKU: "ASP001", BatchNumber: "B1", Qty: 10}},
	}); err != nil {
		t.Fatalf("update into own reservation: %v", err)
	}
	if got := lotStock(t, conn, "ASP001", "B1"); got != 0 {
		t.Fatalf("expected stock exhausted, got %d", got)
	}
}

func TestUpdateFailureRestoresLedger(t *testing.T) {
	svc, conn := newTestEngine(t)
	ctx := context.Background()
	seedLot(t, conn, "ASP001", "B1", 10, 5, 1000)
	seedLot(t, conn, "PAR001", "B1", 2, 5, 2000)

	created, err := svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{
			{SKU: "ASP001", BatchNumber: "B1", Qty: 4},
			{SKU: "PAR001", BatchNumber: "B1", Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	before := map[string]int{
		"ASP001": lotStock(t, conn, "ASP001", "B1"),
		"PAR001": lotStock(t, conn, "PAR001", "B1"),
	}

	// PAR001 has 1 free + 1 held by this sale; asking for 5 must fail.
	_, err = svc.Update(ctx, created.ID, SubmitTransactionInput{
		Items: []LineItemInput{
			{SKU: "ASP001", BatchNumber: "B1", Qty: 2},
			{SKU: "PAR001", BatchNumber: "B1", Qty: 5},
		},
	})
	if got := errCode(t, err); got != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %s", got)
	}

	if got := lotStock(t, conn, "ASP001", "B1"); got != before["ASP001"] {
		t.Fatalf("ASP001 stock drifted: %d != %d", got, before["ASP001"])
	}
	if got := lotStock(t, conn, "PAR001", "B1"); got != before["PAR001"] {
		t.Fatalf("PAR001 stock drifted: %d != %d", got, before["PAR001"])
	}

	// the original lines survive untouched
	reloaded, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after failed update: %v", err)
	}
	if len(reloaded.Items) != 2 || reloaded.Items[0].Qty != 4 {
		t.Fatalf("original lines not preserved: %+v", reloaded.Items)
	}
}

func TestDeleteRestoresStockExactly(t *testing.T) {
	svc, conn := newTestEngine(t)
	ctx := context.Background()
	seedLot(t, conn, "ASP001", "B1", 10, 5, 1000)
	seedLot(t, conn, "PAR001", "B1", 6, 5, 2000)

	created, err := svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{
			{SKU: "PAR001", BatchNumber: "B1", Qty: 2},
			{SKU: "ASP001", BatchNumber: "B1", Qty: 3},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := lotStock(t, conn, "ASP001", "B1"); got != 10 {
		t.Fatalf("ASP001 not restored: %d", got)
	}
	if got := lotStock(t, conn, "PAR001", "B1"); got != 6 {
		t.Fatalf("PAR001 not restored: %d", got)
	}

	if _, err := svc.Get(ctx, created.ID); errCode(t, err) != pkgerrors.CodeNotFound {
		t.Fatalf("deleted transaction still readable")
	}

	// no orphan lines left behind
	var lineCount int64
	if err := conn.Model(&models.TransactionLine{}).Where("id_transaksi = ?", created.ID).Count(&lineCount).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if lineCount != 0 {
		t.Fatalf("expected cascade delete of lines, found %d", lineCount)
	}
}

func TestDeleteCorruptStateWhenLotGone(t *testing.T) {
	svc, conn := newTestEngine(t)
	ctx := context.Background()
	seedLot(t, conn, "ASP001", "B1", 10, 5, 1000)

	created, err := svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{{SKU: "ASP001", BatchNumber: "B1", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// rip the lot out from under the recorded sale
	if err := conn.Where("sku = ?", "ASP001").Delete(&models.InventoryLot{}).Error; err != nil {
		t.Fatalf("drop lot: %v", err)
	}

	err = svc.Delete(ctx, created.ID)
	if got := errCode(t, err); got != pkgerrors.CodeCorruptState {
		t.Fatalf("expected corrupt state, got %s", got)
	}

	// the aborted delete leaves the transaction in place
	if _, err := svc.Get(ctx, created.ID); err != nil {
		t.Fatalf("transaction should survive aborted delete: %v", err)
	}
}

func TestDeleteReportsEveryMissingLot(t *testing.T) {
	svc, conn := newTestEngine(t)
	ctx := context.Background()
	seedLot(t, conn, "ASP001", "B1", 10, 5, 1000)
	seedLot(t, conn, "PAR001", "B1", 10, 5, 2000)

	created, err := svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{
			{SKU: "ASP001", BatchNumber: "B1", Qty: 2},
			{SKU: "PAR001", BatchNumber: "B1", Qty: 3},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := conn.Where("sku IN ?", []string{"ASP001", "PAR001"}).
		Delete(&models.InventoryLot{}).Error; err != nil {
		t.Fatalf("drop lots: %v", err)
	}

	err = svc.Delete(ctx, created.ID)
	if got := errCode(t, err); got != pkgerrors.CodeCorruptState {
		t.Fatalf("expected corrupt state, got %s", got)
	}
	if failures := multierr.Errors(err); len(failures) != 2 {
		t.Fatalf("expected both lots reported, got %d: %v", len(failures), err)
	}
}

func TestTotalConsistency(t *testing.T) {
	svc, conn := newTestEngine(t)
	ctx := context.Background()
	seedLot(t, conn, "ASP001", "B1", 100, 5, 1250)
	seedLot(t, conn, "PAR001", "B1", 100, 5, 3300)

	created, err := svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{
			{SKU: "ASP001", BatchNumber: "B1", Qty: 3},
			{SKU: "PAR001", BatchNumber: "B1", Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sum := decimal.Zero
	for _, item := range created.Items {
		expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
		if !item.Subtotal.Equal(expected) {
			t.Fatalf("subtotal mismatch for %s: %s != %s", item.SKU, item.Subtotal, expected)
		}
		sum = sum.Add(item.Subtotal)
	}
	if !created.TotalAmount.Equal(sum) {
		t.Fatalf("total %s != line sum %s", created.TotalAmount, sum)
	}
}

func TestPriceSnapshotSurvivesLotEdits(t *testing.T) {
	svc, conn := newTestEngine(t)
	ctx := context.Background()
	seedLot(t, conn, "ASP001", "B1", 10, 5, 1000)

	created, err := svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{{SKU: "ASP001", BatchNumber: "B1", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := conn.Model(&models.InventoryLot{}).
		Where("sku = ?", "ASP001").
		Update("harga", decimal.NewFromInt(9999)).Error; err != nil {
		t.Fatalf("reprice lot: %v", err)
	}

	reloaded, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reloaded.Items[0].UnitPrice.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("price snapshot lost: %s", reloaded.Items[0].UnitPrice)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, SubmitTransactionInput{})
	if got := errCode(t, err); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty items, got %s", got)
	}

	_, err = svc.Create(ctx, SubmitTransactionInput{
		Items: []LineItemInput{{SKU: "ASP001", BatchNumber: "B1", Qty: 0}},
	})
	if got := errCode(t, err); got != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero qty, got %s", got)
	}
}

func TestListFiltersAndPagination(t *testing.T) {
	svc, conn := newTestEngine(t)
	ctx := context.Background()
	seedLot(t, conn, "ASP001", "B1", 1000, 5, 1000)

	ids := make([]int64, 0, 5)
	for i := 0; i < 5; i++ {
		created, err := svc.Create(ctx, SubmitTransactionInput{
			Items: []LineItemInput{{SKU: "ASP001", BatchNumber: "B1", Qty: 1}},
		})
		if err != nil {
			t.Fatalf("create #%d: %v", i, err)
		}
		ids = append(ids, created.ID)
	}

	// newest first
	all, err := svc.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all.Items) != 5 {
		t.Fatalf("expected 5 transactions, got %d", len(all.Items))
	}
	if all.Items[0].ID != ids[4] {
		t.Fatalf("expected newest first, got id %d", all.Items[0].ID)
	}

	// paging walks the full set without overlap
	page1, err := svc.List(ctx, ListFilter{Page: pagination.Params{Limit: 2}})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1.Items) != 2 || page1.NextCursor == "" {
		t.Fatalf("unexpected first page: %d items, cursor %q", len(page1.Items), page1.NextCursor)
	}
	page2, err := svc.List(ctx, ListFilter{Page: pagination.Params{Limit: 2, Cursor: page1.NextCursor}})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2.Items) != 2 {
		t.Fatalf("expected 2 items on page 2, got %d", len(page2.Items))
	}
	if page2.Items[0].ID == page1.Items[1].ID {
		t.Fatalf("pages overlap at id %d", page2.Items[0].ID)
	}

	// id substring filter
	byID, err := svc.List(ctx, ListFilter{IDQuery: strconv.FormatInt(all.Items[0].ID, 10)})
	if err != nil {
		t.Fatalf("list by id: %v", err)
	}
	if len(byID.Items) == 0 {
		t.Fatalf("expected id filter to match")
	}

	// inclusive date window covering today matches everything
	today := time.Now().UTC()
	byDate, err := svc.List(ctx, ListFilter{StartDate: &today, EndDate: &today})
	if err != nil {
		t.Fatalf("list by date: %v", err)
	}
	if len(byDate.Items) != 5 {
		t.Fatalf("expected 5 in today's window, got %d", len(byDate.Items))
	}

	// a window before any sale matches nothing
	past := today.AddDate(0, 0, -7)
	pastEnd := today.AddDate(0, 0, -1)
	empty, err := svc.List(ctx, ListFilter{StartDate: &past, EndDate: &pastEnd})
	if err != nil {
		t.Fatalf("list past window: %v", err)
	}
	if len(empty.Items) != 0 {
		t.Fatalf("expected empty window, got %d", len(empty.Items))
	}
}
