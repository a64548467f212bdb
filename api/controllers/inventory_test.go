package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bastianns/tubes-lasti-t08/internal/inventory"
	pkgerrors "github.com/bastianns/tubes-lasti-t08/pkg/errors"
)

type stubInventoryService struct {
	lot        *inventory.LotResponse
	lots       []inventory.LotResponse
	lowStock   []inventory.LowStockItem
	err        error
	gotFilter  inventory.ListFilter
	gotSKU     string
	gotBatch   string
	gotCreate  inventory.CreateLotInput
	gotUpdate  inventory.UpdateLotInput
	deletedKey string
}

func (s *stubInventoryService) GetLot(_ context.Context, sku, batch string) (*inventory.LotResponse, error) {
	s.gotSKU, s.gotBatch = sku, batch
	return s.lot, s.err
}

func (s *stubInventoryService) ListLots(_ context.Context, filter inventory.ListFilter) ([]inventory.LotResponse, error) {
	s.gotFilter = filter
	return s.lots, s.err
}

func (s *stubInventoryService) LowStock(_ context.Context) ([]inventory.LowStockItem, error) {
	return s.lowStock, s.err
}

func (s *stubInventoryService) CreateLot(_ context.Context, input inventory.CreateLotInput) (*inventory.LotResponse, error) {
	s.gotCreate = input
	return s.lot, s.err
}

func (s *stubInventoryService) UpdateLot(_ context.Context, sku, batch string, input inventory.UpdateLotInput) (*inventory.LotResponse, error) {
	s.gotSKU, s.gotBatch, s.gotUpdate = sku, batch, input
	return s.lot, s.err
}

func (s *stubInventoryService) DeleteLot(_ context.Context, sku, batch string) error {
	s.deletedKey = sku + "/" + batch
	return s.err
}

func (s *stubInventoryService) Reserve(_ context.Context, _ *gorm.DB, _, _ string, _ int) error {
	return nil
}

func (s *stubInventoryService) Release(_ context.Context, _ *gorm.DB, _, _ string, _ int) error {
	return nil
}

func lotRequest(method, url string, sku, batch string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("sku", sku)
	rc.URLParams.Add("batchNumber", batch)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func sampleLot() *inventory.LotResponse {
	return &inventory.LotResponse{
		SKU:          "PCT-500",
		BatchNumber:  "B-2026-01",
		Name:         "Paracetamol 500mg",
		Category:     "analgesik",
		AvailableQty: 40,
		MinimumQty:   10,
		UnitPrice:    decimal.NewFromInt(12000),
	}
}

func TestInventoryListPassesFilter(t *testing.T) {
	svc := &stubInventoryService{lots: []inventory.LotResponse{*sampleLot()}}
	handler := InventoryList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory?kategori=analgesik&q=para", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotFilter.Category != "analgesik" || svc.gotFilter.Search != "para" {
		t.Fatalf("unexpected filter: %+v", svc.gotFilter)
	}

	var envelope struct {
		Data []inventory.LotResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].SKU != "PCT-500" {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}

func TestInventoryGetUsesURLParams(t *testing.T) {
	svc := &stubInventoryService{lot: sampleLot()}
	handler := InventoryGet(svc, nil)

	req := lotRequest(http.MethodGet, "/api/v1/inventory/PCT-500/B-2026-01", "PCT-500", "B-2026-01", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotSKU != "PCT-500" || svc.gotBatch != "B-2026-01" {
		t.Fatalf("expected url params forwarded, got %s/%s", svc.gotSKU, svc.gotBatch)
	}
}

func TestInventoryGetNotFound(t *testing.T) {
	svc := &stubInventoryService{err: pkgerrors.New(pkgerrors.CodeNotFound, "lot not found")}
	handler := InventoryGet(svc, nil)

	req := lotRequest(http.MethodGet, "/api/v1/inventory/NOPE/B1", "NOPE", "B1", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestInventoryCreateReturns201(t *testing.T) {
	svc := &stubInventoryService{lot: sampleLot()}
	handler := InventoryCreate(svc, nil)

	payload := `{"sku":"PCT-500","batch_number":"B-2026-01","nama_item":"Paracetamol 500mg","kategori":"analgesik","stok_tersedia":40,"stok_minimum":10,"harga":"12000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory", bytes.NewReader([]byte(payload)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.gotCreate.SKU != "PCT-500" || svc.gotCreate.AvailableQty != 40 {
		t.Fatalf("unexpected input: %+v", svc.gotCreate)
	}
}

func TestInventoryCreateRejectsMissingSKU(t *testing.T) {
	handler := InventoryCreate(&stubInventoryService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory", bytes.NewReader([]byte(`{"nama_item":"Paracetamol"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestInventoryDeleteConflictWhenReferenced(t *testing.T) {
	svc := &stubInventoryService{err: pkgerrors.New(pkgerrors.CodeConflict, "lot is referenced")}
	handler := InventoryDelete(svc, nil)

	req := lotRequest(http.MethodDelete, "/api/v1/inventory/PCT-500/B-2026-01", "PCT-500", "B-2026-01", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestInventoryUpdateMissingParams(t *testing.T) {
	handler := InventoryUpdate(&stubInventoryService{}, nil)

	req := lotRequest(http.MethodPatch, "/api/v1/inventory//", "", "", bytes.NewReader([]byte(`{}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestInventoryLowStock(t *testing.T) {
	svc := &stubInventoryService{lowStock: []inventory.LowStockItem{
		{SKU: "AMX-250", BatchNumber: "B7", Name: "Amoxicillin 250mg", AvailableQty: 0, MinimumQty: 5},
	}}
	handler := InventoryLowStock(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/low-stock", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data []inventory.LowStockItem `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].SKU != "AMX-250" {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}
