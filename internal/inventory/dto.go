package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bastianns/tubes-lasti-t08/pkg/db/models"
)

// CreateLotInput is the payload for a new (sku, batch) intake.
type CreateLotInput struct {
	SKU          string          `json:"sku" validate:"required,max=100"`
	BatchNumber  string          `json:"batch_number" validate:"required,max=50"`
	Name         string          `json:"nama_item" validate:"required,max=100"`
	Category     string          `json:"kategori" validate:"max=50"`
	AvailableQty int             `json:"stok_tersedia" validate:"gte=0"`
	MinimumQty   int             `json:"stok_minimum" validate:"gte=0"`
	UnitPrice    decimal.Decimal `json:"harga"`
}

// UpdateLotInput patches an existing lot. Nil fields are left untouched.
type UpdateLotInput struct {
	Name         *string          `json:"nama_item,omitempty" validate:"omitempty,max=100"`
	Category     *string          `json:"kategori,omitempty" validate:"omitempty,max=50"`
	AvailableQty *int             `json:"stok_tersedia,omitempty"`
	MinimumQty   *int             `json:"stok_minimum,omitempty"`
	UnitPrice    *decimal.Decimal `json:"harga,omitempty"`
}

// ListFilter narrows lot listings.
type ListFilter struct {
	Category string
	Search   string
}

// LotResponse is the wire shape for one inventory lot.
type LotResponse struct {
	SKU          string          `json:"sku"`
	BatchNumber  string          `json:"batch_number"`
	Name         string          `json:"nama_item"`
	Category     string          `json:"kategori"`
	AvailableQty int             `json:"stok_tersedia"`
	MinimumQty   int             `json:"stok_minimum"`
	UnitPrice    decimal.Decimal `json:"harga"`
	UpdatedAt    time.Time       `json:"waktu_pembaruan"`
}

// LowStockItem is the trimmed shape used by the low-stock report.
type LowStockItem struct {
	SKU          string `json:"sku"`
	BatchNumber  string `json:"batch_number"`
	Name         string `json:"nama_item"`
	AvailableQty int    `json:"stok_tersedia"`
	MinimumQty   int    `json:"stok_minimum"`
}

func (in CreateLotInput) toModel() models.InventoryLot {
	return models.InventoryLot{
		SKU:          in.SKU,
		BatchNumber:  in.BatchNumber,
		Name:         in.Name,
		Category:     in.Category,
		AvailableQty: in.AvailableQty,
		MinimumQty:   in.MinimumQty,
		UnitPrice:    in.UnitPrice,
	}
}

// NewLotResponse maps a persisted lot into its wire shape.
func NewLotResponse(lot models.InventoryLot) LotResponse {
	return LotResponse{
		SKU:          lot.SKU,
		BatchNumber:  lot.BatchNumber,
		Name:         lot.Name,
		Category:     lot.Category,
		AvailableQty: lot.AvailableQty,
		MinimumQty:   lot.MinimumQty,
		UnitPrice:    lot.UnitPrice,
		UpdatedAt:    lot.UpdatedAt,
	}
}

// NewLowStockItem maps a lot into the low-stock report shape.
func NewLowStockItem(lot models.InventoryLot) LowStockItem {
	return LowStockItem{
		SKU:          lot.SKU,
		BatchNumber:  lot.BatchNumber,
		Name:         lot.Name,
		AvailableQty: lot.AvailableQty,
		MinimumQty:   lot.MinimumQty,
	}
}
