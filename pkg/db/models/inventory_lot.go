package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryLot tracks the stock of one batch of a SKU. The pair
// (sku, batch_number) is the identity; two batches of the same SKU are
// independent lots with their own stock counts and price.
type InventoryLot struct {
	SKU          string          `gorm:"column:sku;size:100;primaryKey"`
	BatchNumber  string          `gorm:"column:batch_number;size:50;primaryKey"`
	Name         string          `gorm:"column:nama_item;size:100;not null"`
	Category     string          `gorm:"column:kategori;size:50"`
	AvailableQty int             `gorm:"column:stok_tersedia;not null;default:0"`
	MinimumQty   int             `gorm:"column:stok_minimum;not null;default:10"`
	UnitPrice    decimal.Decimal `gorm:"column:harga;type:numeric(12,2);not null"`
	UpdatedAt    time.Time       `gorm:"column:waktu_pembaruan;autoUpdateTime"`
}

func (InventoryLot) TableName() string { return "inventory" }

// StockedOut reports whether the lot has no stock left.
func (l InventoryLot) StockedOut() bool { return l.AvailableQty == 0 }

// LowStock reports whether the lot has fallen below its minimum level.
func (l InventoryLot) LowStock() bool { return l.AvailableQty < l.MinimumQty }
