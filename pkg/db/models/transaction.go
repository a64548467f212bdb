package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one recorded sale. Lines are owned by the transaction and
// removed with it; total_amount is always the sum of the line subtotals.
type Transaction struct {
	ID          int64             `gorm:"column:id_transaksi;primaryKey;autoIncrement"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null"`
	CreatedAt   time.Time         `gorm:"column:waktu_transaksi;autoCreateTime"`
	Lines       []TransactionLine `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
}

func (Transaction) TableName() string { return "transaksi" }

// TransactionLine snapshots one sold item. The unit price is captured at sale
// time and never re-read from the live lot.
type TransactionLine struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	TransactionID int64           `gorm:"column:id_transaksi;not null;index"`
	Position      int             `gorm:"column:position;not null"`
	SKU           string          `gorm:"column:sku;size:100;not null;index:idx_transaksi_item_lot"`
	BatchNumber   string          `gorm:"column:batch_number;size:50;not null;index:idx_transaksi_item_lot"`
	ItemName      string          `gorm:"column:nama_item;size:100;not null"`
	Qty           int             `gorm:"column:jumlah;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:harga_satuan;type:numeric(12,2);not null"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`
}

func (TransactionLine) TableName() string { return "transaksi_item" }
