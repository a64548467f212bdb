package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddItemInput stages one candidate line.
type AddItemInput struct {
	SKU         string `json:"sku" validate:"required,max=100"`
	BatchNumber string `json:"batch_number" validate:"required,max=50"`
	Qty         int    `json:"jumlah" validate:"required,gt=0"`
}

// DraftLine is one staged line plus the stock level seen when it was staged.
type DraftLine struct {
	SKU            string          `json:"sku"`
	BatchNumber    string          `json:"batch_number"`
	Name           string          `json:"nama_item"`
	Qty            int             `json:"jumlah"`
	UnitPrice      decimal.Decimal `json:"harga_satuan"`
	LastKnownStock int             `json:"stok_terakhir"`
}

// Draft is the staged cart for one staff session.
type Draft struct {
	Lines     []DraftLine `json:"lines"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Subtotal sums the staged lines using their last-seen prices. Display only;
// the engine reprices at checkout.
func (d *Draft) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	return total
}

func (d *Draft) indexOf(sku, batch string) int {
	for i, line := range d.Lines {
		if line.SKU == sku && line.BatchNumber == batch {
			return i
		}
	}
	return -1
}
