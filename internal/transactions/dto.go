package transactions

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bastianns/tubes-lasti-t08/pkg/db/models"
	"github.com/bastianns/tubes-lasti-t08/pkg/pagination"
)

// LineItemInput is one candidate sale line.
type LineItemInput struct {
	SKU         string `json:"sku" validate:"required,max=100"`
	BatchNumber string `json:"batch_number" validate:"required,max=50"`
	Qty         int    `json:"jumlah" validate:"required,gt=0"`
}

// SubmitTransactionInput is the payload for both create and full-replace update.
type SubmitTransactionInput struct {
	Items []LineItemInput `json:"items" validate:"required,min=1,dive"`
}

// LineResponse is the wire shape of a recorded sale line.
type LineResponse struct {
	SKU         string          `json:"sku"`
	ItemName    string          `json:"nama_item"`
	BatchNumber string          `json:"batch_number"`
	Qty         int             `json:"jumlah"`
	UnitPrice   decimal.Decimal `json:"harga_satuan"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// TransactionResponse is the wire shape of a recorded sale.
type TransactionResponse struct {
	ID          int64           `json:"id_transaksi"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"waktu_transaksi"`
	Items       []LineResponse  `json:"items"`
}

// ListFilter narrows and pages the transaction history.
type ListFilter struct {
	IDQuery   string
	StartDate *time.Time
	EndDate   *time.Time
	Page      pagination.Params
}

// ListResult is one page of transaction history.
type ListResult struct {
	Items      []TransactionResponse `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// NewTransactionResponse maps a persisted transaction into its wire shape.
func NewTransactionResponse(txn models.Transaction) TransactionResponse {
	items := make([]LineResponse, 0, len(txn.Lines))
	for _, line := range txn.Lines {
		items = append(items, LineResponse{
			SKU:         line.SKU,
			ItemName:    line.ItemName,
			BatchNumber: line.BatchNumber,
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.Subtotal,
		})
	}
	return TransactionResponse{
		ID:          txn.ID,
		TotalAmount: txn.TotalAmount,
		CreatedAt:   txn.CreatedAt,
		Items:       items,
	}
}
