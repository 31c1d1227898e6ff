package settlement

import (
	"bestpay-client/internal/bestpay"

	"github.com/shopspring/decimal"
)

// Merchant holds the credentials the server signs and authenticates with.
type Merchant struct {
	ID       string
	Key      string
	Password string
}

// Request bodies accept the gateway fields directly. AmountYuan, when set, replaces
// the fen amount field.

type BarcodeInput struct {
	bestpay.BarcodePayRequest
	AmountYuan *decimal.Decimal `json:"amountYuan,omitempty"`
}

type QueryInput struct {
	bestpay.QueryOrderRequest
}

type RefundInput struct {
	bestpay.OrderRefundRequest
	AmountYuan *decimal.Decimal `json:"amountYuan,omitempty"`
}

type ReverseInput struct {
	bestpay.OrderReverseRequest
	AmountYuan *decimal.Decimal `json:"amountYuan,omitempty"`
}

// Result echoes the request number and date used, so callers that let the server
// generate them can query or refund later.
type Result[T any] struct {
	RequestNo   string `json:"requestNo"`
	RequestDate string `json:"requestDate"`
	Gateway     *T     `json:"gateway"`
}
