package bestpay

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	orderDateLayout  = "20060102150405"
	refundDateLayout = "20060102"
)

// gatewayLoc is the gateway's clock. Falls back to a fixed UTC+8 zone when tzdata is
// unavailable.
var gatewayLoc = loadGatewayLocation()

func loadGatewayLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}

// FenFromYuan renders a yuan amount as the integral fen string the gateway expects.
func FenFromYuan(yuan decimal.Decimal) string {
	return yuan.Shift(2).Round(0).StringFixed(0)
}

// YuanFromFen parses a fen amount. An empty string is zero.
func YuanFromFen(fen string) (decimal.Decimal, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(fen)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-2), nil
}

// OrderDate formats t as an ORDERDATE value.
func OrderDate(t time.Time) string {
	return t.In(gatewayLoc).Format(orderDateLayout)
}

// RefundDate formats t as a REFUNDREQDATE value.
func RefundDate(t time.Time) string {
	return t.In(gatewayLoc).Format(refundDateLayout)
}
