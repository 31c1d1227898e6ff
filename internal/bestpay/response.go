package bestpay

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Transaction states reported in OrderResult.TransStatus.
const (
	TransStatusProcessing = "A"
	TransStatusSuccess    = "B"
	TransStatusFailed     = "C"
)

// StringOrNumber accepts a JSON string or number. The gateway is not consistent about
// quoting amounts.
type StringOrNumber string

func (s *StringOrNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = StringOrNumber(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = StringOrNumber(strings.TrimSpace(n.String()))
	return nil
}

func (s StringOrNumber) String() string {
	return string(s)
}

// Yuan converts a fen amount to yuan.
func (s StringOrNumber) Yuan() (decimal.Decimal, error) {
	return YuanFromFen(string(s))
}

// Envelope is the gateway's common reply wrapper.
type Envelope struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
}

// IsSuccess reports whether the gateway accepted the call. It says nothing about the
// final transaction state; check the result's TransStatus for that.
func (e Envelope) IsSuccess() bool {
	return e.Success && e.ErrorCode == ""
}

// OrderResult is the payload of barcode and query replies.
type OrderResult struct {
	MerchantID   string         `json:"merchantId"`
	OrderNo      string         `json:"orderNo"`
	OrderReqNo   string         `json:"orderReqNo"`
	OrderDate    string         `json:"orderDate"`
	OurTransNo   string         `json:"ourTransNo"`
	TransAmt     StringOrNumber `json:"transAmt"`
	TransStatus  string         `json:"transStatus"`
	EncodeType   string         `json:"encodeType"`
	Sign         string         `json:"sign"`
	CouponAmt    StringOrNumber `json:"coupon"`
	ScValue      StringOrNumber `json:"scValue"`
	PayerAccount string         `json:"payerAccount"`
	PayeeAccount string         `json:"payeeAccount"`
	PayChannel   string         `json:"payChannel"`
	ProductDesc  string         `json:"productDesc"`
	RefundFlag   string         `json:"refundFlag"`
	CustomerID   string         `json:"customerId"`
	RespCode     string         `json:"respCode"`
	RespDesc     string         `json:"respDesc"`
	TransPhone   string         `json:"transPhone"`
}

// OrderResultResponse is returned by Barcode and Query.
type OrderResultResponse struct {
	Envelope
	Result *OrderResult `json:"result"`
}

// Paid reports a successful call whose transaction has settled.
func (r *OrderResultResponse) Paid() bool {
	return r.IsSuccess() && r.Result != nil && r.Result.TransStatus == TransStatusSuccess
}

// RefundResult is the payload of refund and object-shaped reverse replies.
type RefundResult struct {
	MerchantID  string         `json:"merchantId"`
	OldOrderNo  string         `json:"oldOrderNo"`
	RefundReqNo string         `json:"refundReqNo"`
	OurTransNo  string         `json:"ourTransNo"`
	TransAmt    StringOrNumber `json:"transAmt"`
	TransStatus string         `json:"transStatus"`
	Sign        string         `json:"sign"`
}

// OrderRefundResponse is returned by Refund.
type OrderRefundResponse struct {
	Envelope
	Result *RefundResult `json:"result"`
}

// ReverseResult holds a reverse reply's result, which the gateway sends either as a
// bare boolean or as a refund-shaped object.
type ReverseResult struct {
	Accepted bool
	Detail   *RefundResult
}

func (r *ReverseResult) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*r = ReverseResult{}
		return nil
	case len(b) > 0 && b[0] == '{':
		var detail RefundResult
		if err := json.Unmarshal(b, &detail); err != nil {
			return err
		}
		*r = ReverseResult{Accepted: true, Detail: &detail}
		return nil
	default:
		var ok bool
		if err := json.Unmarshal(b, &ok); err != nil {
			return err
		}
		*r = ReverseResult{Accepted: ok}
		return nil
	}
}

func (r ReverseResult) MarshalJSON() ([]byte, error) {
	if r.Detail != nil {
		return json.Marshal(r.Detail)
	}
	return json.Marshal(r.Accepted)
}

// OrderReverseResponse is returned by Reverse.
type OrderReverseResponse struct {
	Envelope
	Result ReverseResult `json:"result"`
}
