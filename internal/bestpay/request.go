package bestpay

// Request records carry two tags per field: `json` is the wire name sent to the
// gateway (empty values omitted) and `mac` binds the field to its signing token.
// Fields without a mac tag are transmitted but never signed.

// BarcodePayRequest settles a payment code presented by the customer.
type BarcodePayRequest struct {
	MerchantID    string `json:"merchantId,omitempty" mac:"MERCHANTID"`
	SubMerchantID string `json:"subMerchantId,omitempty"`
	OrderNo       string `json:"orderNo,omitempty" mac:"ORDERNO"`
	OrderReqNo    string `json:"orderReqNo,omitempty" mac:"ORDERREQNO"`
	OrderDate     string `json:"orderDate,omitempty" mac:"ORDERDATE"`
	Barcode       string `json:"barcode,omitempty" mac:"BARCODE"`
	OrderAmt      string `json:"orderAmt,omitempty" mac:"ORDERAMT"` // fen
	ProductAmt    string `json:"productAmt,omitempty"`
	AttachAmt     string `json:"attachAmt,omitempty"`
	GoodsName     string `json:"goodsName,omitempty"`
	StoreID       string `json:"storeId,omitempty"`
	Channel       string `json:"channel,omitempty"`
	BusiType      string `json:"busiType,omitempty"`
	Attach        string `json:"attach,omitempty"`
}

// QueryOrderRequest looks up an order previously submitted with Barcode.
type QueryOrderRequest struct {
	MerchantID string `json:"merchantId,omitempty" mac:"MERCHANTID"`
	OrderNo    string `json:"orderNo,omitempty" mac:"ORDERNO"`
	OrderReqNo string `json:"orderReqNo,omitempty" mac:"ORDERREQNO"`
	OrderDate  string `json:"orderDate,omitempty" mac:"ORDERDATE"`
}

// OrderRefundRequest refunds a settled order. MerchantPwd is the merchant's
// transaction password, distinct from the signing key.
type OrderRefundRequest struct {
	MerchantID    string `json:"merchantId,omitempty" mac:"MERCHANTID"`
	MerchantPwd   string `json:"merchantPwd,omitempty" mac:"MERCHANTPWD"`
	OldOrderNo    string `json:"oldOrderNo,omitempty" mac:"OLDORDERNO"`
	OldOrderReqNo string `json:"oldOrderReqNo,omitempty" mac:"OLDORDERREQNO"`
	RefundReqNo   string `json:"refundReqNo,omitempty" mac:"REFUNDREQNO"`
	RefundReqDate string `json:"refundReqDate,omitempty" mac:"REFUNDREQDATE"`
	TransAmt      string `json:"transAmt,omitempty" mac:"TRANSAMT"` // fen
	LedgerDetail  string `json:"ledgerDetail,omitempty" mac:"LEDGERDETAIL"`
	Channel       string `json:"channel,omitempty"`
}

// OrderReverseRequest voids an order before settlement completes.
type OrderReverseRequest struct {
	MerchantID    string `json:"merchantId,omitempty" mac:"MERCHANTID"`
	MerchantPwd   string `json:"merchantPwd,omitempty" mac:"MERCHANTPWD"`
	OldOrderNo    string `json:"oldOrderNo,omitempty" mac:"OLDORDERNO"`
	OldOrderReqNo string `json:"oldOrderReqNo,omitempty" mac:"OLDORDERREQNO"`
	RefundReqNo   string `json:"refundReqNo,omitempty" mac:"REFUNDREQNO"`
	RefundReqDate string `json:"refundReqDate,omitempty" mac:"REFUNDREQDATE"`
	TransAmt      string `json:"transAmt,omitempty" mac:"TRANSAMT"` // fen
	Channel       string `json:"channel,omitempty"`
}
