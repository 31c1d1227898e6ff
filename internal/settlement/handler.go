package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bestpay-client/internal/audit"
	"bestpay-client/internal/auth"
	"bestpay-client/internal/bestpay"
	"bestpay-client/internal/logger"
	"bestpay-client/internal/middleware"
	"bestpay-client/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// Request number prefixes.
const (
	prefixOrder   = "OR"
	prefixRefund  = "RF"
	prefixReverse = "RV"
)

// Gateway is satisfied by *bestpay.Client.
type Gateway interface {
	Barcode(ctx context.Context, req bestpay.BarcodePayRequest, key string) (*bestpay.OrderResultResponse, error)
	Query(ctx context.Context, req bestpay.QueryOrderRequest, key string) (*bestpay.OrderResultResponse, error)
	Refund(ctx context.Context, req bestpay.OrderRefundRequest, key string) (*bestpay.OrderRefundResponse, error)
	Reverse(ctx context.Context, req bestpay.OrderReverseRequest, key string) (*bestpay.OrderReverseResponse, error)
}

// ExchangeLister reads the stored gateway trail. audit.Repository satisfies it.
type ExchangeLister interface {
	ListByRequestID(ctx context.Context, clientID, requestID string) ([]audit.Entry, error)
}

type Handler struct {
	gateway   Gateway
	merchant  Merchant
	exchanges ExchangeLister
	now       func() time.Time
}

// NewHandler serves the settlement API. exchanges may be nil when no audit database
// is configured.
func NewHandler(gateway Gateway, merchant Merchant, exchanges ExchangeLister) *Handler {
	return &Handler{
		gateway:   gateway,
		merchant:  merchant,
		exchanges: exchanges,
		now:       time.Now,
	}
}

// Register mounts the routes. They expect middleware.Auth to have run: each route
// checks the token scope it needs.
func (h *Handler) Register(mux *http.ServeMux) {
	settle := middleware.RequireScope(auth.ScopeSettle)
	query := middleware.RequireScope(auth.ScopeSettle, auth.ScopeQuery)

	mux.Handle("POST /v1/bestpay/barcode", settle(http.HandlerFunc(h.Barcode)))
	mux.Handle("POST /v1/bestpay/query", query(http.HandlerFunc(h.Query)))
	mux.Handle("POST /v1/bestpay/refund", settle(http.HandlerFunc(h.Refund)))
	mux.Handle("POST /v1/bestpay/reverse", settle(http.HandlerFunc(h.Reverse)))
	if h.exchanges != nil {
		readAudit := middleware.RequireScope(auth.ScopeAudit)
		mux.Handle("GET /v1/bestpay/exchanges/{requestID}", readAudit(http.HandlerFunc(h.Exchanges)))
	}
}

func (h *Handler) Barcode(w http.ResponseWriter, r *http.Request) {
	var in BarcodeInput
	if !decode(w, r, &in) {
		return
	}

	req := in.BarcodePayRequest
	if !h.checkMerchant(w, &req.MerchantID) {
		return
	}
	if in.AmountYuan != nil {
		if !validAmount(w, *in.AmountYuan) {
			return
		}
		req.OrderAmt = bestpay.FenFromYuan(*in.AmountYuan)
	}
	if missing := firstMissing(
		field{"orderNo", req.OrderNo},
		field{"barcode", req.Barcode},
		field{"orderAmt or amountYuan", req.OrderAmt},
	); missing != "" {
		utils.WriteJSONError(w, missing+" is required", http.StatusBadRequest)
		return
	}
	req.OrderReqNo = orDefault(req.OrderReqNo, utils.GenerateRequestNo(prefixOrder))
	req.OrderDate = orDefault(req.OrderDate, bestpay.OrderDate(h.now()))

	resp, err := h.gateway.Barcode(r.Context(), req, h.merchant.Key)
	if err != nil {
		writeGatewayError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, Result[bestpay.OrderResultResponse]{
		RequestNo: req.OrderReqNo, RequestDate: req.OrderDate, Gateway: resp,
	})
}

func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var in QueryInput
	if !decode(w, r, &in) {
		return
	}

	req := in.QueryOrderRequest
	if !h.checkMerchant(w, &req.MerchantID) {
		return
	}
	if missing := firstMissing(
		field{"orderNo", req.OrderNo},
		field{"orderReqNo", req.OrderReqNo},
		field{"orderDate", req.OrderDate},
	); missing != "" {
		utils.WriteJSONError(w, missing+" is required", http.StatusBadRequest)
		return
	}

	resp, err := h.gateway.Query(r.Context(), req, h.merchant.Key)
	if err != nil {
		writeGatewayError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, Result[bestpay.OrderResultResponse]{
		RequestNo: req.OrderReqNo, RequestDate: req.OrderDate, Gateway: resp,
	})
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var in RefundInput
	if !decode(w, r, &in) {
		return
	}

	req := in.OrderRefundRequest
	if !h.checkMerchant(w, &req.MerchantID) {
		return
	}
	req.MerchantPwd = orDefault(req.MerchantPwd, h.merchant.Password)
	if in.AmountYuan != nil {
		if !validAmount(w, *in.AmountYuan) {
			return
		}
		req.TransAmt = bestpay.FenFromYuan(*in.AmountYuan)
	}
	if missing := firstMissing(
		field{"oldOrderNo", req.OldOrderNo},
		field{"oldOrderReqNo", req.OldOrderReqNo},
		field{"transAmt or amountYuan", req.TransAmt},
		field{"merchantPwd", req.MerchantPwd},
	); missing != "" {
		utils.WriteJSONError(w, missing+" is required", http.StatusBadRequest)
		return
	}
	req.RefundReqNo = orDefault(req.RefundReqNo, utils.GenerateRequestNo(prefixRefund))
	req.RefundReqDate = orDefault(req.RefundReqDate, bestpay.RefundDate(h.now()))

	resp, err := h.gateway.Refund(r.Context(), req, h.merchant.Key)
	if err != nil {
		writeGatewayError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, Result[bestpay.OrderRefundResponse]{
		RequestNo: req.RefundReqNo, RequestDate: req.RefundReqDate, Gateway: resp,
	})
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	var in ReverseInput
	if !decode(w, r, &in) {
		return
	}

	req := in.OrderReverseRequest
	if !h.checkMerchant(w, &req.MerchantID) {
		return
	}
	req.MerchantPwd = orDefault(req.MerchantPwd, h.merchant.Password)
	if in.AmountYuan != nil {
		if !validAmount(w, *in.AmountYuan) {
			return
		}
		req.TransAmt = bestpay.FenFromYuan(*in.AmountYuan)
	}
	if missing := firstMissing(
		field{"oldOrderNo", req.OldOrderNo},
		field{"oldOrderReqNo", req.OldOrderReqNo},
		field{"transAmt or amountYuan", req.TransAmt},
		field{"merchantPwd", req.MerchantPwd},
	); missing != "" {
		utils.WriteJSONError(w, missing+" is required", http.StatusBadRequest)
		return
	}
	req.RefundReqNo = orDefault(req.RefundReqNo, utils.GenerateRequestNo(prefixReverse))
	req.RefundReqDate = orDefault(req.RefundReqDate, bestpay.RefundDate(h.now()))

	resp, err := h.gateway.Reverse(r.Context(), req, h.merchant.Key)
	if err != nil {
		writeGatewayError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, Result[bestpay.OrderReverseResponse]{
		RequestNo: req.RefundReqNo, RequestDate: req.RefundReqDate, Gateway: resp,
	})
}

// Exchanges lists the gateway calls the caller made under a request id.
func (h *Handler) Exchanges(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("requestID")
	clientID, ok := utils.GetClientIDFromContext(r.Context())
	if !ok {
		utils.WriteJSONError(w, "unknown client", http.StatusForbidden)
		return
	}

	entries, err := h.exchanges.ListByRequestID(r.Context(), clientID, requestID)
	if err != nil {
		logger.FromCtx(r.Context()).Error("list exchanges failed", zap.String("lookup_id", requestID), zap.Error(err))
		utils.WriteJSONError(w, "failed to list exchanges", http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		utils.WriteJSONError(w, "no exchanges for request", http.StatusNotFound)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"exchanges": entries})
}

// checkMerchant fills an empty merchant id with the configured one. Requests are
// signed with the configured key, so any other merchant id is refused.
func (h *Handler) checkMerchant(w http.ResponseWriter, merchantID *string) bool {
	if *merchantID == "" {
		*merchantID = h.merchant.ID
		return true
	}
	if *merchantID != h.merchant.ID {
		utils.WriteJSONError(w, "merchantId does not match the configured merchant", http.StatusBadRequest)
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return false
	}
	return true
}

func validAmount(w http.ResponseWriter, yuan decimal.Decimal) bool {
	if !yuan.IsPositive() {
		utils.WriteJSONError(w, "amountYuan must be positive", http.StatusBadRequest)
		return false
	}
	return true
}

type field struct {
	name  string
	value string
}

func firstMissing(fields ...field) string {
	for _, f := range fields {
		if f.value == "" {
			return f.name
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// writeGatewayError maps client failures to HTTP statuses. Gateway-level rejections
// are not errors and never reach here.
func writeGatewayError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromCtx(r.Context())

	var (
		signErr   *bestpay.SigningInputError
		transErr  *bestpay.TransportError
		formatErr *bestpay.ResponseFormatError
	)
	switch {
	case errors.As(err, &signErr):
		log.Error("settlement request not signable", zap.Error(err))
		utils.WriteJSONError(w, "request could not be signed", http.StatusInternalServerError)
	case errors.As(err, &transErr):
		msg := "payment gateway unreachable"
		if transErr.StatusCode != 0 {
			msg = fmt.Sprintf("payment gateway returned HTTP %d", transErr.StatusCode)
		}
		utils.WriteJSONError(w, msg, http.StatusBadGateway)
	case errors.As(err, &formatErr):
		utils.WriteJSONError(w, "payment gateway returned a malformed response", http.StatusBadGateway)
	default:
		log.Error("settlement call failed", zap.Error(err))
		utils.WriteJSONError(w, "internal error", http.StatusInternalServerError)
	}
}
