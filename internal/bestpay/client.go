package bestpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bestpay-client/internal/logger"
	"bestpay-client/internal/utils"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Endpoints are the gateway URLs of the four operations.
type Endpoints struct {
	Barcode string
	Query   string
	Refund  string
	Reverse string
}

// DefaultEndpoints returns the production gateway URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Barcode: "https://webpaywg.bestpay.com.cn/barcode/placeOrder",
		Query:   "https://webpaywg.bestpay.com.cn/query/queryOrder",
		Refund:  "https://webpaywg.bestpay.com.cn/refund/commonRefund",
		Reverse: "https://webpaywg.bestpay.com.cn/reverse/reverse",
	}
}

type route struct {
	method   string
	endpoint func(Endpoints) string
}

var routes = map[Operation]route{
	OpBarcode: {http.MethodGet, func(e Endpoints) string { return e.Barcode }},
	OpQuery:   {http.MethodGet, func(e Endpoints) string { return e.Query }},
	OpRefund:  {http.MethodPost, func(e Endpoints) string { return e.Refund }},
	OpReverse: {http.MethodPost, func(e Endpoints) string { return e.Reverse }},
}

// Exchange describes one finished gateway call for a Recorder. Fields are redacted
// and never contain the shared key.
type Exchange struct {
	RequestID  string
	ClientID   string
	Operation  Operation
	Method     string
	URL        string
	Fields     map[string]string
	Response   string
	ErrorKind  string
	Error      string
	Latency    time.Duration
	OccurredAt time.Time
}

// Error kinds reported in Exchange.ErrorKind.
const (
	ErrorKindTransport      = "transport"
	ErrorKindResponseFormat = "response_format"
)

// Recorder keeps a diagnostic trail of gateway calls. Record errors are logged and
// never fail the call.
type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

// Client calls the gateway. It holds no per-call state and is safe for concurrent use.
type Client struct {
	transport Transport
	endpoints Endpoints
	recorders []Recorder
	log       *zap.Logger
	upperMAC  bool
}

type Option func(*Client)

// WithRecorder attaches a diagnostic exchange recorder. Recorders run in the order
// they are given.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorders = append(c.recorders, r) }
}

// WithLogger replaces the request-scoped global logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithUpperCaseMAC sends the MAC as uppercase hex, for deployments that require it.
func WithUpperCaseMAC() Option {
	return func(c *Client) { c.upperMAC = true }
}

// NewClient returns a client calling endpoints through t. Every call is traced by a
// LoggingTransport wrapped around t.
func NewClient(t Transport, endpoints Endpoints, opts ...Option) *Client {
	c := &Client{endpoints: endpoints}
	for _, opt := range opts {
		opt(c)
	}
	c.transport = NewLoggingTransport(t, c.log)
	return c
}

// Barcode settles a customer's payment code.
func (c *Client) Barcode(ctx context.Context, req BarcodePayRequest, key string) (*OrderResultResponse, error) {
	return dispatch[OrderResultResponse](ctx, c, OpBarcode, req, key)
}

// Query fetches the status of an order.
func (c *Client) Query(ctx context.Context, req QueryOrderRequest, key string) (*OrderResultResponse, error) {
	return dispatch[OrderResultResponse](ctx, c, OpQuery, req, key)
}

// Refund refunds a settled order. req.MerchantPwd is required by the gateway.
func (c *Client) Refund(ctx context.Context, req OrderRefundRequest, key string) (*OrderRefundResponse, error) {
	return dispatch[OrderRefundResponse](ctx, c, OpRefund, req, key)
}

// Reverse voids an unsettled order. req.MerchantPwd is required by the gateway.
func (c *Client) Reverse(ctx context.Context, req OrderReverseRequest, key string) (*OrderReverseResponse, error) {
	return dispatch[OrderReverseResponse](ctx, c, OpReverse, req, key)
}

// MAC computes the value sent as `mac` for req under op.
func (c *Client) MAC(op Operation, req any, key string) (string, error) {
	pairs, err := Canonicalize(op, req)
	if err != nil {
		return "", err
	}
	mac := Sign(pairs, key)
	if c.upperMAC {
		mac = strings.ToUpper(mac)
	}
	return mac, nil
}

func dispatch[Resp any](ctx context.Context, c *Client, op Operation, req any, key string) (*Resp, error) {
	log := c.logger(ctx).With(zap.String("operation", string(op)))

	rt, ok := routes[op]
	if !ok {
		return nil, &SigningInputError{Op: op, Err: errUnknownOperation}
	}

	mac, err := c.MAC(op, req, key)
	if err != nil {
		log.Error("bestpay signing input rejected", zap.Error(err))
		return nil, err
	}

	fields, err := Flatten(req)
	if err != nil {
		serr := &SigningInputError{Op: op, Err: err}
		log.Error("bestpay request not serializable", zap.Error(serr))
		return nil, serr
	}
	fields["mac"] = mac

	ex := Exchange{
		RequestID:  logger.RequestIDFrom(ctx),
		ClientID:   clientIDFrom(ctx),
		Operation:  op,
		Method:     rt.method,
		URL:        rt.endpoint(c.endpoints),
		Fields:     Redact(fields),
		OccurredAt: time.Now(),
	}

	callCtx := withOperation(ctx, op)
	var body string
	if rt.method == http.MethodGet {
		body, err = c.transport.Get(callCtx, ex.URL, fields)
	} else {
		body, err = c.transport.Post(callCtx, ex.URL, fields)
	}
	ex.Latency = time.Since(ex.OccurredAt)

	if err != nil {
		terr := &TransportError{Op: op, URL: ex.URL, Err: err}
		var se *StatusError
		if errors.As(err, &se) {
			terr.StatusCode = se.StatusCode
		}
		ex.ErrorKind, ex.Error = ErrorKindTransport, terr.Error()
		c.record(ctx, log, ex)
		return nil, terr
	}
	ex.Response = body

	var out Resp
	if err := decodeResponse(body, &out); err != nil {
		ferr := &ResponseFormatError{Op: op, Body: body, Err: err}
		log.Error("bestpay response rejected", zap.String("response", body), zap.Error(err))
		ex.ErrorKind, ex.Error = ErrorKindResponseFormat, ferr.Error()
		c.record(ctx, log, ex)
		return nil, ferr
	}

	c.record(ctx, log, ex)
	return &out, nil
}

func (c *Client) record(ctx context.Context, log *zap.Logger, ex Exchange) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range c.recorders {
		if err := r.Record(ctx, ex); err != nil {
			log.Warn("bestpay exchange not recorded", zap.Error(err))
		}
	}
}

func clientIDFrom(ctx context.Context) string {
	id, _ := utils.GetClientIDFromContext(ctx)
	return id
}

func (c *Client) logger(ctx context.Context) *zap.Logger {
	if c.log == nil {
		return logger.FromCtx(ctx)
	}
	return c.log
}

// Flatten serializes req into its outbound field mapping using the json wire names.
// Empty values are dropped.
func Flatten(req any) (map[string]string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("request is not an object: %w", err)
	}

	fields := make(map[string]string, len(m)+1)
	for k, v := range m {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		if s == "" {
			continue
		}
		fields[k] = s
	}
	return fields, nil
}

func decodeResponse(body string, out any) error {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return errNotObject
	}
	return json.Unmarshal([]byte(trimmed), out)
}
