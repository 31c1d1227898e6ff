package bestpay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"bestpay-client/internal/logger"
	"bestpay-client/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedCall struct {
	Method string
	URL    string
	Fields map[string]string
	Op     Operation
}

// fakeTransport records calls and replies with a canned body or error.
type fakeTransport struct {
	mu    sync.Mutex
	calls []recordedCall
	body  string
	err   error
}

func (f *fakeTransport) Get(ctx context.Context, url string, fields map[string]string) (string, error) {
	return f.reply(ctx, http.MethodGet, url, fields)
}

func (f *fakeTransport) Post(ctx context.Context, url string, fields map[string]string) (string, error) {
	return f.reply(ctx, http.MethodPost, url, fields)
}

func (f *fakeTransport) reply(ctx context.Context, method, url string, fields map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{Method: method, URL: url, Fields: fields, Op: OperationFrom(ctx)})
	return f.body, f.err
}

func (f *fakeTransport) last(t *testing.T) recordedCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

type fakeRecorder struct {
	exchanges []Exchange
	err       error
}

func (r *fakeRecorder) Record(_ context.Context, ex Exchange) error {
	r.exchanges = append(r.exchanges, ex)
	return r.err
}

var testEndpoints = Endpoints{
	Barcode: "https://gw.test/barcode",
	Query:   "https://gw.test/query",
	Refund:  "https://gw.test/refund",
	Reverse: "https://gw.test/reverse",
}

const orderBody = `{
	"success": true,
	"result": {
		"merchantId": "M1",
		"orderNo": "O1",
		"orderReqNo": "R1",
		"ourTransNo": "T100",
		"transAmt": 100,
		"transStatus": "B",
		"somethingNew": "ignored"
	},
	"errorCode": null,
	"errorMsg": null
}`

func newTestClient(tr Transport, opts ...Option) *Client {
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	return NewClient(tr, testEndpoints, opts...)
}

func refundRequest() OrderRefundRequest {
	return OrderRefundRequest{
		MerchantID:    "M1",
		MerchantPwd:   "PWD1",
		OldOrderNo:    "O1",
		OldOrderReqNo: "R1",
		RefundReqNo:   "RF1",
		RefundReqDate: "20240102",
		TransAmt:      "100",
	}
}

func TestClient_Barcode(t *testing.T) {
	tr := &fakeTransport{body: orderBody}
	c := newTestClient(tr)

	resp, err := c.Barcode(context.Background(), scenarioBarcode(), "SECRET")
	require.NoError(t, err)

	call := tr.last(t)
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, testEndpoints.Barcode, call.URL)
	assert.Equal(t, OpBarcode, call.Op)
	assert.Equal(t, map[string]string{
		"merchantId": "M1",
		"orderNo":    "O1",
		"orderReqNo": "R1",
		"orderDate":  "20240101",
		"barcode":    "12345678",
		"orderAmt":   "100",
		"mac":        "9c16e150ac9da5907468712be957f395",
	}, call.Fields)

	require.NotNil(t, resp.Result)
	assert.True(t, resp.IsSuccess())
	assert.True(t, resp.Paid())
	assert.Equal(t, "T100", resp.Result.OurTransNo)
	assert.Equal(t, StringOrNumber("100"), resp.Result.TransAmt)
}

func TestClient_Query(t *testing.T) {
	tr := &fakeTransport{body: orderBody}
	c := newTestClient(tr)

	_, err := c.Query(context.Background(), QueryOrderRequest{
		MerchantID: "M1", OrderNo: "O1", OrderReqNo: "R1", OrderDate: "20240101",
	}, "SECRET")
	require.NoError(t, err)

	call := tr.last(t)
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, testEndpoints.Query, call.URL)
	assert.Equal(t, "01d8b64fea0c446f7180b05afe375967", call.Fields["mac"])
	assert.NotContains(t, call.Fields, "barcode")
}

func TestClient_Refund(t *testing.T) {
	tr := &fakeTransport{body: `{"success":true,"result":{"refundReqNo":"RF1","transAmt":"100","transStatus":"B"}}`}
	c := newTestClient(tr)

	req := refundRequest()
	resp, err := c.Refund(context.Background(), req, "SECRET")
	require.NoError(t, err)

	call := tr.last(t)
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, testEndpoints.Refund, call.URL)
	assert.Equal(t, "PWD1", call.Fields["merchantPwd"])

	pairs, err := Canonicalize(OpRefund, req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(SigningString(pairs, "SECRET"), "MERCHANTID=M1&MERCHANTPWD=PWD1&OLDORDERNO="))
	assert.Equal(t, Sign(pairs, "SECRET"), call.Fields["mac"])

	require.NotNil(t, resp.Result)
	assert.Equal(t, "RF1", resp.Result.RefundReqNo)
}

func TestClient_Reverse(t *testing.T) {
	t.Run("Boolean result", func(t *testing.T) {
		tr := &fakeTransport{body: `{"success":true,"result":true}`}
		c := newTestClient(tr)

		resp, err := c.Reverse(context.Background(), reverseFromRefund(refundRequest()), "SECRET")
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, tr.last(t).Method)
		assert.Equal(t, testEndpoints.Reverse, tr.last(t).URL)
		assert.True(t, resp.Result.Accepted)
		assert.Nil(t, resp.Result.Detail)
	})

	t.Run("Object result", func(t *testing.T) {
		tr := &fakeTransport{body: `{"success":true,"result":{"oldOrderNo":"O1","transStatus":"B"}}`}
		c := newTestClient(tr)

		resp, err := c.Reverse(context.Background(), reverseFromRefund(refundRequest()), "SECRET")
		require.NoError(t, err)

		require.NotNil(t, resp.Result.Detail)
		assert.Equal(t, "O1", resp.Result.Detail.OldOrderNo)
	})
}

func reverseFromRefund(r OrderRefundRequest) OrderReverseRequest {
	return OrderReverseRequest{
		MerchantID:    r.MerchantID,
		MerchantPwd:   r.MerchantPwd,
		OldOrderNo:    r.OldOrderNo,
		OldOrderReqNo: r.OldOrderReqNo,
		RefundReqNo:   r.RefundReqNo,
		RefundReqDate: r.RefundReqDate,
		TransAmt:      r.TransAmt,
	}
}

func TestClient_TransportFailure(t *testing.T) {
	t.Run("Connection refused", func(t *testing.T) {
		rec := &fakeRecorder{}
		tr := &fakeTransport{err: errors.New("dial tcp: connection refused"), body: "not parsed"}
		c := newTestClient(tr, WithRecorder(rec))

		resp, err := c.Barcode(context.Background(), scenarioBarcode(), "SECRET")
		assert.Nil(t, resp)

		var terr *TransportError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, OpBarcode, terr.Op)
		assert.Equal(t, 0, terr.StatusCode)
		assert.Contains(t, err.Error(), "connection refused")

		var ferr *ResponseFormatError
		assert.False(t, errors.As(err, &ferr))

		require.Len(t, rec.exchanges, 1)
		assert.Equal(t, ErrorKindTransport, rec.exchanges[0].ErrorKind)
		assert.Empty(t, rec.exchanges[0].Response)
	})

	t.Run("Non-2xx status", func(t *testing.T) {
		tr := &fakeTransport{err: &StatusError{StatusCode: http.StatusBadGateway, Body: "upstream down"}}
		c := newTestClient(tr)

		_, err := c.Refund(context.Background(), refundRequest(), "SECRET")

		var terr *TransportError
		require.True(t, errors.As(err, &terr))
		assert.Equal(t, http.StatusBadGateway, terr.StatusCode)
	})
}

func TestClient_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not-json"},
		{name: "empty", body: ""},
		{name: "null", body: "null"},
		{name: "array", body: `[{"success":true}]`},
		{name: "wrong shape", body: `{"success":"yes"}`},
		{name: "truncated", body: `{"success":true,"result":{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			c := newTestClient(&fakeTransport{body: tt.body}, WithRecorder(rec))

			resp, err := c.Query(context.Background(), QueryOrderRequest{MerchantID: "M1", OrderNo: "O1"}, "SECRET")
			assert.Nil(t, resp)

			var ferr *ResponseFormatError
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, OpQuery, ferr.Op)
			assert.Equal(t, tt.body, ferr.Body)

			require.Len(t, rec.exchanges, 1)
			assert.Equal(t, ErrorKindResponseFormat, rec.exchanges[0].ErrorKind)
		})
	}
}

func TestClient_SecretNeverTransmitted(t *testing.T) {
	const key = "super-secret-key"
	rec := &fakeRecorder{}
	tr := &fakeTransport{body: orderBody}
	c := newTestClient(tr, WithRecorder(rec))

	ctx := context.Background()
	_, err := c.Barcode(ctx, scenarioBarcode(), key)
	require.NoError(t, err)
	_, err = c.Refund(ctx, refundRequest(), key)
	require.NoError(t, err)

	for _, call := range tr.calls {
		for k, v := range call.Fields {
			assert.NotContains(t, v, key, "field %s", k)
			assert.NotEqual(t, "KEY", strings.ToUpper(k))
		}
	}
	for _, ex := range rec.exchanges {
		for _, v := range ex.Fields {
			assert.NotContains(t, v, key)
		}
	}
}

func TestClient_EmptyFieldOmittedButSigned(t *testing.T) {
	tr := &fakeTransport{body: orderBody}
	c := newTestClient(tr)

	req := scenarioBarcode()
	req.OrderReqNo = ""

	_, err := c.Barcode(context.Background(), req, "SECRET")
	require.NoError(t, err)

	call := tr.last(t)
	assert.NotContains(t, call.Fields, "orderReqNo")

	pairs, err := Canonicalize(OpBarcode, req)
	require.NoError(t, err)
	assert.Contains(t, SigningString(pairs, "SECRET"), "&ORDERNO=O1&ORDERREQNO=&ORDERDATE=")
	assert.Equal(t, Sign(pairs, "SECRET"), call.Fields["mac"])
}

func TestClient_UnsignedFieldsTransmitted(t *testing.T) {
	tr := &fakeTransport{body: orderBody}
	c := newTestClient(tr)

	req := scenarioBarcode()
	req.GoodsName = "coffee"

	_, err := c.Barcode(context.Background(), req, "SECRET")
	require.NoError(t, err)

	call := tr.last(t)
	assert.Equal(t, "coffee", call.Fields["goodsName"])
	assert.Equal(t, "9c16e150ac9da5907468712be957f395", call.Fields["mac"])
}

func TestClient_UpperCaseMAC(t *testing.T) {
	tr := &fakeTransport{body: orderBody}
	c := newTestClient(tr, WithUpperCaseMAC())

	_, err := c.Barcode(context.Background(), scenarioBarcode(), "SECRET")
	require.NoError(t, err)

	assert.Equal(t, "9C16E150AC9DA5907468712BE957F395", tr.last(t).Fields["mac"])
}

func TestClient_Recorder(t *testing.T) {
	t.Run("Success is recorded redacted", func(t *testing.T) {
		rec := &fakeRecorder{}
		c := newTestClient(&fakeTransport{body: `{"success":true}`}, WithRecorder(rec))

		_, err := c.Refund(context.Background(), refundRequest(), "SECRET")
		require.NoError(t, err)

		require.Len(t, rec.exchanges, 1)
		ex := rec.exchanges[0]
		assert.Equal(t, OpRefund, ex.Operation)
		assert.Equal(t, http.MethodPost, ex.Method)
		assert.Equal(t, redactedValue, ex.Fields["merchantPwd"])
		assert.Equal(t, `{"success":true}`, ex.Response)
		assert.Empty(t, ex.ErrorKind)
	})

	t.Run("Caller is recorded", func(t *testing.T) {
		rec := &fakeRecorder{}
		c := newTestClient(&fakeTransport{body: orderBody}, WithRecorder(rec))

		ctx := utils.SetClientContext(logger.WithRequestID(context.Background(), "req-9"), "pos-01", "settle")
		_, err := c.Barcode(ctx, scenarioBarcode(), "SECRET")
		require.NoError(t, err)

		require.Len(t, rec.exchanges, 1)
		assert.Equal(t, "pos-01", rec.exchanges[0].ClientID)
		assert.Equal(t, "req-9", rec.exchanges[0].RequestID)
	})

	t.Run("Record failure does not fail the call", func(t *testing.T) {
		rec := &fakeRecorder{err: errors.New("db down")}
		c := newTestClient(&fakeTransport{body: orderBody}, WithRecorder(rec))

		resp, err := c.Barcode(context.Background(), scenarioBarcode(), "SECRET")
		assert.NoError(t, err)
		assert.NotNil(t, resp)
	})

	t.Run("Every recorder sees the exchange", func(t *testing.T) {
		failing := &fakeRecorder{err: errors.New("db down")}
		second := &fakeRecorder{}
		c := newTestClient(&fakeTransport{body: orderBody}, WithRecorder(failing), WithRecorder(second))

		_, err := c.Query(context.Background(), QueryOrderRequest{MerchantID: "M1"}, "SECRET")
		require.NoError(t, err)

		assert.Len(t, failing.exchanges, 1)
		assert.Len(t, second.exchanges, 1)
	})
}

func TestClient_SigningInputError(t *testing.T) {
	tr := &fakeTransport{body: orderBody}
	c := newTestClient(tr)

	_, err := dispatch[OrderResultResponse](context.Background(), c, OpBarcode, QueryOrderRequest{}, "SECRET")

	var serr *SigningInputError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "BARCODE", serr.Field)
	assert.Empty(t, tr.calls)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	tr := &fakeTransport{body: orderBody}
	c := newTestClient(tr)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Barcode(context.Background(), scenarioBarcode(), "SECRET")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, tr.calls, 20)
	for _, call := range tr.calls {
		assert.Equal(t, "9c16e150ac9da5907468712be957f395", call.Fields["mac"])
	}
}

func TestFlatten(t *testing.T) {
	fields, err := Flatten(refundRequest())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"merchantId":    "M1",
		"merchantPwd":   "PWD1",
		"oldOrderNo":    "O1",
		"oldOrderReqNo": "R1",
		"refundReqNo":   "RF1",
		"refundReqDate": "20240102",
		"transAmt":      "100",
	}, fields)
}
