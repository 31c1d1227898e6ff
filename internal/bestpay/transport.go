package bestpay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Transport executes a gateway call and returns the raw response body.
type Transport interface {
	Get(ctx context.Context, url string, fields map[string]string) (string, error)
	Post(ctx context.Context, url string, fields map[string]string) (string, error)
}

// HTTPTransport sends GET fields as query parameters and POST fields as a
// form-encoded body.
type HTTPTransport struct {
	httpClient *http.Client
}

// NewHTTPTransport returns a transport using hc, or a client with a 15s timeout when
// hc is nil.
func NewHTTPTransport(hc *http.Client) *HTTPTransport {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPTransport{httpClient: hc}
}

func (t *HTTPTransport) Get(ctx context.Context, rawURL string, fields map[string]string) (string, error) {
	target, err := withQuery(rawURL, fields)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	return t.do(req)
}

func (t *HTTPTransport) Post(ctx context.Context, rawURL string, fields map[string]string) (string, error) {
	body := encodeFields(fields).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	return t.do(req)
}

func (t *HTTPTransport) do(req *http.Request) (string, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}
	return string(bodyBytes), nil
}

func encodeFields(fields map[string]string) url.Values {
	values := make(url.Values, len(fields))
	for k, v := range fields {
		values.Set(k, v)
	}
	return values
}

func withQuery(rawURL string, fields map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	for k, v := range fields {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
