package bestpay

import (
	"errors"
	"fmt"
)

var (
	errUnknownOperation = errors.New("unknown operation")
	errNilRequest       = errors.New("nil request")
	errNotStruct        = errors.New("request is not a struct")
	errFieldNotDeclared = errors.New("field not declared by request")
	errInvalidUTF8      = errors.New("value is not valid UTF-8")
	errNotObject        = errors.New("response body is not a JSON object")
)

// SigningInputError reports a request that cannot produce the operation's signing
// string. It is a programming error in the caller, not a gateway condition.
type SigningInputError struct {
	Op    Operation
	Field string
	Err   error
}

func (e *SigningInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("bestpay %s: signing input: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("bestpay %s: signing input %s: %v", e.Op, e.Field, e.Err)
}

func (e *SigningInputError) Unwrap() error {
	return e.Err
}

// TransportError reports a gateway call that did not complete. The gateway may still
// have processed the request: callers should query the order before resending.
type TransportError struct {
	Op         Operation
	URL        string
	StatusCode int // zero when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bestpay %s: transport: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("bestpay %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseFormatError reports a gateway body that does not decode into the
// operation's response record.
type ResponseFormatError struct {
	Op   Operation
	Body string
	Err  error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("bestpay %s: malformed response: %v", e.Op, e.Err)
}

func (e *ResponseFormatError) Unwrap() error {
	return e.Err
}

// StatusError is returned by HTTPTransport for a non-2xx gateway reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bestpay gateway returned %d: %s", e.StatusCode, e.Body)
}
