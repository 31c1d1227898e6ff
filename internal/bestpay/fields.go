package bestpay

import (
	"reflect"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// Operation identifies one of the gateway's settlement calls.
type Operation string

const (
	OpBarcode Operation = "barcode"
	OpQuery   Operation = "query"
	OpRefund  Operation = "refund"
	OpReverse Operation = "reverse"
)

// signingFields is the MAC input order per operation. The gateway recomputes the MAC
// over the same sequence, so entries must never be reordered.
var signingFields = map[Operation][]string{
	OpBarcode: {"MERCHANTID", "ORDERNO", "ORDERREQNO", "ORDERDATE", "BARCODE", "ORDERAMT"},
	OpQuery:   {"MERCHANTID", "ORDERNO", "ORDERREQNO", "ORDERDATE"},
	OpRefund: {"MERCHANTID", "MERCHANTPWD", "OLDORDERNO", "OLDORDERREQNO",
		"REFUNDREQNO", "REFUNDREQDATE", "TRANSAMT", "LEDGERDETAIL"},
	OpReverse: {"MERCHANTID", "MERCHANTPWD", "OLDORDERNO", "OLDORDERREQNO",
		"REFUNDREQNO", "REFUNDREQDATE", "TRANSAMT"},
}

// SigningFields returns a copy of the signing order for op, or nil if op is unknown.
func SigningFields(op Operation) []string {
	names, ok := signingFields[op]
	if !ok {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Pair is one NAME=value segment of the signing string.
type Pair struct {
	Name  string
	Value string
}

// Canonicalize returns the signing pairs of req for op, in the operation's fixed order.
//
// Each token is bound to a struct field by a `mac:"TOKEN"` tag. A token no field
// declares is a SigningInputError; an empty field yields an empty value.
func Canonicalize(op Operation, req any) ([]Pair, error) {
	return canonicalize(op, signingFields[op], req)
}

func canonicalize(op Operation, names []string, req any) ([]Pair, error) {
	if len(names) == 0 {
		return nil, &SigningInputError{Op: op, Err: errUnknownOperation}
	}

	v := reflect.ValueOf(req)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, &SigningInputError{Op: op, Err: errNilRequest}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, &SigningInputError{Op: op, Err: errNotStruct}
	}

	index := macFieldIndex(v.Type())
	pairs := make([]Pair, 0, len(names))
	for _, name := range names {
		i, ok := index[name]
		if !ok {
			return nil, &SigningInputError{Op: op, Field: name, Err: errFieldNotDeclared}
		}
		s, err := cast.ToStringE(v.Field(i).Interface())
		if err != nil {
			return nil, &SigningInputError{Op: op, Field: name, Err: err}
		}
		if !utf8.ValidString(s) {
			return nil, &SigningInputError{Op: op, Field: name, Err: errInvalidUTF8}
		}
		pairs = append(pairs, Pair{Name: name, Value: s})
	}
	return pairs, nil
}

func macFieldIndex(t reflect.Type) map[string]int {
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag := f.Tag.Get("mac"); tag != "" {
			index[tag] = i
		}
	}
	return index
}
