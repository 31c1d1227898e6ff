package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bestpay-client/internal/bestpay"
)

// Repository stores the diagnostic trail of gateway calls. It satisfies
// bestpay.Recorder.
type Repository interface {
	Record(ctx context.Context, ex bestpay.Exchange) error
	ListByRequestID(ctx context.Context, clientID, requestID string) ([]Entry, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Record(ctx context.Context, ex bestpay.Exchange) error {
	fields, err := json.Marshal(ex.Fields)
	if err != nil {
		return fmt.Errorf("marshal request fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO gateway_exchanges (
			request_id, client_id, operation, method, url, request_fields,
			response_body, error_kind, error_message, latency_ms, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		ex.RequestID, ex.ClientID, string(ex.Operation), ex.Method, ex.URL, fields,
		ex.Response, ex.ErrorKind, ex.Error, ex.Latency.Milliseconds(), ex.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert gateway exchange: %w", err)
	}
	return nil
}

// ListByRequestID returns the exchanges clientID made under requestID. Rows of other
// clients are never returned, even for the same request id.
func (r *repository) ListByRequestID(ctx context.Context, clientID, requestID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, client_id, operation, method, url, request_fields,
			response_body, error_kind, error_message, latency_ms, occurred_at
		FROM gateway_exchanges
		WHERE client_id = $1 AND request_id = $2
		ORDER BY occurred_at, id
	`, clientID, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var fields []byte
		if err := rows.Scan(
			&e.ID, &e.RequestID, &e.ClientID, &e.Operation, &e.Method, &e.URL, &fields,
			&e.ResponseBody, &e.ErrorKind, &e.ErrorMessage, &e.LatencyMS, &e.OccurredAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(fields, &e.RequestFields); err != nil {
			return nil, fmt.Errorf("decode request fields of exchange %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
