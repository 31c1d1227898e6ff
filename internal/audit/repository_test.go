package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"bestpay-client/internal/bestpay"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ bestpay.Recorder = (Repository)(nil)

func TestRepository_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ex := bestpay.Exchange{
		RequestID:  "req-1",
		ClientID:   "pos-01",
		Operation:  bestpay.OpRefund,
		Method:     "POST",
		URL:        "https://gw.test/refund",
		Fields:     map[string]string{"merchantPwd": "******", "mac": "abc"},
		Response:   `{"success":true}`,
		Latency:    250 * time.Millisecond,
		OccurredAt: at,
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO gateway_exchanges").
			WithArgs("req-1", "pos-01", "refund", "POST", "https://gw.test/refund",
				[]byte(`{"mac":"abc","merchantPwd":"******"}`),
				`{"success":true}`, "", "", int64(250), at).
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, repo.Record(context.Background(), ex))
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO gateway_exchanges").
			WillReturnError(errors.New("db down"))

		err := repo.Record(context.Background(), ex)
		assert.ErrorContains(t, err, "insert gateway exchange")
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByRequestID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	columns := []string{
		"id", "request_id", "client_id", "operation", "method", "url", "request_fields",
		"response_body", "error_kind", "error_message", "latency_ms", "occurred_at",
	}

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow(1, "req-1", "pos-01", "barcode", "GET", "https://gw.test/barcode", []byte(`{"mac":"abc"}`),
				"", "transport", "connection refused", 12, at).
			AddRow(2, "req-1", "pos-01", "query", "GET", "https://gw.test/query", []byte(`{"mac":"def"}`),
				`{"success":true}`, "", "", 8, at)

		mock.ExpectQuery("SELECT .* FROM gateway_exchanges WHERE client_id = \\$1 AND request_id = \\$2").
			WithArgs("pos-01", "req-1").
			WillReturnRows(rows)

		entries, err := repo.ListByRequestID(context.Background(), "pos-01", "req-1")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "transport", entries[0].ErrorKind)
		assert.Equal(t, "abc", entries[0].RequestFields["mac"])
		assert.Equal(t, int64(8), entries[1].LatencyMS)
		assert.Equal(t, "pos-01", entries[1].ClientID)
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM gateway_exchanges").
			WithArgs("pos-01", "none").
			WillReturnRows(sqlmock.NewRows(columns))

		entries, err := repo.ListByRequestID(context.Background(), "pos-01", "none")
		assert.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("CorruptFields", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow(3, "req-2", "pos-01", "refund", "POST", "u", []byte(`not json`), "", "", "", 1, at)
		mock.ExpectQuery("SELECT .* FROM gateway_exchanges").
			WithArgs("pos-01", "req-2").
			WillReturnRows(rows)

		_, err := repo.ListByRequestID(context.Background(), "pos-01", "req-2")
		assert.ErrorContains(t, err, "decode request fields")
	})

	t.Run("OtherClientSeesNothing", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM gateway_exchanges WHERE client_id = \\$1 AND request_id = \\$2").
			WithArgs("intruder", "req-1").
			WillReturnRows(sqlmock.NewRows(columns))

		entries, err := repo.ListByRequestID(context.Background(), "intruder", "req-1")
		assert.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("QueryError", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM gateway_exchanges").
			WithArgs("pos-01", "req-3").
			WillReturnError(errors.New("db error"))

		entries, err := repo.ListByRequestID(context.Background(), "pos-01", "req-3")
		assert.Error(t, err)
		assert.Nil(t, entries)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
