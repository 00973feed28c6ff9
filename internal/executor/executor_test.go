package executor

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T, cfg Config) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	e, err := New(db, cfg)
	require.NoError(t, err)
	return e, mock
}

func TestExecuteReturnsSerializedRows(t *testing.T) {
	e, mock := newExecutor(t, Config{})

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, balance, created_at FROM accounts LIMIT 100")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance", "created_at"}).
			AddRow(int64(1), "Alice Johnson", []byte("15000.50"), created).
			AddRow(int64(2), "Bob Smith", []byte("3200.00"), created))
	mock.ExpectRollback()

	res, err := e.Execute(context.Background(), "SELECT id, name, balance, created_at FROM accounts LIMIT 100")
	require.NoError(t, err)
	require.Equal(t, 2, res.RowCount)

	row := res.Rows[0]
	assert.Equal(t, int64(1), row["id"])
	assert.Equal(t, "Alice Johnson", row["name"])
	assert.Equal(t, 15000.50, row["balance"])
	assert.Equal(t, "2024-03-01T12:00:00Z", row["created_at"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSerializesNullAndBytes(t *testing.T) {
	e, mock := newExecutor(t, Config{})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM customers").
		WillReturnRows(sqlmock.NewRows([]string{"email", "note"}).
			AddRow(nil, []byte{0xff, 0xfe, 'h', 'i'}))
	mock.ExpectRollback()

	res, err := e.Execute(context.Background(), "SELECT email, note FROM customers LIMIT 100")
	require.NoError(t, err)
	require.Equal(t, 1, res.RowCount)
	assert.Nil(t, res.Rows[0]["email"])
	assert.Equal(t, "�hi", res.Rows[0]["note"])
}

func TestExecuteEnforcesRowCap(t *testing.T) {
	e, mock := newExecutor(t, Config{MaxRows: 3})

	rows := sqlmock.NewRows([]string{"id"})
	for i := 1; i <= 10; i++ {
		rows.AddRow(int64(i))
	}
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM transactions").WillReturnRows(rows)
	mock.ExpectRollback()

	res, err := e.Execute(context.Background(), "SELECT id FROM transactions LIMIT 1000")
	require.NoError(t, err)
	assert.Equal(t, 3, res.RowCount)
	assert.Len(t, res.Rows, 3)
}

func TestExecuteMapsTimeout(t *testing.T) {
	e, mock := newExecutor(t, Config{Timeout: 30 * time.Millisecond})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT pg_sleep").
		WillDelayFor(500 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"x"}))
	mock.ExpectRollback()

	_, err := e.Execute(context.Background(), "SELECT pg_sleep(10) FROM customers LIMIT 1")
	require.Error(t, err)

	typed, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrTimeout, typed.Kind)
	assert.Contains(t, typed.Message, "timeout")
}

func TestExecuteMapsDatabaseErrorAndRedacts(t *testing.T) {
	e, mock := newExecutor(t, Config{})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT broken").
		WillReturnError(errors.New(`connect to postgres://admin:hunter2@db:5432 failed: password=hunter2 rejected`))
	mock.ExpectRollback()

	_, err := e.Execute(context.Background(), "SELECT broken FROM customers LIMIT 1")
	require.Error(t, err)

	typed, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, ErrDatabase, typed.Kind)
	assert.NotContains(t, typed.Message, "hunter2")
	assert.Contains(t, typed.Message, "://***@")
	assert.Contains(t, typed.Message, "password=***")
}

func TestExecuteMeasuresElapsed(t *testing.T) {
	e, mock := newExecutor(t, Config{})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1").
		WillDelayFor(20 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))
	mock.ExpectRollback()

	res, err := e.Execute(context.Background(), "SELECT 1 AS n FROM customers LIMIT 1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.ElapsedMS, 10.0)
}

func TestSerializeValue(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Nil(t, serializeValue(nil))
	assert.Equal(t, "2025-01-02T03:04:05Z", serializeValue(ts))
	assert.Equal(t, 12.5, serializeValue([]byte("12.5")))
	assert.Equal(t, "hello", serializeValue([]byte("hello")))
	assert.Equal(t, int64(7), serializeValue(7))
	assert.Equal(t, int64(7), serializeValue(int32(7)))
	assert.Equal(t, float64(float32(1.5)), serializeValue(float32(1.5)))
	assert.Equal(t, true, serializeValue(true))
	assert.Equal(t, "plain", serializeValue("plain"))
}
