package datasource_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/campus-er/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/campus-er/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/campus-er/pkg/apperrors"
)

func TestScanRecords_PreservesColumnOrderAndConvertsBytes(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE alerts (zeta TEXT, alpha INTEGER, blob_col BLOB, empty TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO alerts VALUES ('z', 7, X'6869', NULL)`)
	require.NoError(t, err)

	rows, err := db.Query(`SELECT * FROM alerts`)
	require.NoError(t, err)

	records, err := datasource.ScanRecords(rows)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{"zeta", "alpha", "blob_col", "empty"}, rec.Keys())

	blob, _ := rec.Get("blob_col")
	assert.Equal(t, "hi", blob)

	alpha, _ := rec.Get("alpha")
	assert.EqualValues(t, 7, alpha)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":7,"blob_col":"hi","empty":null}`, string(out))
}

func TestScanRecords_EmptyResultIsEmptySlice(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE alerts (id INTEGER)`)
	require.NoError(t, err)

	rows, err := db.Query(`SELECT * FROM alerts`)
	require.NoError(t, err)

	records, err := datasource.ScanRecords(rows)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestOpen_UnknownDialect(t *testing.T) {
	_, err := datasource.Open(context.Background(), "oracle", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported activity driver")
}

func TestOpen_SessionQueries(t *testing.T) {
	ctx := context.Background()
	conn, err := datasource.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "sqlite", conn.Dialect().Name())
	require.NoError(t, conn.Ping(ctx))

	session, err := conn.Session(ctx)
	require.NoError(t, err)

	rows, err := session.QueryContext(ctx, `SELECT 'ok'`)
	require.NoError(t, err)
	values, err := datasource.ScanStrings(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, values)

	require.NoError(t, session.Close())
}

func TestOpen_ClosedHandleReportsConnectionError(t *testing.T) {
	ctx := context.Background()
	conn, err := datasource.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = conn.Session(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConnection)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-05-01T10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-05-01 10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"not a time", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := datasource.ParseTimestamp(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
		}
	}
}

func TestRegisteredDialects_Sorted(t *testing.T) {
	infos := datasource.RegisteredDialects()
	require.NotEmpty(t, infos)
	for i := 1; i < len(infos); i++ {
		assert.Less(t, infos[i-1].Type, infos[i].Type)
	}
	assert.True(t, datasource.IsRegistered("sqlite"))
}
