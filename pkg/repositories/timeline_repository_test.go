package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/campus-er/pkg/apperrors"
	"github.com/ekaya-inc/campus-er/pkg/database"
)

type fakeRows struct {
	data    [][]any
	pos     int
	scanErr error
	iterErr error
	closed  int
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.pos-1]
	for i, d := range dest {
		switch p := d.(type) {
		case **string:
			if row[i] == nil {
				*p = nil
			} else {
				s := row[i].(string)
				*p = &s
			}
		case *any:
			*p = row[i]
		default:
			return errors.New("unsupported scan destination")
		}
	}
	return nil
}

func (r *fakeRows) Err() error { return r.iterErr }
func (r *fakeRows) Close()     { r.closed++ }

type fakeConn struct {
	rows     *fakeRows
	queryErr error
	released int
	lastSQL  string
	lastArgs []any
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (database.Rows, error) {
	c.lastSQL = sql
	c.lastArgs = args
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.rows, nil
}

func (c *fakeConn) Release() { c.released++ }

type fakeSource struct {
	conn       *fakeConn
	acquireErr error
	acquired   int
}

func (s *fakeSource) Acquire(context.Context) (database.Conn, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquired++
	return s.conn, nil
}

func TestTimelineRepository_ReturnsEventsAndReleasesOnce(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	rows := &fakeRows{data: [][]any{
		{"swipes", int64(17), "LIB-1", ts, map[string]any{"method": "card_id"}},
		{"wifi", [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}, nil, "2025-03-01T10:00:00Z", `{"score": 0.9}`},
		{nil, "n-1", []byte("LAB"), nil, ""},
	}}
	conn := &fakeConn{rows: rows}
	src := &fakeSource{conn: conn}

	events, err := NewTimelineRepository(src).GetCanonicalTimeline(context.Background(), "E100")
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, "swipes", *events[0].Source)
	assert.Equal(t, int64(17), events[0].OriginalID)
	assert.Equal(t, ts, *events[0].Timestamp)
	assert.Equal(t, map[string]any{"method": "card_id"}, events[0].Provenance)

	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", events[1].OriginalID)
	assert.Nil(t, events[1].LocationID)
	require.NotNil(t, events[1].Timestamp)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), events[1].Timestamp.UTC())
	assert.Equal(t, map[string]any{"score": 0.9}, events[1].Provenance)

	assert.Nil(t, events[2].Source)
	assert.Equal(t, "LAB", events[2].LocationID)
	assert.Nil(t, events[2].Timestamp)
	assert.Nil(t, events[2].Provenance)

	assert.Equal(t, []any{"E100"}, conn.lastArgs)
	assert.Contains(t, conn.lastSQL, "ORDER BY ue.timestamp ASC")
	assert.Equal(t, 1, src.acquired)
	assert.Equal(t, 1, conn.released)
	assert.Equal(t, 1, rows.closed)
}

func TestTimelineRepository_EmptyResult(t *testing.T) {
	conn := &fakeConn{rows: &fakeRows{}}
	events, err := NewTimelineRepository(&fakeSource{conn: conn}).GetCanonicalTimeline(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.Equal(t, 1, conn.released)
}

func TestTimelineRepository_ReleasesOnFailures(t *testing.T) {
	tests := []struct {
		name string
		conn *fakeConn
		want string
	}{
		{
			name: "query error",
			conn: &fakeConn{queryErr: errors.New("relation \"unified_events\" does not exist")},
			want: "failed to query canonical timeline",
		},
		{
			name: "scan error",
			conn: &fakeConn{rows: &fakeRows{data: [][]any{{"a", 1, nil, nil, nil}}, scanErr: errors.New("bad type")}},
			want: "failed to scan canonical event",
		},
		{
			name: "iteration error",
			conn: &fakeConn{rows: &fakeRows{iterErr: errors.New("conn reset")}},
			want: "failed to read canonical timeline",
		},
		{
			name: "malformed provenance",
			conn: &fakeConn{rows: &fakeRows{data: [][]any{{"a", "1", nil, nil, "{not json"}}}},
			want: "failed to decode provenance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTimelineRepository(&fakeSource{conn: tt.conn}).GetCanonicalTimeline(context.Background(), "E1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, 1, tt.conn.released, "connection must be released exactly once")
		})
	}
}

func TestTimelineRepository_AcquireFailure(t *testing.T) {
	acquireErr := errors.Join(apperrors.ErrConnection, errors.New("connection refused"))
	_, err := NewTimelineRepository(&fakeSource{acquireErr: acquireErr}).GetCanonicalTimeline(context.Background(), "E1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConnection))
}

func TestDecodeProvenance(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"blank text", "   ", nil},
		{"empty bytes", []byte{}, nil},
		{"json text", `["swipe","wifi"]`, []any{"swipe", "wifi"}},
		{"json bytes", []byte(`{"a":1}`), map[string]any{"a": float64(1)}},
		{"decoded jsonb", map[string]any{"k": "v"}, map[string]any{"k": "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeProvenance(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
