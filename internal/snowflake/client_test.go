package snowflake

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/blackwell-systems/drivercheck/internal/source"
)

// sqliteQueries return the same column shapes as DefaultQueries from local
// fixture tables.
var sqliteQueries = Queries{
	Usage:       `SELECT app, user_name, n, last FROM sessions WHERE ? > 0 ORDER BY app, user_name`,
	SupportInfo: `SELECT info FROM version_info`,
	Account:     `SELECT 'ACME', 'AWS_US_WEST_2'`,
	Complete:    `SELECT 'Near End of Support' WHERE ? <> '' AND ? <> ''`,
}

func newFixtureDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
CREATE TABLE sessions (app TEXT, user_name TEXT, n INTEGER, last TEXT);
INSERT INTO sessions VALUES
  ('JDBC 3.13.0', 'alice', 5, '2026-10-01'),
  ('JDBC 3.13.0', 'bob', 2, '2026-10-04'),
  ('SnowSQL', 'ops', 1, NULL);
CREATE TABLE version_info (info TEXT);
INSERT INTO version_info VALUES
  ('[{"clientAppId":"JDBC","minimumSupportedVersion":"3.13.0","minimumNearingEndOfSupportVersion":"3.14.0","recommendedVersion":"3.16.1"}]');
`)
	require.NoError(t, err)
	return db
}

func newTestClient(t *testing.T, db *sql.DB) *Client {
	return NewClient(db, WithQueries(sqliteQueries), WithRetry(2, time.Millisecond))
}

func TestClient_Usage(t *testing.T) {
	c := newTestClient(t, newFixtureDB(t))

	got, err := c.Usage(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "JDBC", got[0].Driver)
	assert.Equal(t, "3.13.0", got[0].Version)
	assert.Equal(t, "JDBC 3.13.0", got[0].ClientAppID)
	assert.Equal(t, "alice", got[0].User)
	assert.Equal(t, 5, got[0].SessionCount)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), got[0].LastAccessed)

	assert.Equal(t, "SnowSQL", got[2].Driver)
	assert.Empty(t, got[2].Version)
	assert.True(t, got[2].LastAccessed.IsZero())
}

func TestClient_SupportInfo(t *testing.T) {
	c := newTestClient(t, newFixtureDB(t))

	got, err := c.SupportInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "JDBC", got[0].Driver)
	assert.Equal(t, "3.14.0", got[0].EndOfSupport)
}

func TestClient_Account(t *testing.T) {
	c := newTestClient(t, newFixtureDB(t))

	acct, err := c.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, source.Account{Name: "ACME", Region: "AWS_US_WEST_2"}, acct)
}

func TestClient_FetchEndToEnd(t *testing.T) {
	c := newTestClient(t, newFixtureDB(t))

	in, err := source.Fetch(context.Background(), c, 30, nil)
	require.NoError(t, err)
	assert.Len(t, in.Usage, 3)
	assert.Len(t, in.Support, 1)
	assert.Equal(t, "ACME", in.Account.Name)
}

func TestClient_QueryFailureIsRetriedThenReturned(t *testing.T) {
	db := newFixtureDB(t)
	q := sqliteQueries
	q.Usage = `SELECT app, user_name, n, last FROM missing_table WHERE ? > 0`
	c := NewClient(db, WithQueries(q), WithRetry(2, time.Millisecond))

	got, err := c.Usage(context.Background(), 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snowflake usage query")
	assert.Nil(t, got)
}

func TestCortex_Complete(t *testing.T) {
	c := newTestClient(t, newFixtureDB(t))
	cortex := NewCortex(c, "")

	assert.Equal(t, DefaultCortexModel, cortex.Model())
	assert.Equal(t, "cortex", cortex.Name())

	answer, err := cortex.Complete(context.Background(), "DRIVER: ODBC")
	require.NoError(t, err)
	assert.Equal(t, "Near End of Support", answer)
}

func TestToTime(t *testing.T) {
	ts := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want time.Time
	}{
		{nil, time.Time{}},
		{ts, ts},
		{"2026-10-02", ts},
		{[]byte("2026-10-02"), ts},
		{"2026-10-02T00:00:00Z", ts},
	}
	for _, tt := range tests {
		got, err := toTime(tt.in)
		require.NoError(t, err, "input %v", tt.in)
		assert.True(t, tt.want.Equal(got), "toTime(%v) = %v", tt.in, got)
	}

	_, err := toTime("last tuesday")
	assert.Error(t, err)
	_, err = toTime(3.5)
	assert.Error(t, err)
}
