package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
	"github.com/blackwell-systems/drivercheck/internal/source"
)

const maxBackoff = 30 * time.Second

// Client implements source.Source against a Snowflake account.
type Client struct {
	db       *sql.DB
	queries  Queries
	attempts uint
	delay    time.Duration
	logger   *zap.Logger
}

var _ source.Source = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithRetry sets how often each query is attempted and the initial backoff.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.delay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithQueries replaces the SQL the client runs.
func WithQueries(q Queries) Option {
	return func(c *Client) { c.queries = q }
}

// NewClient wraps an open database handle.
func NewClient(db *sql.DB, opts ...Option) *Client {
	c := &Client{
		db:       db,
		queries:  DefaultQueries,
		attempts: 3,
		delay:    time.Second,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", func() error {
		return c.db.PingContext(ctx)
	})
}

// Usage returns per-user session counts for each client application over
// the last lookbackDays days.
func (c *Client) Usage(ctx context.Context, lookbackDays int) ([]compliance.UsageRecord, error) {
	var out []compliance.UsageRecord
	err := c.do(ctx, "usage", func() error {
		out = nil
		rows, err := c.db.QueryContext(ctx, c.queries.Usage, lookbackDays)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				appID, user sql.NullString
				sessions    sql.NullInt64
				lastAccess  any
			)
			if err := rows.Scan(&appID, &user, &sessions, &lastAccess); err != nil {
				return fmt.Errorf("failed to scan session row: %w", err)
			}
			last, err := toTime(lastAccess)
			if err != nil {
				return err
			}
			driver, version := source.ParseClientApplicationID(appID.String)
			out = append(out, compliance.UsageRecord{
				Driver:       driver,
				Version:      version,
				ClientAppID:  appID.String,
				User:         user.String,
				SessionCount: int(sessions.Int64),
				LastAccessed: last,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SupportInfo returns the account's client version support table.
func (c *Client) SupportInfo(ctx context.Context) ([]compliance.SupportInfo, error) {
	var raw sql.NullString
	err := c.do(ctx, "client version info", func() error {
		return c.db.QueryRowContext(ctx, c.queries.SupportInfo).Scan(&raw)
	})
	if err != nil {
		return nil, err
	}
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	return source.ParseClientVersionInfo([]byte(raw.String))
}

// Account returns the current account name and region.
func (c *Client) Account(ctx context.Context) (source.Account, error) {
	var name, region sql.NullString
	err := c.do(ctx, "account", func() error {
		return c.db.QueryRowContext(ctx, c.queries.Account).Scan(&name, &region)
	})
	if err != nil {
		return source.Account{}, err
	}
	return source.Account{Name: name.String, Region: region.String}, nil
}

// do runs fn with retries. The last error is returned wrapped with what.
func (c *Client) do(ctx context.Context, what string, fn func() error) error {
	attempt := 0
	err := retry.Do(func() error {
		attempt++
		err := fn()
		if err != nil && attempt < int(c.attempts) {
			c.logger.Debug("snowflake query failed, retrying",
				zap.String("query", what), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(maxBackoff),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("snowflake %s query: %w", what, err)
	}
	return nil
}

// toTime converts a DATE column as returned by the driver.
func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseDate(string(t))
	case string:
		return parseDate(t)
	case int64:
		return time.Unix(t, 0).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unexpected LAST_ACCESSED type %T", v)
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid LAST_ACCESSED value %q", s)
}
