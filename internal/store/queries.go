package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/blackwell-systems/drivercheck/internal/compliance"
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run operations

// SaveRun stores a run with its raw inputs in a single transaction and
// returns the new run id. run.ID is set on success.
func (s *Store) SaveRun(run *Run, usage []compliance.UsageRecord, support []compliance.SupportInfo) (int64, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (created_at, account, region, lookback_days, source)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.CreatedAt.UTC().Format(timeFormat),
		run.Account,
		run.Region,
		run.LookbackDays,
		run.Source,
	)
	if err != nil {
		return 0, wrapErr("failed to insert run", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	usageStmt, err := tx.Prepare(`
		INSERT INTO usage_rows (run_id, driver, version, client_app_id, user_name, session_count, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare usage insert: %w", err)
	}
	defer usageStmt.Close()

	for _, u := range usage {
		if _, err := usageStmt.Exec(id, u.Driver, u.Version, u.ClientAppID, u.User, u.SessionCount, formatTime(u.LastAccessed)); err != nil {
			return 0, fmt.Errorf("failed to insert usage row %s %s: %w", u.Driver, u.Version, err)
		}
	}

	supportStmt, err := tx.Prepare(`
		INSERT INTO support_rows (run_id, driver, min_supported, recommended, end_of_support)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare support insert: %w", err)
	}
	defer supportStmt.Close()

	for _, si := range support {
		if _, err := supportStmt.Exec(id, si.Driver, si.MinSupported, si.Recommended, si.EndOfSupport); err != nil {
			return 0, fmt.Errorf("failed to insert support row %s: %w", si.Driver, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	run.UsageCount = len(usage)
	run.SupportCount = len(support)
	return id, nil
}

const runColumns = `
	r.id, r.created_at, r.account, r.region, r.lookback_days, r.source,
	(SELECT COUNT(*) FROM usage_rows u WHERE u.run_id = r.id),
	(SELECT COUNT(*) FROM support_rows p WHERE p.run_id = r.id)
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var createdAt string
	var account, region sql.NullString

	err := row.Scan(
		&run.ID,
		&createdAt,
		&account,
		&region,
		&run.LookbackDays,
		&run.Source,
		&run.UsageCount,
		&run.SupportCount,
	)
	if err != nil {
		return nil, err
	}
	run.Account = account.String
	run.Region = region.String

	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for run %d: %w", run.ID, err)
	}
	return &run, nil
}

// ListRuns returns all runs ordered by creation time (newest first).
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs r ORDER BY r.created_at DESC, r.id DESC`)
	if err != nil {
		return nil, wrapErr("failed to list runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(id int64) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get run %d", id), err)
	}
	return run, nil
}

// LatestRun returns the newest run, or ErrRunNotFound when there are none.
func (s *Store) LatestRun() (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT ` + runColumns + ` FROM runs r ORDER BY r.created_at DESC, r.id DESC LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no stored runs: %w", ErrRunNotFound)
	}
	if err != nil {
		return nil, wrapErr("failed to get latest run", err)
	}
	return run, nil
}

// GetRunInputs returns the usage and support rows saved with a run, in
// insertion order.
func (s *Store) GetRunInputs(id int64) ([]compliance.UsageRecord, []compliance.SupportInfo, error) {
	if _, err := s.GetRun(id); err != nil {
		return nil, nil, err
	}

	rows, err := s.db.Query(`
		SELECT driver, version, client_app_id, user_name, session_count, last_accessed
		FROM usage_rows
		WHERE run_id = ?
		ORDER BY rowid
	`, id)
	if err != nil {
		return nil, nil, wrapErr("failed to get usage rows", err)
	}
	defer rows.Close()

	var usage []compliance.UsageRecord
	for rows.Next() {
		var u compliance.UsageRecord
		var appID, user, lastAccessed sql.NullString
		if err := rows.Scan(&u.Driver, &u.Version, &appID, &user, &u.SessionCount, &lastAccessed); err != nil {
			return nil, nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		u.ClientAppID = appID.String
		u.User = user.String
		if u.LastAccessed, err = parseTime(lastAccessed.String); err != nil {
			return nil, nil, fmt.Errorf("failed to parse last_accessed for %s: %w", u.Driver, err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating usage rows: %w", err)
	}

	srows, err := s.db.Query(`
		SELECT driver, min_supported, recommended, end_of_support
		FROM support_rows
		WHERE run_id = ?
		ORDER BY rowid
	`, id)
	if err != nil {
		return nil, nil, wrapErr("failed to get support rows", err)
	}
	defer srows.Close()

	var support []compliance.SupportInfo
	for srows.Next() {
		var si compliance.SupportInfo
		var minSupported, recommended, eos sql.NullString
		if err := srows.Scan(&si.Driver, &minSupported, &recommended, &eos); err != nil {
			return nil, nil, fmt.Errorf("failed to scan support row: %w", err)
		}
		si.MinSupported = minSupported.String
		si.Recommended = recommended.String
		si.EndOfSupport = eos.String
		support = append(support, si)
	}
	if err := srows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating support rows: %w", err)
	}

	return usage, support, nil
}

// DeleteRun removes a run and its rows.
func (s *Store) DeleteRun(id int64) error {
	res, err := s.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return wrapErr(fmt.Sprintf("failed to delete run %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return nil
}

// PruneRuns keeps the newest keep runs and deletes the rest. It returns the
// number of runs deleted.
func (s *Store) PruneRuns(keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep must not be negative, got %d", keep)
	}
	res, err := s.db.Exec(`
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, wrapErr("failed to prune runs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return int(n), nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
