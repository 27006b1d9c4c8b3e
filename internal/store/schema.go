package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    account TEXT,
    region TEXT,
    lookback_days INTEGER NOT NULL,
    source TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS usage_rows (
    run_id INTEGER NOT NULL,
    driver TEXT NOT NULL,
    version TEXT NOT NULL,
    client_app_id TEXT,
    user_name TEXT,
    session_count INTEGER NOT NULL,
    last_accessed TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS support_rows (
    run_id INTEGER NOT NULL,
    driver TEXT NOT NULL,
    min_supported TEXT,
    recommended TEXT,
    end_of_support TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_usage_run ON usage_rows(run_id);
CREATE INDEX IF NOT EXISTS idx_support_run ON support_rows(run_id);
`
