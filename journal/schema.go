package journal

const Schema = `
CREATE TABLE IF NOT EXISTS scan_runs (
	run_id TEXT PRIMARY KEY,
	scan TEXT NOT NULL,
	mode TEXT NOT NULL,
	logic TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	matches INTEGER NOT NULL,
	output_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_matches (
	run_id TEXT NOT NULL REFERENCES scan_runs(run_id),
	seq INTEGER NOT NULL,
	ticker TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	date DATETIME NOT NULL,
	close REAL NOT NULL,
	fields TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_scan_matches_ticker ON scan_matches(ticker);
`
