package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"EquityScreener/internal/model"
)

// SQLiteRecorder persists scan runs and their matches to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER NOT NULL,
			target_date  TEXT NOT NULL,
			tickers      INTEGER,
			matched      INTEGER,
			no_signal    INTEGER,
			unavailable  INTEGER,
			insufficient INTEGER,
			stale        INTEGER,
			failed       INTEGER,
			result_path  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_target ON scan_runs(target_date)`,

		`CREATE TABLE IF NOT EXISTS signal_matches (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     INTEGER NOT NULL REFERENCES scan_runs(id),
			ticker     TEXT NOT NULL,
			signal     TEXT NOT NULL,
			close      REAL,
			date       TEXT NOT NULL,
			lower_band REAL,
			notes      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_ticker ON signal_matches(ticker, date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run summary and its matches in one transaction.
func (r *SQLiteRecorder) RecordRun(run *RunRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	s := run.Summary
	res, err := tx.Exec(`INSERT INTO scan_runs
		(started_at, finished_at, target_date, tickers, matched, no_signal,
		 unavailable, insufficient, stale, failed, result_path)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		s.StartedAt.Unix(), s.FinishedAt.Unix(), s.TargetDate.Format(model.DateLayout),
		s.Tickers, s.Matched, s.NoSignal, s.Unavailable, s.Insufficient, s.Stale, s.Failed,
		run.ResultPath,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, m := range run.Matches {
		var lower sql.NullFloat64
		if m.LowerBand.OK {
			lower = sql.NullFloat64{Float64: m.LowerBand.V, Valid: true}
		}
		if _, err := tx.Exec(`INSERT INTO signal_matches
			(run_id, ticker, signal, close, date, lower_band, notes)
			VALUES (?,?,?,?,?,?,?)`,
			runID, m.Ticker, string(m.Kind), m.Close, m.Date.Format(model.DateLayout),
			lower, strings.Join(m.Notes, ";"),
		); err != nil {
			return 0, fmt.Errorf("insert match %s: %w", m.Ticker, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// LastRun returns the most recent run with its matches, or nil when none exist.
func (r *SQLiteRecorder) LastRun() (*RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run             RunRecord
		started, finish int64
		target          string
		resultPath      sql.NullString
	)
	err := r.db.QueryRow(`SELECT id, started_at, finished_at, target_date, tickers, matched,
		no_signal, unavailable, insufficient, stale, failed, result_path
		FROM scan_runs ORDER BY id DESC LIMIT 1`).Scan(
		&run.ID, &started, &finish, &target, &run.Summary.Tickers, &run.Summary.Matched,
		&run.Summary.NoSignal, &run.Summary.Unavailable, &run.Summary.Insufficient,
		&run.Summary.Stale, &run.Summary.Failed, &resultPath,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	run.Summary.StartedAt = time.Unix(started, 0)
	run.Summary.FinishedAt = time.Unix(finish, 0)
	if run.Summary.TargetDate, err = time.Parse(model.DateLayout, target); err != nil {
		return nil, fmt.Errorf("parse target date: %w", err)
	}
	run.ResultPath = resultPath.String

	rows, err := r.db.Query(`SELECT ticker, signal, close, date, lower_band, notes
		FROM signal_matches WHERE run_id = ? ORDER BY id`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m     model.SignalMatch
			kind  string
			date  string
			lower sql.NullFloat64
			notes sql.NullString
		)
		if err := rows.Scan(&m.Ticker, &kind, &m.Close, &date, &lower, &notes); err != nil {
			return nil, err
		}
		m.Kind = model.SignalKind(kind)
		if m.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("parse match date: %w", err)
		}
		if lower.Valid {
			m.LowerBand = model.Some(lower.Float64)
		}
		if notes.String != "" {
			m.Notes = strings.Split(notes.String, ";")
		}
		run.Matches = append(run.Matches, m)
	}
	return &run, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
