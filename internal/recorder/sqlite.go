package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"IndexDeviation/internal/logger"
	"IndexDeviation/internal/model"
)

type dialect struct {
	driver   string
	idColumn string
	dollar   bool // postgres uses $n placeholders
}

var (
	sqliteDialect   = dialect{driver: "sqlite", idColumn: "INTEGER PRIMARY KEY AUTOINCREMENT"}
	postgresDialect = dialect{driver: "postgres", idColumn: "BIGSERIAL PRIMARY KEY", dollar: true}
)

// rebind rewrites ? placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLRecorder persists run history through database/sql.
type SQLRecorder struct {
	db      *sql.DB
	dialect dialect
	mu      sync.Mutex
	log     *logger.Entry
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so readers are not blocked while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return newSQLRecorder(db, sqliteDialect, dbPath)
}

// NewPostgresRecorder connects to PostgreSQL with the given DSN and runs migrations.
func NewPostgresRecorder(dsn string) (*SQLRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLRecorder(db, postgresDialect, "postgres")
}

func newSQLRecorder(db *sql.DB, d dialect, target string) (*SQLRecorder, error) {
	r := &SQLRecorder{db: db, dialect: d, log: logger.Get().WithComponent("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	r.log.WithFields(logger.Fields{"driver": d.driver, "target": target}).Info("recorder opened")
	return r, nil
}

func (r *SQLRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          ` + r.dialect.idColumn + `,
			run_id      TEXT NOT NULL UNIQUE,
			started_at  BIGINT NOT NULL,
			finished_at BIGINT NOT NULL,
			total       INTEGER,
			succeeded   INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS index_results (
			id               ` + r.dialect.idColumn + `,
			run_id           TEXT NOT NULL,
			display_name     TEXT NOT NULL,
			category         TEXT,
			provider         TEXT,
			attempts         INTEGER,
			points           INTEGER,
			latest_date      TEXT,
			latest_close     TEXT,
			latest_ma        TEXT,
			latest_deviation TEXT,
			chart_path       TEXT,
			error            TEXT,
			recorded_at      BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON index_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_name ON index_results(display_name, recorded_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(r.dialect.rebind(`INSERT INTO runs
		(run_id, started_at, finished_at, total, succeeded, failed)
		VALUES (?,?,?,?,?,?)`),
		run.RunID, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.Total, run.Succeeded, run.Failed,
	)
	return err
}

func (r *SQLRecorder) RecordIndexResult(res *IndexResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest sql.NullString
	if !res.LatestDate.IsZero() {
		latest = sql.NullString{String: res.LatestDate.Format(model.DateLayout), Valid: true}
	}
	_, err := r.db.Exec(r.dialect.rebind(`INSERT INTO index_results
		(run_id, display_name, category, provider, attempts, points,
		 latest_date, latest_close, latest_ma, latest_deviation,
		 chart_path, error, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		res.RunID, res.DisplayName, res.Category, res.Provider, res.Attempts, res.Points,
		latest, res.LatestClose, res.LatestMA, res.LatestDeviation,
		res.ChartPath, res.Error, time.Now().Unix(),
	)
	return err
}

// Results returns the index results stored for runID in insertion order.
func (r *SQLRecorder) Results(runID string) ([]IndexResult, error) {
	rows, err := r.db.Query(r.dialect.rebind(`SELECT
		run_id, display_name, category, provider, attempts, points,
		latest_date, latest_close, latest_ma, latest_deviation, chart_path, error
		FROM index_results WHERE run_id = ? ORDER BY id`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexResult
	for rows.Next() {
		var res IndexResult
		var latest sql.NullString
		if err := rows.Scan(&res.RunID, &res.DisplayName, &res.Category, &res.Provider,
			&res.Attempts, &res.Points, &latest, &res.LatestClose, &res.LatestMA,
			&res.LatestDeviation, &res.ChartPath, &res.Error); err != nil {
			return nil, err
		}
		if latest.Valid {
			if res.LatestDate, err = model.ParseDate(latest.String); err != nil {
				return nil, err
			}
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *SQLRecorder) Close() error {
	r.log.Info("closing recorder")
	return r.db.Close()
}
