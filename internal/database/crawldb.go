package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/quotecrawl/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "quotecrawl.db"

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// CrawlDB provides SQLite-based storage for crawl runs.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the path of the database file.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl branch
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		host TEXT NOT NULL,
		started_at TEXT,
		finished_at TEXT,
		page_count INTEGER NOT NULL DEFAULT 0,
		record_count INTEGER NOT NULL DEFAULT 0,
		stop_reason TEXT,
		stop_detail TEXT,
		error TEXT,
		timed_out INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_host ON runs(host);

	-- Pages fetched by a run, in crawl order
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		number INTEGER NOT NULL,
		url TEXT NOT NULL,
		status_code INTEGER,
		hash TEXT,
		record_count INTEGER NOT NULL DEFAULT 0,
		missing_fields INTEGER NOT NULL DEFAULT 0,
		next_url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);

	-- Records emitted by a run, in emission order
	CREATE TABLE IF NOT EXISTS quotes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		quote TEXT,
		author TEXT,
		about TEXT,
		tags TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_quotes_run ON quotes(run_id);
	CREATE INDEX IF NOT EXISTS idx_quotes_author ON quotes(author);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a finished report in one transaction and returns the run id.
func (cdb *CrawlDB) SaveRun(ctx context.Context, report *model.CrawlReport) (int64, error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (seed, host, started_at, finished_at, page_count, record_count, stop_reason, stop_detail, error, timed_out)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Seed,
		report.Host(),
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.PageCount(),
		report.RecordCount(),
		string(report.StopReason),
		report.StopDetail,
		report.ErrorMessage,
		report.TimedOut,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	pageStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, number, url, status_code, hash, record_count, missing_fields, next_url)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer pageStmt.Close()

	for _, p := range report.Pages {
		if _, err := pageStmt.ExecContext(ctx, runID, p.Number, p.URL, p.StatusCode, p.Hash, p.RecordCount, p.MissingFields, p.NextURL); err != nil {
			return 0, fmt.Errorf("failed to insert page %d: %w", p.Number, err)
		}
	}

	quoteStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO quotes (run_id, position, quote, author, about, tags)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare quote insert: %w", err)
	}
	defer quoteStmt.Close()

	for i, rec := range report.Records {
		if _, err := quoteStmt.ExecContext(ctx, runID, i, rec.Quote, rec.Author, rec.About, rec.Tags); err != nil {
			return 0, fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// RunSummary describes a stored run without its pages and records.
type RunSummary struct {
	ID          int64
	Seed        string
	Host        string
	StartedAt   time.Time
	FinishedAt  time.Time
	PageCount   int
	RecordCount int
	StopReason  model.StopReason
	StopDetail  string
	Error       string
	TimedOut    bool
}

// ListRuns returns stored runs, newest first. An empty host lists all runs.
func (cdb *CrawlDB) ListRuns(ctx context.Context, host string) ([]RunSummary, error) {
	query := `
	SELECT id, seed, host, started_at, finished_at, page_count, record_count, stop_reason, stop_detail, error, timed_out
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0)

	if host != "" {
		query += " AND host = ?"
		args = append(args, host)
	}
	query += " ORDER BY id DESC"

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		run, err := scanRunSummary(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunSummary(row rowScanner) (RunSummary, error) {
	var (
		run                RunSummary
		started, finished  sql.NullString
		stopReason, detail sql.NullString
		errText            sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&run.Seed,
		&run.Host,
		&started,
		&finished,
		&run.PageCount,
		&run.RecordCount,
		&stopReason,
		&detail,
		&errText,
		&run.TimedOut,
	); err != nil {
		return RunSummary{}, err
	}

	run.StartedAt = parseTimestamp(started.String)
	run.FinishedAt = parseTimestamp(finished.String)
	run.StopReason = model.StopReason(stopReason.String)
	run.StopDetail = detail.String
	run.Error = errText.String
	return run, nil
}

// GetRun rebuilds the report of a stored run, including pages and records.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*model.CrawlReport, error) {
	run, err := scanRunSummary(cdb.db.QueryRowContext(ctx, `
	SELECT id, seed, host, started_at, finished_at, page_count, record_count, stop_reason, stop_detail, error, timed_out
	FROM runs
	WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	pages, err := cdb.GetRunPages(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := cdb.GetRunRecords(ctx, id)
	if err != nil {
		return nil, err
	}

	report := model.NewCrawlReport(run.Seed)
	report.RunID = run.ID
	report.StartedAt = run.StartedAt
	report.FinishedAt = run.FinishedAt
	report.StopReason = run.StopReason
	report.StopDetail = run.StopDetail
	report.ErrorMessage = run.Error
	report.TimedOut = run.TimedOut
	report.Pages = pages
	report.Records = records
	return report, nil
}

// GetRunPages returns the page summaries of a run in crawl order.
func (cdb *CrawlDB) GetRunPages(ctx context.Context, runID int64) ([]model.PageSummary, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT number, url, status_code, hash, record_count, missing_fields, next_url
	FROM pages
	WHERE run_id = ?
	ORDER BY number
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	pages := make([]model.PageSummary, 0)
	for rows.Next() {
		var (
			p             model.PageSummary
			hash, nextURL sql.NullString
		)
		if err := rows.Scan(&p.Number, &p.URL, &p.StatusCode, &hash, &p.RecordCount, &p.MissingFields, &nextURL); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.Hash = hash.String
		p.NextURL = nextURL.String
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetRunRecords returns the records of a run in emission order.
func (cdb *CrawlDB) GetRunRecords(ctx context.Context, runID int64) ([]model.Record, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT quote, author, about, tags
	FROM quotes
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		var quote, author, about, tags sql.NullString
		if err := rows.Scan(&quote, &author, &about, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, model.Record{
			Quote:  quote.String,
			Author: author.String,
			About:  about.String,
			Tags:   tags.String,
		})
	}
	return records, rows.Err()
}

// ListHosts returns every host with at least one stored run.
func (cdb *CrawlDB) ListHosts(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT host FROM runs ORDER BY host`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp tries each known format and returns the zero time when none matches.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
