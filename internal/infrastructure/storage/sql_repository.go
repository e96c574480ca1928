package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ResetTracker/internal/domain"
	"ResetTracker/internal/ports"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	statusTable = "status_records"
	logTable    = "update_log"
)

// ErrStaleRecord is returned when an upsert would not advance the stored date.
var ErrStaleRecord = ports.ErrStaleRecord

var statusColumns = []string{
	"location", "category", "latest_date", "image_path", "post_id",
	"title", "link", "description", "reconciled_at",
}

// SQLRepository persists status records and run logs in Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
}

var _ ports.StatusRepository = (*SQLRepository)(nil)

// Open connects, pings and creates the schema when missing.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer keeps sqlite from returning SQLITE_BUSY under concurrent upserts
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := NewSQLRepository(db, driver)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLRepository wraps an existing connection pool.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &SQLRepository{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Migrate creates tables if they do not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	timeType := "DATETIME"
	if r.driver == DriverPostgres {
		timeType = "TIMESTAMPTZ"
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			location TEXT NOT NULL,
			category TEXT NOT NULL,
			latest_date TEXT NOT NULL,
			image_path TEXT NOT NULL,
			post_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			reconciled_at %s NOT NULL,
			PRIMARY KEY (location, category)
		)`, statusTable, timeType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			location TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			status TEXT NOT NULL,
			updated_at %s NOT NULL,
			categories TEXT NOT NULL DEFAULT ''
		)`, logTable, timeType),
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

// Get returns the record for key, or nil when there is none.
func (r *SQLRepository) Get(ctx context.Context, key domain.Key) (*domain.StatusRecord, error) {
	query, args, err := r.builder.
		Select(statusColumns...).
		From(statusTable).
		Where(sq.Eq{"location": key.Location, "category": string(key.Category)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get status %s: %w", key, err)
	}
	return &rec, nil
}

// ListByLocation returns every record of location ordered by category.
func (r *SQLRepository) ListByLocation(ctx context.Context, location string) ([]domain.StatusRecord, error) {
	query, args, err := r.builder.
		Select(statusColumns...).
		From(statusTable).
		Where(sq.Eq{"location": location}).
		OrderBy("category").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}

	var records []domain.StatusRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan status: %w", err)
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return records, nil
}

// Upsert inserts the record or advances an existing one. The stored row is only
// updated when its latest_date is strictly older; otherwise ErrStaleRecord is returned.
func (r *SQLRepository) Upsert(ctx context.Context, rec domain.StatusRecord) error {
	if rec.ReconciledAt.IsZero() {
		rec.ReconciledAt = time.Now().UTC()
	}

	query, args, err := r.builder.
		Insert(statusTable).
		Columns(statusColumns...).
		Values(
			rec.Location, string(rec.Category), rec.LatestDate.String(), rec.ImagePath, rec.PostID,
			rec.Title, rec.Link, rec.Description, rec.ReconciledAt,
		).
		Suffix(`ON CONFLICT (location, category) DO UPDATE
			SET latest_date = EXCLUDED.latest_date,
			    image_path = EXCLUDED.image_path,
			    post_id = EXCLUDED.post_id,
			    title = EXCLUDED.title,
			    link = EXCLUDED.link,
			    description = EXCLUDED.description,
			    reconciled_at = EXCLUDED.reconciled_at
			WHERE ` + statusTable + `.latest_date < EXCLUDED.latest_date`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert status %s: %w", rec.Key(), err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert status %s: rows affected: %w", rec.Key(), err)
	}
	if affected == 0 {
		return fmt.Errorf("upsert status %s at %s: %w", rec.Key(), rec.LatestDate, ErrStaleRecord)
	}
	return nil
}

// PurgeLocation deletes every status record of location.
func (r *SQLRepository) PurgeLocation(ctx context.Context, location string) error {
	query, args, err := r.builder.
		Delete(statusTable).
		Where(sq.Eq{"location": location}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("purge location %s: %w", location, err)
	}
	return nil
}

// SaveRunLog replaces the location's run log row.
func (r *SQLRepository) SaveRunLog(ctx context.Context, entry domain.RunLog) error {
	categories := make([]string, 0, len(entry.Categories))
	for _, c := range entry.Categories {
		categories = append(categories, string(c))
	}

	query, args, err := r.builder.
		Insert(logTable).
		Columns("location", "run_id", "status", "updated_at", "categories").
		Values(entry.Location, entry.RunID, string(entry.Status), entry.UpdatedAt, strings.Join(categories, ",")).
		Suffix(`ON CONFLICT (location) DO UPDATE
			SET run_id = EXCLUDED.run_id,
			    status = EXCLUDED.status,
			    updated_at = EXCLUDED.updated_at,
			    categories = EXCLUDED.categories`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run log upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save run log %s: %w", entry.Location, err)
	}
	return nil
}

// RunLog returns the last run log row of location, or nil.
func (r *SQLRepository) RunLog(ctx context.Context, location string) (*domain.RunLog, error) {
	query, args, err := r.builder.
		Select("location", "run_id", "status", "updated_at", "categories").
		From(logTable).
		Where(sq.Eq{"location": location}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var (
		entry      domain.RunLog
		status     string
		categories string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&entry.Location, &entry.RunID, &status, &entry.UpdatedAt, &categories)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run log %s: %w", location, err)
	}

	entry.Status = domain.RunStatus(status)
	for _, raw := range strings.Split(categories, ",") {
		if raw == "" {
			continue
		}
		c, err := domain.ParseCategory(raw)
		if err != nil {
			return nil, fmt.Errorf("run log %s: %w", location, err)
		}
		entry.Categories = append(entry.Categories, c)
	}
	return &entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.StatusRecord, error) {
	var (
		rec      domain.StatusRecord
		category string
		date     string
	)
	err := row.Scan(
		&rec.Location, &category, &date, &rec.ImagePath, &rec.PostID,
		&rec.Title, &rec.Link, &rec.Description, &rec.ReconciledAt,
	)
	if err != nil {
		return domain.StatusRecord{}, err
	}

	c, err := domain.ParseCategory(category)
	if err != nil {
		return domain.StatusRecord{}, err
	}
	rec.Category = c
	rec.LatestDate = domain.PostDate(date)
	return rec, nil
}
