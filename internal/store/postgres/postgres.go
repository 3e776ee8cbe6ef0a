package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/locustgrub/locustgrub/server/internal/model"
	"github.com/locustgrub/locustgrub/server/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the checkins table and its range-scan indexes when
// they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkins (
            id             TEXT PRIMARY KEY,
            vendor_id      TEXT NOT NULL,
            presence       TEXT NOT NULL,
            line_length    TEXT NOT NULL,
            comment        TEXT,
            rating         INTEGER,
            entered_raffle BOOLEAN NOT NULL DEFAULT FALSE,
            submitter_id   TEXT NOT NULL,
            created_at     TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_submitter_created ON checkins (submitter_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_checkins_vendor_created ON checkins (vendor_id, created_at)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// NewWithDB constructs a Postgres-backed store on an existing connection pool.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

// HealthPing implements health.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *pgStore) Append(ctx context.Context, c *model.Checkin) (*model.Checkin, error) {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO checkins (id, vendor_id, presence, line_length, comment, rating, entered_raffle, submitter_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, c.ID, c.VendorID, string(c.Presence), string(c.LineLength), c.Comment, c.Rating, c.EnteredRaffle, c.SubmitterID, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: checkin id %s already exists", model.ErrConflict, c.ID)
		}
		return nil, storageErr(err)
	}
	out := *c
	return &out, nil
}

func (s *pgStore) Query(ctx context.Context, f model.CheckinFilter) ([]*model.Checkin, error) {
	q := `SELECT id, vendor_id, presence, line_length, comment, rating, entered_raffle, submitter_id, created_at
          FROM checkins WHERE 1=1`
	args := []any{}
	if f.VendorID != "" {
		args = append(args, f.VendorID)
		q += fmt.Sprintf(" AND vendor_id=$%d", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		q += fmt.Sprintf(" AND created_at>=$%d", len(args))
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer func() { _ = rows.Close() }()
	return scanCheckins(rows)
}

func (s *pgStore) Recent(ctx context.Context, limit int) ([]*model.Checkin, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, vendor_id, presence, line_length, comment, rating, entered_raffle, submitter_id, created_at
        FROM checkins ORDER BY created_at DESC, id DESC LIMIT $1
    `, limit)
	if err != nil {
		return nil, storageErr(err)
	}
	defer func() { _ = rows.Close() }()
	return scanCheckins(rows)
}

func (s *pgStore) CountSince(ctx context.Context, submitterID string, since time.Time) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM checkins WHERE submitter_id=$1 AND created_at>=$2
    `, submitterID, since)
	if err := row.Scan(&n); err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

// WithSubmitterLock holds a transaction-scoped advisory lock keyed on the
// submitter id for the duration of fn. Concurrent submissions from the same
// submitter queue behind the lock, so fn's count-then-append sequence cannot
// interleave; the lock releases on commit.
func (s *pgStore) WithSubmitterLock(ctx context.Context, submitterID string, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return storageErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, submitterID); err != nil {
		return storageErr(err)
	}
	if err := fn(ctx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr(err)
	}
	return nil
}

func scanCheckins(rows *sql.Rows) ([]*model.Checkin, error) {
	var res []*model.Checkin
	for rows.Next() {
		var c model.Checkin
		var presence, lineLength string
		if err := rows.Scan(&c.ID, &c.VendorID, &presence, &lineLength, &c.Comment, &c.Rating, &c.EnteredRaffle, &c.SubmitterID, &c.CreatedAt); err != nil {
			return nil, storageErr(err)
		}
		c.Presence = model.Presence(presence)
		c.LineLength = model.LineLength(lineLength)
		c.CreatedAt = c.CreatedAt.UTC()
		res = append(res, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return res, nil
}

// storageErr wraps driver and context failures as storage-unavailable so
// callers can classify them with errors.Is.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
}
