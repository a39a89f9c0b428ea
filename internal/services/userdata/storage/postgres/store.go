// Package postgres provides a PostgreSQL-backed user data storage
// implementation on the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/louisbranch/datapulse/internal/platform/storage/migrate"
	"github.com/louisbranch/datapulse/internal/platform/storage/sqltrace"
	"github.com/louisbranch/datapulse/internal/services/userdata/storage"
	"github.com/louisbranch/datapulse/internal/services/userdata/storage/postgres/migrations"
)

// Pool sizing: 5 persistent connections plus burst headroom.
const (
	maxOpenConns    = 15
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Store persists user data records in PostgreSQL.
type Store struct {
	db *sqltrace.DB
}

// Open connects to PostgreSQL and applies embedded migrations. Migrations
// run on the raw handle so startup bookkeeping stays out of the query
// metrics; every statement after Open reports to rec.
func Open(dsn string, rec sqltrace.Recorder) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	if err := migrate.ApplyMigrations(sqlDB, migrate.DialectPostgres, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: sqltrace.Wrap(sqlDB, rec)}, nil
}

// Close closes the PostgreSQL handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateUserData inserts one record. The database assigns ID and creation
// time.
func (s *Store) CreateUserData(ctx context.Context, record storage.UserData) (storage.UserData, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserData{}, err
	}
	if s == nil || s.db == nil {
		return storage.UserData{}, fmt.Errorf("storage is not configured")
	}

	row := s.db.QueryRowContext(
		ctx,
		`INSERT INTO user_data (name, email, message)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, email, message, created_at`,
		record.Name,
		record.Email,
		record.Message,
	)
	return scanUserData(row, "create user data")
}

// GetUserData returns one record by ID.
func (s *Store) GetUserData(ctx context.Context, id int64) (storage.UserData, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserData{}, err
	}
	if s == nil || s.db == nil {
		return storage.UserData{}, fmt.Errorf("storage is not configured")
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, email, message, created_at FROM user_data WHERE id = $1`,
		id,
	)
	return scanUserData(row, "get user data")
}

// ListUserData returns records ordered newest first. Records sharing a
// creation timestamp order by descending ID so pages stay stable.
func (s *Store) ListUserData(ctx context.Context, skip, limit int) ([]storage.UserData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if skip < 0 {
		return nil, fmt.Errorf("skip must not be negative")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, email, message, created_at
		   FROM user_data
		  ORDER BY created_at DESC, id DESC
		  LIMIT $1 OFFSET $2`,
		limit,
		skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list user data: %w", err)
	}
	defer rows.Close()

	records := make([]storage.UserData, 0, limit)
	for rows.Next() {
		var record storage.UserData
		var message sql.NullString
		var createdAt time.Time
		if err := rows.Scan(&record.ID, &record.Name, &record.Email, &message, &createdAt); err != nil {
			return nil, fmt.Errorf("list user data: %w", err)
		}
		if message.Valid {
			record.Message = &message.String
		}
		record.CreatedAt = createdAt.UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user data: %w", err)
	}
	return records, nil
}

// UpdateUserData replaces the mutable fields of one record. The creation
// time is preserved.
func (s *Store) UpdateUserData(ctx context.Context, id int64, record storage.UserData) (storage.UserData, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserData{}, err
	}
	if s == nil || s.db == nil {
		return storage.UserData{}, fmt.Errorf("storage is not configured")
	}

	row := s.db.QueryRowContext(
		ctx,
		`UPDATE user_data
		    SET name = $1, email = $2, message = $3
		  WHERE id = $4
		  RETURNING id, name, email, message, created_at`,
		record.Name,
		record.Email,
		record.Message,
		id,
	)
	return scanUserData(row, "update user data")
}

// DeleteUserData removes one record and returns its last stored state.
func (s *Store) DeleteUserData(ctx context.Context, id int64) (storage.UserData, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserData{}, err
	}
	if s == nil || s.db == nil {
		return storage.UserData{}, fmt.Errorf("storage is not configured")
	}

	row := s.db.QueryRowContext(
		ctx,
		`DELETE FROM user_data
		  WHERE id = $1
		  RETURNING id, name, email, message, created_at`,
		id,
	)
	return scanUserData(row, "delete user data")
}

// CheckHealth verifies the database answers a trivial query.
func (s *Store) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("health query: %w", err)
	}
	return nil
}

// Stats reports live connection pool statistics.
func (s *Store) Stats() sql.DBStats {
	if s == nil || s.db == nil {
		return sql.DBStats{}
	}
	return s.db.Stats()
}

func scanUserData(row *sql.Row, op string) (storage.UserData, error) {
	var record storage.UserData
	var message sql.NullString
	var createdAt time.Time
	err := row.Scan(&record.ID, &record.Name, &record.Email, &message, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserData{}, storage.ErrNotFound
		}
		return storage.UserData{}, fmt.Errorf("%s: %w", op, err)
	}
	if message.Valid {
		record.Message = &message.String
	}
	record.CreatedAt = createdAt.UTC()
	return record, nil
}

var _ storage.Store = (*Store)(nil)
