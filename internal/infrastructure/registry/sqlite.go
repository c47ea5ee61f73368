package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pricecompare/backend/internal/domain"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS api_endpoints (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const selectColumns = `SELECT id, name, url, is_active, created_at, updated_at FROM api_endpoints`

// SQLiteRepository persists endpoints in a SQLite database file
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at path and ensures the schema
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}

	// SQLite serializes writers; a single connection also keeps :memory: databases coherent
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create api_endpoints table: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// Close releases the database handle
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// List returns all endpoints, newest first
func (r *SQLiteRepository) List(ctx context.Context) ([]domain.Endpoint, error) {
	return r.query(ctx, selectColumns+` ORDER BY created_at DESC, id DESC`)
}

// ListActive returns active endpoints in insertion order
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]domain.Endpoint, error) {
	return r.query(ctx, selectColumns+` WHERE is_active = TRUE ORDER BY id ASC`)
}

// Get retrieves an endpoint by ID
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*domain.Endpoint, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	endpoint, err := scanEndpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEndpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get endpoint %d: %w", id, err)
	}
	return endpoint, nil
}

// Create inserts a new endpoint
func (r *SQLiteRepository) Create(ctx context.Context, endpoint *domain.Endpoint) (*domain.Endpoint, error) {
	now := r.now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO api_endpoints (name, url, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		endpoint.Name, endpoint.URL, endpoint.IsActive, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert endpoint: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert endpoint: %w", err)
	}
	return r.Get(ctx, id)
}

// Update applies a partial update to an endpoint
func (r *SQLiteRepository) Update(ctx context.Context, id int64, update domain.EndpointUpdate) (*domain.Endpoint, error) {
	if update.IsEmpty() {
		return nil, domain.ErrNoUpdateFields
	}

	setClauses := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if update.Name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *update.Name)
	}
	if update.URL != nil {
		setClauses = append(setClauses, "url = ?")
		args = append(args, *update.URL)
	}
	if update.IsActive != nil {
		setClauses = append(setClauses, "is_active = ?")
		args = append(args, *update.IsActive)
	}
	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, r.now().UTC(), id)

	query := fmt.Sprintf("UPDATE api_endpoints SET %s WHERE id = ?", strings.Join(setClauses, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update endpoint %d: %w", id, err)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// Delete removes an endpoint
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM api_endpoints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete endpoint %d: %w", id, err)
	}
	return requireAffected(result)
}

// Toggle flips an endpoint's active flag and returns the new state
func (r *SQLiteRepository) Toggle(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("toggle endpoint %d: %w", id, err)
	}
	defer tx.Rollback()

	var active bool
	err = tx.QueryRowContext(ctx, `SELECT is_active FROM api_endpoints WHERE id = ?`, id).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrEndpointNotFound
	}
	if err != nil {
		return false, fmt.Errorf("toggle endpoint %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE api_endpoints SET is_active = ?, updated_at = ? WHERE id = ?`,
		!active, r.now().UTC(), id); err != nil {
		return false, fmt.Errorf("toggle endpoint %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("toggle endpoint %d: %w", id, err)
	}
	return !active, nil
}

// Count returns the number of stored endpoints
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_endpoints`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count endpoints: %w", err)
	}
	return count, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]domain.Endpoint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query endpoints: %w", err)
	}
	defer rows.Close()

	endpoints := make([]domain.Endpoint, 0)
	for rows.Next() {
		endpoint, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		endpoints = append(endpoints, *endpoint)
	}
	return endpoints, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(s scanner) (*domain.Endpoint, error) {
	var (
		endpoint  domain.Endpoint
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	if err := s.Scan(&endpoint.ID, &endpoint.Name, &endpoint.URL, &endpoint.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	endpoint.CreatedAt = createdAt.Time
	endpoint.UpdatedAt = updatedAt.Time
	return &endpoint, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrEndpointNotFound
	}
	return nil
}
