package hr

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// lib/pq registers the "postgres" driver with database/sql.
	_ "github.com/lib/pq"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// PostgresConfig holds the connection-pool tuning knobs.
type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns conservative pool defaults.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

// PostgresStore is the production HR Store, backed by a Postgres
// employees table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings dsn, applying cfg's pool settings.
func NewPostgresStore(dsn string, cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("hr: open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("hr: ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an already-opened *sql.DB, used by
// tests against go-sqlmock.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// withSessionVariables runs fn inside a transaction with the caller's
// session-variable bundle applied via set_config(..., true) (true =
// transaction-scoped, so no pooled connection can leak one request's
// identity into the next).
func (s *PostgresStore) withSessionVariables(ctx context.Context, vars models.SessionVariables, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("hr: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`SELECT set_config('app.user_id', $1, true),
		        set_config('app.roles', $2, true),
		        set_config('app.department', $3, true)`,
		vars.UserID, vars.Roles, vars.Department,
	); err != nil {
		return fmt.Errorf("hr: apply session variables: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// List fetches up to filter.Limit+1 rows ordered by hire_date DESC,
// id DESC so BuildPage can detect hasMore without a second COUNT
// query.
func (s *PostgresStore) List(ctx context.Context, vars models.SessionVariables, filter ListFilter) ([]Employee, error) {
	query := `SELECT id, name, department, title, email, hire_date, salary, gov_id
	          FROM employees WHERE 1=1`
	args := []any{}
	if filter.Department != "" {
		args = append(args, filter.Department)
		query += fmt.Sprintf(" AND department = $%d", len(args))
	}
	if filter.AfterDate != nil && filter.AfterID != "" {
		args = append(args, *filter.AfterDate, filter.AfterID)
		query += fmt.Sprintf(" AND (hire_date, id) < ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, filter.Limit+1)
	query += fmt.Sprintf(" ORDER BY hire_date DESC, id DESC LIMIT $%d", len(args))

	var out []Employee
	err := s.withSessionVariables(ctx, vars, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("hr: list employees: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e Employee
			if err := rows.Scan(&e.ID, &e.Name, &e.Department, &e.Title, &e.Email, &e.HireDate, &e.Salary, &e.GovID); err != nil {
				return fmt.Errorf("hr: scan employee: %w", err)
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get looks up a single employee by id.
func (s *PostgresStore) Get(ctx context.Context, vars models.SessionVariables, id string) (Employee, error) {
	var e Employee
	err := s.withSessionVariables(ctx, vars, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT id, name, department, title, email, hire_date, salary, gov_id
			 FROM employees WHERE id = $1`, id)
		if err := row.Scan(&e.ID, &e.Name, &e.Department, &e.Title, &e.Email, &e.HireDate, &e.Salary, &e.GovID); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("hr: get employee: %w", err)
		}
		return nil
	})
	if err != nil {
		return Employee{}, err
	}
	return e, nil
}

// Delete removes the employee row. Called only from Execute, after
// the confirmation round-trip — never from Invoke.
func (s *PostgresStore) Delete(ctx context.Context, vars models.SessionVariables, id string) error {
	return s.withSessionVariables(ctx, vars, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("hr: delete employee: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("hr: delete employee: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
