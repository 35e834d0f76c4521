package finance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/domain/hr"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// PostgresStore is the production Finance Store, backed by a Postgres
// invoices table. It shares pool-tuning defaults with the hr package's
// store rather than redefining them.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings dsn.
func NewPostgresStore(dsn string, cfg hr.PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("finance: open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("finance: ping database: %w", err)
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

func (s *PostgresStore) withSessionVariables(ctx context.Context, vars models.SessionVariables, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finance: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`SELECT set_config('app.user_id', $1, true),
		        set_config('app.roles', $2, true),
		        set_config('app.department', $3, true)`,
		vars.UserID, vars.Roles, vars.Department,
	); err != nil {
		return fmt.Errorf("finance: apply session variables: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) List(ctx context.Context, vars models.SessionVariables, filter ListFilter) ([]Invoice, error) {
	query := `SELECT id, customer, amount, currency, status, issued_at, due_at, voided_at, void_reason
	          FROM invoices WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.AfterDate != nil && filter.AfterID != "" {
		args = append(args, *filter.AfterDate, filter.AfterID)
		query += fmt.Sprintf(" AND (issued_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, filter.Limit+1)
	query += fmt.Sprintf(" ORDER BY issued_at DESC, id DESC LIMIT $%d", len(args))

	var out []Invoice
	err := s.withSessionVariables(ctx, vars, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("finance: list invoices: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var inv Invoice
			var voidedAt sql.NullTime
			var voidReason sql.NullString
			if err := rows.Scan(&inv.ID, &inv.Customer, &inv.Amount, &inv.Currency, &inv.Status, &inv.IssuedAt, &inv.DueAt, &voidedAt, &voidReason); err != nil {
				return fmt.Errorf("finance: scan invoice: %w", err)
			}
			if voidedAt.Valid {
				inv.VoidedAt = &voidedAt.Time
			}
			inv.VoidReason = voidReason.String
			out = append(out, inv)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, vars models.SessionVariables, id string) (Invoice, error) {
	var inv Invoice
	err := s.withSessionVariables(ctx, vars, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT id, customer, amount, currency, status, issued_at, due_at, voided_at, void_reason
			 FROM invoices WHERE id = $1`, id)
		var voidedAt sql.NullTime
		var voidReason sql.NullString
		if err := row.Scan(&inv.ID, &inv.Customer, &inv.Amount, &inv.Currency, &inv.Status, &inv.IssuedAt, &inv.DueAt, &voidedAt, &voidReason); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("finance: get invoice: %w", err)
		}
		if voidedAt.Valid {
			inv.VoidedAt = &voidedAt.Time
		}
		inv.VoidReason = voidReason.String
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Void marks the invoice voided. Called only from Execute, never from
// Invoke — the first call always returns a pendingConfirmation.
func (s *PostgresStore) Void(ctx context.Context, vars models.SessionVariables, id, reason string) error {
	return s.withSessionVariables(ctx, vars, func(tx *sql.Tx) error {
		var status string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM invoices WHERE id = $1`, id).Scan(&status); err != nil {
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			return fmt.Errorf("finance: void invoice: %w", err)
		}
		if status == "void" {
			return ErrAlreadyVoid
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE invoices SET status = 'void', voided_at = $1, void_reason = $2 WHERE id = $3`,
			time.Now().UTC(), reason, id)
		if err != nil {
			return fmt.Errorf("finance: void invoice: %w", err)
		}
		return nil
	})
}
