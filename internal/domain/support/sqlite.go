package support

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// mattn/go-sqlite3 registers the "sqlite3" driver with
	// database/sql and ships FTS5, the full-text index this store
	// uses in place of a hosted search cluster.
	_ "github.com/mattn/go-sqlite3"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// SQLiteConfig mirrors the relational stores' pool-tuning knobs, sized
// down for a single-file embedded database.
type SQLiteConfig struct {
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// DefaultSQLiteConfig returns sensible defaults.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{MaxOpenConns: 1, ConnectTimeout: 5 * time.Second}
}

// SQLiteStore is the production Support Store. It assumes a `tickets`
// table and a companion `tickets_fts` FTS5 virtual table kept in sync
// by triggers, both provisioned out of band (schema/DDL is out of
// scope for this service, per the tool contract's storage boundary).
// SQLite has no per-connection session-variable mechanism analogous to
// Postgres's set_config; the caller's user id is instead recorded by
// Close as an audit column (updated_by), the same compromise the Sales
// MongoStore makes. Delete removes the row and records nothing.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dsn (a file path or "file::memory:?cache=shared")
// and pings it, mirroring the relational stores' fail-fast construction.
// SQLite serializes writes internally, so the pool is capped at a
// single open connection to avoid "database is locked" errors under
// concurrent Tool Server requests.
func NewSQLiteStore(dsn string, cfg SQLiteConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("support: open database: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("support: ping database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreFromDB wraps an already-opened *sql.DB, used by tests
// against go-sqlmock.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CloseDB releases the underlying connection pool.
func (s *SQLiteStore) CloseDB() error {
	return s.db.Close()
}

func scanTicket(row interface{ Scan(...any) error }) (Ticket, error) {
	var tk Ticket
	err := row.Scan(&tk.ID, &tk.Subject, &tk.Body, &tk.Customer, &tk.Status, &tk.Priority,
		&tk.ContactEmail, &tk.ContactPhone, &tk.CreatedAt)
	return tk, err
}

// List fetches up to filter.Limit+1 rows ordered by created_at DESC,
// id DESC, the relational keyset contract.
func (s *SQLiteStore) List(ctx context.Context, _ models.SessionVariables, filter ListFilter) ([]Ticket, error) {
	query := `SELECT id, subject, body, customer, status, priority, contact_email, contact_phone, created_at
	          FROM tickets WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = ?"
	}
	if filter.AfterDate != nil && filter.AfterID != "" {
		args = append(args, *filter.AfterDate, *filter.AfterDate, filter.AfterID)
		query += " AND (created_at < ? OR (created_at = ? AND id < ?))"
	}
	args = append(args, filter.Limit+1)
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("support: list tickets: %w", err)
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		tk, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("support: scan ticket: %w", err)
		}
		out = append(out, tk)
	}
	return out, rows.Err()
}

// Search runs an FTS5 MATCH query ranked by bm25, the search-index
// backend's native equivalent of "search after": the cursor carries
// the last result's (score, id) pair and the WHERE clause resumes
// strictly past it in the same descending order.
func (s *SQLiteStore) Search(ctx context.Context, _ models.SessionVariables, filter SearchFilter) ([]SearchHit, error) {
	query := `SELECT t.id, t.subject, t.body, t.customer, t.status, t.priority,
	                 t.contact_email, t.contact_phone, t.created_at, bm25(tickets_fts) AS score
	          FROM tickets_fts
	          JOIN tickets t ON t.id = tickets_fts.rowid
	          WHERE tickets_fts MATCH ?`
	args := []any{filter.Query}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND t.status = ?"
	}
	if filter.AfterScore != nil && filter.AfterID != "" {
		args = append(args, *filter.AfterScore, *filter.AfterScore, filter.AfterID)
		query += " AND (bm25(tickets_fts) < ? OR (bm25(tickets_fts) = ? AND t.id < ?))"
	}
	args = append(args, filter.Limit+1)
	query += " ORDER BY score DESC, t.id DESC LIMIT ?"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("support: search tickets: %w", err)
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var tk Ticket
		var score float64
		if err := rows.Scan(&tk.ID, &tk.Subject, &tk.Body, &tk.Customer, &tk.Status, &tk.Priority,
			&tk.ContactEmail, &tk.ContactPhone, &tk.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("support: scan search hit: %w", err)
		}
		out = append(out, SearchHit{Ticket: tk, Score: score})
	}
	return out, rows.Err()
}

// Get looks up a single ticket by id.
func (s *SQLiteStore) Get(ctx context.Context, _ models.SessionVariables, id string) (Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, subject, body, customer, status, priority, contact_email, contact_phone, created_at
		 FROM tickets WHERE id = ?`, id)
	tk, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Ticket{}, ErrNotFound
		}
		return Ticket{}, fmt.Errorf("support: get ticket: %w", err)
	}
	return tk, nil
}

// Close transitions a ticket to status "closed", recording the caller
// as updated_by. Called only from Execute, after the confirmation
// round-trip (the first invocation performs no backend mutation).
func (s *SQLiteStore) Close(ctx context.Context, vars models.SessionVariables, id string) (Ticket, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET status = 'closed', updated_by = ? WHERE id = ? AND status != 'closed'`,
		vars.UserID, id)
	if err != nil {
		return Ticket{}, fmt.Errorf("support: close ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Ticket{}, fmt.Errorf("support: close ticket: %w", err)
	}
	if n == 0 {
		if _, getErr := s.Get(ctx, vars, id); getErr == nil {
			return Ticket{}, ErrAlreadyClosed
		}
		return Ticket{}, ErrNotFound
	}
	return s.Get(ctx, vars, id)
}

// Delete removes the ticket row. Called only from Execute.
func (s *SQLiteStore) Delete(ctx context.Context, _ models.SessionVariables, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("support: delete ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("support: delete ticket: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
