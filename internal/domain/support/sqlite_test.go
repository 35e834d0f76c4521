package support

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

func setupMockStore(t *testing.T) (sqlmock.Sqlmock, *SQLiteStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewSQLiteStoreFromDB(db)
}

func TestSQLiteStore_Get(t *testing.T) {
	mock, store := setupMockStore(t)
	vars := models.SessionVariables{UserID: "u1", Roles: "support-read"}

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "subject", "body", "customer", "status", "priority", "contact_email", "contact_phone", "created_at"}).
		AddRow("t1", "Cannot log in", "I keep getting a 500 error", "Acme Corp", "open", "high", "user@acme.test", "555-0100", created)
	mock.ExpectQuery("SELECT id, subject, body").WithArgs("t1").WillReturnRows(rows)

	tk, err := store.Get(context.Background(), vars, "t1")
	require.NoError(t, err)
	require.Equal(t, "Cannot log in", tk.Subject)
	require.Equal(t, "high", tk.Priority)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	mock, store := setupMockStore(t)
	vars := models.SessionVariables{UserID: "u1"}

	mock.ExpectQuery("SELECT id, subject, body").WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{
		"id", "subject", "body", "customer", "status", "priority", "contact_email", "contact_phone", "created_at",
	}))

	_, err := store.Get(context.Background(), vars, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Close(t *testing.T) {
	mock, store := setupMockStore(t)
	vars := models.SessionVariables{UserID: "u1", Roles: "support-write"}

	mock.ExpectExec("UPDATE tickets SET status = 'closed'").
		WithArgs("u1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "subject", "body", "customer", "status", "priority", "contact_email", "contact_phone", "created_at"}).
		AddRow("t1", "Cannot log in", "body", "Acme Corp", "closed", "high", "user@acme.test", "555-0100", created)
	mock.ExpectQuery("SELECT id, subject, body").WithArgs("t1").WillReturnRows(rows)

	tk, err := store.Close(context.Background(), vars, "t1")
	require.NoError(t, err)
	require.Equal(t, "closed", tk.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_Delete_NotFound(t *testing.T) {
	mock, store := setupMockStore(t)
	vars := models.SessionVariables{UserID: "u1", Roles: "support-write"}

	mock.ExpectExec("DELETE FROM tickets").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), vars, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
