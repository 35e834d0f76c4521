package finance

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

func setupMockStore(t *testing.T) (sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewPostgresStoreFromDB(db)
}

func TestPostgresStore_Get(t *testing.T) {
	mock, store := setupMockStore(t)
	vars := models.SessionVariables{UserID: "u1", Roles: "finance-read"}

	issued := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	due := issued.AddDate(0, 0, 30)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").WithArgs(vars.UserID, vars.Roles, vars.Department).WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"id", "customer", "amount", "currency", "status", "issued_at", "due_at", "voided_at", "void_reason"}).
		AddRow("inv1", "Acme Corp", 4200.50, "USD", "open", issued, due, nil, nil)
	mock.ExpectQuery("SELECT id, customer, amount").WithArgs("inv1").WillReturnRows(rows)
	mock.ExpectCommit()

	inv, err := store.Get(context.Background(), vars, "inv1")
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", inv.Customer)
	require.Equal(t, 4200.50, inv.Amount)
	require.Nil(t, inv.VoidedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	mock, store := setupMockStore(t)
	vars := models.SessionVariables{UserID: "u1"}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, customer, amount").WithArgs("missing").WillReturnRows(sqlmock.NewRows([]string{
		"id", "customer", "amount", "currency", "status", "issued_at", "due_at", "voided_at", "void_reason",
	}))
	mock.ExpectRollback()

	_, err := store.Get(context.Background(), vars, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_Void(t *testing.T) {
	mock, store := setupMockStore(t)
	vars := models.SessionVariables{UserID: "u1", Roles: "finance-write"}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM invoices").WithArgs("inv1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("open"))
	mock.ExpectExec("UPDATE invoices SET status").WithArgs(sqlmock.AnyArg(), "duplicate billing", "inv1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Void(context.Background(), vars, "inv1", "duplicate billing")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Void_AlreadyVoid(t *testing.T) {
	mock, store := setupMockStore(t)
	vars := models.SessionVariables{UserID: "u1"}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM invoices").WithArgs("inv1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("void"))
	mock.ExpectRollback()

	err := store.Void(context.Background(), vars, "inv1", "duplicate billing")
	require.ErrorIs(t, err, ErrAlreadyVoid)
}

func TestPostgresStore_Void_NotFound(t *testing.T) {
	mock, store := setupMockStore(t)
	vars := models.SessionVariables{UserID: "u1"}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM invoices").WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err := store.Void(context.Background(), vars, "ghost", "reason")
	require.ErrorIs(t, err, ErrNotFound)
}
