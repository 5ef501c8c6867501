package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoRows(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, NoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)
	other := errors.New("boom")
	assert.Equal(t, other, NoRows(other))
	assert.NoError(t, NoRows(nil))
}

func TestUniqueViolation(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "registrations_qr_code_key"})
	name, ok := UniqueViolation(err)
	assert.True(t, ok)
	assert.Equal(t, "registrations_qr_code_key", name)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)
	assert.True(t, ForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
}

func TestMigrateRunsEmbeddedSchema(t *testing.T) {
	t.Parallel()

	// given
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_schema.sql").WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS pgcrypto").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("001_schema.sql").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// when
	err = Migrate(context.Background(), mock)

	// then
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateSkipsAppliedFiles(t *testing.T) {
	t.Parallel()

	// given
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_schema.sql").WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	// when
	err = Migrate(context.Background(), mock)

	// then
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
