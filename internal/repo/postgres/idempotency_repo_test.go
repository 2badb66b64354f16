package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakeryhq/ops-backend/internal/domain"
	"github.com/bakeryhq/ops-backend/internal/repo/postgres"
)

func TestIdempotencyRepo_Admit_WinsOnce(t *testing.T) {
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()

	repo := postgres.NewIdempotencyRepo(m)
	ctx := context.Background()

	rows := pgxmock.NewRows([]string{"actor_id"}).AddRow(int64(1))
	m.ExpectQuery("INSERT INTO idempotency_keys").
		WithArgs(int64(1), "k1", "/sales", pgxmock.AnyArg()).
		WillReturnRows(rows)
	ok, err := repo.Admit(ctx, 1, "k1", "/sales")
	require.NoError(t, err)
	assert.True(t, ok)

	m.ExpectQuery("INSERT INTO idempotency_keys").
		WithArgs(int64(1), "k1", "/sales", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"actor_id"}))
	ok, err = repo.Admit(ctx, 1, "k1", "/sales")
	require.NoError(t, err)
	assert.False(t, ok, "second admission of the same key must not win")

	require.NoError(t, m.ExpectationsWereMet())
}

func TestIdempotencyRepo_Get_NotFound(t *testing.T) {
	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()

	repo := postgres.NewIdempotencyRepo(m)
	ctx := context.Background()

	m.ExpectQuery("SELECT endpoint, response_payload, created_at FROM idempotency_keys").
		WithArgs(int64(1), "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.Get(ctx, 1, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
