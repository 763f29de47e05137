package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventoryMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestInventoryRepositoryAdjustQuantity(t *testing.T) {
	db, mock, cleanup := newInventoryMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory_items SET quantity = quantity + $2")).
		WithArgs("i1", -5, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(7))

	quantity, err := repo.AdjustQuantity(context.Background(), "i1", -5)
	require.NoError(t, err)
	assert.Equal(t, 7, quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepositoryAdjustQuantityBelowZero(t *testing.T) {
	db, mock, cleanup := newInventoryMock(t)
	defer cleanup()
	repo := NewInventoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE inventory_items SET quantity = quantity + $2")).
		WithArgs("i1", -50, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}))

	_, err := repo.AdjustQuantity(context.Background(), "i1", -50)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
