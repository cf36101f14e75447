package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/domain"
)

func TestProductRepository_Create(t *testing.T) {
	db, mock, runner := newMockDB(t, 1)
	repo := NewProductRepository(db, runner)

	id := uuid.New()
	now := time.Now().UTC()
	product := &domain.Product{
		Name:  "Linen Shirt",
		Price: decimal.RequireFromString("49.90"),
	}

	mock.ExpectQuery("INSERT INTO products").
		WithArgs("Linen Shirt", nil, "49.9", nil, nil, "{}", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "review_count", "average_rating", "version", "created_at", "updated_at"}).
			AddRow(id.String(), 0, 0.0, 1, now, now))

	err := repo.Create(context.Background(), product)

	require.NoError(t, err)
	assert.Equal(t, id, product.ID)
	assert.Equal(t, 1, product.Version)
	assert.NotNil(t, product.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_AppliesFilter(t *testing.T) {
	db, mock, runner := newMockDB(t, 1)
	repo := NewProductRepository(db, runner)

	categoryID := uuid.New()
	filter := domain.ProductFilter{CategoryID: &categoryID, Query: "50%"}

	mock.ExpectQuery(`category_id = \$1 AND name ILIKE \$2`).
		WithArgs(categoryID, `%50\%%`, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	products, err := repo.List(context.Background(), filter, 20, 0)

	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Count_NoFilter(t *testing.T) {
	db, mock, runner := newMockDB(t, 1)
	repo := NewProductRepository(db, runner)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE deleted_at IS NULL$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.Count(context.Background(), domain.ProductFilter{})

	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestProductRepository_Update_VersionConflict(t *testing.T) {
	db, mock, runner := newMockDB(t, 1)
	repo := NewProductRepository(db, runner)

	product := &domain.Product{ID: uuid.New(), Name: "Shirt", Price: decimal.NewFromInt(10), Version: 1}

	mock.ExpectQuery("UPDATE products").WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(product.ID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Update(context.Background(), product)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	db, mock, runner := newMockDB(t, 1)
	repo := NewProductRepository(db, runner)

	product := &domain.Product{ID: uuid.New(), Name: "Shirt", Price: decimal.NewFromInt(10), Version: 1}

	mock.ExpectQuery("UPDATE products").WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(product.ID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Update(context.Background(), product)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductRepository_DeleteWithReviews(t *testing.T) {
	db, mock, runner := newMockDB(t, 1)
	repo := NewProductRepository(db, runner)

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products SET deleted_at").
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE reviews SET deleted_at").
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	err := repo.DeleteWithReviews(context.Background(), id)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_DeleteWithReviews_NotFound(t *testing.T) {
	db, mock, runner := newMockDB(t, 1)
	repo := NewProductRepository(db, runner)

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products SET deleted_at").
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteWithReviews(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
