package product

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

// MockProductRepository is a mock implementation of domain.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter domain.ProductFilter, limit, offset int) ([]*domain.Product, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) DeleteWithReviews(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

// MockCache is a mock implementation of Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCache) SetProduct(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockCache) InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func setup() (*Service, *MockProductRepository, *MockCache, *MockEventPublisher) {
	repo := new(MockProductRepository)
	cache := new(MockCache)
	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, domain.SubjectReviewEvents, mock.Anything).Return(nil).Maybe()
	return NewService(repo, cache, publisher, logger.New("test")), repo, cache, publisher
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestService_Create_Success(t *testing.T) {
	service, repo, _, _ := setup()

	product := &domain.Product{
		Name:          "Test Product",
		Price:         price("99.99"),
		Images:        pq.StringArray{"https://cdn.example.com/p.jpg"},
		AverageRating: 4.9,
	}

	repo.On("Create", mock.Anything, product).Return(nil)

	err := service.Create(context.Background(), product)

	assert.NoError(t, err)
	assert.Zero(t, product.AverageRating)
	repo.AssertExpectations(t)
}

func TestService_Create_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		product *domain.Product
		field   string
	}{
		{"empty name", &domain.Product{Price: price("1")}, "name"},
		{"negative price", &domain.Product{Name: "x", Price: price("-1")}, "price"},
		{"sale above price", &domain.Product{Name: "x", Price: price("10"), SalePrice: ptr(price("12"))}, "sale_price"},
		{"bad image url", &domain.Product{Name: "x", Price: price("10"), Images: pq.StringArray{"not a url"}}, "images[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, repo, _, _ := setup()

			err := service.Create(context.Background(), tt.product)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestService_GetByID_CacheHit(t *testing.T) {
	service, repo, cache, _ := setup()

	productID := uuid.New()
	cached := &domain.Product{ID: productID, Name: "Cached"}
	cache.On("GetProduct", mock.Anything, productID).Return(cached, nil)

	product, err := service.GetByID(context.Background(), productID)

	assert.NoError(t, err)
	assert.Equal(t, cached, product)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestService_GetByID_CacheMissFillsCache(t *testing.T) {
	service, repo, cache, _ := setup()

	productID := uuid.New()
	expected := &domain.Product{ID: productID, Name: "Test Product", Price: price("99.99")}

	cache.On("GetProduct", mock.Anything, productID).Return(nil, domain.ErrNotFound)
	repo.On("GetByID", mock.Anything, productID).Return(expected, nil)
	cache.On("SetProduct", mock.Anything, expected).Return(nil)

	product, err := service.GetByID(context.Background(), productID)

	assert.NoError(t, err)
	assert.Equal(t, expected, product)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_GetByID_CacheErrorFallsBackToStore(t *testing.T) {
	service, repo, cache, _ := setup()

	productID := uuid.New()
	expected := &domain.Product{ID: productID}

	cache.On("GetProduct", mock.Anything, productID).Return(nil, errors.New("redis down"))
	repo.On("GetByID", mock.Anything, productID).Return(expected, nil)
	cache.On("SetProduct", mock.Anything, expected).Return(errors.New("redis down"))

	product, err := service.GetByID(context.Background(), productID)

	assert.NoError(t, err)
	assert.Equal(t, expected, product)
}

func TestService_GetByID_NotFound(t *testing.T) {
	service, repo, cache, _ := setup()

	productID := uuid.New()
	cache.On("GetProduct", mock.Anything, productID).Return(nil, domain.ErrNotFound)
	repo.On("GetByID", mock.Anything, productID).Return(nil, domain.ErrNotFound)

	product, err := service.GetByID(context.Background(), productID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, product)
	cache.AssertNotCalled(t, "SetProduct", mock.Anything, mock.Anything)
}

func TestService_List_Success(t *testing.T) {
	service, repo, _, _ := setup()

	categoryID := uuid.New()
	filter := domain.ProductFilter{CategoryID: &categoryID, Query: "shirt"}
	expectedProducts := []*domain.Product{
		{ID: uuid.New(), Name: "Shirt 1", Price: price("99.99")},
		{ID: uuid.New(), Name: "Shirt 2", Price: price("149.99")},
	}

	repo.On("List", mock.Anything, filter, 20, 0).Return(expectedProducts, nil)
	repo.On("Count", mock.Anything, filter).Return(2, nil)

	products, total, err := service.List(context.Background(), filter, 20, 0)

	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, products)
	assert.Equal(t, 2, total)
	repo.AssertExpectations(t)
}

func TestService_List_ClampsPagination(t *testing.T) {
	service, repo, _, _ := setup()

	repo.On("List", mock.Anything, domain.ProductFilter{}, 20, 0).Return([]*domain.Product{}, nil)
	repo.On("Count", mock.Anything, domain.ProductFilter{}).Return(0, nil)

	_, _, err := service.List(context.Background(), domain.ProductFilter{}, 0, -1)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Update_InvalidatesCache(t *testing.T) {
	service, repo, cache, _ := setup()

	product := &domain.Product{ID: uuid.New(), Name: "Renamed", Price: price("5"), Version: 3}
	repo.On("Update", mock.Anything, product).Return(nil)
	cache.On("InvalidateAllProductCache", mock.Anything, product.ID).Return(nil)

	err := service.Update(context.Background(), product)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_Update_VersionConflict(t *testing.T) {
	service, repo, cache, _ := setup()

	product := &domain.Product{ID: uuid.New(), Name: "Renamed", Price: price("5"), Version: 1}
	repo.On("Update", mock.Anything, product).Return(domain.ErrConflict)

	err := service.Update(context.Background(), product)

	assert.ErrorIs(t, err, domain.ErrConflict)
	cache.AssertNotCalled(t, "InvalidateAllProductCache", mock.Anything, mock.Anything)
}

func TestService_Delete_Success(t *testing.T) {
	service, repo, cache, _ := setup()

	productID := uuid.New()
	repo.On("DeleteWithReviews", mock.Anything, productID).Return(nil)
	cache.On("InvalidateAllProductCache", mock.Anything, productID).Return(nil)

	err := service.Delete(context.Background(), productID)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_Delete_NotFound(t *testing.T) {
	service, repo, cache, _ := setup()

	productID := uuid.New()
	repo.On("DeleteWithReviews", mock.Anything, productID).Return(domain.ErrNotFound)

	err := service.Delete(context.Background(), productID)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	cache.AssertNotCalled(t, "InvalidateAllProductCache", mock.Anything, mock.Anything)
}
