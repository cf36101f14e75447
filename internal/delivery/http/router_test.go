package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Pesokrava/storefront/internal/config"
	"github.com/Pesokrava/storefront/internal/delivery/events"
	"github.com/Pesokrava/storefront/internal/delivery/http/handler"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/repository/cache"
	"github.com/Pesokrava/storefront/internal/repository/memory"
	"github.com/Pesokrava/storefront/internal/usecase/category"
	"github.com/Pesokrava/storefront/internal/usecase/product"
	"github.com/Pesokrava/storefront/internal/usecase/review"
)

func newTestRouter() http.Handler {
	log := logger.New("test")
	store := memory.NewStore()
	cfg := &config.Config{
		Server:    config.ServerConfig{AllowedOrigins: []string{"*"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1},
	}

	products := product.NewService(store.Products(), cache.Noop{}, events.Discard{}, log)
	reviews := review.NewService(store.Reviews(), cache.Noop{}, events.Discard{}, log)
	categories := category.NewService(store.Categories(), cache.Noop{}, events.Discard{}, log)

	return NewRouter(
		handler.NewProductHandler(products, log),
		handler.NewReviewHandler(reviews, log),
		handler.NewCategoryHandler(categories, log),
		cfg,
		log,
	).Setup()
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get("Content-Type"))
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter()

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouter_ReviewSubmissionIsRateLimited(t *testing.T) {
	r := newTestRouter()

	create := httptest.NewRecorder()
	r.ServeHTTP(create, httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`{"name":"Mug","price":"5"}`)))
	assert.Equal(t, http.StatusCreated, create.Code)

	// the product id does not matter for the limiter
	target := "/api/v1/products/00000000-0000-0000-0000-000000000001/reviews"
	body := `{"author":"a","rating":5,"text":"t","user_id":"u"}`

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))

	assert.Equal(t, http.StatusNotFound, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRouter_CategoryRoutes(t *testing.T) {
	r := newTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/categories", strings.NewReader(`{"name":"Home & Garden"}`)))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories/slug/home-garden", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "home-garden")
}
