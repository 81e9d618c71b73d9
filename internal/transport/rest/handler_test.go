package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/abgdnv/gocatalog/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCatalogService is a mock implementation of the CatalogService interface.
// It records the last inputs it received.
type mockCatalogService struct {
	product    *service.ProductDto
	products   []service.ProductDto
	category   *service.CategoryDto
	categories []service.CategoryDto
	value      *service.InventoryValueDto
	error      error

	gotID       string
	gotInput    service.ProductInputDto
	gotPatch    service.ProductPatchDto
	gotCriteria service.SearchDto
}

func (m *mockCatalogService) ListProducts(_ context.Context) ([]service.ProductDto, error) {
	return m.products, m.error
}

func (m *mockCatalogService) GetProduct(_ context.Context, id string) (*service.ProductDto, error) {
	m.gotID = id
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockCatalogService) SearchProducts(_ context.Context, criteria service.SearchDto) ([]service.ProductDto, error) {
	m.gotCriteria = criteria
	return m.products, m.error
}

func (m *mockCatalogService) CreateProduct(_ context.Context, input service.ProductInputDto) (*service.ProductDto, error) {
	m.gotInput = input
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockCatalogService) ReplaceProduct(_ context.Context, id string, input service.ProductInputDto) (*service.ProductDto, error) {
	m.gotID, m.gotInput = id, input
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockCatalogService) PatchProduct(_ context.Context, id string, patch service.ProductPatchDto) (*service.ProductDto, error) {
	m.gotID, m.gotPatch = id, patch
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockCatalogService) DeleteProduct(_ context.Context, id string) error {
	m.gotID = id
	return m.error
}

func (m *mockCatalogService) TotalInventoryValue(_ context.Context) (*service.InventoryValueDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.value, nil
}

func (m *mockCatalogService) ListCategories(_ context.Context) ([]service.CategoryDto, error) {
	return m.categories, m.error
}

func (m *mockCatalogService) CreateCategory(_ context.Context, _ service.CategoryCreateDto) (*service.CategoryDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.category, nil
}

func (m *mockCatalogService) DeleteCategory(_ context.Context, id string) (*service.CategoryDto, error) {
	m.gotID = id
	if m.error != nil {
		return nil, m.error
	}
	return m.category, nil
}

type mockPinger struct {
	error error
}

func (m mockPinger) Ping(_ context.Context) error {
	return m.error
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	ValidationErrors map[string]string `json:"validation_errors"`
}

// toJSON is a helper function to convert a struct to JSON string
func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	bytes, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal to JSON: %v", err)
	}
	return string(bytes)
}

func newRouter(svc service.CatalogService, pinger Pinger) *chi.Mux {
	mux := chi.NewRouter()
	NewHandler(svc, pinger, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(mux)
	return mux
}

var lamp = service.ProductDto{
	ID:          "1",
	Name:        "lamp",
	Category:    "electronics",
	Quantity:    2,
	UnitPrice:   15.5,
	Description: "desk lamp",
	DateAdded:   "2024-01-15",
	Supplier:    "Acme",
}

const lampBody = `{"name":"Lamp","category":"electronics","quantity":2,"unitPrice":15.5,` +
	`"description":"desk lamp","dateAdded":"2024-01-15","supplier":"Acme"}`

func Test_Handler_Products(t *testing.T) {
	testCases := []struct {
		name         string
		mockService  *mockCatalogService
		method       string
		path         string
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "list",
			mockService:  &mockCatalogService{products: []service.ProductDto{lamp}},
			method:       http.MethodGet,
			path:         "/api/v1/products",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, []service.ProductDto{lamp}),
		},
		{
			name:         "list empty",
			mockService:  &mockCatalogService{products: []service.ProductDto{}},
			method:       http.MethodGet,
			path:         "/api/v1/products",
			expectedCode: http.StatusOK,
			expectedBody: `[]`,
		},
		{
			name:         "get found",
			mockService:  &mockCatalogService{product: &lamp},
			method:       http.MethodGet,
			path:         "/api/v1/products/1",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, lamp),
		},
		{
			name:         "get not found",
			mockService:  &mockCatalogService{error: catalogerrors.ErrProductNotFound},
			method:       http.MethodGet,
			path:         "/api/v1/products/9",
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID 9 not found"}),
		},
		{
			name:         "create",
			mockService:  &mockCatalogService{product: &lamp},
			method:       http.MethodPost,
			path:         "/api/v1/products",
			body:         lampBody,
			expectedCode: http.StatusCreated,
			expectedBody: toJSON(t, lamp),
		},
		{
			name:         "create with unknown category",
			mockService:  &mockCatalogService{error: catalogerrors.ErrCategoryNotFound},
			method:       http.MethodPost,
			path:         "/api/v1/products",
			body:         lampBody,
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Category not found"}),
		},
		{
			name:         "create with invalid fields",
			mockService:  &mockCatalogService{error: catalogerrors.NewValidationError("name", "mintrim", "3")},
			method:       http.MethodPost,
			path:         "/api/v1/products",
			body:         lampBody,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ValidationErrorResponse{ValidationErrors: map[string]string{"name": "failed on rule: mintrim"}}),
		},
		{
			name:         "create with malformed body",
			mockService:  &mockCatalogService{},
			method:       http.MethodPost,
			path:         "/api/v1/products",
			body:         `{"name":`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid request body"}),
		},
		{
			name:         "create with fractional quantity",
			mockService:  &mockCatalogService{},
			method:       http.MethodPost,
			path:         "/api/v1/products",
			body:         `{"name":"lamp","quantity":1.5}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ValidationErrorResponse{ValidationErrors: map[string]string{"quantity": "failed on rule: type"}}),
		},
		{
			name:         "create fails in storage",
			mockService:  &mockCatalogService{error: catalogerrors.ErrStorage},
			method:       http.MethodPost,
			path:         "/api/v1/products",
			body:         lampBody,
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Internal server error"}),
		},
		{
			name:         "replace",
			mockService:  &mockCatalogService{product: &lamp},
			method:       http.MethodPut,
			path:         "/api/v1/products/1",
			body:         lampBody,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, lamp),
		},
		{
			name:         "patch missing product",
			mockService:  &mockCatalogService{error: catalogerrors.ErrProductNotFound},
			method:       http.MethodPatch,
			path:         "/api/v1/products/3",
			body:         `{"quantity":5}`,
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID 3 not found"}),
		},
		{
			name:         "patch concurrently modified",
			mockService:  &mockCatalogService{error: catalogerrors.ErrConcurrentUpdate},
			method:       http.MethodPatch,
			path:         "/api/v1/products/3",
			body:         `{"quantity":5}`,
			expectedCode: http.StatusConflict,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product was modified concurrently, retry the request"}),
		},
		{
			name:         "delete",
			mockService:  &mockCatalogService{},
			method:       http.MethodDelete,
			path:         "/api/v1/products/1",
			expectedCode: http.StatusNoContent,
		},
		{
			name:         "delete not found",
			mockService:  &mockCatalogService{error: catalogerrors.ErrProductNotFound},
			method:       http.MethodDelete,
			path:         "/api/v1/products/1",
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID 1 not found"}),
		},
		{
			name:         "inventory value",
			mockService:  &mockCatalogService{value: &service.InventoryValueDto{TotalValue: 41}},
			method:       http.MethodGet,
			path:         "/api/v1/products/value",
			expectedCode: http.StatusOK,
			expectedBody: `{"totalValue":41}`,
		},
		{
			name:         "inventory value of empty catalog",
			mockService:  &mockCatalogService{error: catalogerrors.ErrNoData},
			method:       http.MethodGet,
			path:         "/api/v1/products/value",
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "No products in the catalog"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mux := newRouter(tc.mockService, mockPinger{})
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			// when
			mux.ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedBody == "" {
				assert.Empty(t, rr.Body.String())
				return
			}
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_Handler_PassesPathAndBody(t *testing.T) {
	// given
	mock := &mockCatalogService{product: &lamp}
	mux := newRouter(mock, mockPinger{})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/products/7", strings.NewReader(`{"quantity":5}`))
	rr := httptest.NewRecorder()

	// when
	mux.ServeHTTP(rr, req)

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "7", mock.gotID)
	require.NotNil(t, mock.gotPatch.Quantity)
	assert.Equal(t, 5, *mock.gotPatch.Quantity)
	assert.Nil(t, mock.gotPatch.Name)
}

func Test_Handler_Search(t *testing.T) {
	testCases := []struct {
		name             string
		mockService      *mockCatalogService
		query            string
		expectedCode     int
		expectedBody     string
		expectedCriteria service.SearchDto
	}{
		{
			name:         "all criteria",
			mockService:  &mockCatalogService{products: []service.ProductDto{lamp}},
			query:        "?category=electronics&minPrice=10&maxPrice=20.5&supplier=Acme",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, []service.ProductDto{lamp}),
			expectedCriteria: service.SearchDto{
				Category: ptr("electronics"),
				MinPrice: ptr(10.0),
				MaxPrice: ptr(20.5),
				Supplier: ptr("Acme"),
			},
		},
		{
			name:             "blank criteria are unconstrained",
			mockService:      &mockCatalogService{products: []service.ProductDto{lamp}},
			query:            "?category=&supplier=&minPrice=",
			expectedCode:     http.StatusOK,
			expectedBody:     toJSON(t, []service.ProductDto{lamp}),
			expectedCriteria: service.SearchDto{},
		},
		{
			name:         "no match",
			mockService:  &mockCatalogService{error: catalogerrors.ErrNoMatchingProducts},
			query:        "?minPrice=1000",
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "No products match the search criteria"}),
			expectedCriteria: service.SearchDto{
				MinPrice: ptr(1000.0),
			},
		},
		{
			name:         "bad number",
			mockService:  &mockCatalogService{},
			query:        "?maxPrice=cheap",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid maxPrice number: cheap"}),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mux := newRouter(tc.mockService, mockPinger{})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products/search"+tc.query, nil)
			rr := httptest.NewRecorder()

			// when
			mux.ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			assert.Equal(t, tc.expectedCriteria, tc.mockService.gotCriteria)
		})
	}
}

func Test_Handler_Categories(t *testing.T) {
	toys := service.CategoryDto{ID: "c-1", Name: "toys"}
	testCases := []struct {
		name         string
		mockService  *mockCatalogService
		method       string
		path         string
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "list",
			mockService:  &mockCatalogService{categories: []service.CategoryDto{toys}},
			method:       http.MethodGet,
			path:         "/api/v1/categories",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, []service.CategoryDto{toys}),
		},
		{
			name:         "create",
			mockService:  &mockCatalogService{category: &toys},
			method:       http.MethodPost,
			path:         "/api/v1/categories",
			body:         `{"name":"Toys"}`,
			expectedCode: http.StatusCreated,
			expectedBody: toJSON(t, toys),
		},
		{
			name:         "create duplicate",
			mockService:  &mockCatalogService{error: catalogerrors.ErrDuplicateCategory},
			method:       http.MethodPost,
			path:         "/api/v1/categories",
			body:         `{"name":"toys"}`,
			expectedCode: http.StatusConflict,
			expectedBody: toJSON(t, ErrorResponse{Error: "Category already exists"}),
		},
		{
			name:         "create too short",
			mockService:  &mockCatalogService{error: catalogerrors.NewValidationError("name", "mintrim", "3")},
			method:       http.MethodPost,
			path:         "/api/v1/categories",
			body:         `{"name":"ab"}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ValidationErrorResponse{ValidationErrors: map[string]string{"name": "failed on rule: mintrim"}}),
		},
		{
			name:         "delete returns removed category",
			mockService:  &mockCatalogService{category: &toys},
			method:       http.MethodDelete,
			path:         "/api/v1/categories/c-1",
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, toys),
		},
		{
			name:         "delete unknown",
			mockService:  &mockCatalogService{error: catalogerrors.ErrCategoryNotFound},
			method:       http.MethodDelete,
			path:         "/api/v1/categories/c-9",
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Category with ID c-9 not found"}),
		},
		{
			name:         "delete in use",
			mockService:  &mockCatalogService{error: catalogerrors.ErrCategoryInUse},
			method:       http.MethodDelete,
			path:         "/api/v1/categories/c-1",
			expectedCode: http.StatusConflict,
			expectedBody: toJSON(t, ErrorResponse{Error: "Category is still referenced by products"}),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mux := newRouter(tc.mockService, mockPinger{})
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			// when
			mux.ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_Handler_HealthCheck(t *testing.T) {
	testCases := []struct {
		name         string
		pinger       mockPinger
		expectedCode int
	}{
		{name: "storage reachable", pinger: mockPinger{}, expectedCode: http.StatusOK},
		{name: "storage down", pinger: mockPinger{error: errors.New("connection refused")}, expectedCode: http.StatusServiceUnavailable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mux := newRouter(&mockCatalogService{}, tc.pinger)
			rr := httptest.NewRecorder()

			// when
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func ptr[T any](v T) *T { return &v }
