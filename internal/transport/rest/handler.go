// Package rest provides HTTP handlers for catalog operations.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/abgdnv/gocatalog/internal/service"
	"github.com/abgdnv/gocatalog/pkg/web"
	"github.com/go-chi/chi/v5"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	service service.CatalogService
	pinger  Pinger
	logger  *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service service.CatalogService, pinger Pinger, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		pinger:  pinger,
		logger:  logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the catalog service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/search", h.SearchProducts)
		r.Get("/value", h.TotalInventoryValue)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetProduct)
			r.Put("/", h.ReplaceProduct)
			r.Patch("/", h.PatchProduct)
			r.Delete("/", h.DeleteProduct)
		})
	})
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
	r.Get("/healthz", h.HealthCheck)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	list, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved product list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	id := chi.URLParam(r, "id")
	found, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// SearchProducts filters by the optional category, minPrice, maxPrice and supplier query parameters.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	minPrice, ok := web.ParseOptionalGte(r, w, mLogger, "minPrice", 0)
	if !ok {
		return
	}
	maxPrice, ok := web.ParseOptionalGte(r, w, mLogger, "maxPrice", 0)
	if !ok {
		return
	}
	criteria := service.SearchDto{
		Category: web.OptionalString(r, "category"),
		Supplier: web.OptionalString(r, "supplier"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}
	mLogger.DebugContext(r.Context(), "Received product search", "criteria", criteria)
	found, err := h.service.SearchProducts(r.Context(), criteria)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

func (h *Handler) TotalInventoryValue(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	value, err := h.service.TotalInventoryValue(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, value)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	var input service.ProductInputDto
	if !h.decode(w, r, mLogger, &input) {
		return
	}
	created, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product created successfully", slog.String("ID", created.ID))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

func (h *Handler) ReplaceProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	id := chi.URLParam(r, "id")
	var input service.ProductInputDto
	if !h.decode(w, r, mLogger, &input) {
		return
	}
	updated, err := h.service.ReplaceProduct(r.Context(), id, input)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product replaced successfully", slog.String("ID", updated.ID))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) PatchProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	id := chi.URLParam(r, "id")
	var patch service.ProductPatchDto
	if !h.decode(w, r, mLogger, &patch) {
		return
	}
	updated, err := h.service.PatchProduct(r.Context(), id, patch)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated successfully", slog.String("ID", updated.ID))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", slog.String("ID", id))
	web.RespondJSON(w, mLogger, http.StatusNoContent, nil)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	list, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	var input service.CategoryCreateDto
	if !h.decode(w, r, mLogger, &input) {
		return
	}
	created, err := h.service.CreateCategory(r.Context(), input)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Category created successfully", slog.String("ID", created.ID))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// DeleteCategory answers with the removed category.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.requestLogger(r)
	id := chi.URLParam(r, "id")
	removed, err := h.service.DeleteCategory(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Category deleted successfully", slog.String("ID", id))
	web.RespondJSON(w, mLogger, http.StatusOK, removed)
}

// HealthCheck answers 503 while the storage backend cannot be reached.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		mLogger := h.requestLogger(r)
		mLogger.WarnContext(r.Context(), "Storage health check failed", "error", err)
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Storage is unavailable")
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads the JSON body into dst. A value of the wrong JSON type is reported as a field violation.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		fields := map[string]string{typeErr.Field: "failed on rule: type"}
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
		web.RespondValidationErrors(w, mLogger, fields)
	case errors.As(err, &maxBytesErr):
		mLogger.WarnContext(r.Context(), "Request body too large", "limit", maxBytesErr.Limit)
		web.RespondError(w, mLogger, http.StatusRequestEntityTooLarge, "Request body too large")
	default:
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
	}
	return false
}

// respondServiceError writes the single response for a failed service call.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error) {
	ctx := r.Context()
	switch service.OutcomeOf(err) {
	case service.OutcomeValidationFailed:
		var vErr *catalogerrors.ValidationError
		errors.As(err, &vErr)
		mLogger.WarnContext(ctx, "Validation errors occurred", "errors", vErr.Fields())
		web.RespondValidationErrors(w, mLogger, vErr.Fields())
	case service.OutcomeNotFound:
		message := notFoundMessage(r, err)
		mLogger.WarnContext(ctx, message)
		web.RespondError(w, mLogger, http.StatusNotFound, message)
	case service.OutcomeConflict:
		mLogger.WarnContext(ctx, "Conflicting request", "error", err)
		web.RespondError(w, mLogger, http.StatusConflict, conflictMessage(err))
	default:
		mLogger.ErrorContext(ctx, "Error processing request", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error")
	}
}

func notFoundMessage(r *http.Request, err error) string {
	id := chi.URLParam(r, "id")
	switch {
	case errors.Is(err, catalogerrors.ErrProductNotFound):
		return fmt.Sprintf("Product with ID %s not found", id)
	case errors.Is(err, catalogerrors.ErrCategoryNotFound) && id != "" && r.Method == http.MethodDelete:
		return fmt.Sprintf("Category with ID %s not found", id)
	case errors.Is(err, catalogerrors.ErrCategoryNotFound):
		return "Category not found"
	case errors.Is(err, catalogerrors.ErrNoMatchingProducts):
		return "No products match the search criteria"
	default:
		return "No products in the catalog"
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, catalogerrors.ErrDuplicateCategory):
		return "Category already exists"
	case errors.Is(err, catalogerrors.ErrCategoryInUse):
		return "Category is still referenced by products"
	default:
		return "Product was modified concurrently, retry the request"
	}
}

// requestLogger scopes the handler logger to one request. The request id is added from the context.
func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With("method", r.Method, "path", r.URL.Path)
}
