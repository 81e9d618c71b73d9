// Package service implements the catalog use cases on top of the repositories:
// input validation, date parsing, event publishing and counters.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/abgdnv/gocatalog/internal/events"
	"github.com/abgdnv/gocatalog/internal/repository"
	"github.com/abgdnv/gocatalog/internal/store"
	"github.com/abgdnv/gocatalog/internal/validation"
	"github.com/abgdnv/gocatalog/pkg/messaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CatalogService defines the catalog operations exposed to transports.
// Every error can be classified with OutcomeOf.
type CatalogService interface {
	// ListProducts returns every product. Returns an empty slice if there are none.
	ListProducts(ctx context.Context) ([]ProductDto, error)

	// GetProduct returns ErrProductNotFound if no product exists with the given ID.
	GetProduct(ctx context.Context, id string) (*ProductDto, error)

	// SearchProducts returns ErrNoMatchingProducts when nothing matches.
	SearchProducts(ctx context.Context, criteria SearchDto) ([]ProductDto, error)

	// CreateProduct returns ErrCategoryNotFound, without writing, when the category name is unknown.
	CreateProduct(ctx context.Context, input ProductInputDto) (*ProductDto, error)

	ReplaceProduct(ctx context.Context, id string, input ProductInputDto) (*ProductDto, error)

	// PatchProduct changes only the supplied fields.
	PatchProduct(ctx context.Context, id string, patch ProductPatchDto) (*ProductDto, error)

	DeleteProduct(ctx context.Context, id string) error

	// TotalInventoryValue returns ErrNoData when the catalog is empty.
	TotalInventoryValue(ctx context.Context) (*InventoryValueDto, error)

	ListCategories(ctx context.Context) ([]CategoryDto, error)

	// CreateCategory returns ErrDuplicateCategory when the normalized name is taken.
	CreateCategory(ctx context.Context, input CategoryCreateDto) (*CategoryDto, error)

	// DeleteCategory returns the removed category, or ErrCategoryInUse while products reference it.
	DeleteCategory(ctx context.Context, id string) (*CategoryDto, error)
}

type ProductRepository interface {
	List(ctx context.Context) ([]repository.CatalogProduct, error)
	GetByID(ctx context.Context, id string) (repository.CatalogProduct, error)
	Search(ctx context.Context, criteria repository.SearchCriteria) ([]repository.CatalogProduct, error)
	Create(ctx context.Context, fields repository.ProductFields) (repository.CatalogProduct, error)
	Replace(ctx context.Context, id string, fields repository.ProductFields) (repository.CatalogProduct, error)
	Patch(ctx context.Context, id string, patch repository.ProductPatch) (repository.CatalogProduct, error)
	Delete(ctx context.Context, id string) error
	TotalInventoryValue(ctx context.Context) (float64, error)
}

type CategoryRepository interface {
	List(ctx context.Context) ([]store.Category, error)
	Create(ctx context.Context, name string) (store.Category, error)
	DeleteByID(ctx context.Context, id string) (store.Category, error)
}

var _ CatalogService = (*Service)(nil)

// Service implements CatalogService.
type Service struct {
	products        ProductRepository
	categories      CategoryRepository
	validator       *validation.Validator
	publisher       messaging.Publisher
	logger          *slog.Logger
	now             func() time.Time
	productsCreated metric.Int64Counter
	productsDeleted metric.Int64Counter
	eventsFailed    metric.Int64Counter
}

// NewService creates a new instance of Service. Counters are registered on the global meter provider.
func NewService(products ProductRepository, categories CategoryRepository, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("catalog-service")
	return &Service{
		products:        products,
		categories:      categories,
		validator:       validation.New(),
		publisher:       publisher,
		logger:          logger.With("component", "service"),
		now:             time.Now,
		productsCreated: mustCounter(meter, "catalog_products_created", "Total number of created products"),
		productsDeleted: mustCounter(meter, "catalog_products_deleted", "Total number of deleted products"),
		eventsFailed:    mustCounter(meter, "catalog_events_failed", "Total number of catalog events that could not be published"),
	}
}

func mustCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		panic(fmt.Sprintf("failed to create %s counter: %v", name, err))
	}
	return counter
}

func (s *Service) ListProducts(ctx context.Context) ([]ProductDto, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	return toProductDtos(products), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*ProductDto, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toProductDto(p), nil
}

func (s *Service) SearchProducts(ctx context.Context, criteria SearchDto) ([]ProductDto, error) {
	if err := s.validator.Struct(criteria); err != nil {
		return nil, err
	}
	found, err := s.products.Search(ctx, repository.SearchCriteria{
		Category: criteria.Category,
		Supplier: criteria.Supplier,
		MinPrice: criteria.MinPrice,
		MaxPrice: criteria.MaxPrice,
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, catalogerrors.ErrNoMatchingProducts
	}
	return toProductDtos(found), nil
}

func (s *Service) CreateProduct(ctx context.Context, input ProductInputDto) (*ProductDto, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	fields, err := toProductFields(input)
	if err != nil {
		return nil, err
	}
	created, err := s.products.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewProductCreated(created.ID, created.Name, created.CategoryName, s.now().UTC()))
	s.productsCreated.Add(ctx, 1)
	return toProductDto(created), nil
}

func (s *Service) ReplaceProduct(ctx context.Context, id string, input ProductInputDto) (*ProductDto, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	fields, err := toProductFields(input)
	if err != nil {
		return nil, err
	}
	updated, err := s.products.Replace(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewProductUpdated(updated.ID, updated.Name, updated.CategoryName, s.now().UTC()))
	return toProductDto(updated), nil
}

func (s *Service) PatchProduct(ctx context.Context, id string, patchDto ProductPatchDto) (*ProductDto, error) {
	if err := s.validator.Struct(patchDto); err != nil {
		return nil, err
	}
	patch, err := toProductPatch(patchDto)
	if err != nil {
		return nil, err
	}
	updated, err := s.products.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewProductUpdated(updated.ID, updated.Name, updated.CategoryName, s.now().UTC()))
	return toProductDto(updated), nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.NewProductDeleted(id, s.now().UTC()))
	s.productsDeleted.Add(ctx, 1)
	return nil
}

func (s *Service) TotalInventoryValue(ctx context.Context) (*InventoryValueDto, error) {
	total, err := s.products.TotalInventoryValue(ctx)
	if err != nil {
		return nil, err
	}
	return &InventoryValueDto{TotalValue: total}, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]CategoryDto, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryDto, len(categories))
	for i, c := range categories {
		out[i] = *toCategoryDto(c)
	}
	return out, nil
}

func (s *Service) CreateCategory(ctx context.Context, input CategoryCreateDto) (*CategoryDto, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}
	created, err := s.categories.Create(ctx, input.Name)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewCategoryCreated(created.ID, created.Name, s.now().UTC()))
	return toCategoryDto(created), nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) (*CategoryDto, error) {
	removed, err := s.categories.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewCategoryDeleted(removed.ID, removed.Name, s.now().UTC()))
	return toCategoryDto(removed), nil
}

// publish sends the event after the mutation is persisted. A failure is logged and counted
// and never reported to the caller.
func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish catalog event", "subject", event.Subject(), "error", err)
		s.eventsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("subject", event.Subject())))
	}
}
