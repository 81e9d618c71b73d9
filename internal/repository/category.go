// Package repository enforces the catalog's consistency rules on top of a storage backend:
// name normalization, category uniqueness and category referential integrity.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/abgdnv/gocatalog/internal/store"
)

const minCategoryNameLength = 3

// NormalizeName trims surrounding whitespace and lower-cases. Category and product names are stored this way.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CategoryRepository manages categories and refuses to delete one that products still reference.
type CategoryRepository struct {
	categories store.CategoryStore
	products   store.ProductStore
	refs       *sync.RWMutex
}

// NewRepositories creates the product and category repositories of one backend.
// They share a lock: product writes hold it for reading from category lookup to write,
// category deletion holds it exclusively from the reference check to the delete.
func NewRepositories(products store.ProductStore, categories store.CategoryStore) (*ProductRepository, *CategoryRepository) {
	refs := &sync.RWMutex{}
	productRepo := &ProductRepository{
		products:   products,
		categories: categories,
		refs:       refs,
	}
	categoryRepo := &CategoryRepository{
		categories: categories,
		products:   products,
		refs:       refs,
	}
	return productRepo, categoryRepo
}

func (r *CategoryRepository) List(ctx context.Context) ([]store.Category, error) {
	return r.categories.FindAll(ctx)
}

// Create stores a category under its normalized name.
// Returns a ValidationError when the normalized name is too short and ErrDuplicateCategory when it is taken.
func (r *CategoryRepository) Create(ctx context.Context, name string) (store.Category, error) {
	normalized := NormalizeName(name)
	if utf8.RuneCountInString(normalized) < minCategoryNameLength {
		return store.Category{}, catalogerrors.NewValidationError("name", "mintrim", fmt.Sprint(minCategoryNameLength))
	}
	_, err := r.categories.FindByName(ctx, normalized)
	switch {
	case err == nil:
		return store.Category{}, catalogerrors.ErrDuplicateCategory
	case !errors.Is(err, catalogerrors.ErrCategoryNotFound):
		return store.Category{}, err
	}
	return r.categories.Create(ctx, normalized)
}

// FindByName matches case- and whitespace-insensitively.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (store.Category, error) {
	return r.categories.FindByName(ctx, NormalizeName(name))
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (store.Category, error) {
	return r.categories.FindByID(ctx, id)
}

// DeleteByID removes a category no product refers to and returns it.
// Returns ErrCategoryInUse while products still reference it.
func (r *CategoryRepository) DeleteByID(ctx context.Context, id string) (store.Category, error) {
	r.refs.Lock()
	defer r.refs.Unlock()

	if _, err := r.categories.FindByID(ctx, id); err != nil {
		return store.Category{}, err
	}
	if err := r.ensureUnreferenced(ctx, id); err != nil {
		return store.Category{}, err
	}
	removed, err := r.categories.DeleteByID(ctx, id)
	if err != nil {
		return store.Category{}, err
	}
	// another process sharing the store may have written a product in between
	if err := r.ensureUnreferenced(ctx, id); err != nil {
		if restoreErr := r.categories.Restore(ctx, removed); restoreErr != nil {
			return store.Category{}, fmt.Errorf("restore category %s: %w", id, restoreErr)
		}
		return store.Category{}, err
	}
	return removed, nil
}

func (r *CategoryRepository) ensureUnreferenced(ctx context.Context, id string) error {
	referencing, err := r.products.Find(ctx, store.ProductFilter{CategoryID: &id})
	if err != nil {
		return err
	}
	if len(referencing) > 0 {
		return catalogerrors.ErrCategoryInUse
	}
	return nil
}
