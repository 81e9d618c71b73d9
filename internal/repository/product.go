package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/abgdnv/gocatalog/internal/store"
)

// CatalogProduct is a stored product with its category name resolved.
type CatalogProduct struct {
	store.Product
	CategoryName string
}

// ProductFields is the complete set of writable product fields. Category is a category name.
type ProductFields struct {
	Name        string
	Category    string
	Quantity    int
	UnitPrice   float64
	Description string
	DateAdded   time.Time
	Supplier    string
}

// ProductPatch holds the fields of a partial update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Category    *string
	Quantity    *int
	UnitPrice   *float64
	Description *string
	DateAdded   *time.Time
	Supplier    *string
}

// SearchCriteria are AND-ed; nil fields are unconstrained. Category is a category name.
type SearchCriteria struct {
	Category *string
	Supplier *string
	MinPrice *float64
	MaxPrice *float64
}

// ProductRepository manages products and resolves their category names. Build it with NewRepositories.
type ProductRepository struct {
	products   store.ProductStore
	categories store.CategoryStore
	refs       *sync.RWMutex
}

// List returns all products with their category names.
func (r *ProductRepository) List(ctx context.Context) ([]CatalogProduct, error) {
	found, err := r.products.Find(ctx, store.ProductFilter{})
	if err != nil {
		return nil, err
	}
	return r.withCategoryNames(ctx, found)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (CatalogProduct, error) {
	p, err := r.products.FindByID(ctx, id)
	if err != nil {
		return CatalogProduct{}, err
	}
	return r.withCategoryName(ctx, p)
}

// Search returns the products matching every supplied criterion.
// An unknown category name matches nothing. An empty result is not an error here.
func (r *ProductRepository) Search(ctx context.Context, criteria SearchCriteria) ([]CatalogProduct, error) {
	filter := store.ProductFilter{
		MinPrice: criteria.MinPrice,
		MaxPrice: criteria.MaxPrice,
	}
	if criteria.Category != nil {
		category, err := r.categories.FindByName(ctx, NormalizeName(*criteria.Category))
		if err != nil {
			if errors.Is(err, catalogerrors.ErrCategoryNotFound) {
				return []CatalogProduct{}, nil
			}
			return nil, err
		}
		filter.CategoryID = &category.ID
	}
	if criteria.Supplier != nil {
		supplier := strings.TrimSpace(*criteria.Supplier)
		filter.Supplier = &supplier
	}
	found, err := r.products.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return r.withCategoryNames(ctx, found)
}

// Create resolves the category name, normalizes name and supplier and persists the product.
// Returns ErrCategoryNotFound without writing anything when the category does not exist.
func (r *ProductRepository) Create(ctx context.Context, fields ProductFields) (CatalogProduct, error) {
	r.refs.RLock()
	defer r.refs.RUnlock()

	category, err := r.resolveCategory(ctx, fields.Category)
	if err != nil {
		return CatalogProduct{}, err
	}
	created, err := r.products.Create(ctx, store.Product{
		Name:        NormalizeName(fields.Name),
		CategoryID:  category.ID,
		Quantity:    fields.Quantity,
		UnitPrice:   fields.UnitPrice,
		Description: fields.Description,
		DateAdded:   fields.DateAdded,
		Supplier:    strings.TrimSpace(fields.Supplier),
	})
	if err != nil {
		return CatalogProduct{}, err
	}
	return CatalogProduct{Product: created, CategoryName: category.Name}, nil
}

// Replace overwrites every writable field of an existing product.
func (r *ProductRepository) Replace(ctx context.Context, id string, fields ProductFields) (CatalogProduct, error) {
	r.refs.RLock()
	defer r.refs.RUnlock()

	category, err := r.resolveCategory(ctx, fields.Category)
	if err != nil {
		return CatalogProduct{}, err
	}
	updated, err := r.products.Update(ctx, id, func(p *store.Product) error {
		p.Name = NormalizeName(fields.Name)
		p.CategoryID = category.ID
		p.Quantity = fields.Quantity
		p.UnitPrice = fields.UnitPrice
		p.Description = fields.Description
		p.DateAdded = fields.DateAdded
		p.Supplier = strings.TrimSpace(fields.Supplier)
		return nil
	})
	if err != nil {
		return CatalogProduct{}, err
	}
	return CatalogProduct{Product: updated, CategoryName: category.Name}, nil
}

// Patch merges the supplied fields into an existing product; the others keep their stored values.
func (r *ProductRepository) Patch(ctx context.Context, id string, patch ProductPatch) (CatalogProduct, error) {
	r.refs.RLock()
	defer r.refs.RUnlock()

	var category *store.Category
	if patch.Category != nil {
		resolved, err := r.resolveCategory(ctx, *patch.Category)
		if err != nil {
			return CatalogProduct{}, err
		}
		category = &resolved
	}
	updated, err := r.products.Update(ctx, id, func(p *store.Product) error {
		if patch.Name != nil {
			p.Name = NormalizeName(*patch.Name)
		}
		if category != nil {
			p.CategoryID = category.ID
		}
		if patch.Quantity != nil {
			p.Quantity = *patch.Quantity
		}
		if patch.UnitPrice != nil {
			p.UnitPrice = *patch.UnitPrice
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.DateAdded != nil {
			p.DateAdded = *patch.DateAdded
		}
		if patch.Supplier != nil {
			p.Supplier = strings.TrimSpace(*patch.Supplier)
		}
		return nil
	})
	if err != nil {
		return CatalogProduct{}, err
	}
	if category != nil {
		return CatalogProduct{Product: updated, CategoryName: category.Name}, nil
	}
	return r.withCategoryName(ctx, updated)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.products.DeleteByID(ctx, id)
}

// TotalInventoryValue returns the sum of unit price times quantity over all products.
// Returns ErrNoData when the catalog has no products.
func (r *ProductRepository) TotalInventoryValue(ctx context.Context) (float64, error) {
	total, count, err := r.products.InventoryValue(ctx)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, catalogerrors.ErrNoData
	}
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return 0, fmt.Errorf("%w: inventory value of %d products is not finite", catalogerrors.ErrStorage, count)
	}
	return total, nil
}

func (r *ProductRepository) resolveCategory(ctx context.Context, name string) (store.Category, error) {
	return r.categories.FindByName(ctx, NormalizeName(name))
}

func (r *ProductRepository) withCategoryName(ctx context.Context, p store.Product) (CatalogProduct, error) {
	category, err := r.categories.FindByID(ctx, p.CategoryID)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrCategoryNotFound) {
			return CatalogProduct{Product: p}, nil
		}
		return CatalogProduct{}, err
	}
	return CatalogProduct{Product: p, CategoryName: category.Name}, nil
}

// withCategoryNames loads the categories once and joins them in memory.
func (r *ProductRepository) withCategoryNames(ctx context.Context, products []store.Product) ([]CatalogProduct, error) {
	out := make([]CatalogProduct, 0, len(products))
	if len(products) == 0 {
		return out, nil
	}
	categories, err := r.categories.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	for _, p := range products {
		out = append(out, CatalogProduct{Product: p, CategoryName: names[p.CategoryID]})
	}
	return out, nil
}
