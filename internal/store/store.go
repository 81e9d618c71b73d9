// Package store provides the catalog storage backends.
// Three implementations share the same contract: flat JSON files, MongoDB and PostgreSQL.
package store

import (
	"context"
	"time"
)

// Category is a stored product category. Name is kept trimmed and lower-cased.
type Category struct {
	ID   string
	Name string
}

// Product is a stored catalog product. CategoryID always references an existing category.
type Product struct {
	ID          string
	Name        string
	CategoryID  string
	Quantity    int
	UnitPrice   float64
	Description string
	DateAdded   time.Time
	Supplier    string
}

// ProductFilter narrows Find results. Nil fields are unconstrained; price bounds are inclusive.
type ProductFilter struct {
	CategoryID *string
	Supplier   *string
	MinPrice   *float64
	MaxPrice   *float64
}

// Matches reports whether p satisfies every set constraint of the filter.
func (f ProductFilter) Matches(p Product) bool {
	if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
		return false
	}
	if f.Supplier != nil && p.Supplier != *f.Supplier {
		return false
	}
	if f.MinPrice != nil && p.UnitPrice < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.UnitPrice > *f.MaxPrice {
		return false
	}
	return true
}

// ProductStore is an interface for product storage operations.
type ProductStore interface {
	// Find returns the products matching the filter. Returns an empty slice if none match.
	Find(ctx context.Context, filter ProductFilter) ([]Product, error)

	// FindByID retrieves a single product by its identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (Product, error)

	// Create persists a new product and returns it with its assigned ID.
	Create(ctx context.Context, product Product) (Product, error)

	// Update applies mutate to the stored product and persists the result atomically.
	// The ID is preserved whatever mutate does. An error from mutate aborts the update.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id string, mutate func(*Product) error) (Product, error)

	// DeleteByID removes a product permanently.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error

	// InventoryValue returns the sum of unit price times quantity and the number of products.
	InventoryValue(ctx context.Context) (float64, int64, error)
}

// CategoryStore is an interface for category storage operations.
// Names passed in are expected to be normalized already.
type CategoryStore interface {
	FindAll(ctx context.Context) ([]Category, error)

	// FindByID returns ErrCategoryNotFound if no category exists with the given ID.
	FindByID(ctx context.Context, id string) (Category, error)

	// FindByName returns ErrCategoryNotFound if no category has exactly this name.
	FindByName(ctx context.Context, name string) (Category, error)

	// Create returns ErrDuplicateCategory if the name is taken.
	Create(ctx context.Context, name string) (Category, error)

	// DeleteByID removes a category and returns it.
	// Returns ErrCategoryNotFound if no category exists with the given ID.
	DeleteByID(ctx context.Context, id string) (Category, error)

	// Restore inserts a deleted category again under its original ID.
	// Returns ErrDuplicateCategory if the ID or the name is taken.
	Restore(ctx context.Context, category Category) error
}

// Backend groups the product and category stores of one storage engine.
type Backend interface {
	Products() ProductStore
	Categories() CategoryStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
