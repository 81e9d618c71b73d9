package service

import (
	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/abgdnv/gocatalog/internal/repository"
	"github.com/abgdnv/gocatalog/internal/store"
	"github.com/abgdnv/gocatalog/internal/validation"
)

// ProductInputDto is the body of product create and replace requests. Category is a category name.
type ProductInputDto struct {
	Name        string  `json:"name" validate:"required,mintrim=3"`
	Category    string  `json:"category" validate:"required,mintrim=1"`
	Quantity    int     `json:"quantity" validate:"required,gt=0,lte=2147483647"`
	UnitPrice   float64 `json:"unitPrice" validate:"required,gt=0,lte=1000000000"`
	Description string  `json:"description" validate:"required,mintrim=3"`
	DateAdded   string  `json:"dateAdded" validate:"required,isodate"`
	Supplier    string  `json:"supplier" validate:"required,mintrim=3"`
}

// ProductPatchDto is the body of a partial update. Only non-nil fields are validated and applied.
type ProductPatchDto struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,mintrim=3"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,mintrim=1"`
	Quantity    *int     `json:"quantity,omitempty" validate:"omitempty,gt=0,lte=2147483647"`
	UnitPrice   *float64 `json:"unitPrice,omitempty" validate:"omitempty,gt=0,lte=1000000000"`
	Description *string  `json:"description,omitempty" validate:"omitempty,mintrim=3"`
	DateAdded   *string  `json:"dateAdded,omitempty" validate:"omitempty,isodate"`
	Supplier    *string  `json:"supplier,omitempty" validate:"omitempty,mintrim=3"`
}

// ProductDto is a product as returned to clients, with the category given by name.
type ProductDto struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Description string  `json:"description"`
	DateAdded   string  `json:"dateAdded"`
	Supplier    string  `json:"supplier"`
}

// SearchDto holds the optional search criteria. Nil fields are unconstrained.
type SearchDto struct {
	Category *string  `json:"category,omitempty"`
	MinPrice *float64 `json:"minPrice,omitempty" validate:"omitempty,gte=0"`
	MaxPrice *float64 `json:"maxPrice,omitempty" validate:"omitempty,gte=0"`
	Supplier *string  `json:"supplier,omitempty"`
}

type CategoryDto struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CategoryCreateDto struct {
	Name string `json:"name" validate:"required,mintrim=3"`
}

type InventoryValueDto struct {
	TotalValue float64 `json:"totalValue"`
}

func toProductFields(in ProductInputDto) (repository.ProductFields, error) {
	added, err := validation.ParseDate(in.DateAdded)
	if err != nil {
		return repository.ProductFields{}, catalogerrors.NewValidationError("dateAdded", "isodate", "")
	}
	return repository.ProductFields{
		Name:        in.Name,
		Category:    in.Category,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Description: in.Description,
		DateAdded:   added,
		Supplier:    in.Supplier,
	}, nil
}

func toProductPatch(in ProductPatchDto) (repository.ProductPatch, error) {
	patch := repository.ProductPatch{
		Name:        in.Name,
		Category:    in.Category,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Description: in.Description,
		Supplier:    in.Supplier,
	}
	if in.DateAdded != nil {
		added, err := validation.ParseDate(*in.DateAdded)
		if err != nil {
			return repository.ProductPatch{}, catalogerrors.NewValidationError("dateAdded", "isodate", "")
		}
		patch.DateAdded = &added
	}
	return patch, nil
}

func toProductDto(p repository.CatalogProduct) *ProductDto {
	return &ProductDto{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.CategoryName,
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice,
		Description: p.Description,
		DateAdded:   validation.FormatDate(p.DateAdded),
		Supplier:    p.Supplier,
	}
}

func toProductDtos(products []repository.CatalogProduct) []ProductDto {
	out := make([]ProductDto, len(products))
	for i, p := range products {
		out[i] = *toProductDto(p)
	}
	return out
}

func toCategoryDto(c store.Category) *CategoryDto {
	return &CategoryDto{ID: c.ID, Name: c.Name}
}
