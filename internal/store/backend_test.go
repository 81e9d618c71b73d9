package store

import (
	"context"
	"sync"
	"testing"
	"time"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func sampleProduct(categoryID, name string, quantity int, price float64, supplier string) Product {
	return Product{
		Name:        name,
		CategoryID:  categoryID,
		Quantity:    quantity,
		UnitPrice:   price,
		Description: name + " description",
		DateAdded:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Supplier:    supplier,
	}
}

// exerciseBackend checks the behaviour every Backend shares. missingID must not name any record.
func exerciseBackend(t *testing.T, b Backend, missingID string) {
	ctx := context.Background()

	require.NoError(t, b.Ping(ctx))

	tools, err := b.Categories().Create(ctx, "tools")
	require.NoError(t, err)
	garden, err := b.Categories().Create(ctx, "garden")
	require.NoError(t, err)

	t.Run("category names are unique", func(t *testing.T) {
		_, err := b.Categories().Create(ctx, "tools")
		assert.ErrorIs(t, err, catalogerrors.ErrDuplicateCategory)
	})

	t.Run("categories are found by id and name", func(t *testing.T) {
		byID, err := b.Categories().FindByID(ctx, tools.ID)
		require.NoError(t, err)
		assert.Equal(t, tools, byID)

		byName, err := b.Categories().FindByName(ctx, "garden")
		require.NoError(t, err)
		assert.Equal(t, garden, byName)

		_, err = b.Categories().FindByName(ctx, "Garden")
		assert.ErrorIs(t, err, catalogerrors.ErrCategoryNotFound)
		_, err = b.Categories().FindByID(ctx, missingID)
		assert.ErrorIs(t, err, catalogerrors.ErrCategoryNotFound)

		all, err := b.Categories().FindAll(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []Category{tools, garden}, all)
	})

	total, count, err := b.Products().InventoryValue(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, count)

	hammer, err := b.Products().Create(ctx, sampleProduct(tools.ID, "hammer", 4, 2.5, "Acme"))
	require.NoError(t, err)
	saw, err := b.Products().Create(ctx, sampleProduct(tools.ID, "saw", 1, 12, "Bolt"))
	require.NoError(t, err)
	rake, err := b.Products().Create(ctx, sampleProduct(garden.ID, "rake", 2, 8, "Acme"))
	require.NoError(t, err)

	t.Run("created products round trip", func(t *testing.T) {
		assert.NotEmpty(t, hammer.ID)
		assert.NotEqual(t, hammer.ID, saw.ID)

		found, err := b.Products().FindByID(ctx, hammer.ID)
		require.NoError(t, err)
		assert.Equal(t, hammer, found)
		assert.True(t, found.DateAdded.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

		_, err = b.Products().FindByID(ctx, missingID)
		assert.ErrorIs(t, err, catalogerrors.ErrProductNotFound)
	})

	t.Run("find applies every set filter", func(t *testing.T) {
		testCases := []struct {
			name     string
			filter   ProductFilter
			expected []string
		}{
			{name: "no filter", filter: ProductFilter{}, expected: []string{"hammer", "saw", "rake"}},
			{name: "category", filter: ProductFilter{CategoryID: ptr(tools.ID)}, expected: []string{"hammer", "saw"}},
			{name: "supplier", filter: ProductFilter{Supplier: ptr("Acme")}, expected: []string{"hammer", "rake"}},
			{name: "inclusive price range", filter: ProductFilter{MinPrice: ptr(2.5), MaxPrice: ptr(8.0)}, expected: []string{"hammer", "rake"}},
			{name: "combined", filter: ProductFilter{CategoryID: ptr(tools.ID), Supplier: ptr("Acme"), MinPrice: ptr(3.0)}, expected: []string{}},
			{name: "unknown category", filter: ProductFilter{CategoryID: ptr(missingID)}, expected: []string{}},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				found, err := b.Products().Find(ctx, tc.filter)
				require.NoError(t, err)
				names := make([]string, 0, len(found))
				for _, p := range found {
					names = append(names, p.Name)
				}
				assert.Equal(t, tc.expected, names)
			})
		}
	})

	t.Run("inventory value", func(t *testing.T) {
		total, count, err := b.Products().InventoryValue(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 4*2.5+12+2*8, total, 1e-9)
		assert.EqualValues(t, 3, count)
	})

	t.Run("update keeps the id", func(t *testing.T) {
		updated, err := b.Products().Update(ctx, saw.ID, func(p *Product) error {
			p.ID = "ignored"
			p.Quantity = 3
			p.CategoryID = garden.ID
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, saw.ID, updated.ID)
		assert.Equal(t, 3, updated.Quantity)
		assert.Equal(t, garden.ID, updated.CategoryID)

		found, err := b.Products().FindByID(ctx, saw.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, found)
	})

	t.Run("update aborted by mutate writes nothing", func(t *testing.T) {
		_, err := b.Products().Update(ctx, rake.ID, func(p *Product) error {
			p.Name = "changed"
			return catalogerrors.ErrCategoryNotFound
		})
		assert.ErrorIs(t, err, catalogerrors.ErrCategoryNotFound)

		found, err := b.Products().FindByID(ctx, rake.ID)
		require.NoError(t, err)
		assert.Equal(t, "rake", found.Name)
	})

	t.Run("update of a missing product", func(t *testing.T) {
		_, err := b.Products().Update(ctx, missingID, func(*Product) error { return nil })
		assert.ErrorIs(t, err, catalogerrors.ErrProductNotFound)
	})

	t.Run("concurrent updates are all applied", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := b.Products().Update(ctx, hammer.ID, func(p *Product) error {
					p.Quantity++
					return nil
				})
				if err != nil {
					assert.ErrorIs(t, err, catalogerrors.ErrConcurrentUpdate)
				}
			}()
		}
		wg.Wait()

		found, err := b.Products().FindByID(ctx, hammer.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, found.Quantity, 5)
		assert.LessOrEqual(t, found.Quantity, 9)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, b.Products().DeleteByID(ctx, rake.ID))

		_, err := b.Products().FindByID(ctx, rake.ID)
		assert.ErrorIs(t, err, catalogerrors.ErrProductNotFound)
		assert.ErrorIs(t, b.Products().DeleteByID(ctx, rake.ID), catalogerrors.ErrProductNotFound)
	})

	t.Run("delete category", func(t *testing.T) {
		require.NoError(t, b.Products().DeleteByID(ctx, saw.ID))
		removed, err := b.Categories().DeleteByID(ctx, garden.ID)
		require.NoError(t, err)
		assert.Equal(t, garden, removed)

		_, err = b.Categories().DeleteByID(ctx, garden.ID)
		assert.ErrorIs(t, err, catalogerrors.ErrCategoryNotFound)
	})

	t.Run("restore deleted category", func(t *testing.T) {
		require.NoError(t, b.Categories().Restore(ctx, garden))

		found, err := b.Categories().FindByID(ctx, garden.ID)
		require.NoError(t, err)
		assert.Equal(t, garden, found)
		assert.ErrorIs(t, b.Categories().Restore(ctx, garden), catalogerrors.ErrDuplicateCategory)
	})
}
