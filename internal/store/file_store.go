package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/google/uuid"
)

const (
	productsFileName   = "products.json"
	categoriesFileName = "categories.json"
)

// productRecord is the on-disk shape of a product in products.json.
type productRecord struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unitPrice"`
	Description string    `json:"description"`
	DateAdded   time.Time `json:"dateAdded"`
	Supplier    string    `json:"supplier"`
}

type categoryRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FileStore is a Backend keeping products and categories in two JSON files inside one directory.
type FileStore struct {
	dir        string
	products   *fileProducts
	categories *fileCategories
}

var _ Backend = (*FileStore)(nil)

// NewFileStore creates the data directory if needed. Missing files are treated as empty collections.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data directory %s: %w", catalogerrors.ErrStorage, dir, err)
	}
	return &FileStore{
		dir:        dir,
		products:   &fileProducts{file: newJSONFile[productRecord](filepath.Join(dir, productsFileName))},
		categories: &fileCategories{file: newJSONFile[categoryRecord](filepath.Join(dir, categoriesFileName))},
	}, nil
}

func (s *FileStore) Products() ProductStore     { return s.products }
func (s *FileStore) Categories() CategoryStore { return s.categories }

// Ping checks that the data directory is still reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", catalogerrors.ErrStorage, s.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", catalogerrors.ErrStorage, s.dir)
	}
	return nil
}

func (s *FileStore) Close(_ context.Context) error {
	return nil
}

type fileProducts struct {
	file *jsonFile[productRecord]
}

func (s *fileProducts) Find(ctx context.Context, filter ProductFilter) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Product, 0)
	err := s.file.view(func(records []productRecord) error {
		for _, r := range records {
			if p := r.toProduct(); filter.Matches(p) {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fileProducts) FindByID(ctx context.Context, id string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	key, ok := parseFileID(id)
	if !ok {
		return Product{}, catalogerrors.ErrProductNotFound
	}
	var found Product
	err := s.file.view(func(records []productRecord) error {
		i := indexOfProduct(records, key)
		if i < 0 {
			return catalogerrors.ErrProductNotFound
		}
		found = records[i].toProduct()
		return nil
	})
	return found, err
}

// Create assigns the next ID: the highest existing ID plus one, or 1 for an empty file.
func (s *fileProducts) Create(ctx context.Context, product Product) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	var created Product
	err := s.file.modify(func(records []productRecord) ([]productRecord, error) {
		next := 1
		for _, r := range records {
			if r.ID >= next {
				next = r.ID + 1
			}
		}
		rec := toProductRecord(product)
		rec.ID = next
		created = rec.toProduct()
		return append(records, rec), nil
	})
	if err != nil {
		return Product{}, err
	}
	return created, nil
}

func (s *fileProducts) Update(ctx context.Context, id string, mutate func(*Product) error) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	key, ok := parseFileID(id)
	if !ok {
		return Product{}, catalogerrors.ErrProductNotFound
	}
	var updated Product
	err := s.file.modify(func(records []productRecord) ([]productRecord, error) {
		i := indexOfProduct(records, key)
		if i < 0 {
			return nil, catalogerrors.ErrProductNotFound
		}
		p := records[i].toProduct()
		if err := mutate(&p); err != nil {
			return nil, err
		}
		rec := toProductRecord(p)
		rec.ID = key
		records[i] = rec
		updated = rec.toProduct()
		return records, nil
	})
	if err != nil {
		return Product{}, err
	}
	return updated, nil
}

func (s *fileProducts) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, ok := parseFileID(id)
	if !ok {
		return catalogerrors.ErrProductNotFound
	}
	return s.file.modify(func(records []productRecord) ([]productRecord, error) {
		i := indexOfProduct(records, key)
		if i < 0 {
			return nil, catalogerrors.ErrProductNotFound
		}
		return append(records[:i], records[i+1:]...), nil
	})
}

func (s *fileProducts) InventoryValue(ctx context.Context) (float64, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	var total float64
	var count int64
	err := s.file.view(func(records []productRecord) error {
		for _, r := range records {
			total += r.UnitPrice * float64(r.Quantity)
			count++
		}
		return nil
	})
	return total, count, err
}

type fileCategories struct {
	file *jsonFile[categoryRecord]
}

func (s *fileCategories) FindAll(ctx context.Context) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Category, 0)
	err := s.file.view(func(records []categoryRecord) error {
		for _, r := range records {
			out = append(out, Category(r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fileCategories) FindByID(ctx context.Context, id string) (Category, error) {
	return s.findFirst(ctx, func(r categoryRecord) bool { return r.ID == id })
}

func (s *fileCategories) FindByName(ctx context.Context, name string) (Category, error) {
	return s.findFirst(ctx, func(r categoryRecord) bool { return r.Name == name })
}

func (s *fileCategories) findFirst(ctx context.Context, match func(categoryRecord) bool) (Category, error) {
	if err := ctx.Err(); err != nil {
		return Category{}, err
	}
	var found Category
	err := s.file.view(func(records []categoryRecord) error {
		for _, r := range records {
			if match(r) {
				found = Category(r)
				return nil
			}
		}
		return catalogerrors.ErrCategoryNotFound
	})
	return found, err
}

// Create checks name uniqueness inside the write lock, so two concurrent creates cannot both succeed.
func (s *fileCategories) Create(ctx context.Context, name string) (Category, error) {
	if err := ctx.Err(); err != nil {
		return Category{}, err
	}
	var created Category
	err := s.file.modify(func(records []categoryRecord) ([]categoryRecord, error) {
		for _, r := range records {
			if r.Name == name {
				return nil, catalogerrors.ErrDuplicateCategory
			}
		}
		rec := categoryRecord{ID: uuid.NewString(), Name: name}
		created = Category(rec)
		return append(records, rec), nil
	})
	if err != nil {
		return Category{}, err
	}
	return created, nil
}

func (s *fileCategories) DeleteByID(ctx context.Context, id string) (Category, error) {
	if err := ctx.Err(); err != nil {
		return Category{}, err
	}
	var removed Category
	err := s.file.modify(func(records []categoryRecord) ([]categoryRecord, error) {
		for i, r := range records {
			if r.ID == id {
				removed = Category(r)
				return append(records[:i], records[i+1:]...), nil
			}
		}
		return nil, catalogerrors.ErrCategoryNotFound
	})
	if err != nil {
		return Category{}, err
	}
	return removed, nil
}

func (s *fileCategories) Restore(ctx context.Context, category Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.file.modify(func(records []categoryRecord) ([]categoryRecord, error) {
		for _, r := range records {
			if r.ID == category.ID || r.Name == category.Name {
				return nil, catalogerrors.ErrDuplicateCategory
			}
		}
		return append(records, categoryRecord(category)), nil
	})
}

func parseFileID(id string) (int, bool) {
	n, err := strconv.Atoi(id)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func indexOfProduct(records []productRecord, id int) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (r productRecord) toProduct() Product {
	return Product{
		ID:          strconv.Itoa(r.ID),
		Name:        r.Name,
		CategoryID:  r.Category,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Description: r.Description,
		DateAdded:   r.DateAdded,
		Supplier:    r.Supplier,
	}
}

// toProductRecord leaves ID unset; callers own ID assignment.
func toProductRecord(p Product) productRecord {
	return productRecord{
		Name:        p.Name,
		Category:    p.CategoryID,
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice,
		Description: p.Description,
		DateAdded:   p.DateAdded,
		Supplier:    p.Supplier,
	}
}
