package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	productColumns = "id, name, category_id, quantity, unit_price, description, date_added, supplier"
)

type productRow struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	CategoryID  uuid.UUID `db:"category_id"`
	Quantity    int       `db:"quantity"`
	UnitPrice   float64   `db:"unit_price"`
	Description string    `db:"description"`
	DateAdded   time.Time `db:"date_added"`
	Supplier    string    `db:"supplier"`
}

type categoryRow struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
}

// PgStore is a Backend using PostgreSQL as the data store.
// The schema is applied by Migrate.
type PgStore struct {
	db         *pgxpool.Pool
	products   *pgProducts
	categories *pgCategories
}

var _ Backend = (*PgStore)(nil)

// NewPgStore creates a new PgStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		db:         dbp,
		products:   &pgProducts{db: dbp},
		categories: &pgCategories{db: dbp},
	}
}

func (p *PgStore) Products() ProductStore     { return p.products }
func (p *PgStore) Categories() CategoryStore { return p.categories }

func (p *PgStore) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", catalogerrors.ErrStorage, err)
	}
	return nil
}

func (p *PgStore) Close(_ context.Context) error {
	p.db.Close()
	return nil
}

type pgProducts struct {
	db *pgxpool.Pool
}

// Find builds the WHERE clause from the set filter fields only.
func (p *pgProducts) Find(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var conds []string
	var args []any
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.CategoryID != nil {
		categoryID, err := uuid.Parse(*filter.CategoryID)
		if err != nil {
			return []Product{}, nil
		}
		add("category_id = $%d", categoryID)
	}
	if filter.Supplier != nil {
		add("supplier = $%d", *filter.Supplier)
	}
	if filter.MinPrice != nil {
		add("unit_price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("unit_price <= $%d", *filter.MaxPrice)
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: find products: %w", catalogerrors.ErrStorage, err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, fmt.Errorf("%w: scan products: %w", catalogerrors.ErrStorage, err)
	}
	out := make([]Product, 0, len(found))
	for _, r := range found {
		out = append(out, r.toProduct())
	}
	return out, nil
}

func (p *pgProducts) FindByID(ctx context.Context, id string) (Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Product{}, catalogerrors.ErrProductNotFound
	}
	rows, err := p.db.Query(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", uid)
	if err != nil {
		return Product{}, fmt.Errorf("%w: find product: %w", catalogerrors.ErrStorage, err)
	}
	found, err := collectProduct(rows)
	if err != nil {
		return Product{}, wrapRead("find product", err)
	}
	return found, nil
}

func (p *pgProducts) Create(ctx context.Context, product Product) (Product, error) {
	categoryID, err := uuid.Parse(product.CategoryID)
	if err != nil {
		return Product{}, catalogerrors.ErrCategoryNotFound
	}
	rows, err := p.db.Query(ctx,
		`INSERT INTO products (name, category_id, quantity, unit_price, description, date_added, supplier)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+productColumns,
		product.Name, categoryID, product.Quantity, product.UnitPrice, product.Description, product.DateAdded, product.Supplier)
	if err != nil {
		return Product{}, mapProductWriteError(err)
	}
	created, err := collectProduct(rows)
	if err != nil {
		return Product{}, mapProductWriteError(err)
	}
	return created, nil
}

// Update locks the row for the duration of the read-modify-write.
func (p *pgProducts) Update(ctx context.Context, id string, mutate func(*Product) error) (Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Product{}, catalogerrors.ErrProductNotFound
	}
	var updated Product
	txErr := withTransaction(ctx, p.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", uid)
		if err != nil {
			return fmt.Errorf("%w: lock product: %w", catalogerrors.ErrStorage, err)
		}
		current, err := collectProduct(rows)
		if err != nil {
			return wrapRead("lock product", err)
		}
		if err := mutate(&current); err != nil {
			return err
		}
		categoryID, err := uuid.Parse(current.CategoryID)
		if err != nil {
			return catalogerrors.ErrCategoryNotFound
		}
		rows, err = tx.Query(ctx,
			`UPDATE products
			 SET name = $2, category_id = $3, quantity = $4, unit_price = $5, description = $6, date_added = $7, supplier = $8
			 WHERE id = $1
			 RETURNING `+productColumns,
			uid, current.Name, categoryID, current.Quantity, current.UnitPrice, current.Description, current.DateAdded, current.Supplier)
		if err != nil {
			return mapProductWriteError(err)
		}
		updated, err = collectProduct(rows)
		if err != nil {
			return mapProductWriteError(err)
		}
		return nil
	})
	if txErr != nil {
		return Product{}, txErr
	}
	return updated, nil
}

func (p *pgProducts) DeleteByID(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return catalogerrors.ErrProductNotFound
	}
	tag, err := p.db.Exec(ctx, "DELETE FROM products WHERE id = $1", uid)
	if err != nil {
		return fmt.Errorf("%w: delete product: %w", catalogerrors.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return catalogerrors.ErrProductNotFound
	}
	return nil
}

func (p *pgProducts) InventoryValue(ctx context.Context) (float64, int64, error) {
	var total float64
	var count int64
	err := p.db.QueryRow(ctx,
		"SELECT COALESCE(SUM(unit_price * quantity), 0)::float8, COUNT(*) FROM products").Scan(&total, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: inventory value: %w", catalogerrors.ErrStorage, err)
	}
	return total, count, nil
}

type pgCategories struct {
	db *pgxpool.Pool
}

func (c *pgCategories) FindAll(ctx context.Context) ([]Category, error) {
	rows, err := c.db.Query(ctx, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("%w: find categories: %w", catalogerrors.ErrStorage, err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[categoryRow])
	if err != nil {
		return nil, fmt.Errorf("%w: scan categories: %w", catalogerrors.ErrStorage, err)
	}
	out := make([]Category, 0, len(found))
	for _, r := range found {
		out = append(out, r.toCategory())
	}
	return out, nil
}

func (c *pgCategories) FindByID(ctx context.Context, id string) (Category, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Category{}, catalogerrors.ErrCategoryNotFound
	}
	rows, err := c.db.Query(ctx, "SELECT id, name FROM categories WHERE id = $1", uid)
	if err != nil {
		return Category{}, fmt.Errorf("%w: find category: %w", catalogerrors.ErrStorage, err)
	}
	found, err := collectCategory(rows)
	if err != nil {
		return Category{}, wrapRead("find category", err)
	}
	return found, nil
}

func (c *pgCategories) FindByName(ctx context.Context, name string) (Category, error) {
	rows, err := c.db.Query(ctx, "SELECT id, name FROM categories WHERE name = $1", name)
	if err != nil {
		return Category{}, fmt.Errorf("%w: find category: %w", catalogerrors.ErrStorage, err)
	}
	found, err := collectCategory(rows)
	if err != nil {
		return Category{}, wrapRead("find category", err)
	}
	return found, nil
}

func (c *pgCategories) Create(ctx context.Context, name string) (Category, error) {
	rows, err := c.db.Query(ctx, "INSERT INTO categories (name) VALUES ($1) RETURNING id, name", name)
	if err != nil {
		return Category{}, mapCategoryWriteError(err)
	}
	created, err := collectCategory(rows)
	if err != nil {
		return Category{}, mapCategoryWriteError(err)
	}
	return created, nil
}

func (c *pgCategories) DeleteByID(ctx context.Context, id string) (Category, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return Category{}, catalogerrors.ErrCategoryNotFound
	}
	rows, err := c.db.Query(ctx, "DELETE FROM categories WHERE id = $1 RETURNING id, name", uid)
	if err != nil {
		return Category{}, mapCategoryWriteError(err)
	}
	removed, err := collectCategory(rows)
	if err != nil {
		return Category{}, mapCategoryWriteError(err)
	}
	return removed, nil
}

func (c *pgCategories) Restore(ctx context.Context, category Category) error {
	uid, err := uuid.Parse(category.ID)
	if err != nil {
		return fmt.Errorf("%w: restore category %s: %w", catalogerrors.ErrStorage, category.ID, err)
	}
	if _, err := c.db.Exec(ctx, "INSERT INTO categories (id, name) VALUES ($1, $2)", uid, category.Name); err != nil {
		return mapCategoryWriteError(err)
	}
	return nil
}

func withTransaction(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", catalogerrors.ErrStorage, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w: rollback transaction: %w", catalogerrors.ErrStorage, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit transaction: %w", catalogerrors.ErrStorage, err)
	}
	return nil
}

func collectProduct(rows pgx.Rows) (Product, error) {
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, catalogerrors.ErrProductNotFound
		}
		return Product{}, err
	}
	return row.toProduct(), nil
}

func collectCategory(rows pgx.Rows) (Category, error) {
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[categoryRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, catalogerrors.ErrCategoryNotFound
		}
		return Category{}, err
	}
	return row.toCategory(), nil
}

// wrapRead marks unexpected read failures as storage errors and passes not-found sentinels through.
func wrapRead(op string, err error) error {
	if errors.Is(err, catalogerrors.ErrProductNotFound) || errors.Is(err, catalogerrors.ErrCategoryNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", catalogerrors.ErrStorage, op, err)
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// mapProductWriteError turns a foreign key violation on category_id into ErrCategoryNotFound.
func mapProductWriteError(err error) error {
	if errors.Is(err, catalogerrors.ErrProductNotFound) {
		return err
	}
	if pgErrorCode(err) == pgForeignKeyViolation {
		return catalogerrors.ErrCategoryNotFound
	}
	return fmt.Errorf("%w: write product: %w", catalogerrors.ErrStorage, err)
}

func mapCategoryWriteError(err error) error {
	if errors.Is(err, catalogerrors.ErrCategoryNotFound) {
		return err
	}
	switch pgErrorCode(err) {
	case pgUniqueViolation:
		return catalogerrors.ErrDuplicateCategory
	case pgForeignKeyViolation:
		return catalogerrors.ErrCategoryInUse
	}
	return fmt.Errorf("%w: write category: %w", catalogerrors.ErrStorage, err)
}

func (r productRow) toProduct() Product {
	return Product{
		ID:          r.ID.String(),
		Name:        r.Name,
		CategoryID:  r.CategoryID.String(),
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Description: r.Description,
		DateAdded:   r.DateAdded.UTC(),
		Supplier:    r.Supplier,
	}
}

func (r categoryRow) toCategory() Category {
	return Category{ID: r.ID.String(), Name: r.Name}
}
