package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	productsCollection   = "products"
	categoriesCollection = "categories"

	// maxUpdateAttempts bounds the compare-and-swap loop of a product update.
	maxUpdateAttempts = 5
)

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Category    primitive.ObjectID `bson:"category"`
	Quantity    int                `bson:"quantity"`
	UnitPrice   float64            `bson:"unitPrice"`
	Description string             `bson:"description"`
	DateAdded   time.Time          `bson:"dateAdded"`
	Supplier    string             `bson:"supplier"`
}

type categoryDocument struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
}

// MongoStore is a Backend persisting to a MongoDB database.
// Products reference their category by ObjectID.
type MongoStore struct {
	client     *mongo.Client
	products   *mongoProducts
	categories *mongoCategories
}

var _ Backend = (*MongoStore)(nil)

// NewMongoStore connects to uri, pings the primary and ensures the unique index on category names.
func NewMongoStore(ctx context.Context, uri, database string, connectTimeout time.Duration) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return NewMongoStoreFromClient(connectCtx, client, database)
}

// NewMongoStoreFromClient builds the store on an already connected client.
func NewMongoStoreFromClient(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	db := client.Database(database)
	categories := db.Collection(categoriesCollection)
	_, err := categories.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("categories_name_unique"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create category name index: %w", catalogerrors.ErrStorage, err)
	}
	products := db.Collection(productsCollection)
	_, err = products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}},
		Options: options.Index().SetName("products_category"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create product category index: %w", catalogerrors.ErrStorage, err)
	}
	return &MongoStore{
		client:     client,
		products:   &mongoProducts{coll: products},
		categories: &mongoCategories{coll: categories},
	}, nil
}

func (s *MongoStore) Products() ProductStore     { return s.products }
func (s *MongoStore) Categories() CategoryStore { return s.categories }

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", catalogerrors.ErrStorage, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoProducts struct {
	coll *mongo.Collection
}

func (s *mongoProducts) Find(ctx context.Context, filter ProductFilter) ([]Product, error) {
	query := bson.M{}
	if filter.CategoryID != nil {
		categoryID, err := primitive.ObjectIDFromHex(*filter.CategoryID)
		if err != nil {
			return []Product{}, nil
		}
		query["category"] = categoryID
	}
	if filter.Supplier != nil {
		query["supplier"] = *filter.Supplier
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["unitPrice"] = price
	}

	cursor, err := s.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: find products: %w", catalogerrors.ErrStorage, err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode products: %w", catalogerrors.ErrStorage, err)
	}
	out := make([]Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toProduct())
	}
	return out, nil
}

func (s *mongoProducts) FindByID(ctx context.Context, id string) (Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Product{}, catalogerrors.ErrProductNotFound
	}
	doc, err := s.findDocument(ctx, oid)
	if err != nil {
		return Product{}, err
	}
	return doc.toProduct(), nil
}

func (s *mongoProducts) findDocument(ctx context.Context, oid primitive.ObjectID) (productDocument, error) {
	var doc productDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return productDocument{}, catalogerrors.ErrProductNotFound
		}
		return productDocument{}, fmt.Errorf("%w: find product: %w", catalogerrors.ErrStorage, err)
	}
	return doc, nil
}

func (s *mongoProducts) Create(ctx context.Context, product Product) (Product, error) {
	doc, err := toProductDocument(product)
	if err != nil {
		return Product{}, err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return Product{}, fmt.Errorf("%w: insert product: %w", catalogerrors.ErrStorage, err)
	}
	return doc.toProduct(), nil
}

// Update replaces the document only if it still equals the version that was read.
// A lost race re-reads and retries; exhausting the attempts yields ErrConcurrentUpdate.
func (s *mongoProducts) Update(ctx context.Context, id string, mutate func(*Product) error) (Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Product{}, catalogerrors.ErrProductNotFound
	}
	for range maxUpdateAttempts {
		current, err := s.findDocument(ctx, oid)
		if err != nil {
			return Product{}, err
		}
		p := current.toProduct()
		if err := mutate(&p); err != nil {
			return Product{}, err
		}
		next, err := toProductDocument(p)
		if err != nil {
			return Product{}, err
		}
		next.ID = oid

		res, err := s.coll.ReplaceOne(ctx, current.casFilter(), next)
		if err != nil {
			return Product{}, fmt.Errorf("%w: replace product: %w", catalogerrors.ErrStorage, err)
		}
		if res.MatchedCount == 1 {
			return next.toProduct(), nil
		}
	}
	return Product{}, catalogerrors.ErrConcurrentUpdate
}

func (s *mongoProducts) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return catalogerrors.ErrProductNotFound
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("%w: delete product: %w", catalogerrors.ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return catalogerrors.ErrProductNotFound
	}
	return nil
}

func (s *mongoProducts) InventoryValue(ctx context.Context) (float64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$multiply", Value: bson.A{"$unitPrice", "$quantity"}}}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: aggregate inventory value: %w", catalogerrors.ErrStorage, err)
	}
	var rows []struct {
		Total float64 `bson:"total"`
		Count int64   `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, 0, fmt.Errorf("%w: decode inventory value: %w", catalogerrors.ErrStorage, err)
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Total, rows[0].Count, nil
}

type mongoCategories struct {
	coll *mongo.Collection
}

func (s *mongoCategories) FindAll(ctx context.Context) ([]Category, error) {
	cursor, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: find categories: %w", catalogerrors.ErrStorage, err)
	}
	var docs []categoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode categories: %w", catalogerrors.ErrStorage, err)
	}
	out := make([]Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toCategory())
	}
	return out, nil
}

func (s *mongoCategories) FindByID(ctx context.Context, id string) (Category, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Category{}, catalogerrors.ErrCategoryNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *mongoCategories) FindByName(ctx context.Context, name string) (Category, error) {
	return s.findOne(ctx, bson.M{"name": name})
}

func (s *mongoCategories) findOne(ctx context.Context, filter bson.M) (Category, error) {
	var doc categoryDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Category{}, catalogerrors.ErrCategoryNotFound
		}
		return Category{}, fmt.Errorf("%w: find category: %w", catalogerrors.ErrStorage, err)
	}
	return doc.toCategory(), nil
}

func (s *mongoCategories) Create(ctx context.Context, name string) (Category, error) {
	doc := categoryDocument{ID: primitive.NewObjectID(), Name: name}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Category{}, catalogerrors.ErrDuplicateCategory
		}
		return Category{}, fmt.Errorf("%w: insert category: %w", catalogerrors.ErrStorage, err)
	}
	return doc.toCategory(), nil
}

func (s *mongoCategories) DeleteByID(ctx context.Context, id string) (Category, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Category{}, catalogerrors.ErrCategoryNotFound
	}
	var doc categoryDocument
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Category{}, catalogerrors.ErrCategoryNotFound
		}
		return Category{}, fmt.Errorf("%w: delete category: %w", catalogerrors.ErrStorage, err)
	}
	return doc.toCategory(), nil
}

func (s *mongoCategories) Restore(ctx context.Context, category Category) error {
	oid, err := primitive.ObjectIDFromHex(category.ID)
	if err != nil {
		return fmt.Errorf("%w: restore category %s: %w", catalogerrors.ErrStorage, category.ID, err)
	}
	if _, err := s.coll.InsertOne(ctx, categoryDocument{ID: oid, Name: category.Name}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return catalogerrors.ErrDuplicateCategory
		}
		return fmt.Errorf("%w: restore category: %w", catalogerrors.ErrStorage, err)
	}
	return nil
}

func (d productDocument) toProduct() Product {
	return Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		CategoryID:  d.Category.Hex(),
		Quantity:    d.Quantity,
		UnitPrice:   d.UnitPrice,
		Description: d.Description,
		DateAdded:   d.DateAdded.UTC(),
		Supplier:    d.Supplier,
	}
}

// casFilter matches the document only while every field still holds the value that was read.
func (d productDocument) casFilter() bson.M {
	return bson.M{
		"_id":         d.ID,
		"name":        d.Name,
		"category":    d.Category,
		"quantity":    d.Quantity,
		"unitPrice":   d.UnitPrice,
		"description": d.Description,
		"dateAdded":   d.DateAdded,
		"supplier":    d.Supplier,
	}
}

func toProductDocument(p Product) (productDocument, error) {
	categoryID, err := primitive.ObjectIDFromHex(p.CategoryID)
	if err != nil {
		return productDocument{}, catalogerrors.ErrCategoryNotFound
	}
	return productDocument{
		Name:        p.Name,
		Category:    categoryID,
		Quantity:    p.Quantity,
		UnitPrice:   p.UnitPrice,
		Description: p.Description,
		DateAdded:   p.DateAdded.UTC().Truncate(time.Millisecond),
		Supplier:    p.Supplier,
	}, nil
}

func (d categoryDocument) toCategory() Category {
	return Category{ID: d.ID.Hex(), Name: d.Name}
}
