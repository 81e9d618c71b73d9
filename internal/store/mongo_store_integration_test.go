package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	catalogerrors "github.com/abgdnv/gocatalog/internal/errors"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const mongoImg = "mongo:7.0"

// MongoStoreSuite runs the MongoDB backend against a real server.
type MongoStoreSuite struct {
	suite.Suite
	ctx            context.Context
	logger         *slog.Logger
	mongoContainer *mongodb.MongoDBContainer
	store          *MongoStore
	dbName         string
}

func (s *MongoStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s.dbName = "catalog_test"

	var err error
	s.mongoContainer, err = mongodb.Run(s.ctx, mongoImg)
	require.NoError(s.T(), err, "Failed to run MongoDB container")

	uri, err := s.mongoContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err)

	s.store, err = NewMongoStore(s.ctx, uri, s.dbName, 30*time.Second)
	require.NoError(s.T(), err, "Failed to connect to MongoDB")
}

func (s *MongoStoreSuite) TearDownSuite() {
	if s.store != nil {
		if err := s.store.Close(s.ctx); err != nil {
			s.logger.Warn("failed to disconnect from MongoDB", "error", err)
		}
	}
	if err := testcontainers.TerminateContainer(s.mongoContainer); err != nil {
		s.logger.Warn("failed to terminate MongoDB container", "error", err)
	}
}

// SetupTest empties both collections; the indexes created by NewMongoStore are kept.
func (s *MongoStoreSuite) SetupTest() {
	db := s.store.client.Database(s.dbName)
	for _, name := range []string{productsCollection, categoriesCollection} {
		_, err := db.Collection(name).DeleteMany(s.ctx, bson.M{})
		require.NoError(s.T(), err)
	}
}

func TestMongoStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) TestBackend() {
	exerciseBackend(s.T(), s.store, primitive.NewObjectID().Hex())
}

func (s *MongoStoreSuite) TestReopenKeepsIndexes() {
	// given
	_, err := s.store.Categories().Create(s.ctx, "tools")
	s.Require().NoError(err)

	// when
	reopened, err := NewMongoStoreFromClient(s.ctx, s.store.client, s.dbName)
	s.Require().NoError(err)
	_, err = reopened.Categories().Create(s.ctx, "tools")

	// then
	s.ErrorIs(err, catalogerrors.ErrDuplicateCategory)
}

func (s *MongoStoreSuite) TestUpdate_ConcurrentChangeIsRetried() {
	// given
	tools, err := s.store.Categories().Create(s.ctx, "tools")
	s.Require().NoError(err)
	created, err := s.store.Products().Create(s.ctx, sampleProduct(tools.ID, "hammer", 1, 1, "Acme"))
	s.Require().NoError(err)
	interfered := false

	// when
	updated, err := s.store.Products().Update(s.ctx, created.ID, func(p *Product) error {
		if !interfered {
			interfered = true
			_, err := s.store.Products().Update(s.ctx, created.ID, func(other *Product) error {
				other.Supplier = "Bolt"
				return nil
			})
			s.Require().NoError(err)
		}
		p.Quantity = 10
		return nil
	})

	// then
	s.Require().NoError(err)
	s.Equal(10, updated.Quantity)
	s.Equal("Bolt", updated.Supplier)
}

func (s *MongoStoreSuite) TestMalformedIDsAreNotFound() {
	_, err := s.store.Products().FindByID(s.ctx, "42")
	s.ErrorIs(err, catalogerrors.ErrProductNotFound)
	_, err = s.store.Categories().FindByID(s.ctx, "not-an-object-id")
	s.ErrorIs(err, catalogerrors.ErrCategoryNotFound)
}
