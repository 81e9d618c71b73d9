package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DriverFile     = "file"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// StorageConfig selects the catalog backend and carries the settings of each driver.
// Only the section of the selected driver is validated.
type StorageConfig struct {
	Driver   string            `koanf:"driver"`
	File     FileStorageConfig `koanf:"file"`
	Mongo    MongoConfig       `koanf:"mongo"`
	Postgres DatabaseConfig    `koanf:"postgres"`
}

type FileStorageConfig struct {
	Dir string `koanf:"dir"`
}

type MongoConfig struct {
	URI      string        `koanf:"uri"`
	Database string        `koanf:"database"`
	Timeout  time.Duration `koanf:"timeout"`
}

// String returns a string representation of the storage configuration.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	switch c.Driver {
	case DriverFile:
		b.WriteString(fmt.Sprintf("  file.dir: %s\n", c.File.Dir))
	case DriverMongo:
		b.WriteString(fmt.Sprintf("  mongo.uri: %s\n", MaskURL(c.Mongo.URI)))
		b.WriteString(fmt.Sprintf("  mongo.database: %s\n", c.Mongo.Database))
		b.WriteString(fmt.Sprintf("  mongo.timeout: %s\n", c.Mongo.Timeout))
	case DriverPostgres:
		b.WriteString(c.Postgres.String())
	}
	return b.String()
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case DriverFile:
		if c.File.Dir == "" {
			return fmt.Errorf("storage.file.dir is not configured")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("storage.mongo.uri is not configured")
		}
		if !strings.HasPrefix(c.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Mongo.URI, "mongodb+srv://") {
			return fmt.Errorf("storage.mongo.uri must start with 'mongodb://': %s", MaskURL(c.Mongo.URI))
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("storage.mongo.database is not configured")
		}
		if c.Mongo.Timeout <= 0 {
			return fmt.Errorf("storage.mongo.timeout must be greater than 0")
		}
	case DriverPostgres:
		return c.Postgres.Validate()
	default:
		return fmt.Errorf("unknown storage driver %q, expected one of: %s, %s, %s",
			c.Driver, DriverFile, DriverMongo, DriverPostgres)
	}
	return nil
}
