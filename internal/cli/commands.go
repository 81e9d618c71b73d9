// Package cli provides catalogctl, the administrative command line for the catalog.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/abgdnv/gocatalog/internal/app"
	"github.com/abgdnv/gocatalog/internal/config"
	"github.com/abgdnv/gocatalog/internal/service"
	"github.com/abgdnv/gocatalog/internal/store"
	"github.com/abgdnv/gocatalog/pkg/bootstrap"
	"github.com/abgdnv/gocatalog/pkg/config/configloader"
	"github.com/abgdnv/gocatalog/pkg/messaging"
	"github.com/spf13/cobra"
)

// ServiceFactory opens the catalog service described by configFile. The returned func releases it.
type ServiceFactory func(ctx context.Context, configFile, envFile string) (service.CatalogService, func(), error)

// OpenService loads the catalogctl configuration, opens the configured backend and builds the service.
// Events are not published from the command line.
func OpenService(ctx context.Context, configFile, envFile string) (service.CatalogService, func(), error) {
	cfg, err := configloader.Load[*config.CLIConfig](app.ServiceName,
		configloader.WithConfigFile(configFile), configloader.WithEnvFile(envFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := bootstrap.NewLoggerTo(os.Stderr, cfg.Log)
	backend, err := store.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := backend.Close(context.Background()); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}
	return app.NewCatalogService(backend, messaging.NoopPublisher{}, logger), closeFn, nil
}

// NewRootCmd builds the catalogctl command tree. Tests pass their own factory.
func NewRootCmd(factory ServiceFactory) *cobra.Command {
	var configFile, envFile string
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Administer the product catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "YAML configuration file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file")

	// withService opens the service for one command and releases it once the command returns.
	withService := func(fn action) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			svc, release, err := factory(cmd.Context(), configFile, envFile)
			if err != nil {
				return err
			}
			defer release()
			return fn(cmd, svc, args)
		}
	}
	root.AddCommand(newCategoriesCmd(withService), newProductsCmd(withService))
	return root
}

// action is the body of a command that needs the catalog service.
type action func(cmd *cobra.Command, svc service.CatalogService, args []string) error

type runner func(fn action) func(*cobra.Command, []string) error

func newCategoriesCmd(withService runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all categories",
			Args:  cobra.NoArgs,
			RunE: withService(func(cmd *cobra.Command, svc service.CatalogService, _ []string) error {
				list, err := svc.ListCategories(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), list)
			}),
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a category",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(cmd *cobra.Command, svc service.CatalogService, args []string) error {
				created, err := svc.CreateCategory(cmd.Context(), service.CategoryCreateDto{Name: args[0]})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), created)
			}),
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a category no product refers to",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(cmd *cobra.Command, svc service.CatalogService, args []string) error {
				removed, err := svc.DeleteCategory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), removed)
			}),
		},
	)
	return cmd
}

func newProductsCmd(withService runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage products",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "import FILE",
			Short: "Create every product of a JSON array, reporting failures per item",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(cmd *cobra.Command, svc service.CatalogService, args []string) error {
				return importProducts(cmd.Context(), svc, args[0], cmd.OutOrStdout())
			}),
		},
		&cobra.Command{
			Use:   "value",
			Short: "Print the total inventory value",
			Args:  cobra.NoArgs,
			RunE: withService(func(cmd *cobra.Command, svc service.CatalogService, _ []string) error {
				value, err := svc.TotalInventoryValue(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), value)
			}),
		},
	)
	return cmd
}

// importResult reports the outcome of one imported item.
type importResult struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func importProducts(ctx context.Context, svc service.CatalogService, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	var inputs []service.ProductInputDto
	if err := json.Unmarshal(data, &inputs); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	results := make([]importResult, 0, len(inputs))
	failed := 0
	for i, in := range inputs {
		created, err := svc.CreateProduct(ctx, in)
		res := importResult{Index: i, Outcome: service.OutcomeOf(err).String()}
		if err != nil {
			failed++
			res.Error = err.Error()
		} else {
			res.ID = created.ID
		}
		results = append(results, res)
	}
	if err := printJSON(out, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d products failed to import", failed, len(inputs))
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
