package main

import (
	"fmt"
	"os"

	"github.com/fjod/go_giftpack/internal/config"
	"github.com/fjod/go_giftpack/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel string
	devMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Gift pack storefront: catalog, pack composer, cart and checkout",
	Long: `Serves the storefront API. Configuration is read from the environment
(HTTP_PORT, CATALOG_DRIVER, STORAGE_BACKEND, KAFKA_BROKERS, ...). Flags override
the logging settings only.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the gRPC health endpoint",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply catalog migrations and exit",
	RunE:  migrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "human readable logs")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if devMode {
		cfg.Development = true
	}

	log, err := logger.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

func migrate(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	repo, err := openCatalog(cfg, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	log.Info("catalog migrations applied", zap.String("driver", cfg.CatalogDriver))
	return nil
}
