package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/solatis/blockkeeper/internal/core/api"
	"github.com/solatis/blockkeeper/internal/core/auth"
	"github.com/solatis/blockkeeper/internal/core/config"
	"github.com/solatis/blockkeeper/internal/core/db"
	"github.com/solatis/blockkeeper/internal/core/server"
	"github.com/solatis/blockkeeper/internal/rules"
	"github.com/solatis/blockkeeper/internal/schema"
)

const shutdownTimeout = 30 * time.Second

var blockAPICmd = &cobra.Command{
	Use:   "block-api",
	Short: "Start gRPC block API service",
	RunE:  runBlockAPI,
}

func init() {
	rootCmd.AddCommand(blockAPICmd)
	blockAPICmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	blockAPICmd.Flags().Int("port", 50061, "gRPC server port")
	blockAPICmd.Flags().String("schema", "", "schema file (overrides block_api.schema_path)")
}

func loadConfig(cmd *cobra.Command) (*config.BlockAPIConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("schema") {
		cfg.SchemaPath, _ = flags.GetString("schema")
	}
	return cfg, nil
}

// loadEngine reads the schema file and builds a verified rules engine.
func loadEngine(cfg *config.BlockAPIConfig) (*rules.Engine, error) {
	schemaCfg, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", cfg.SchemaPath, err)
	}
	engine, err := rules.NewEngine(schemaCfg, rules.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build rules engine: %w", err)
	}
	if err := engine.Store().Verify(); err != nil {
		return nil, fmt.Errorf("schema %s: %w", cfg.SchemaPath, err)
	}
	return engine, nil
}

// openDatabase opens the database and refuses to continue with pending
// migrations.
func openDatabase(ctx context.Context, cfg *config.BlockAPIConfig) (*sqlx.DB, *db.Queries, error) {
	url, err := resolveDBURL(cfg)
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	pending, err := db.Pending(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	if pending {
		database.Close()
		return nil, nil, fmt.Errorf("pending migrations - run 'blockkeeper migrate' first")
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

func runBlockAPI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	engine, err := loadEngine(cfg)
	if err != nil {
		return err
	}

	database, queries, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return auth.ErrNoSecrets
	}
	authenticator := auth.NewAuthenticator(secrets, queries)

	service, err := api.NewBlockAPIService(engine, db.NewBlockStore(queries), cfg, api.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg, service, authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting blockkeeper block API",
		"version", Version,
		"addr", cfg.Address(),
		"schema", cfg.SchemaPath,
		"block_types", len(engine.BlockTypes()),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return grpcServer.Shutdown(shutdownCtx)
	}
}
