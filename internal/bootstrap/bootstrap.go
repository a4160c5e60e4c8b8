// Package bootstrap provides dependency initialization for the media generation gateway.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/mediagen/internal/config"
	"github.com/maauso/mediagen/internal/generation"
	"github.com/maauso/mediagen/internal/provider"
	"github.com/maauso/mediagen/internal/registry"
	"github.com/maauso/mediagen/internal/store"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service *generation.Service
	Store   store.TaskStore
}

// Close stops the service and releases the task store.
func (d *Dependencies) Close() error {
	d.Service.Stop()
	return d.Store.Close()
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize the task store
	st, err := initStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the provider gateway client
	credentials := provider.StaticCredential(cfg.ProviderAPIKey)
	client, err := provider.NewClient(cfg.ProviderBaseURL,
		provider.WithTimeout(cfg.HTTPTimeout),
		provider.WithCredentials(credentials),
	)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create provider client: %w", err)
	}
	if !cfg.HasCredential() {
		logger.Warn("PROVIDER_API_KEY not set, generation requests will fail")
	}

	providers := provider.NewSet(provider.DefaultCatalog(), client)

	svc := generation.NewService(
		registry.New(),
		st,
		providers,
		credentials,
		logger,
		generation.WithPollIntervals(cfg.ImagePollInterval, cfg.VideoPollInterval),
		generation.WithPollTimeout(cfg.PollTimeout),
	)

	return &Dependencies{
		Service: svc,
		Store:   st,
	}, nil
}

// initStore creates the task store backend selected by STORE_BACKEND.
func initStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.TaskStore, error) {
	switch cfg.Backend() {
	case config.StoreS3:
		s3Store, err := store.NewS3Store(ctx, store.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 store: %w", err)
		}
		logger.Info("S3 task store configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil

	case config.StorePostgres:
		pool, err := store.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}
		pgStore := store.NewPostgresStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			_ = pgStore.Close()
			return nil, fmt.Errorf("prepare postgres schema: %w", err)
		}
		logger.Info("postgres task store configured")
		return pgStore, nil

	default:
		fileStore, err := store.NewFileStore(cfg.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("create file store: %w", err)
		}
		logger.Info("file task store configured",
			slog.String("dir", fileStore.Dir()),
		)
		return fileStore, nil
	}
}
