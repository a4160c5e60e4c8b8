// Package store provides durable persistence of asset records. It defines the
// TaskStore interface (port) and implementations backed by local JSON files,
// S3 objects and PostgreSQL.
package store

import (
	"context"
	"errors"

	"github.com/maauso/mediagen/internal/asset"
)

// ErrAssetNotFound is returned when an asset id has no persisted record.
var ErrAssetNotFound = errors.New("store: asset not found")

// TaskStore persists asset records independently of any provider.
// Implementations must be safe for concurrent use.
type TaskStore interface {
	// Put upserts a by its id.
	Put(ctx context.Context, a asset.Asset) error

	// Get returns the record for id or ErrAssetNotFound.
	Get(ctx context.Context, id string) (asset.Asset, error)

	// GetAll returns every persisted record. The order is unspecified.
	GetAll(ctx context.Context) ([]asset.Asset, error)

	// Close releases backend resources.
	Close() error
}
