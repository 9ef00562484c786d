package storage

import (
	"context"
	"errors"

	"github.com/rohankatakam/codeimpact/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

// Snapshot is one persisted analysis pass, enough to rebuild the dependency graph
type Snapshot struct {
	Metadata      models.SnapshotMetadata
	Entities      []models.CodeEntity
	Relationships []models.Relationship
}

// SnapshotStore persists analysis snapshots
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, root string, entities []models.CodeEntity, relationships []models.Relationship) (*models.SnapshotMetadata, error)
	LoadSnapshot(ctx context.Context, id string) (*Snapshot, error)
	LatestSnapshot(ctx context.Context, root string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]models.SnapshotMetadata, error)

	// Close connection
	Close() error
}
