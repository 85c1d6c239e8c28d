// Package storage persists the corpus index so restarts skip re-analyzing
// unchanged documents.
package storage

import (
	"context"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// Storage defines corpus index persistence operations.
type Storage interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]*models.Document, error)

	// SaveAll replaces the stored index in one transaction.
	SaveAll(ctx context.Context, docs []*models.Document) error

	CountDocuments(ctx context.Context) (int64, error)

	// Version tags the stored index; a mismatch at load time forces a
	// full re-analysis.
	Version(ctx context.Context) (string, error)
	SetVersion(ctx context.Context, version string) error

	Close() error
}
