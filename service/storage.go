package service

import (
	"context"
	"time"

	"github.com/lataonhehe/data-contract-hackathon/model"
)

// BlobStore persists contract YAML documents addressed by contract id.
type BlobStore interface {
	// Ensure idempotently creates the backing bucket; it must not error when
	// the bucket already exists.
	Ensure(ctx context.Context) error
	// Put writes content for id (overwriting) and returns its locator.
	Put(ctx context.Context, id, content string) (string, error)
	// Get returns the content for id, or a not-found error.
	Get(ctx context.Context, id string) (string, error)
	// Delete removes the blob for id. Absence is not an error.
	Delete(ctx context.Context, id string) error
}

// MetadataStore persists contract metadata records keyed by contract id.
type MetadataStore interface {
	// Ensure idempotently creates the backing table or verifies connectivity.
	Ensure(ctx context.Context) error
	Put(ctx context.Context, rec *model.Contract) error
	// Get returns the record for id, or a not-found error.
	Get(ctx context.Context, id string) (*model.Contract, error)
	// Update applies a status change (nil leaves it unchanged) and refreshes
	// updated_time. Returns a not-found error for unknown ids.
	Update(ctx context.Context, id string, status *string, updatedTime time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.Contract, error)
}
