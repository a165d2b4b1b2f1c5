// Package remote defines the contracts for the remote document and blob
// stores, and provides the S3-backed implementation used in production.
package remote

import (
	"context"
	"io"

	"github.com/mhadley/receiptvault/internal/client/models"
)

// DocumentStore holds one document per receipt, keyed by the authenticated
// owner id and the record id.
type DocumentStore interface {
	// GetCollection returns every receipt stored for the owner.
	GetCollection(ctx context.Context, ownerID string) ([]models.Receipt, error)

	// Put writes the receipt document under (ownerID, id). Overwrites are
	// idempotent.
	Put(ctx context.Context, ownerID, id string, r models.Receipt) error

	// Delete removes the document. Deleting an absent document is not an
	// error.
	Delete(ctx context.Context, ownerID, id string) error
}

// BlobStore holds image bytes under opaque, stable string references.
type BlobStore interface {
	// Put uploads data under key and returns the durable reference.
	// body is read exactly once; length is its size in bytes.
	Put(ctx context.Context, key string, body io.Reader, length int64) (string, error)

	// Open streams the blob behind ref and reports its total length.
	Open(ctx context.Context, ref string) (io.ReadCloser, int64, error)

	// Delete removes the blob behind ref.
	Delete(ctx context.Context, ref string) error
}
