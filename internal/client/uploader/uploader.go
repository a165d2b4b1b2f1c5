// Package uploader implements the upload pipeline: the durable job that
// mirrors a locally attached image to the remote blob store and writes the
// final record to the remote document store.
//
// Every step is safe to re-run; the scheduler delivers jobs at least once.
package uploader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mhadley/receiptvault/internal/client/models"
	"github.com/mhadley/receiptvault/internal/client/remote"
	"github.com/mhadley/receiptvault/internal/client/store"
	"github.com/mhadley/receiptvault/internal/common"
	"github.com/mhadley/receiptvault/internal/filex"
	"github.com/mhadley/receiptvault/internal/logging"
	"github.com/mhadley/receiptvault/internal/progress"
)

// JobKey returns the unique work key for a record id. A second enqueue
// under the same key while one is outstanding is coalesced, which makes
// cold-start re-dispatch safe.
func JobKey(id string) string {
	return "sync-" + id
}

// OwnerProvider reports the signed-in owner id, or "" when signed out.
type OwnerProvider interface {
	OwnerID() string
}

// Worker executes upload jobs. It satisfies jobs.Executor.
type Worker struct {
	store *store.Store
	docs  remote.DocumentStore
	blobs remote.BlobStore
	owner OwnerProvider
	log   logging.Logger
}

func NewWorker(st *store.Store, docs remote.DocumentStore, blobs remote.BlobStore, owner OwnerProvider, log logging.Logger) *Worker {
	return &Worker{
		store: st,
		docs:  docs,
		blobs: blobs,
		owner: owner,
		log:   log.With("component", "uploader"),
	}
}

// Execute runs one upload job. A nil return completes the job; an error
// wrapping common.ErrBadPayload drops it; any other error asks the
// scheduler to redeliver later, leaving the record pendingUpload in the
// meantime.
func (w *Worker) Execute(ctx context.Context, payload []byte) error {
	p, err := models.DecodeUploadPayload(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrBadPayload, err)
	}

	ownerID := w.owner.OwnerID()
	if ownerID == "" {
		// Retry once someone signs back in.
		return common.ErrNotSignedIn
	}

	imageRef := p.RemoteImageRef

	switch {
	case p.LocalImagePath == "":
		// Nothing to upload; fall through to the record write.

	case !filex.Exists(p.LocalImagePath):
		// The local file vanished between enqueue and execution. Retrying
		// cannot bring it back, so finish the job with whatever remote
		// reference already exists instead of wedging the record.
		w.log.Warn(ctx, "local image missing at upload time, skipping upload", "id", p.ID, "path", p.LocalImagePath)

	default:
		compressed, err := compressJPEG(p.LocalImagePath, maxUploadBytes)
		if err != nil {
			return fmt.Errorf("compress image %s: %w", p.ID, err)
		}

		key := remote.NewBlobKey(ownerID)
		body := progress.NewReader(bytes.NewReader(compressed), int64(len(compressed)), func(pct int) {
			w.publishProgress(ctx, p.ID, pct)
		})

		ref, err := w.blobs.Put(ctx, key, body, int64(len(compressed)))
		if err != nil {
			return fmt.Errorf("upload image %s: %w", p.ID, err)
		}
		imageRef = ref
		w.log.Info(ctx, "image uploaded", "id", p.ID, "ref", ref)

		// Image replacement: the superseded blob becomes garbage. Failing
		// to delete it leaks one orphan blob, which is not worth a retry.
		if p.PreviousImageRef != "" && p.PreviousImageRef != ref {
			if err := w.blobs.Delete(ctx, p.PreviousImageRef); err != nil {
				w.log.Error(ctx, "failed to delete superseded blob", "id", p.ID, "ref", p.PreviousImageRef, "error", err)
			}
		}
	}

	if err := filex.Remove(p.LocalImagePath); err != nil {
		w.log.Warn(ctx, "failed to remove local image", "id", p.ID, "error", err)
	}

	final := models.Receipt{
		ID:             p.ID,
		Name:           p.Name,
		Store:          p.Store,
		Date:           p.Date,
		Price:          p.Price,
		RemoteImageRef: imageRef,
		PendingUpload:  false,
	}

	if err := w.docs.Put(ctx, ownerID, p.ID, final); err != nil {
		return fmt.Errorf("write record %s: %w", p.ID, err)
	}

	if err := w.mergeLocal(ctx, final); err != nil {
		return fmt.Errorf("merge record %s into cache: %w", p.ID, err)
	}
	return nil
}

// publishProgress mirrors the quantized upload percentage into the cached
// record so the UI can render it. Best effort: a failed write only costs a
// progress update.
func (w *Worker) publishProgress(ctx context.Context, id string, pct int) {
	err := w.store.UpdateReceipts(ctx, func(items []models.Receipt) ([]models.Receipt, bool) {
		changed := false
		for i := range items {
			if items[i].ID == id {
				p := pct
				items[i].UploadProgress = &p
				items[i].PendingUpload = true
				changed = true
			}
		}
		return items, changed
	})
	if err != nil {
		w.log.Warn(ctx, "failed to save progress update", "id", id, "error", err)
	}
}

// mergeLocal replaces the cached record sharing the final record's id.
// A record deleted while its upload was in flight stays deleted: merge
// never resurrects.
func (w *Worker) mergeLocal(ctx context.Context, final models.Receipt) error {
	return w.store.UpdateReceipts(ctx, func(items []models.Receipt) ([]models.Receipt, bool) {
		for i := range items {
			if items[i].ID == final.ID {
				items[i] = final
				return items, true
			}
		}
		return items, false
	})
}
