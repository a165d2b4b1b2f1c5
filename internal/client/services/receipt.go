// Package services implements the sync coordinator: the single owner of the
// authoritative receipt collection, orchestrating cache load, remote
// pull/merge, local mutation, and dispatch of durable upload jobs.
package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mhadley/receiptvault/internal/client/imagecache"
	"github.com/mhadley/receiptvault/internal/client/jobs"
	"github.com/mhadley/receiptvault/internal/client/models"
	"github.com/mhadley/receiptvault/internal/client/remote"
	"github.com/mhadley/receiptvault/internal/client/store"
	"github.com/mhadley/receiptvault/internal/client/uploader"
	"github.com/mhadley/receiptvault/internal/filex"
	"github.com/mhadley/receiptvault/internal/logging"
)

// OwnerProvider reports the signed-in owner id, or "" when signed out.
type OwnerProvider interface {
	OwnerID() string
}

// ReceiptService owns the in-memory receipt collection. All reads and
// mutations of the in-memory snapshot go through its mutex; the download
// write-back path, which runs concurrently with user edits and upload
// merges, persists through the store's transactional update instead and
// reaches memory via the watch channel.
type ReceiptService struct {
	store *store.Store
	docs  remote.DocumentStore
	blobs remote.BlobStore
	cache *imagecache.Tracker
	sched jobs.Scheduler
	owner OwnerProvider
	log   logging.Logger

	mu      sync.Mutex
	items   []models.Receipt
	loading bool
	query   string
	byStore string

	// bg tracks fire-and-forget remote deletes so tests and shutdown can
	// wait for them.
	bg sync.WaitGroup
}

func NewReceiptService(st *store.Store, docs remote.DocumentStore, blobs remote.BlobStore,
	cache *imagecache.Tracker, sched jobs.Scheduler, owner OwnerProvider, log logging.Logger) *ReceiptService {
	return &ReceiptService{
		store: st,
		docs:  docs,
		blobs: blobs,
		cache: cache,
		sched: sched,
		owner: owner,
		log:   log.With("component", "receipts"),
	}
}

// LoadCached subscribes to the local cache store. The first snapshot is
// reconciled synchronously before LoadCached returns: stale upload progress
// is cleared, pending flags whose staged file vanished are force-cleared,
// the corrected collection is persisted, and every still-pending record with
// a present file is re-dispatched to the upload pipeline. Re-dispatch uses
// KEEP, so a job that survived the restart in the queue is left untouched.
// Later snapshots are consumed in the background until ctx is cancelled;
// every snapshot, first and later, triggers a cache hydration pass.
func (s *ReceiptService) LoadCached(ctx context.Context) error {
	ch, err := s.store.WatchReceipts(ctx)
	if err != nil {
		return err
	}

	if first, ok := <-ch; ok {
		reconciled, err := s.reconcile(ctx, first)
		if err != nil {
			return err
		}
		s.apply(reconciled)
	}

	go func() {
		for snapshot := range ch {
			s.apply(snapshot)
		}
	}()
	return nil
}

// reconcile applies the cold-start corrections to the first persisted
// snapshot and re-dispatches pending uploads.
func (s *ReceiptService) reconcile(ctx context.Context, items []models.Receipt) ([]models.Receipt, error) {
	changed := false
	for i := range items {
		// No upload can be in flight immediately after a cold start.
		if items[i].UploadProgress != nil {
			items[i].UploadProgress = nil
			changed = true
		}
		if items[i].PendingUpload && !filex.Exists(items[i].LocalImagePath) {
			s.log.Warn(ctx, "pending upload lost its staged file, clearing flag", "id", items[i].ID)
			items[i].PendingUpload = false
			items[i].LocalImagePath = ""
			changed = true
		}
	}
	if changed {
		if err := s.store.SaveReceipts(ctx, items); err != nil {
			return nil, err
		}
	}

	for _, r := range items {
		if !r.PendingUpload {
			continue
		}
		payload, err := models.UploadPayloadFor(r, "").Encode()
		if err != nil {
			s.log.Error(ctx, "failed to encode upload payload", "id", r.ID, "error", err)
			continue
		}
		if err := s.sched.EnqueueUnique(ctx, uploader.JobKey(r.ID), jobs.PolicyKeep, payload); err != nil {
			s.log.Error(ctx, "failed to re-dispatch pending upload", "id", r.ID, "error", err)
		}
	}
	return items, nil
}

func (s *ReceiptService) apply(snapshot []models.Receipt) {
	s.mu.Lock()
	s.items = snapshot
	s.mu.Unlock()
	s.cache.Hydrate(snapshot)
}

// LoadFromRemote pulls the full remote collection, merges it with the local
// one, persists the result, and prefetches missing images. The merge never
// erases machine-local state: LocalImagePath and PendingUpload carry over
// from the local record, and a locally created record whose upload has not
// landed remotely yet is kept rather than dropped. Failure is logged and
// swallowed; the last good local snapshot stays authoritative. Signed-out
// calls are silent no-ops.
func (s *ReceiptService) LoadFromRemote(ctx context.Context) {
	ownerID := s.owner.OwnerID()
	if ownerID == "" {
		return
	}

	s.setLoading(true)
	defer s.setLoading(false)

	incoming, err := s.docs.GetCollection(ctx, ownerID)
	if err != nil {
		s.log.Error(ctx, "remote pull failed, keeping local snapshot", "error", err)
		return
	}

	s.mu.Lock()
	local := make(map[string]models.Receipt, len(s.items))
	for _, r := range s.items {
		local[r.ID] = r
	}

	merged := make([]models.Receipt, 0, len(incoming))
	seen := make(map[string]struct{}, len(incoming))
	for _, in := range incoming {
		seen[in.ID] = struct{}{}
		if cur, ok := local[in.ID]; ok {
			if in.LocalImagePath == "" {
				in.LocalImagePath = cur.LocalImagePath
			}
			in.PendingUpload = cur.PendingUpload
		}
		merged = append(merged, in)
	}
	// A pending record the remote store has not seen yet must survive the
	// pull, or its completed upload would have nothing to merge into.
	for _, r := range s.items {
		if _, ok := seen[r.ID]; !ok && r.PendingUpload {
			merged = append(merged, r)
		}
	}
	s.items = merged
	s.mu.Unlock()

	if err := s.store.SaveReceipts(ctx, merged); err != nil {
		s.log.Error(ctx, "failed to persist merged collection", "error", err)
		return
	}
	s.cache.Prefetch(ctx, merged, s.recordDownloaded)
}

// recordDownloaded is the prefetch write-back: it stores the freshly
// downloaded file path on the record. It runs concurrently with user edits
// and upload merges, so it must never touch the published in-memory slice
// or overwrite the full snapshot from possibly stale state. It mutates only
// the matching record inside the store's transactional update; the watcher
// delivers the resulting snapshot back into memory.
func (s *ReceiptService) recordDownloaded(ctx context.Context, id, localPath string) error {
	return s.store.UpdateReceipts(ctx, func(items []models.Receipt) ([]models.Receipt, bool) {
		for i := range items {
			if items[i].ID == id {
				items[i].LocalImagePath = localPath
				return items, true
			}
		}
		// Deleted while its download was in flight.
		return items, false
	})
}

// Add inserts a receipt. An empty id gets a generated one. With an attached
// image file the record is marked pending and a durable upload job is
// dispatched; without one the remote document is written directly, best
// effort.
func (s *ReceiptService) Add(ctx context.Context, r models.Receipt) (models.Receipt, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return s.put(ctx, r, "")
}

// Update replaces the receipt sharing r's id. Attaching a new image marks
// the record pending and dispatches an upload job under REPLACE, carrying
// the superseded remote reference so the pipeline can delete the old blob.
func (s *ReceiptService) Update(ctx context.Context, r models.Receipt) (models.Receipt, error) {
	previousRef := ""
	s.mu.Lock()
	for _, cur := range s.items {
		if cur.ID == r.ID && r.LocalImagePath != "" && cur.RemoteImageRef != "" {
			previousRef = cur.RemoteImageRef
		}
	}
	s.mu.Unlock()
	return s.put(ctx, r, previousRef)
}

func (s *ReceiptService) put(ctx context.Context, r models.Receipt, previousRef string) (models.Receipt, error) {
	r.UploadProgress = nil
	r.PendingUpload = r.LocalImagePath != "" && filex.Exists(r.LocalImagePath)
	if r.LocalImagePath != "" && !r.PendingUpload {
		s.log.Warn(ctx, "attached image file not found, saving record without it", "id", r.ID, "path", r.LocalImagePath)
		r.LocalImagePath = ""
	}

	s.mu.Lock()
	s.items = models.ReplaceByID(s.items, r)
	s.mu.Unlock()

	// Persist only this record. A full-snapshot save here could overwrite a
	// download write-back that committed after our in-memory read.
	if err := s.store.UpdateReceipts(ctx, func(items []models.Receipt) ([]models.Receipt, bool) {
		return models.ReplaceByID(items, r), true
	}); err != nil {
		return models.Receipt{}, err
	}

	if r.PendingUpload {
		payload, err := models.UploadPayloadFor(r, previousRef).Encode()
		if err != nil {
			return models.Receipt{}, err
		}
		policy := jobs.PolicyKeep
		if previousRef != "" {
			policy = jobs.PolicyReplace
		}
		if err := s.sched.EnqueueUnique(ctx, uploader.JobKey(r.ID), policy, payload); err != nil {
			return models.Receipt{}, err
		}
		return r, nil
	}

	// No image to mirror, so the durable pipeline has nothing to do. Write
	// the document now when signed in; offline failure is tolerated, the
	// local copy stays authoritative.
	if ownerID := s.owner.OwnerID(); ownerID != "" {
		if err := s.docs.Put(ctx, ownerID, r.ID, r); err != nil {
			s.log.Warn(ctx, "failed to write remote document", "id", r.ID, "error", err)
		}
	}
	return r, nil
}

// Delete removes the receipt, cancels its upload job, evicts its cache
// entries and local files, and fires a background delete of the remote
// document and blob. The remote deletes are fire and forget: sign-out or
// shutdown does not wait for them beyond Wait.
func (s *ReceiptService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	var victim *models.Receipt
	kept := s.items[:0:0]
	for _, r := range s.items {
		if r.ID == id {
			v := r
			victim = &v
			continue
		}
		kept = append(kept, r)
	}
	s.items = kept
	s.mu.Unlock()

	if victim == nil {
		return nil
	}

	if err := s.store.SaveReceipts(ctx, kept); err != nil {
		return err
	}
	if err := s.sched.Cancel(ctx, uploader.JobKey(id)); err != nil {
		s.log.Warn(ctx, "failed to cancel upload job", "id", id, "error", err)
	}
	s.cache.Evict(id)
	if err := filex.Remove(victim.LocalImagePath); err != nil {
		s.log.Warn(ctx, "failed to remove staged image", "id", id, "error", err)
	}

	ownerID := s.owner.OwnerID()
	if ownerID == "" {
		return nil
	}
	ref := victim.RemoteImageRef
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if err := s.docs.Delete(ctx, ownerID, id); err != nil {
			s.log.Error(ctx, "failed to delete remote document", "id", id, "error", err)
		}
		if ref != "" {
			if err := s.blobs.Delete(ctx, ref); err != nil {
				s.log.Error(ctx, "failed to delete remote blob", "id", id, "ref", ref, "error", err)
			}
		}
	}()
	return nil
}

// RetryMissingImageDownloads re-runs the prefetch pass over the current
// collection, picking up records whose downloads previously failed.
func (s *ReceiptService) RetryMissingImageDownloads(ctx context.Context) {
	s.mu.Lock()
	snapshot := s.items
	s.mu.Unlock()
	s.cache.Prefetch(ctx, snapshot, s.recordDownloaded)
}

// Clear empties the in-memory collection and presentation state.
func (s *ReceiptService) Clear() {
	s.mu.Lock()
	s.items = nil
	s.query = ""
	s.byStore = ""
	s.mu.Unlock()
}

// ClearLocalCache wipes the persisted receipt collection. Used on sign-out
// together with Clear and ClearCachedImages.
func (s *ReceiptService) ClearLocalCache(ctx context.Context) error {
	return s.store.ClearReceipts(ctx)
}

// ClearCachedImages drops the tracker state and deletes every cached image
// file.
func (s *ReceiptService) ClearCachedImages() {
	s.cache.Clear()
}

// CacheStatuses returns the image cache status of every tracked record.
func (s *ReceiptService) CacheStatuses() map[string]models.CacheStatus {
	return s.cache.StatusMap()
}

// CachedImagePath returns the on-disk path of the record's image, either
// the staged upload file or the downloaded cache file.
func (s *ReceiptService) CachedImagePath(id string) (string, bool) {
	r, ok := s.GetByID(id)
	if !ok {
		return "", false
	}
	if filex.Exists(r.LocalImagePath) {
		return r.LocalImagePath, true
	}
	if path := s.cache.CachedPath(id); filex.Exists(path) {
		return path, true
	}
	return "", false
}

// GetByID looks up a receipt in the current snapshot.
func (s *ReceiptService) GetByID(id string) (models.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.items {
		if r.ID == id {
			return r, true
		}
	}
	return models.Receipt{}, false
}

// Receipts returns the current collection filtered by the search query and
// the selected store, in stored order.
func (s *ReceiptService) Receipts() []models.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Receipt, 0, len(s.items))
	for _, r := range s.items {
		if s.byStore != "" && r.Store != s.byStore {
			continue
		}
		if s.query != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(s.query)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Stores returns the distinct store names in the collection, sorted.
func (s *ReceiptService) Stores() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.items {
		if r.Store == "" {
			continue
		}
		if _, ok := seen[r.Store]; ok {
			continue
		}
		seen[r.Store] = struct{}{}
		out = append(out, r.Store)
	}
	sort.Strings(out)
	return out
}

// SetQuery sets the name search filter.
func (s *ReceiptService) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

// SetStoreFilter restricts Receipts to one store name; "" clears it.
func (s *ReceiptService) SetStoreFilter(name string) {
	s.mu.Lock()
	s.byStore = name
	s.mu.Unlock()
}

// Loading reports whether a remote pull is in progress.
func (s *ReceiptService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *ReceiptService) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Wait blocks until fire-and-forget background deletes have finished.
func (s *ReceiptService) Wait() {
	s.bg.Wait()
}
