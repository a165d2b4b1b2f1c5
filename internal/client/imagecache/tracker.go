// Package imagecache tracks, per record, whether its image is present in
// the local file cache, and pulls missing images from the remote blob store
// through a bounded-concurrency prefetch pipeline.
package imagecache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"

	"github.com/mhadley/receiptvault/internal/client/models"
	"github.com/mhadley/receiptvault/internal/client/remote"
	"github.com/mhadley/receiptvault/internal/filex"
	"github.com/mhadley/receiptvault/internal/logging"
	"github.com/mhadley/receiptvault/internal/progress"
)

const (
	maxConcurrentDownloads = 10
	downloadAttempts       = 3
)

// WriteBack is called after a successful download so the owner of the
// record collection can store the new local file reference. It runs
// concurrently with user-initiated edits; the implementation must
// serialize against them.
type WriteBack func(ctx context.Context, id, localPath string) error

// Tracker owns the ephemeral cache-status and download-progress maps.
// Both are process-lifetime state, rebuilt on every cold start by Hydrate.
type Tracker struct {
	dir   string
	blobs remote.BlobStore
	log   logging.Logger
	sem   *semaphore.Weighted

	// backoffUnit is the linear backoff step between download attempts.
	backoffUnit time.Duration

	mu       sync.Mutex
	status   map[string]models.CacheStatus
	progress map[string]int

	wg sync.WaitGroup
}

func New(dir string, blobs remote.BlobStore, log logging.Logger) *Tracker {
	return &Tracker{
		dir:         dir,
		blobs:       blobs,
		log:         log.With("component", "imagecache"),
		sem:         semaphore.NewWeighted(maxConcurrentDownloads),
		backoffUnit: time.Second,
		status:      make(map[string]models.CacheStatus),
		progress:    make(map[string]int),
	}
}

// CachedPath returns where the image for a record id lives on disk.
func (t *Tracker) CachedPath(id string) string {
	return filepath.Join(t.dir, id+".jpg")
}

// Status returns the cache status for a record id. Unknown ids report
// NOT_CACHED.
func (t *Tracker) Status(id string) models.CacheStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.status[id]; ok {
		return s
	}
	return models.CacheStatusNotCached
}

// StatusMap returns a copy of the full status map.
func (t *Tracker) StatusMap() map[string]models.CacheStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]models.CacheStatus, len(t.status))
	for k, v := range t.status {
		out[k] = v
	}
	return out
}

// Progress returns the quantized download percentage for a record id.
func (t *Tracker) Progress(id string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.progress[id]
	return p, ok
}

// ProgressMap returns a copy of the full progress map.
func (t *Tracker) ProgressMap() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.progress))
	for k, v := range t.progress {
		out[k] = v
	}
	return out
}

func (t *Tracker) setStatus(id string, s models.CacheStatus) {
	t.mu.Lock()
	t.status[id] = s
	t.mu.Unlock()
}

func (t *Tracker) setProgress(id string, pct int) {
	t.mu.Lock()
	t.progress[id] = pct
	t.mu.Unlock()
}

func (t *Tracker) clearProgress(id string) {
	t.mu.Lock()
	delete(t.progress, id)
	t.mu.Unlock()
}

// Hydrate rebuilds the status map for the given records by probing local
// state only; it never touches the network.
func (t *Tracker) Hydrate(records []models.Receipt) {
	for _, r := range records {
		switch {
		case filex.Exists(r.LocalImagePath):
			t.setStatus(r.ID, models.CacheStatusCached)
		case r.RemoteImageRef != "":
			if filex.Exists(t.CachedPath(r.ID)) {
				t.setStatus(r.ID, models.CacheStatusCached)
			} else {
				t.setStatus(r.ID, models.CacheStatusNotCached)
			}
		default:
			t.setStatus(r.ID, models.CacheStatusNotCached)
		}
	}
}

// Prefetch pulls the images of records that have a remote reference but no
// cached copy. Downloads run in the background under a concurrency limit;
// each successful download is written back into the record collection via
// writeBack.
func (t *Tracker) Prefetch(ctx context.Context, records []models.Receipt, writeBack WriteBack) {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.RemoteImageRef == "" {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		if filex.Exists(t.CachedPath(r.ID)) || filex.Exists(r.LocalImagePath) {
			t.setStatus(r.ID, models.CacheStatusCached)
			continue
		}
		if t.Status(r.ID) == models.CacheStatusDownloading {
			continue
		}

		t.setStatus(r.ID, models.CacheStatusDownloading)
		t.wg.Add(1)
		go t.fetch(ctx, r.ID, r.RemoteImageRef, writeBack)
	}
}

func (t *Tracker) fetch(ctx context.Context, id, ref string, writeBack WriteBack) {
	defer t.wg.Done()

	if err := t.sem.Acquire(ctx, 1); err != nil {
		t.setStatus(id, models.CacheStatusFailed)
		t.clearProgress(id)
		return
	}
	defer t.sem.Release(1)

	var localPath string
	attempt := 0
	backoff := retry.WithMaxRetries(downloadAttempts-1, retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * t.backoffUnit, false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		path, derr := t.download(ctx, id, ref)
		if derr != nil {
			return retry.RetryableError(derr)
		}
		localPath = path
		return nil
	})
	if err != nil {
		t.log.Error(ctx, "image download failed after retries", "id", id, "attempts", downloadAttempts, "error", err)
		t.setStatus(id, models.CacheStatusFailed)
		t.clearProgress(id)
		return
	}

	if writeBack != nil {
		if err := writeBack(ctx, id, localPath); err != nil {
			t.log.Error(ctx, "failed to record downloaded image", "id", id, "error", err)
		}
	}
	t.setStatus(id, models.CacheStatusCached)
}

// download streams the blob to the record's cache file, publishing
// quantized progress. The progress entry is removed once the transfer
// terminates.
func (t *Tracker) download(ctx context.Context, id, ref string) (string, error) {
	body, length, err := t.blobs.Open(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("open blob: %w", err)
	}
	defer body.Close()

	if _, err := filex.EnsureDir(t.dir); err != nil {
		return "", err
	}

	path := t.CachedPath(id)
	reader := progress.NewReader(body, length, func(pct int) {
		t.setProgress(id, pct)
	})
	if err := writeFile(path, reader); err != nil {
		return "", err
	}

	t.clearProgress(id)
	return path, nil
}

// Evict removes a record's entries from both maps and deletes its cached
// file. Used when the record is deleted.
func (t *Tracker) Evict(id string) {
	t.mu.Lock()
	delete(t.status, id)
	delete(t.progress, id)
	t.mu.Unlock()

	if err := filex.Remove(t.CachedPath(id)); err != nil {
		t.log.Warn(context.Background(), "failed to remove cached image", "id", id, "error", err)
	}
}

// Clear drops all ephemeral state and removes every cached image file.
// Used on sign-out.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.status = make(map[string]models.CacheStatus)
	t.progress = make(map[string]int)
	t.mu.Unlock()

	if err := filex.RemoveAllFiles(t.dir); err != nil {
		t.log.Warn(context.Background(), "failed to clear image cache dir", "dir", t.dir, "error", err)
	}
}

// Wait blocks until all in-flight downloads have terminated.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
