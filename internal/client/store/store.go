// Package store implements the local cache store: durable persistence of
// the serialized record collections with observer semantics on load.
//
// Each entity type lives under one stable key as a single serialized blob
// (last-writer-wins overwrite, not incremental). Corruption never propagates
// past the store boundary; it degrades to an empty collection.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mhadley/receiptvault/internal/client/models"
	"github.com/mhadley/receiptvault/internal/dbx"
	"github.com/mhadley/receiptvault/internal/logging"
)

// Stable collection keys.
const (
	KeyReceipts     = "receipts"
	KeyLoyaltyCards = "loyalty_cards"
)

// envelopeVersion tags the persisted blob so a future field rename does not
// silently drop data on decode. Version 0 is the bare legacy array.
const envelopeVersion = 1

type envelope struct {
	Version int             `json:"version"`
	Items   json.RawMessage `json:"items"`
}

// Store persists collections in the client sqlite database and notifies
// watchers on every save.
type Store struct {
	db  *sql.DB
	log logging.Logger

	mu       sync.Mutex
	watchers map[*watcher]struct{}
}

type watcher struct {
	ch chan []models.Receipt
}

func New(db *sql.DB, log logging.Logger) *Store {
	return &Store{
		db:       db,
		log:      log.With("component", "store"),
		watchers: make(map[*watcher]struct{}),
	}
}

func (s *Store) set(ctx context.Context, h dbx.DBTX, key string, value []byte) error {
	_, err := h.ExecContext(ctx, `
		INSERT INTO collections (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set collections[%s]: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, h dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := h.QueryRowContext(ctx, `SELECT value FROM collections WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collections[%s]: %w", key, err)
	}
	return value, nil
}

func (s *Store) save(ctx context.Context, h dbx.DBTX, key string, items any) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	blob, err := json.Marshal(envelope{Version: envelopeVersion, Items: raw})
	if err != nil {
		return fmt.Errorf("failed to wrap %s: %w", key, err)
	}
	return s.set(ctx, h, key, blob)
}

// load decodes the blob stored under key into dest. Corruption, an unknown
// envelope version, or an absent key all leave dest at its zero value.
func (s *Store) load(ctx context.Context, h dbx.DBTX, key string, dest any) error {
	blob, err := s.get(ctx, h, key)
	if err != nil {
		return err
	}
	if len(blob) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		// Version 0: the blob is the bare items array.
		if err := json.Unmarshal(blob, dest); err != nil {
			s.log.Warn(ctx, "corrupt collection blob, treating as empty", "key", key, "error", err)
		}
		return nil
	}
	if env.Version > envelopeVersion {
		s.log.Warn(ctx, "collection blob from a newer schema, treating as empty",
			"key", key, "version", env.Version)
		return nil
	}
	if len(env.Items) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Items, dest); err != nil {
		s.log.Warn(ctx, "corrupt collection items, treating as empty", "key", key, "error", err)
	}
	return nil
}

// SaveReceipts durably persists the full receipt collection and notifies
// every watcher with the new snapshot.
func (s *Store) SaveReceipts(ctx context.Context, items []models.Receipt) error {
	if err := s.save(ctx, s.db, KeyReceipts, items); err != nil {
		return err
	}
	s.notify(items)
	return nil
}

// LoadReceipts returns the persisted receipt collection, or an empty one
// when nothing was stored or the blob cannot be decoded.
func (s *Store) LoadReceipts(ctx context.Context) ([]models.Receipt, error) {
	var items []models.Receipt
	if err := s.load(ctx, s.db, KeyReceipts, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateReceipts applies mutate to the persisted collection inside one
// transaction, so a concurrent SaveReceipts cannot slip between the read
// and the write. mutate returns the new collection and whether anything
// changed; an unchanged collection is neither written nor notified. The
// upload pipeline uses this for its progress and merge writes, which run
// concurrently with user edits.
func (s *Store) UpdateReceipts(ctx context.Context, mutate func(items []models.Receipt) ([]models.Receipt, bool)) error {
	var out []models.Receipt
	changed := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var items []models.Receipt
		if err := s.load(ctx, tx, KeyReceipts, &items); err != nil {
			return err
		}
		out, changed = mutate(items)
		if !changed {
			return nil
		}
		return s.save(ctx, tx, KeyReceipts, out)
	})
	if err != nil {
		return fmt.Errorf("failed to update receipts: %w", err)
	}
	if changed {
		s.notify(out)
	}
	return nil
}

// WatchReceipts returns a channel that carries the current receipt snapshot
// immediately and a fresh snapshot after every save. Delivery is
// latest-wins: a slow consumer only ever misses intermediate snapshots,
// never the newest one. The channel closes when ctx is cancelled.
func (s *Store) WatchReceipts(ctx context.Context) (<-chan []models.Receipt, error) {
	w := &watcher{ch: make(chan []models.Receipt, 1)}

	// Registration and the initial read share one critical section, so a
	// save cannot land between them and leave the subscriber on a stale
	// snapshot until the next save.
	s.mu.Lock()
	var current []models.Receipt
	if err := s.load(ctx, s.db, KeyReceipts, &current); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.watchers[w] = struct{}{}
	w.ch <- current
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, w)
		close(w.ch)
		s.mu.Unlock()
	}()

	return w.ch, nil
}

// notify pushes snapshot to all watchers, replacing any undelivered one.
// Sends only happen while holding mu, so drain-then-send cannot race.
func (s *Store) notify(snapshot []models.Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watchers {
		select {
		case w.ch <- snapshot:
		default:
			select {
			case <-w.ch:
			default:
			}
			w.ch <- snapshot
		}
	}
}

// ClearReceipts removes the persisted receipt collection and notifies
// watchers with an empty snapshot.
func (s *Store) ClearReceipts(ctx context.Context) error {
	if err := s.deleteKey(ctx, KeyReceipts); err != nil {
		return err
	}
	s.notify(nil)
	return nil
}

// SaveLoyaltyCards durably persists the full loyalty-card collection.
func (s *Store) SaveLoyaltyCards(ctx context.Context, items []models.LoyaltyCard) error {
	return s.save(ctx, s.db, KeyLoyaltyCards, items)
}

func (s *Store) LoadLoyaltyCards(ctx context.Context) ([]models.LoyaltyCard, error) {
	var items []models.LoyaltyCard
	if err := s.load(ctx, s.db, KeyLoyaltyCards, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ClearLoyaltyCards(ctx context.Context) error {
	return s.deleteKey(ctx, KeyLoyaltyCards)
}

func (s *Store) deleteKey(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete collections[%s]: %w", key, err)
	}
	return nil
}

// Clear wipes every persisted collection. Used on sign-out.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM collections`)
	if err != nil {
		return fmt.Errorf("failed to clear collections: %w", err)
	}
	s.notify(nil)
	return nil
}
