package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/mhadley/receiptvault/internal/client/models"
	"github.com/mhadley/receiptvault/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS collections (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	return New(db, logging.NewDiscardLogger())
}

func sampleReceipts() []models.Receipt {
	return []models.Receipt{
		{ID: "r1", Name: "Milk", Store: "CoOp", Date: models.DateOf(2024, time.May, 1), Price: 3.49},
		{ID: "r2", Name: "Bread", Store: "Lidl", Date: models.DateOf(2024, time.May, 2), Price: 1.20,
			RemoteImageRef: "users/u/images/b.jpg"},
	}
}

func recvSnapshot(t *testing.T, ch <-chan []models.Receipt) []models.Receipt {
	t.Helper()
	select {
	case items := <-ch:
		return items
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveReceipts(ctx, sampleReceipts()))

	got, err := s.LoadReceipts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Milk", got[0].Name)
	require.Equal(t, "2024-05-02", got[1].Date.String())
}

func TestStore_LoadEmptyWhenNothingStored(t *testing.T) {
	s := setupStore(t)

	got, err := s.LoadReceipts(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStore_CorruptBlobDegradesToEmpty(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.set(ctx, s.db, KeyReceipts, []byte("{{{ not json")))

	got, err := s.LoadReceipts(ctx)
	require.NoError(t, err, "corruption must not escape the store boundary")
	require.Empty(t, got)
}

func TestStore_LegacyBareArrayStillDecodes(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	legacy := []byte(`[{"id":"r1","name":"Milk","store":"CoOp","date":"2024-05-01","price":3.49}]`)
	require.NoError(t, s.set(ctx, s.db, KeyReceipts, legacy))

	got, err := s.LoadReceipts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "r1", got[0].ID)
}

func TestStore_NewerEnvelopeVersionDegradesToEmpty(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.set(ctx, s.db, KeyReceipts, []byte(`{"version":99,"items":[{"id":"r1"}]}`)))

	got, err := s.LoadReceipts(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStore_WatchEmitsCurrentThenOnEverySave(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.SaveReceipts(ctx, sampleReceipts()))

	ch, err := s.WatchReceipts(ctx)
	require.NoError(t, err)

	first := recvSnapshot(t, ch)
	require.Len(t, first, 2, "subscription must emit the current value at least once")

	updated := append(sampleReceipts(), models.Receipt{ID: "r3", Name: "Eggs"})
	require.NoError(t, s.SaveReceipts(ctx, updated))

	second := recvSnapshot(t, ch)
	require.Len(t, second, 3)
}

func TestStore_WatchSubscribeDuringSaves(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			_ = s.SaveReceipts(ctx, []models.Receipt{{ID: "r", Name: fmt.Sprintf("v%d", i)}})
		}
	}()

	var channels []<-chan []models.Receipt
	for i := 0; i < 10; i++ {
		ch, err := s.WatchReceipts(ctx)
		require.NoError(t, err)
		channels = append(channels, ch)
	}
	<-done

	// Every subscriber must end up on the final save: either its initial
	// snapshot already includes it, or the notification replaced the older
	// one (latest-wins). A save landing between the initial read and the
	// watcher registration must not be skipped.
	for _, ch := range channels {
		got := recvSnapshot(t, ch)
		require.Len(t, got, 1)
		require.Equal(t, "v24", got[0].Name)
	}
}

func TestStore_WatchLatestWins(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.WatchReceipts(ctx)
	require.NoError(t, err)

	// Nobody reads while several saves land: only the newest must survive.
	for i := 1; i <= 5; i++ {
		items := make([]models.Receipt, i)
		for j := range items {
			items[j] = models.Receipt{ID: string(rune('a' + j))}
		}
		require.NoError(t, s.SaveReceipts(ctx, items))
	}

	got := recvSnapshot(t, ch)
	require.Len(t, got, 5)
}

func TestStore_WatchClosesOnCancel(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.WatchReceipts(ctx)
	require.NoError(t, err)
	recvSnapshot(t, ch)

	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok, "channel must be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestStore_ClearReceipts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveReceipts(ctx, sampleReceipts()))
	require.NoError(t, s.ClearReceipts(ctx))

	got, err := s.LoadReceipts(ctx)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStore_LoyaltyCardsIndependentOfReceipts(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveReceipts(ctx, sampleReceipts()))
	require.NoError(t, s.SaveLoyaltyCards(ctx, []models.LoyaltyCard{
		models.NewLoyaltyCard("c1", "Tesco Clubcard", "EAN_13", "5012345678900"),
	}))

	cards, err := s.LoadLoyaltyCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "Tesco Clubcard", cards[0].Name)

	require.NoError(t, s.ClearLoyaltyCards(ctx))
	cards, err = s.LoadLoyaltyCards(ctx)
	require.NoError(t, err)
	require.Empty(t, cards)

	receipts, err := s.LoadReceipts(ctx)
	require.NoError(t, err)
	require.Len(t, receipts, 2, "clearing cards must not touch receipts")
}

func TestStore_ClearWipesEverything(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveReceipts(ctx, sampleReceipts()))
	require.NoError(t, s.SaveLoyaltyCards(ctx, []models.LoyaltyCard{{ID: "c1", Name: "X"}}))

	require.NoError(t, s.Clear(ctx))

	receipts, err := s.LoadReceipts(ctx)
	require.NoError(t, err)
	require.Empty(t, receipts)
	cards, err := s.LoadLoyaltyCards(ctx)
	require.NoError(t, err)
	require.Empty(t, cards)
}

func TestStore_UpdateReceipts(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.SaveReceipts(ctx, sampleReceipts()))

	ch, err := s.WatchReceipts(ctx)
	require.NoError(t, err)
	recvSnapshot(t, ch)

	require.NoError(t, s.UpdateReceipts(ctx, func(items []models.Receipt) ([]models.Receipt, bool) {
		for i := range items {
			if items[i].ID == "r1" {
				items[i].Name = "Oat Milk"
				return items, true
			}
		}
		return items, false
	}))

	got := recvSnapshot(t, ch)
	require.Equal(t, "Oat Milk", got[0].Name)

	// An unchanged mutate writes and notifies nothing.
	require.NoError(t, s.UpdateReceipts(ctx, func(items []models.Receipt) ([]models.Receipt, bool) {
		return items, false
	}))
	select {
	case snap := <-ch:
		t.Fatalf("unexpected notification: %v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStore_PersistedProgressSurvivesRoundTrip(t *testing.T) {
	// The store itself is dumb: it keeps whatever it is given. Resetting
	// uploadProgress on cold start is the coordinator's job.
	s := setupStore(t)
	ctx := context.Background()

	pct := 42
	require.NoError(t, s.SaveReceipts(ctx, []models.Receipt{
		{ID: "r1", PendingUpload: true, UploadProgress: &pct, LocalImagePath: "/tmp/x.jpg"},
	}))

	got, err := s.LoadReceipts(ctx)
	require.NoError(t, err)
	require.NotNil(t, got[0].UploadProgress)
	require.Equal(t, 42, *got[0].UploadProgress)
}
