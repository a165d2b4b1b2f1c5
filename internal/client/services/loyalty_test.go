package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/mhadley/receiptvault/internal/client/models"
	"github.com/mhadley/receiptvault/internal/client/store"
	"github.com/mhadley/receiptvault/internal/common"
	"github.com/mhadley/receiptvault/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupLoyalty(t *testing.T) *LoyaltyService {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS collections (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	return NewLoyaltyService(store.New(db, logging.NewDiscardLogger()), logging.NewDiscardLogger())
}

func TestLoyalty_AddAssignsIDAndSortOrder(t *testing.T) {
	ctx := context.Background()
	s := setupLoyalty(t)

	first, err := s.Add(ctx, models.NewLoyaltyCard("", "CoOp", "EAN_13", "4006381333931"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, 0, first.SortOrder)

	second, err := s.Add(ctx, models.NewLoyaltyCard("", "Lidl", "QR_CODE", "lidl-123"))
	require.NoError(t, err)
	require.Equal(t, 1, second.SortOrder)
}

func TestLoyalty_RoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	s := setupLoyalty(t)

	added, err := s.Add(ctx, models.NewLoyaltyCard("", "CoOp", "EAN_13", "4006381333931"))
	require.NoError(t, err)

	reloaded := NewLoyaltyService(s.store, logging.NewDiscardLogger())
	require.NoError(t, reloaded.LoadCached(ctx))

	got, ok := reloaded.GetByID(added.ID)
	require.True(t, ok)
	require.Equal(t, "CoOp", got.Name)
	require.Equal(t, "4006381333931", got.BarcodeValue)
}

func TestLoyalty_UpdateUnknownID(t *testing.T) {
	s := setupLoyalty(t)

	err := s.Update(context.Background(), models.LoyaltyCard{ID: "ghost", Name: "x"})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLoyalty_DeleteAndOrdering(t *testing.T) {
	ctx := context.Background()
	s := setupLoyalty(t)

	a, err := s.Add(ctx, models.NewLoyaltyCard("", "A", "EAN_13", "1"))
	require.NoError(t, err)
	b, err := s.Add(ctx, models.NewLoyaltyCard("", "B", "EAN_13", "2"))
	require.NoError(t, err)
	_, err = s.Add(ctx, models.NewLoyaltyCard("", "C", "EAN_13", "3"))
	require.NoError(t, err)

	// Move B ahead of A.
	b.SortOrder = -1
	require.NoError(t, s.Update(ctx, b))

	cards := s.Cards()
	require.Equal(t, "B", cards[0].Name)
	require.Equal(t, "A", cards[1].Name)

	require.NoError(t, s.Delete(ctx, a.ID))
	require.Len(t, s.Cards(), 2)
	require.NoError(t, s.Delete(ctx, "ghost"))
	require.Len(t, s.Cards(), 2)
}

func TestLoyalty_ClearLocalCache(t *testing.T) {
	ctx := context.Background()
	s := setupLoyalty(t)

	_, err := s.Add(ctx, models.NewLoyaltyCard("", "CoOp", "EAN_13", "1"))
	require.NoError(t, err)
	require.NoError(t, s.ClearLocalCache(ctx))

	require.Empty(t, s.Cards())
	items, err := s.store.LoadLoyaltyCards(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
}
