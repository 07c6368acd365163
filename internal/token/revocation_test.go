package token

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/risk-assistant/internal/models"
)

func TestMemoryRevocations_AddIfAbsent(t *testing.T) {
	t.Parallel()

	s := NewMemoryRevocations()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	added, err := s.Revoke(ctx, models.TokenRefresh, "a", exp)
	require.NoError(t, err)
	require.True(t, added)

	added, err = s.Revoke(ctx, models.TokenRefresh, "a", exp)
	require.NoError(t, err)
	require.False(t, added)

	ok, err := s.IsRevoked(ctx, models.TokenRefresh, "a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.IsRevoked(ctx, models.TokenAccess, "a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryRevocations_ConcurrentRevoke_ExactlyOnce(t *testing.T) {
	t.Parallel()

	s := NewMemoryRevocations()
	exp := time.Now().Add(time.Hour)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := s.Revoke(context.Background(), models.TokenRefresh, "same", exp)
			if err == nil && added {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins)
}

func TestMemoryRevocations_Purge_RemovesOnlyExpired(t *testing.T) {
	t.Parallel()

	s := NewMemoryRevocations()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, _ = s.Revoke(ctx, models.TokenAccess, "old", now.Add(-time.Minute))
	_, _ = s.Revoke(ctx, models.TokenRefresh, "edge", now)
	_, _ = s.Revoke(ctx, models.TokenRefresh, "live", now.Add(time.Minute))
	require.Equal(t, 3, s.Len())

	require.Equal(t, 2, s.Purge(now))
	require.Equal(t, 1, s.Len())

	ok, _ := s.IsRevoked(ctx, models.TokenRefresh, "live")
	require.True(t, ok)
	ok, _ = s.IsRevoked(ctx, models.TokenAccess, "old")
	require.False(t, ok)
}

func TestMemoryRevocations_PurgeNeverRevalidates(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryRevocations()
	m := NewManager(testAuthCfg(), store, WithClock(clk.Now))
	ctx := context.Background()

	raw, err := m.CreateAccess(ctx, "1")
	require.NoError(t, err)
	c, err := m.Verify(ctx, raw, models.TokenAccess)
	require.NoError(t, err)
	_, err = m.RevokeClaims(ctx, c)
	require.NoError(t, err)

	clk.Advance(16 * time.Minute)
	require.Equal(t, 1, store.Purge(clk.Now()))

	_, err = m.Verify(ctx, raw, models.TokenAccess)
	require.ErrorIs(t, err, ErrInvalidToken)
}
