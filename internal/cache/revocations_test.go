package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/risk-assistant/internal/models"
)

// Интеграционные тесты RedisRevocations на реальном Redis (redis:7-alpine).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/cache -v -race -count=1

func startRedis(t *testing.T) (*RedisRevocations, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379/tcp")

	st, err := NewRedisRevocations(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "test:revoked:")
	require.NoError(t, err)

	cleanup := func() {
		_ = st.Close()
		_ = c.Terminate(context.Background())
	}
	return st, cleanup
}

func TestNewRedisRevocations_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisRevocations(context.Background(), "not a url", "")
	require.Error(t, err)
}

func TestKey_Layout(t *testing.T) {
	t.Parallel()

	c := NewRedisRevocationsFromClient(nil, "")
	require.Equal(t, "auth:revoked:refresh:abc", c.key(models.TokenRefresh, "abc"))
}

func TestIntegration_Revoke_Twice_SecondNotAdded(t *testing.T) {
	st, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	added, err := st.Revoke(ctx, models.TokenRefresh, "jti-1", exp)
	require.NoError(t, err)
	require.True(t, added)

	added, err = st.Revoke(ctx, models.TokenRefresh, "jti-1", exp)
	require.NoError(t, err)
	require.False(t, added)

	ok, err := st.IsRevoked(ctx, models.TokenRefresh, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.IsRevoked(ctx, models.TokenAccess, "jti-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIntegration_Revoke_TTLFollowsTokenExpiry(t *testing.T) {
	st, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	_, err := st.Revoke(ctx, models.TokenAccess, "short", time.Now().Add(2*time.Second))
	require.NoError(t, err)

	ttl, err := st.rdb.TTL(ctx, st.key(models.TokenAccess, "short")).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, 2*time.Second)

	require.Eventually(t, func() bool {
		ok, err := st.IsRevoked(ctx, models.TokenAccess, "short")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestIntegration_ConcurrentRevoke_ExactlyOnce(t *testing.T) {
	st, cleanup := startRedis(t)
	defer cleanup()

	exp := time.Now().Add(time.Hour)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := st.Revoke(context.Background(), models.TokenRefresh, "race", exp)
			if err == nil && added {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins)
}
