//go:build integration

package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}

func newTestLocker(t *testing.T, addr string) *Redis {
	t.Helper()
	rdb, err := Connect(context.Background(), addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedis(rdb, 5*time.Second, 150*time.Millisecond, nil)
}

func TestRedis_OverlappingKeysAreRefused(t *testing.T) {
	addr := newTestRedis(t)
	first := newTestLocker(t, addr)
	second := newTestLocker(t, addr)
	ctx := context.Background()

	release, err := first.Acquire(ctx, Key("party", "p1"), Key("item", "b"))
	require.NoError(t, err)

	_, err = second.Acquire(ctx, Key("item", "b"), Key("item", "c"))
	require.ErrorIs(t, err, ErrNotObtained)
	assert.Contains(t, err.Error(), "item:b")

	releaseC, err := second.Acquire(ctx, Key("item", "c"))
	require.NoError(t, err, "item:c must not stay held after the failed call")
	releaseC()

	release()
	releaseB, err := second.Acquire(ctx, Key("item", "b"))
	require.NoError(t, err)
	releaseB()
}

func TestRedis_FailureOnLaterKeyReleasesEarlierOnes(t *testing.T) {
	addr := newTestRedis(t)
	holder := newTestLocker(t, addr)
	caller := newTestLocker(t, addr)
	ctx := context.Background()

	// Keys are taken in sorted order, so item:a is obtained before item:z fails.
	releaseZ, err := holder.Acquire(ctx, Key("item", "z"))
	require.NoError(t, err)
	defer releaseZ()

	_, err = caller.Acquire(ctx, Key("item", "z"), Key("item", "a"))
	require.ErrorIs(t, err, ErrNotObtained)

	releaseA, err := holder.Acquire(ctx, Key("item", "a"))
	require.NoError(t, err)
	releaseA()
}

func TestRedis_CancelledContextIsNotObtained(t *testing.T) {
	addr := newTestRedis(t)
	holder := newTestLocker(t, addr)
	caller := newTestLocker(t, addr)

	release, err := holder.Acquire(context.Background(), Key("invoice", "1"))
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = caller.Acquire(ctx, Key("invoice", "1"))
	assert.ErrorIs(t, err, ErrNotObtained)
}
