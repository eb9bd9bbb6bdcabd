package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/maxogod/session-relay/src/common/logger"
	"github.com/maxogod/session-relay/src/relay/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitLogger(logger.LoggerEnvDevelopment)
	os.Exit(m.Run())
}

func stores(t *testing.T) map[string]storage.CounterStore {
	disk, err := storage.NewDiskCounterStorage(t.TempDir())
	require.NoError(t, err)
	return map[string]storage.CounterStore{
		"memory": storage.NewMemoryCounterStorage(),
		"disk":   disk,
	}
}

func TestIncrementReturnsPostIncrementValue(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			defer s.Close()

			for want := int64(1); want <= 3; want++ {
				got, err := s.Increment(ctx, "client:a1", "count")
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			current, err := s.Get(ctx, "client:a1", "count")
			require.NoError(t, err)
			assert.Equal(t, int64(3), current)
		})
	}
}

func TestKeysAndFieldsAreIndependent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Increment(ctx, "client:a1", "count")
			require.NoError(t, err)
			_, err = s.Increment(ctx, "client:a1", "other")
			require.NoError(t, err)

			got, err := s.Increment(ctx, "client:b2", "count")
			require.NoError(t, err)
			assert.Equal(t, int64(1), got)

			untouched, err := s.Get(ctx, "client:c3", "count")
			require.NoError(t, err)
			assert.Equal(t, int64(0), untouched)
		})
	}
}

func TestConcurrentIncrements(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.Increment(ctx, "client:a1", "count")
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			got, err := s.Get(ctx, "client:a1", "count")
			require.NoError(t, err)
			assert.Equal(t, int64(20), got)
		})
	}
}

func TestDiskCounterStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := storage.NewDiskCounterStorage(dir)
	require.NoError(t, err)
	_, err = first.Increment(ctx, "chat:client:a1", "count")
	require.NoError(t, err)

	second, err := storage.NewDiskCounterStorage(dir)
	require.NoError(t, err)
	got, err := second.Increment(ctx, "chat:client:a1", "count")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestDiskCounterStorage_CorruptedFileIsReset(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := storage.NewDiskCounterStorage(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "client_a1.counter"), []byte("%%% not base64"), 0o644))

	_, err = s.Increment(ctx, "client:a1", "count")
	assert.Error(t, err)

	got, err := s.Increment(ctx, "client:a1", "count")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Increment(ctx, "client:a1", "count")
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}
