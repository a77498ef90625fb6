package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/amirphl/demo-sequences/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCounterContract checks the behaviour every CounterRepository shares. Names are
// prefixed with prefix so stores that share a server do not collide.
func runCounterContract(t *testing.T, repo repository.CounterRepository, prefix string) {
	ctx := context.Background()
	name := prefix + "widgets_integer_column"

	t.Run("MissingCounter", func(t *testing.T) {
		exists, err := repo.Exists(ctx, name)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.Increment(ctx, name)
		assert.ErrorIs(t, err, repository.ErrCounterNotFound)

		// a failed increment never creates the counter
		exists, err = repo.Exists(ctx, name)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("CreateAndIncrement", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, name, 6))

		exists, err := repo.Exists(ctx, name)
		require.NoError(t, err)
		assert.True(t, exists)

		for _, want := range []int64{6, 7, 8} {
			v, err := repo.Increment(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, want, v)
		}
	})

	t.Run("CreateTwice", func(t *testing.T) {
		err := repo.Create(ctx, name, 100)
		assert.ErrorIs(t, err, repository.ErrCounterExists)

		v, err := repo.Increment(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, int64(9), v)
	})

	t.Run("ConcurrentIncrementsAreUnique", func(t *testing.T) {
		const workers = 20
		values := make(chan int64, workers)
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := repo.Increment(ctx, name)
				assert.NoError(t, err)
				values <- v
			}()
		}
		wg.Wait()
		close(values)

		seen := make(map[int64]bool, workers)
		for v := range values {
			assert.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true
		}
		assert.Len(t, seen, workers)
	})

	t.Run("ListByPrefix", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, prefix+"widgets_string_column", 1))
		// "_" must match literally, not as a single-character wildcard
		require.NoError(t, repo.Create(ctx, prefix+"widgetsXother", 1))

		names, err := repo.List(ctx, prefix+"widgets_")
		require.NoError(t, err)
		assert.Equal(t, []string{prefix + "widgets_integer_column", prefix + "widgets_string_column"}, names)

		names, err = repo.List(ctx, prefix+"no_such_")
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("Drop", func(t *testing.T) {
		require.NoError(t, repo.Drop(ctx, name))
		require.NoError(t, repo.Drop(ctx, name))

		exists, err := repo.Exists(ctx, name)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.Increment(ctx, name)
		assert.ErrorIs(t, err, repository.ErrCounterNotFound)

		require.NoError(t, repo.Drop(ctx, prefix+"widgets_string_column"))
		require.NoError(t, repo.Drop(ctx, prefix+"widgetsXother"))
	})
}
