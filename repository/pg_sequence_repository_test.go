package repository_test

import (
	"errors"
	"testing"

	"github.com/amirphl/demo-sequences/repository"
	testingutil "github.com/amirphl/demo-sequences/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgSequenceRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewPgSequenceRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		runCounterContract(t, repo, "cs_")

		t.Run("TableStoreSharesDatabase", func(t *testing.T) {
			table := repository.NewSequenceCounterRepository(testDB.DB)
			require.NoError(t, table.Create(ctx, "cs_widgets_text_column", 1))

			exists, err := repo.Exists(ctx, "cs_widgets_text_column")
			require.NoError(t, err)
			assert.False(t, exists)
		})

		t.Run("QuotesNames", func(t *testing.T) {
			name := `cs_odd"name`
			require.NoError(t, repo.Create(ctx, name, 3))
			v, err := repo.Increment(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, int64(3), v)
			require.NoError(t, repo.Drop(ctx, name))
		})

		return nil
	})
	if errors.Is(err, testingutil.ErrPostgresUnavailable) {
		t.Skip(err.Error())
	}
	require.NoError(t, err)
}
