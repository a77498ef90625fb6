package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/demo-sequences/models"
	"github.com/amirphl/demo-sequences/repository"
	testingutil "github.com/amirphl/demo-sequences/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSequenceCounterRepository(t *testing.T) {
	err := testingutil.TestWithSQLite(func(testDB *testingutil.TestDB) error {
		repo := repository.NewSequenceCounterRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		runCounterContract(t, repo, "cs_")

		t.Run("CreateStoresValueBeforeStart", func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, "cs_dummy_users_email", 11))

			row, err := repo.ByName(ctx, "cs_dummy_users_email")
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, int64(10), row.LastValue)
			assert.False(t, row.CreatedAt.IsZero())
		})

		t.Run("ByNameNotFound", func(t *testing.T) {
			row, err := repo.ByName(ctx, "cs_missing")
			assert.NoError(t, err)
			assert.Nil(t, row)
		})

		t.Run("ByFilter", func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, "cs_dummy_users_name", 1))
			require.NoError(t, repo.Create(ctx, "other_counter", 1))

			prefix := "cs_dummy_users_"
			rows, err := repo.ByFilter(ctx, models.SequenceCounterFilter{NamePrefix: &prefix}, "name", 0, 0)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, "cs_dummy_users_email", rows[0].Name)
			assert.Equal(t, "cs_dummy_users_name", rows[1].Name)

			rows, err = repo.ByFilter(ctx, models.SequenceCounterFilter{NamePrefix: &prefix}, "name", 1, 1)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "cs_dummy_users_name", rows[0].Name)
		})

		t.Run("ReadsThroughOuterTransaction", func(t *testing.T) {
			require.NoError(t, repo.Create(ctx, "cs_tx_counter", 1))

			boom := errors.New("rollback")
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				exists, err := repo.Exists(txCtx, "cs_tx_counter")
				if err != nil {
					return err
				}
				assert.True(t, exists)
				return boom
			})
			assert.ErrorIs(t, err, boom)

			v, err := repo.Increment(ctx, "cs_tx_counter")
			require.NoError(t, err)
			assert.Equal(t, int64(1), v)
		})

		t.Run("MissingTableReadsAsEmpty", func(t *testing.T) {
			require.NoError(t, testDB.DB.Migrator().DropTable(&models.SequenceCounter{}))
			defer func() {
				require.NoError(t, repo.Migrate(ctx))
			}()

			exists, err := repo.Exists(ctx, "cs_anything")
			require.NoError(t, err)
			assert.False(t, exists)

			names, err := repo.List(ctx, "cs_")
			require.NoError(t, err)
			assert.Empty(t, names)

			_, err = repo.Increment(ctx, "cs_anything")
			assert.ErrorIs(t, err, repository.ErrCounterNotFound)

			assert.NoError(t, repo.Drop(ctx, "cs_anything"))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestWithTransaction(t *testing.T) {
	err := testingutil.TestWithSQLite(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("CommitsOnSuccess", func(t *testing.T) {
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				tx := txCtx.Value(repository.TxContextKey).(*gorm.DB)
				return tx.Create(&testingutil.DummyUser{Email: "committed@example.com"}).Error
			})
			require.NoError(t, err)

			var count int64
			require.NoError(t, testDB.DB.Model(&testingutil.DummyUser{}).Where("email = ?", "committed@example.com").Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("RollsBackOnPanic", func(t *testing.T) {
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				tx := txCtx.Value(repository.TxContextKey).(*gorm.DB)
				if err := tx.Create(&testingutil.DummyUser{Email: "panicked@example.com"}).Error; err != nil {
					return err
				}
				panic("boom")
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "panic in transaction")

			var count int64
			require.NoError(t, testDB.DB.Model(&testingutil.DummyUser{}).Where("email = ?", "panicked@example.com").Count(&count).Error)
			assert.Zero(t, count)
		})

		t.Run("DuplicateInsertIsClassified", func(t *testing.T) {
			_, err := fixtures.CreateDummyUser("dup@example.com", "First")
			require.NoError(t, err)
			_, err = fixtures.CreateDummyUser("dup@example.com", "Second")
			require.Error(t, err)
			assert.True(t, repository.IsDuplicate(err))
		})

		return nil
	})
	require.NoError(t, err)
}
