package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/amirphl/demo-sequences/app/bootstrap"
	"github.com/amirphl/demo-sequences/dbsequence"
	"github.com/amirphl/demo-sequences/repository"
	testingutil "github.com/amirphl/demo-sequences/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSQLite points configuration at a fresh sqlite file holding widgets 1..5
func setupSQLite(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", path)
	t.Setenv("SEQUENCE_BACKEND", "table")
	t.Setenv("SEQUENCE_USE_DATABASE", "false")
	t.Setenv("SEQUENCE_ENFORCE_EXIST", "false")
	t.Setenv("SEQUENCE_LAZY_CREATE", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_OUTPUT", "stdout")

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&testingutil.Widget{}))
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, db.Create(&testingutil.Widget{IntegerColumn: i}).Error)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	require.NoError(t, nextCmd.Flags().Set("count", "1"))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestNameCommand(t *testing.T) {
	out, err := executeCommand(t, "name", "widgets", "integer-column")
	require.NoError(t, err)
	assert.Equal(t, "cs_widgets_integer_column\n", out)

	_, err = executeCommand(t, "name", "widgets")
	assert.Error(t, err)
}

func TestNextCommand(t *testing.T) {
	t.Run("CountsFromStoredData", func(t *testing.T) {
		setupSQLite(t)
		out, err := executeCommand(t, "next", "widgets", "integer_column", "--count", "3")
		require.NoError(t, err)
		assert.Equal(t, "6\n7\n8\n", out)
	})

	t.Run("DefaultBackendOnSQLite", func(t *testing.T) {
		setupSQLite(t)
		t.Setenv("SEQUENCE_BACKEND", "")

		out, err := executeCommand(t, "next", "widgets", "integer_column", "--count", "2")
		require.NoError(t, err)
		assert.Equal(t, "6\n7\n", out)

		// postgres sequences cannot live in sqlite
		_, err = executeCommand(t, "list")
		assert.ErrorIs(t, err, bootstrap.ErrBackendUnsupported)
	})

	t.Run("RejectsBadCount", func(t *testing.T) {
		setupSQLite(t)
		_, err := executeCommand(t, "next", "widgets", "integer_column", "--count", "0")
		assert.ErrorContains(t, err, "--count must be at least 1")
	})

	t.Run("UnknownTable", func(t *testing.T) {
		setupSQLite(t)
		_, err := executeCommand(t, "next", "gadgets", "integer_column")
		assert.ErrorIs(t, err, repository.ErrTableNotFound)
	})

	t.Run("StrictWithoutCounter", func(t *testing.T) {
		setupSQLite(t)
		t.Setenv("SEQUENCE_USE_DATABASE", "true")
		t.Setenv("SEQUENCE_ENFORCE_EXIST", "true")

		out, err := executeCommand(t, "next", "widgets", "integer_column")
		require.ErrorIs(t, err, dbsequence.ErrSequenceNotFound)
		assert.Contains(t, out, "calculated start value: 6")
	})

	t.Run("FallbackWithoutCounter", func(t *testing.T) {
		setupSQLite(t)
		t.Setenv("SEQUENCE_USE_DATABASE", "true")

		out, err := executeCommand(t, "next", "widgets", "integer_column", "--count", "2")
		require.NoError(t, err)
		assert.Equal(t, "6\n7\n", out)

		out, err = executeCommand(t, "list")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("LazyCreate", func(t *testing.T) {
		setupSQLite(t)
		t.Setenv("SEQUENCE_USE_DATABASE", "true")
		t.Setenv("SEQUENCE_LAZY_CREATE", "true")

		out, err := executeCommand(t, "next", "widgets", "integer_column", "--count", "2")
		require.NoError(t, err)
		assert.Equal(t, "6\n7\n", out)

		// a second process continues from the shared counter
		out, err = executeCommand(t, "next", "widgets", "integer_column")
		require.NoError(t, err)
		assert.Equal(t, "8\n", out)

		out, err = executeCommand(t, "list")
		require.NoError(t, err)
		assert.Equal(t, "cs_widgets_integer_column\n", out)
	})
}

func TestCounterLifecycle(t *testing.T) {
	setupSQLite(t)
	t.Setenv("SEQUENCE_USE_DATABASE", "true")
	t.Setenv("SEQUENCE_ENFORCE_EXIST", "true")

	out, err := executeCommand(t, "provision", "widgets", "integer_column", "id")
	require.NoError(t, err)
	assert.Equal(t, "created cs_widgets_integer_column starting at 6\ncreated cs_widgets_id starting at 6\n", out)

	out, err = executeCommand(t, "provision", "widgets", "integer_column")
	require.NoError(t, err)
	assert.Equal(t, "cs_widgets_integer_column already exists\n", out)

	out, err = executeCommand(t, "next", "widgets", "integer_column", "--count", "2")
	require.NoError(t, err)
	assert.Equal(t, "6\n7\n", out)

	out, err = executeCommand(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "cs_widgets_id\ncs_widgets_integer_column\n", out)

	out, err = executeCommand(t, "drop-all")
	require.NoError(t, err)
	assert.Equal(t, "dropped cs_widgets_id\ndropped cs_widgets_integer_column\n", out)

	out, err = executeCommand(t, "list")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = executeCommand(t, "next", "widgets", "integer_column")
	assert.ErrorIs(t, err, dbsequence.ErrSequenceNotFound)
}

func TestServeRequiresMetricsEnabled(t *testing.T) {
	setupSQLite(t)
	t.Setenv("METRICS_ENABLED", "false")

	_, err := executeCommand(t, "serve")
	assert.ErrorIs(t, err, errMetricsDisabled)
}
