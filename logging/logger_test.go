package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/amirphl/demo-sequences/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := New(config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: path,
		MaxSize:  1,
	})
	require.NoError(t, err)

	logger.WithField("event", "demo.account_generation.started").Debug("operation started")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(raw, &line))
	assert.Equal(t, "demo.account_generation.started", line["event"])
	assert.Equal(t, "operation started", line["msg"])
	assert.Equal(t, "debug", line["level"])
}

func TestNewStdout(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{Level: "warn", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stdout, logger.Out)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "chatty"})
	assert.Error(t, err)
}
