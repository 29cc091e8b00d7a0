package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStderrDefault(t *testing.T) {
	logger, err := New(Options{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Infow("hello")
}

func TestNewWithFileCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "redhub-kv.log")

	logger, err := New(Options{Filename: path, Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debugw("ready", "path", path)
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	lvl := parseLevel("not-a-level")
	assert.Equal(t, "info", lvl.String())
}
