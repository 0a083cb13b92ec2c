package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ogabook-admin/internal/config"
)

func TestConfigure_JSONToStdout(t *testing.T) {
	logger := log.New()
	var buf bytes.Buffer

	closer, err := Configure(logger, config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.WithField("table", "orders").Debug("listing")

	assert.Equal(t, log.DebugLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), `"table":"orders"`)
	assert.Contains(t, buf.String(), `"msg":"listing"`)
}

func TestConfigure_RejectsUnknownLevelAndFormat(t *testing.T) {
	_, err := Configure(log.New(), config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = Configure(log.New(), config.LogConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestConfigure_FileSink(t *testing.T) {
	logger := log.New()
	path := filepath.Join(t.TempDir(), "logs", "admin.log")
	var buf bytes.Buffer

	closer, err := Configure(logger, config.LogConfig{File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	logger.Info("written twice")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written twice")
	assert.Contains(t, buf.String(), "written twice")
}
