package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_BufferedThenFlushed(t *testing.T) {
	require.NoError(t, Init(true, "INFO", "text", false, ""))

	slog.Info("buffered message")

	var out bytes.Buffer
	require.NoError(t, SetOutput(&out))
	assert.Contains(t, out.String(), "buffered message", "buffered logs must be replayed on SetOutput")

	slog.Info("live message")
	assert.Contains(t, out.String(), "live message")
}

func TestInit_LevelFiltering(t *testing.T) {
	require.NoError(t, Init(false, "WARN", "text", false, ""))

	var out bytes.Buffer
	require.NoError(t, SetOutput(&out))

	slog.Info("should be dropped")
	slog.Warn("should appear")

	assert.NotContains(t, out.String(), "should be dropped")
	assert.Contains(t, out.String(), "should appear")
}

func TestInit_JSONFormat(t *testing.T) {
	require.NoError(t, Init(false, "INFO", "json", false, ""))

	var out bytes.Buffer
	require.NoError(t, SetOutput(&out))

	slog.Info("hello")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out.String()), "{"), "json handler expected")
	assert.Contains(t, out.String(), `"msg":"hello"`)
}

func TestInit_LogToFile(t *testing.T) {
	dir := t.TempDir()
	logfile := filepath.Join(dir, "tronstrip.log")

	require.NoError(t, Init(false, "INFO", "text", true, logfile))

	var out bytes.Buffer
	require.NoError(t, SetOutput(&out))
	slog.Info("to file as well")
	require.NoError(t, Close())

	data, err := os.ReadFile(logfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file as well")
}

func TestBufferOutput_ReentersBuffering(t *testing.T) {
	require.NoError(t, Init(false, "INFO", "text", false, ""))

	var first bytes.Buffer
	require.NoError(t, SetOutput(&first))

	BufferOutput()
	slog.Info("while detached")
	assert.NotContains(t, first.String(), "while detached")

	var second bytes.Buffer
	require.NoError(t, SetOutput(&second))
	assert.Contains(t, second.String(), "while detached")
}
