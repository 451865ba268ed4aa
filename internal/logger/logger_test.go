package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := DefaultConfig()
	cfg.Output = path
	cfg.Level = "debug"

	closer, err := Setup(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	WithComponent("pipeline").Debug().Int("images", 2).Msg("batch started")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"component":"pipeline"`)
	assert.Contains(t, line, `"images":2`)
	assert.Contains(t, line, `"message":"batch started"`)
}

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "chatty"

	_, err := Setup(cfg)
	assert.Error(t, err)
}

func TestWithRequestID(t *testing.T) {
	var sb strings.Builder
	prev := log.Logger
	log.Logger = zerolog.New(&sb)
	t.Cleanup(func() { log.Logger = prev })

	l := WithRequestID("req-1")
	l.Info().Msg("hello")

	assert.Contains(t, sb.String(), `"request_id":"req-1"`)
}
