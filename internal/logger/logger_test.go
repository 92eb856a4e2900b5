package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abo.log")
	require.NoError(t, Setup(LogConfig{Level: "debug", Format: "json", Output: path}))
	t.Cleanup(func() {
		Close()
		_ = Setup(DefaultConfig())
	})

	log := WithComponent("billing")
	log.Info().Str("ref_id", "ABCDEFNB").Msg("Invoice created")
	log.Trace().Msg("dropped")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "billing", line["component"])
	assert.Equal(t, "ABCDEFNB", line["ref_id"])
	assert.Equal(t, "Invoice created", line["message"])
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetupInvalidLevel(t *testing.T) {
	assert.Error(t, Setup(LogConfig{Level: "verbose"}))
}
