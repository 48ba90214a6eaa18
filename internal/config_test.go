package internal

import (
	"chat-relay/errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	req.NoError(err)
	req.Equal("127.0.0.1:8081", config.Address())
	req.Equal(1024, config.BufferSize)
	req.Equal(1024, config.ReadBufferSize)
	req.Equal(2*time.Second, config.WriteTimeout)
	req.Zero(config.DatagramPeerTTL)
}

func TestLoadConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("RELAY_PORT", "9100")
	t.Setenv("OUTBOX_SIZE", "8")
	t.Setenv("DATAGRAM_PEER_TTL", "1m")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	req.NoError(err)
	req.Equal("127.0.0.1:9100", config.Address())
	req.Equal(8, config.OutboxSize)
	req.Equal(time.Minute, config.DatagramPeerTTL)
}

func TestLoadConfig_From_DotEnv_File(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(path, []byte("RELAY_HOST=0.0.0.0\nLOG_LEVEL=DEBUG\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("RELAY_HOST")
		_ = os.Unsetenv("LOG_LEVEL")
	})

	config, err := LoadConfig(path)

	req.NoError(err)
	req.Equal("0.0.0.0", config.Host)
	req.Equal("DEBUG", config.LogLevel)
}

func TestConfig_Validate_Rejects_Invalid_Values(t *testing.T) {
	req := require.New(t)
	t.Setenv("BUFFER_SIZE", "0")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	req.ErrorIs(err, errors.ErrInvalidConfig)
}
