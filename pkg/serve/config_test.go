package serve

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "modfold-serve.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
listen = "0.0.0.0:9100"
projects = "/var/lib/modfold"
token_secret = "sup3rs3cret"
read_timeout = "30s"
`), 0o644))

	sc, err := NewServerConfig(file)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9100", sc.Listen)
	assert.Equal(t, "/var/lib/modfold", sc.Projects)
	assert.Equal(t, 30*time.Second, sc.ReadTimeout.Duration)
	assert.Equal(t, DefaultIdleTimeout, sc.IdleTimeout.Duration)
}

func TestNewServerConfigRequiresSecret(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "modfold-serve.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
listen = "0.0.0.0:9100"
projects = "/var/lib/modfold"
`), 0o644))
	_, err := NewServerConfig(file)
	assert.Error(t, err)
}
