package tunneldetect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileOverlayEmptyPath(t *testing.T) {
	t.Parallel()
	overlay, err := loadFileOverlay("")
	require.NoError(t, err)
	assert.Nil(t, overlay.CountPackets)
	assert.Nil(t, overlay.APIListenAddress)
}

func TestLoadFileOverlayParsesYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "overlay.yml")
	const body = `
count_packets: 5000
time_window_sec: 600
filter_internal_only: false
api_listen_address: "0.0.0.0:9000"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	overlay, err := loadFileOverlay(path)
	require.NoError(t, err)
	require.NotNil(t, overlay.CountPackets)
	assert.Equal(t, uint64(5000), *overlay.CountPackets)
	require.NotNil(t, overlay.TimeWindowSec)
	assert.Equal(t, int64(600), *overlay.TimeWindowSec)
	require.NotNil(t, overlay.FilterInternalOnly)
	assert.False(t, *overlay.FilterInternalOnly)
	require.NotNil(t, overlay.APIListenAddress)
	assert.Equal(t, "0.0.0.0:9000", *overlay.APIListenAddress)
}

func TestLoadFileOverlayMissingFile(t *testing.T) {
	t.Parallel()
	_, err := loadFileOverlay(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
