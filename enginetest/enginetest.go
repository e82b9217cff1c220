// Package enginetest holds fixture helpers shared by this module's test
// suites: random byte payloads, empty preset file systems, and gzip-compressed
// fixture images for tests that want to store or transport a built file
// system rather than rebuild one from scratch every time.
package enginetest

import (
	"bytes"
	"compress/gzip"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pasha112sergey/minifs/geometry"
	"github.com/pasha112sergey/minifs/image"
)

// RandomBytes returns n cryptographically random bytes, failing t if the
// source can't be read.
func RandomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

// NewFileSystem builds a fresh, empty file system of the named preset
// geometry, failing t on any error.
func NewFileSystem(t *testing.T, presetName string) *image.FileSystem {
	t.Helper()
	g, err := geometry.Preset(presetName)
	require.NoError(t, err)
	fs, err := image.New(g)
	require.NoError(t, err)
	return fs
}

// LoadCompressedFixture gunzips a fixture image (as produced by
// CompressFixture) and parses it with image.Load, failing t on any error.
func LoadCompressedFixture(t *testing.T, compressedImageBytes []byte) *image.FileSystem {
	t.Helper()
	require.Greater(t, len(compressedImageBytes), 0, "compressed fixture is empty")

	gz, err := gzip.NewReader(bytes.NewReader(compressedImageBytes))
	require.NoError(t, err)
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	fs, err := image.Load(raw)
	require.NoError(t, err)
	return fs
}

// CompressFixture is the inverse of LoadCompressedFixture: it serializes fs
// and gzips it, for tests that want to round-trip through the fixture
// format rather than just consume a pre-built one.
func CompressFixture(t *testing.T, fs *image.FileSystem) []byte {
	t.Helper()
	raw, err := image.Save(fs)
	require.NoError(t, err)

	var out bytes.Buffer
	gz := gzip.NewWriter(&out)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	return out.Bytes()
}
