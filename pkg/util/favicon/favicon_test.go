package favicon

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, f)

	f, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	require.NoError(t, err)
	assert.Empty(t, f)

	f, err = Load("data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, Favicon("data:image/png;base64,AAAA"), f)
}

func TestLoad_ResizesLargeImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server-icon.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, image.NewRGBA(image.Rect(0, 0, 128, 128))))
	require.NoError(t, file.Close())

	f, err := Load(path)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(f.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}
