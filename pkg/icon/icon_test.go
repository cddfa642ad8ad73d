package icon

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/siiimooon/go-band/pkg/band"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: 0xFF, A: 0xFF})
		}
	}
	path := filepath.Join(t.TempDir(), "icon.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestLoadFitsIntoSquare(t *testing.T) {
	path := writePNG(t, 200, 100)

	icon, err := Load(path, band.TILE_ICON_SIZE)
	require.NoError(t, err)
	assert.Equal(t, band.TILE_ICON_SIZE, icon.GetWidth())
	assert.Equal(t, band.TILE_ICON_SIZE, icon.GetHeight())
	assert.Len(t, icon.Bytes(), 2+band.TILE_ICON_SIZE*band.TILE_ICON_SIZE*2)
}

func TestFitKeepsAspectRatio(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.NRGBA{G: 0xFF, A: 0xFF})
		}
	}

	fitted := Fit(img, 24)
	assert.Equal(t, image.Rect(0, 0, 24, 24), fitted.Bounds())
	// top rows stay transparent, the middle row carries the image
	_, _, _, topAlpha := fitted.At(12, 0).RGBA()
	assert.Zero(t, topAlpha)
	_, g, _, midAlpha := fitted.At(12, 12).RGBA()
	assert.NotZero(t, midAlpha)
	assert.NotZero(t, g)
}

func TestLoadGeneratesDefault(t *testing.T) {
	icon, err := Load("", band.SMALL_ICON_SIZE)
	require.NoError(t, err)
	assert.Equal(t, band.SMALL_ICON_SIZE, icon.GetWidth())
	assert.Equal(t, band.SMALL_ICON_SIZE, icon.GetHeight())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"), band.SMALL_ICON_SIZE)
	assert.Error(t, err)
}

func TestLoadTileIcons(t *testing.T) {
	path := writePNG(t, 10, 10)

	large, small, err := LoadTileIcons(path, "")
	require.NoError(t, err)
	assert.Equal(t, band.TILE_ICON_SIZE, large.GetWidth())
	assert.Equal(t, band.SMALL_ICON_SIZE, small.GetWidth())
}
