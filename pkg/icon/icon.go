// Package icon loads tile icon assets and fits them to the sizes a band accepts.
package icon

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/siiimooon/go-band/pkg/band"
)

// DefaultColor fills generated icons when no asset is configured.
var DefaultColor = color.NRGBA{R: 0x00, G: 0x78, B: 0xD7, A: 0xFF}

// Load decodes the image at path and fits it into a size x size square.
// An empty path yields a generated solid icon.
func Load(path string, size int) (band.Icon, error) {
	var img image.Image
	if path == "" {
		img = imaging.New(size, size, DefaultColor)
	} else {
		decoded, err := imaging.Open(path)
		if err != nil {
			return band.Icon{}, fmt.Errorf("failed to open icon %s: %w", path, err)
		}
		img = Fit(decoded, size)
	}
	icon, err := band.NewIcon(img)
	if err != nil {
		return band.Icon{}, fmt.Errorf("failed to encode icon %s: %w", path, err)
	}
	return icon, nil
}

// Fit scales img to fit a size x size square, keeping its aspect ratio, centred on a transparent canvas.
func Fit(img image.Image, size int) image.Image {
	fitted := imaging.Fit(img, size, size, imaging.Lanczos)
	canvas := imaging.New(size, size, color.NRGBA{})
	return imaging.PasteCenter(canvas, fitted)
}

// LoadTileIcons loads the large tile icon and the small badge icon.
func LoadTileIcons(largePath, smallPath string) (large, small band.Icon, err error) {
	large, err = Load(largePath, band.TILE_ICON_SIZE)
	if err != nil {
		return band.Icon{}, band.Icon{}, err
	}
	small, err = Load(smallPath, band.SMALL_ICON_SIZE)
	if err != nil {
		return band.Icon{}, band.Icon{}, err
	}
	return large, small, nil
}
