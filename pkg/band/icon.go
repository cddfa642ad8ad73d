package band

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
)

var ErrIconTooLarge = errors.New("icon dimensions exceed 255 pixels")

// Icon is an image encoded in the band's RGB565 pixel format.
type Icon struct {
	width  int
	height int
	pixels []byte
}

// NewIcon encodes img into the band's icon format.
// Transparent pixels are stored as black.
func NewIcon(img image.Image) (Icon, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > 0xFF || height > 0xFF {
		return Icon{}, fmt.Errorf("%w: %dx%d", ErrIconTooLarge, width, height)
	}

	pixels := make([]byte, 0, width*height*2)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pixels = binary.LittleEndian.AppendUint16(pixels, rgb565(r, g, b))
		}
	}
	return Icon{
		width:  width,
		height: height,
		pixels: pixels,
	}, nil
}

func (receiver Icon) GetWidth() int {
	return receiver.width
}

func (receiver Icon) GetHeight() int {
	return receiver.height
}

// Bytes returns the wire representation: width, height, then the pixels.
func (receiver Icon) Bytes() []byte {
	out := make([]byte, 0, 2+len(receiver.pixels))
	out = append(out, byte(receiver.width), byte(receiver.height))
	return append(out, receiver.pixels...)
}

// rgb565 packs 16-bit colour channels into 5-6-5 bits.
func rgb565(r, g, b uint32) uint16 {
	return uint16((r>>11)<<11 | (g>>10)<<5 | b>>11)
}
