package tex

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/transform"
)

const tgaHeaderSize = 18

// EncodeTGA renders the bitmap as an uncompressed true-color TGA file.
// 16-bit planes keep their ARGB1555 layout with a lower-left origin;
// 32-bit planes are swizzled to BGRA with a top-left origin.
func (b *Bitmap) EncodeTGA() ([]byte, error) {
	depth, ok := modeDepth[b.Mode]
	if !ok {
		return nil, fmt.Errorf("tex: unsupported pixel mode %d", b.Mode)
	}
	if len(b.Data) != b.Width*b.Height*depth {
		return nil, fmt.Errorf("tex: bitmap data is %d bytes, expected %d", len(b.Data), b.Width*b.Height*depth)
	}

	header := make([]byte, tgaHeaderSize)
	header[2] = 2 // uncompressed true-color
	binary.LittleEndian.PutUint16(header[12:], uint16(b.Width))
	binary.LittleEndian.PutUint16(header[14:], uint16(b.Height))

	out := make([]byte, 0, tgaHeaderSize+len(b.Data))
	if depth == 2 {
		header[16] = 16
		header[17] = 0x01 // one alpha bit, lower-left origin
		return append(append(out, header...), b.Data...), nil
	}

	header[16] = 32
	header[17] = 0x20 // eight alpha bits, top-left origin
	out = append(out, header...)
	for i := 0; i+4 <= len(b.Data); i += 4 {
		r, g, bl, a := b.Data[i], b.Data[i+1], b.Data[i+2], b.Data[i+3]
		out = append(out, bl, g, r, a)
	}
	return out, nil
}

// Image decodes the bitmap to a standard image, flipping the 16-bit
// planes' bottom-up row order so every result reads top-down.
func (b *Bitmap) Image() (image.Image, error) {
	depth, ok := modeDepth[b.Mode]
	if !ok {
		return nil, fmt.Errorf("tex: unsupported pixel mode %d", b.Mode)
	}
	if len(b.Data) != b.Width*b.Height*depth {
		return nil, fmt.Errorf("tex: bitmap data is %d bytes, expected %d", len(b.Data), b.Width*b.Height*depth)
	}

	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	if depth == 4 {
		copy(img.Pix, b.Data)
		return img, nil
	}

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			px := binary.LittleEndian.Uint16(b.Data[(y*b.Width+x)*2:])
			img.SetNRGBA(x, y, argb1555(px))
		}
	}
	return transform.FlipV(img), nil
}

// argb1555 expands a packed ARRRRRGG GGGBBBBB pixel to 8-bit channels.
func argb1555(px uint16) color.NRGBA {
	expand := func(v uint16) uint8 {
		return uint8(v<<3 | v>>2)
	}
	a := uint8(0xFF)
	if px&0x8000 == 0 {
		a = 0
	}
	return color.NRGBA{
		R: expand(px >> 10 & 0x1F),
		G: expand(px >> 5 & 0x1F),
		B: expand(px & 0x1F),
		A: a,
	}
}
