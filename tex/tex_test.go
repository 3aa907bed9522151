package tex

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"testing"
)

func appendU16s(buf []byte, vals ...uint16) []byte {
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint16(buf, v)
	}
	return buf
}

func appendU32s(buf []byte, vals ...uint32) []byte {
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}

func buildV2(width, height, mode uint16, bitmap []byte) []byte {
	buf := append([]byte{}, Signature...)
	buf = appendU32s(buf, 2)
	buf = appendU16s(buf, 0, 0, 0, 0, 0, width, height, mode)
	return append(buf, bitmap...)
}

func buildV7(version, count, width, height, mode uint32, frames []byte) []byte {
	buf := append([]byte{}, Signature...)
	buf = appendU32s(buf, version, 0, 0, 0, 0, 0, 0, count, 0, width, height, mode)

	itemSize := 40
	if version == 9 {
		itemSize = 32
	}
	buf = append(buf, make([]byte, int(count)*itemSize)...)
	buf = append(buf, frames...)

	// single-cell atlas footer
	buf = append(buf, Signature...)
	buf = appendU32s(buf, 6)
	buf = appendU16s(buf, 0, 0, 0, 0)
	buf = appendU32s(buf, 1, 1)
	return append(buf, make([]byte, 16)...)
}

func buildV11(width, height, mode uint16, bitmaps []byte) []byte {
	buf := append([]byte{}, Signature...)
	buf = appendU32s(buf, 11, uint32(mode), 0, 0)
	buf = appendU16s(buf, 0, width, height, 0, 0, 0)
	return append(buf, bitmaps...)
}

func TestParseV2(t *testing.T) {
	bitmap := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	tx, err := Parse(buildV2(2, 2, 2, bitmap))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tx.Version != 2 || tx.Width != 2 || tx.Height != 2 || tx.Mode != 2 {
		t.Errorf("header = %+v", tx)
	}
	if len(tx.Bitmaps) != 1 || !bytes.Equal(tx.Bitmaps[0].Data, bitmap) {
		t.Errorf("bitmaps = %+v", tx.Bitmaps)
	}
	if tx.Bitmaps[0].Depth() != 2 {
		t.Errorf("depth = %d", tx.Bitmaps[0].Depth())
	}
}

func TestParseV2RejectsTrailingBytes(t *testing.T) {
	data := append(buildV2(1, 1, 2, []byte{0, 0}), 0xFF)
	if _, err := Parse(data); err == nil {
		t.Fatalf("trailing byte accepted")
	}
}

func TestParseV7Frames(t *testing.T) {
	frames := []byte{
		10, 11, 12, 13, // frame 0, one RGBA pixel
		20, 21, 22, 23, // frame 1
	}
	tx, err := Parse(buildV7(7, 2, 1, 1, 3, frames))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tx.Bitmaps) != 2 {
		t.Fatalf("frame count = %d, want 2", len(tx.Bitmaps))
	}
	if !bytes.Equal(tx.Bitmaps[1].Data, []byte{20, 21, 22, 23}) {
		t.Errorf("frame 1 = %v", tx.Bitmaps[1].Data)
	}
}

func TestParseV9Frames(t *testing.T) {
	tx, err := Parse(buildV7(9, 1, 1, 1, 67, []byte{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tx.Version != 9 || len(tx.Bitmaps) != 1 {
		t.Errorf("version = %d, frames = %d", tx.Version, len(tx.Bitmaps))
	}
}

func TestParseV11Run(t *testing.T) {
	bitmaps := []byte{
		1, 0, 2, 0, // block 0, two ARGB1555 pixels
		3, 0, 4, 0, // block 1
	}
	tx, err := Parse(buildV11(2, 1, 2, bitmaps))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tx.Bitmaps) != 2 {
		t.Fatalf("block count = %d, want 2", len(tx.Bitmaps))
	}
	if !bytes.Equal(tx.Bitmaps[0].Data, []byte{1, 0, 2, 0}) {
		t.Errorf("block 0 = %v", tx.Bitmaps[0].Data)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	badMode := buildV2(1, 1, 5, []byte{0, 0})

	cases := []struct {
		name string
		data []byte
	}{
		{"short", []byte("LOO")},
		{"signature", buildV2(1, 1, 2, []byte{0, 0})},
		{"version", appendU32s(append([]byte{}, Signature...), 3)},
		{"mode", badMode},
		{"truncated bitmap", buildV2(4, 4, 2, []byte{0, 0})},
	}
	copy(cases[1].data, "POOL")
	for _, c := range cases {
		if _, err := Parse(c.data); err == nil {
			t.Errorf("%s: Parse accepted invalid input", c.name)
		}
	}
}

func TestEncodeTGA16(t *testing.T) {
	bm := &Bitmap{Width: 1, Height: 1, Mode: 2, Data: []byte{0xFF, 0xFF}}
	out, err := bm.EncodeTGA()
	if err != nil {
		t.Fatalf("EncodeTGA failed: %v", err)
	}
	if out[2] != 2 || out[16] != 16 || out[17] != 0x01 {
		t.Errorf("16-bit TGA header = %v", out[:tgaHeaderSize])
	}
	if !bytes.Equal(out[tgaHeaderSize:], bm.Data) {
		t.Errorf("16-bit payload altered: %v", out[tgaHeaderSize:])
	}
}

func TestEncodeTGA32SwizzlesToBGRA(t *testing.T) {
	bm := &Bitmap{Width: 1, Height: 1, Mode: 3, Data: []byte{1, 2, 3, 4}}
	out, err := bm.EncodeTGA()
	if err != nil {
		t.Fatalf("EncodeTGA failed: %v", err)
	}
	if out[16] != 32 || out[17] != 0x20 {
		t.Errorf("32-bit TGA header = %v", out[:tgaHeaderSize])
	}
	if !bytes.Equal(out[tgaHeaderSize:], []byte{3, 2, 1, 4}) {
		t.Errorf("BGRA payload = %v", out[tgaHeaderSize:])
	}
}

func TestImageFlipsStoredRows(t *testing.T) {
	// Stored bottom-up: first pixel is the bottom row, pure red opaque.
	bm := &Bitmap{Width: 1, Height: 2, Mode: 2, Data: []byte{
		0x00, 0xFC, // bottom: A=1 R=31 G=0 B=0
		0xFF, 0xFF, // top: white
	}}
	img, err := bm.Image()
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	top := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	bottom := color.NRGBAModel.Convert(img.At(0, 1)).(color.NRGBA)
	if top.R != 255 || top.G != 255 || top.B != 255 {
		t.Errorf("top pixel = %+v, want white", top)
	}
	if bottom.R != 255 || bottom.G != 0 || bottom.B != 0 || bottom.A != 255 {
		t.Errorf("bottom pixel = %+v, want opaque red", bottom)
	}
}

func TestImage32BitKeepsOrder(t *testing.T) {
	bm := &Bitmap{Width: 1, Height: 1, Mode: 67, Data: []byte{9, 8, 7, 255}}
	img, err := bm.Image()
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	px := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	if px != (color.NRGBA{R: 9, G: 8, B: 7, A: 255}) {
		t.Errorf("pixel = %+v", px)
	}
}
