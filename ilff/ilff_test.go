package ilff

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func appendChunk(buf []byte, fourcc string, alignment, next uint32, payload []byte) []byte {
	buf = append(buf, fourcc...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = binary.LittleEndian.AppendUint32(buf, alignment)
	buf = binary.LittleEndian.AppendUint32(buf, next)
	return append(buf, payload...)
}

func buildContainer(contentType string, body []byte) []byte {
	content := append([]byte(contentType), body...)
	buf := appendChunk(nil, RootFourCC, 4, 0, nil)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(content)))
	return append(buf, content...)
}

func TestParseAlignedChunks(t *testing.T) {
	var body []byte
	body = appendChunk(body, "NAME", 4, 0, []byte("ab\x00")) // 3 bytes, padded to 4
	body = append(body, 0)
	body = appendChunk(body, "BODY", 4, 0, []byte{1, 2, 3, 4})

	f, err := Parse(buildContainer("IRES", body))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if f.ContentType != "IRES" {
		t.Errorf("content type = %q", f.ContentType)
	}
	if len(f.Chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(f.Chunks))
	}
	if f.Chunks[0].Header.FourCC != "NAME" || !bytes.Equal(f.Chunks[0].Data, []byte("ab\x00")) {
		t.Errorf("chunk 0 = %q %v", f.Chunks[0].Header.FourCC, f.Chunks[0].Data)
	}
	if f.Chunks[1].Header.FourCC != "BODY" || !bytes.Equal(f.Chunks[1].Data, []byte{1, 2, 3, 4}) {
		t.Errorf("chunk 1 = %q %v", f.Chunks[1].Header.FourCC, f.Chunks[1].Data)
	}
}

func TestParseHonoursNextOffset(t *testing.T) {
	// The first chunk declares a next offset past two bytes of slack
	// that alignment alone would not skip.
	var body []byte
	body = appendChunk(body, "NAME", 1, 16+2+2, []byte{9, 9})
	body = append(body, 0xEE, 0xEE)
	body = appendChunk(body, "BODY", 1, 0, []byte{5})

	f, err := Parse(buildContainer("IRES", body))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(f.Chunks))
	}
	if f.Chunks[1].Header.FourCC != "BODY" {
		t.Errorf("second chunk = %q", f.Chunks[1].Header.FourCC)
	}
}

func TestParseIgnoresBytesPastRootSize(t *testing.T) {
	body := appendChunk(nil, "BODY", 1, 0, []byte{1})
	data := buildContainer("IRES", body)
	data = append(data, bytes.Repeat([]byte{0xFF}, 32)...)

	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.Chunks) != 1 {
		t.Errorf("chunk count = %d, want 1", len(f.Chunks))
	}
}

func TestParseErrors(t *testing.T) {
	truncated := buildContainer("IRES", appendChunk(nil, "BODY", 1, 0, []byte{1, 2}))
	binary.LittleEndian.PutUint32(truncated[24:], 200) // inflate BODY size

	badRoot := buildContainer("IRES", nil)
	copy(badRoot, "XXXX")

	overlong := buildContainer("IRES", nil)
	binary.LittleEndian.PutUint32(overlong[4:], 1000)

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad root fourcc", badRoot},
		{"root size past end", overlong},
		{"chunk size past end", truncated},
		{"no content type", appendChunk(nil, RootFourCC, 4, 0, nil)},
	}
	for _, c := range cases {
		f, err := Parse(c.data)
		if err == nil {
			t.Errorf("%s: Parse accepted invalid input", c.name)
		}
		if f != nil {
			t.Errorf("%s: file returned alongside error", c.name)
		}
	}
}

func TestParseErrorIsFormatError(t *testing.T) {
	_, err := Parse([]byte("short"))
	if _, ok := err.(*FormatError); !ok {
		t.Fatalf("error type = %T, want *FormatError", err)
	}
}
