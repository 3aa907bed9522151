// Package ilff reads the IFF-style chunk containers the game engine wraps
// most of its resources in. A container opens with an ILFF root chunk and a
// content-type code; the payload is a flat sequence of chunks, each with a
// fourcc, a byte size and an alignment the next chunk is padded to.
package ilff

import (
	"encoding/binary"
	"fmt"
)

// RootFourCC opens every container.
const RootFourCC = "ILFF"

// chunkHeaderSize is the fixed encoded size of a chunk header.
const chunkHeaderSize = 16

// ChunkHeader precedes every chunk's payload.
type ChunkHeader struct {
	FourCC    string
	Size      uint32 // payload bytes, padding excluded
	Alignment uint32 // the next chunk starts at a multiple of this
	Next      uint32 // offset of the next chunk relative to this header, 0 for the last
}

// Chunk is one decoded container entry. Data aliases the input buffer.
type Chunk struct {
	Header ChunkHeader
	Data   []byte
}

// File is a fully scanned container.
type File struct {
	ContentType string
	Chunks      []Chunk
}

// FormatError reports a malformed container.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("ilff: format error at offset %d: %s", e.Offset, e.Msg)
}

// Parse scans a complete container buffer. The root header's declared size
// bounds the scan; chunks after it are ignored.
func Parse(data []byte) (*File, error) {
	root, err := readHeader(data, 0)
	if err != nil {
		return nil, err
	}
	if root.FourCC != RootFourCC {
		return nil, &FormatError{Offset: 0, Msg: fmt.Sprintf("bad root fourcc %q, expected %q", root.FourCC, RootFourCC)}
	}

	end := chunkHeaderSize + int(root.Size)
	if end > len(data) {
		return nil, &FormatError{Offset: 0, Msg: fmt.Sprintf("root chunk size %d exceeds file size %d", root.Size, len(data))}
	}

	if chunkHeaderSize+4 > end {
		return nil, &FormatError{Offset: chunkHeaderSize, Msg: "container too short for a content type"}
	}
	f := &File{ContentType: string(data[chunkHeaderSize : chunkHeaderSize+4])}

	pos := chunkHeaderSize + 4
	for pos < end {
		header, err := readHeader(data, pos)
		if err != nil {
			return nil, err
		}

		dataStart := pos + chunkHeaderSize
		dataEnd := dataStart + int(header.Size)
		if dataEnd > end {
			return nil, &FormatError{Offset: pos, Msg: fmt.Sprintf("chunk %q size %d exceeds container end", header.FourCC, header.Size)}
		}

		f.Chunks = append(f.Chunks, Chunk{Header: header, Data: data[dataStart:dataEnd]})

		pos = advance(pos, dataEnd, header)
		if pos <= dataStart-chunkHeaderSize {
			return nil, &FormatError{Offset: pos, Msg: "chunk sequence does not advance"}
		}
	}

	return f, nil
}

// advance computes the next chunk's offset: the header's explicit next
// offset when present, otherwise the payload end padded to the chunk's
// alignment.
func advance(pos, dataEnd int, header ChunkHeader) int {
	if header.Next != 0 {
		return pos + int(header.Next)
	}
	align := int(header.Alignment)
	if align <= 1 {
		return dataEnd
	}
	return (dataEnd + align - 1) / align * align
}

func readHeader(data []byte, pos int) (ChunkHeader, error) {
	if pos+chunkHeaderSize > len(data) {
		return ChunkHeader{}, &FormatError{Offset: pos, Msg: "truncated chunk header"}
	}
	return ChunkHeader{
		FourCC:    string(data[pos : pos+4]),
		Size:      binary.LittleEndian.Uint32(data[pos+4:]),
		Alignment: binary.LittleEndian.Uint32(data[pos+8:]),
		Next:      binary.LittleEndian.Uint32(data[pos+12:]),
	}, nil
}
