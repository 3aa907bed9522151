// Package wav decodes the game's ILSF sound files and re-encodes them as
// standard RIFF/WAVE PCM. Sound packs 0 and 1 store raw 16-bit samples;
// packs 2 and 3 store IMA-ADPCM compressed nibbles.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Signature opens every ILSF sound file.
var Signature = []byte("ILSF")

// headerSize is the fixed ILSF header: signature, four 16-bit fields, two
// 32-bit fields.
const headerSize = 20

// Header is the fixed-size ILSF header.
type Header struct {
	SoundPack   uint16 // 0/1 raw PCM, 2/3 ADPCM
	SampleWidth uint16 // always 16
	Channels    uint16 // 1 or 2
	Unknown     uint16
	FrameRate   uint32
	SampleCount uint32
}

// Sound is a decoded sound file: header plus uncompressed PCM samples.
type Sound struct {
	Header  Header
	Samples []byte // interleaved little-endian 16-bit PCM
}

var validRates = map[uint32]bool{11025: true, 22050: true, 44100: true}

// Parse decodes an ILSF buffer, decompressing ADPCM sound packs.
func Parse(data []byte) (*Sound, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("wav: file too short: %d bytes, header needs %d", len(data), headerSize)
	}
	if !bytes.Equal(data[0:4], Signature) {
		return nil, fmt.Errorf("wav: bad signature %q, expected %q", data[0:4], Signature)
	}

	h := Header{
		SoundPack:   binary.LittleEndian.Uint16(data[4:]),
		SampleWidth: binary.LittleEndian.Uint16(data[6:]),
		Channels:    binary.LittleEndian.Uint16(data[8:]),
		Unknown:     binary.LittleEndian.Uint16(data[10:]),
		FrameRate:   binary.LittleEndian.Uint32(data[12:]),
		SampleCount: binary.LittleEndian.Uint32(data[16:]),
	}

	if h.SoundPack > 3 {
		return nil, fmt.Errorf("wav: unsupported sound pack %d", h.SoundPack)
	}
	if h.SampleWidth != 16 {
		return nil, fmt.Errorf("wav: unsupported sample width %d", h.SampleWidth)
	}
	if h.Channels != 1 && h.Channels != 2 {
		return nil, fmt.Errorf("wav: unsupported channel count %d", h.Channels)
	}
	if !validRates[h.FrameRate] {
		return nil, fmt.Errorf("wav: unsupported frame rate %d", h.FrameRate)
	}

	content := data[headerSize:]
	samples := content
	if h.SoundPack >= 2 {
		samples = decodeADPCM(content, int(h.Channels))
	}

	return &Sound{Header: h, Samples: samples}, nil
}

// EncodeRIFF renders the sound as a minimal RIFF/WAVE PCM file.
func (s *Sound) EncodeRIFF() []byte {
	const fmtChunkSize = 16
	dataLen := len(s.Samples)

	channels := uint32(s.Header.Channels)
	blockAlign := channels * uint32(s.Header.SampleWidth) / 8
	byteRate := s.Header.FrameRate * blockAlign

	buf := make([]byte, 0, 44+dataLen)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataLen))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, fmtChunkSize)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, s.Header.Channels)
	buf = binary.LittleEndian.AppendUint32(buf, s.Header.FrameRate)
	buf = binary.LittleEndian.AppendUint32(buf, byteRate)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, s.Header.SampleWidth)

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataLen))
	buf = append(buf, s.Samples...)
	return buf
}
