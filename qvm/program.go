package qvm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Signature opens every QVM file.
var Signature = []byte("LOOP")

// MajorVersion is the only supported major version.
const MajorVersion = 8

// headerSize is the fixed part of the header: the signature plus fourteen
// 32-bit fields.
const headerSize = 60

// Header is the fixed-size QVM file header. Offsets and sizes are absolute
// within the file buffer.
type Header struct {
	Major uint32
	Minor uint32

	VariablesPointsOffset uint32
	VariablesDataOffset   uint32
	VariablesPointsSize   uint32
	VariablesDataSize     uint32

	StringsPointsOffset uint32
	StringsDataOffset   uint32
	StringsPointsSize   uint32
	StringsDataSize     uint32

	InstructionsDataOffset uint32
	InstructionsDataSize   uint32

	Unknown1 uint32
	Unknown2 uint32

	// FooterOffset trails the fixed header for minor version 5 files that
	// carry extra bytes. HasFooter distinguishes a present zero offset
	// from an absent one.
	FooterOffset uint32
	HasFooter    bool
}

// Program is an immutable, fully decoded QVM program. Instructions is
// sparse: only valid instruction start addresses (relative to the
// instruction section) appear as keys.
type Program struct {
	Header       Header
	Revision     Revision
	Variables    []string
	Strings      []string
	Instructions map[int]*Instruction
}

// Load parses a complete QVM file buffer into a Program. The buffer is the
// whole file as handed over by the container layer; no I/O happens here.
func Load(data []byte) (*Program, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	variables, err := stringSection(data, header.VariablesDataOffset, header.VariablesDataSize, "variables")
	if err != nil {
		return nil, err
	}

	strs, err := stringSection(data, header.StringsDataOffset, header.StringsDataSize, "strings")
	if err != nil {
		return nil, err
	}

	section, err := slice(data, header.InstructionsDataOffset, header.InstructionsDataSize, "instructions")
	if err != nil {
		return nil, err
	}

	rev := Revision(header.Minor)
	instructions, err := decodeSection(section, rev)
	if err != nil {
		return nil, err
	}

	return &Program{
		Header:       *header,
		Revision:     rev,
		Variables:    variables,
		Strings:      strs,
		Instructions: instructions,
	}, nil
}

func parseHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, &FormatError{Offset: 0, Msg: fmt.Sprintf("file too short: %d bytes, header needs %d", len(data), headerSize)}
	}

	if !bytes.Equal(data[0:4], Signature) {
		return nil, &FormatError{Offset: 0, Msg: fmt.Sprintf("bad signature %q, expected %q", data[0:4], Signature)}
	}

	fields := make([]uint32, 14)
	for i := range fields {
		fields[i] = binary.LittleEndian.Uint32(data[4+4*i:])
	}

	h := &Header{
		Major:                  fields[0],
		Minor:                  fields[1],
		VariablesPointsOffset:  fields[2],
		VariablesDataOffset:    fields[3],
		VariablesPointsSize:    fields[4],
		VariablesDataSize:      fields[5],
		StringsPointsOffset:    fields[6],
		StringsDataOffset:      fields[7],
		StringsPointsSize:      fields[8],
		StringsDataSize:        fields[9],
		InstructionsDataOffset: fields[10],
		InstructionsDataSize:   fields[11],
		Unknown1:               fields[12],
		Unknown2:               fields[13],
	}

	if h.Major != MajorVersion {
		return nil, &FormatError{Offset: 4, Msg: fmt.Sprintf("unsupported major version %d, expected %d", h.Major, MajorVersion)}
	}

	if !Revision(h.Minor).Supported() {
		return nil, &FormatError{Offset: 8, Msg: fmt.Sprintf("unsupported minor version %d", h.Minor)}
	}

	if h.Unknown1 != 0 || h.Unknown2 != 0 {
		return nil, &FormatError{Offset: headerSize - 8, Msg: "reserved header fields are not zero"}
	}

	// Minor version 5 files may append a footer offset after the fixed
	// header when more than four bytes remain.
	if h.Minor == 5 && len(data) > headerSize+4 {
		h.FooterOffset = binary.LittleEndian.Uint32(data[headerSize:])
		h.HasFooter = true
	}

	return h, nil
}

func slice(data []byte, offset, size uint32, name string) ([]byte, error) {
	end := uint64(offset) + uint64(size)
	if end > uint64(len(data)) {
		return nil, &FormatError{
			Offset: int(offset),
			Msg:    fmt.Sprintf("%s section [%d:%d] exceeds file size %d", name, offset, end, len(data)),
		}
	}
	return data[offset:end], nil
}

var escaper = strings.NewReplacer("\n", `\n`, `"`, `\"`)

// stringSection splits a section of null-terminated byte strings. Embedded
// newlines and double quotes are escaped here, once, so the renderer can
// emit the text verbatim.
func stringSection(data []byte, offset, size uint32, name string) ([]string, error) {
	section, err := slice(data, offset, size, name)
	if err != nil {
		return nil, err
	}

	parts := bytes.Split(section, []byte{0})
	values := make([]string, 0, len(parts))
	for _, part := range parts[:max(len(parts)-1, 0)] {
		values = append(values, escaper.Replace(string(part)))
	}
	return values, nil
}

// decodeSection scans the instruction section from offset 0 to its declared
// length, recording every instruction under its start address.
func decodeSection(section []byte, rev Revision) (map[int]*Instruction, error) {
	instructions := make(map[int]*Instruction)

	for pos := 0; pos < len(section); {
		in, err := decodeInstruction(section, pos, rev)
		if err != nil {
			return nil, err
		}
		instructions[in.Address] = in
		pos = in.Next
	}

	return instructions, nil
}
