// Package res decodes RES resource archives: ILFF containers of content
// type IRES whose chunks come in NAME/payload pairs. An archive of BODY
// payloads holds embedded files; an archive of CSTR payloads is a string
// table.
package res

import (
	"fmt"
	"strings"

	"github.com/artiom-rotari/igi-tools/ilff"
)

// ContentType identifies a RES container within ILFF.
const ContentType = "IRES"

// EntryKind tells what a NAME chunk's payload holds.
type EntryKind uint8

const (
	// KindBody is an embedded file.
	KindBody EntryKind = iota

	// KindText is a string-table value.
	KindText

	// KindPath is a trailing path annotation, skipped on export.
	KindPath
)

// Entry pairs a cleaned entry name with its payload. Body payloads stay
// raw; text and path payloads are decoded latin-1 text.
type Entry struct {
	Name string
	Kind EntryKind
	Body []byte
	Text string
}

// Archive is a fully decoded RES file.
type Archive struct {
	Entries []Entry
}

// Parse decodes a RES buffer. Chunks must alternate NAME and one of
// BODY/CSTR/PATH; anything else is a format error.
func Parse(data []byte) (*Archive, error) {
	f, err := ilff.Parse(data)
	if err != nil {
		return nil, err
	}
	if f.ContentType != ContentType {
		return nil, fmt.Errorf("res: content type %q, expected %q", f.ContentType, ContentType)
	}
	if len(f.Chunks)%2 != 0 {
		return nil, fmt.Errorf("res: odd chunk count %d, chunks must pair up", len(f.Chunks))
	}

	archive := &Archive{Entries: make([]Entry, 0, len(f.Chunks)/2)}
	for i := 0; i < len(f.Chunks); i += 2 {
		nameChunk, payload := f.Chunks[i], f.Chunks[i+1]

		if nameChunk.Header.FourCC != "NAME" {
			return nil, fmt.Errorf("res: chunk %d is %q, expected NAME", i, nameChunk.Header.FourCC)
		}

		entry := Entry{Name: cleanName(nameChunk.Data)}
		switch payload.Header.FourCC {
		case "BODY":
			entry.Kind = KindBody
			entry.Body = payload.Data
		case "CSTR":
			entry.Kind = KindText
			entry.Text = latin1(trimNul(payload.Data))
		case "PATH":
			entry.Kind = KindPath
			entry.Text = latin1(trimNul(payload.Data))
		default:
			return nil, fmt.Errorf("res: chunk %d is %q, expected BODY, CSTR or PATH", i+1, payload.Header.FourCC)
		}

		archive.Entries = append(archive.Entries, entry)
	}

	return archive, nil
}

// Files returns the embedded-file entries, skipping path annotations.
func (a *Archive) Files() []Entry {
	var files []Entry
	for _, e := range a.Entries {
		if e.Kind == KindBody {
			files = append(files, e)
		}
	}
	return files
}

// Strings returns the string-table entries as name/value pairs.
func (a *Archive) Strings() []Entry {
	var values []Entry
	for _, e := range a.Entries {
		if e.Kind == KindText {
			values = append(values, e)
		}
	}
	return values
}

// IsArchive reports whether every payload is an embedded file.
func (a *Archive) IsArchive() bool { return a.uniform(KindBody) }

// IsStringTable reports whether every payload is a string-table value.
func (a *Archive) IsStringTable() bool { return a.uniform(KindText) }

func (a *Archive) uniform(kind EntryKind) bool {
	seen := false
	for _, e := range a.Entries {
		if e.Kind == KindPath {
			continue
		}
		if e.Kind != kind {
			return false
		}
		seen = true
	}
	return seen
}

// cleanName strips the trailing terminator and the LOCAL: storage prefix
// entry names carry.
func cleanName(raw []byte) string {
	return strings.TrimPrefix(latin1(trimNul(raw)), "LOCAL:")
}

func trimNul(raw []byte) []byte {
	for len(raw) > 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}
	return raw
}

// latin1 decodes single-byte text; every byte maps to the same code point.
func latin1(raw []byte) string {
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
