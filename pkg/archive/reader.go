package archive

import (
	"fmt"
	"io"
)

// Archive is a DAT archive's parsed header, file table, and decoded
// names, read up front so pkg/repair can walk entries without
// re-parsing the container on every access.
type Archive struct {
	Header   Header
	Entries  []Entry
	Names    []byte
	Filename []string // decoded, index-aligned with Entries
	Base64   bool
}

func readAt(r io.ReadSeeker, pos int64, buf []byte) error {
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("archive: seek to %d: %w", pos, err)
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("archive: read at %d: %w", pos, err)
	}
	return nil
}

// NewReader parses the archive header, file table, and name blob from r.
func NewReader(r io.ReadSeeker) (*Archive, error) {
	var headerBuf [HeaderSize]byte
	if err := readAt(r, 0, headerBuf[:]); err != nil {
		return nil, err
	}
	header := decodeHeader(headerBuf[:])

	base64, err := header.IsBase64()
	if err != nil {
		return nil, err
	}

	entryBuf := make([]byte, int(header.NumFiles)*EntrySize)
	if err := readAt(r, FileTableOffset, entryBuf); err != nil {
		return nil, fmt.Errorf("archive: read file table: %w", err)
	}
	entries := make([]Entry, header.NumFiles)
	for i := range entries {
		entries[i] = decodeEntry(entryBuf[i*EntrySize : (i+1)*EntrySize])
	}

	names := make([]byte, header.NameLen)
	if err := readAt(r, int64(FileTableOffset)+int64(header.MetaLen), names); err != nil {
		return nil, fmt.Errorf("archive: read name blob: %w", err)
	}

	a := &Archive{Header: header, Entries: entries, Names: names, Base64: base64}
	if err := a.decodeNames(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) decodeNames() error {
	a.Filename = make([]string, len(a.Entries))
	var shared []byte
	for i, e := range a.Entries {
		if a.Base64 {
			name, next, err := decodeBase64Name(a.Names, e, shared)
			if err != nil {
				return fmt.Errorf("archive: decode name %d: %w", i, err)
			}
			a.Filename[i] = name
			shared = next
			continue
		}
		name, err := decodePlainName(a.Names, e)
		if err != nil {
			return fmt.Errorf("archive: decode name %d: %w", i, err)
		}
		a.Filename[i] = name
	}
	return nil
}

// ReadPayload reads the compressed (or stored) bytes for entry e.
func (a *Archive) ReadPayload(r io.ReadSeeker, e Entry) ([]byte, error) {
	buf := make([]byte, e.CompressLen)
	if err := readAt(r, int64(e.DataOffset), buf); err != nil {
		return nil, fmt.Errorf("archive: read payload: %w", err)
	}
	return buf, nil
}
