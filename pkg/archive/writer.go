package archive

import (
	"fmt"
	"io"
)

// Writer emits a DAT archive: header and name blob up front, then a
// sequence of payloads written back to back at the 2048-byte alignment
// rule the original format uses, with the file table rewritten last
// once every entry's final offset and length are known.
type Writer struct {
	dst    io.WriteSeeker
	header Header
}

// NewWriter writes header and names to dst and positions dst at the
// start of the payload region, ready for repeated WritePayload calls.
func NewWriter(dst io.WriteSeeker, header Header, names []byte) (*Writer, error) {
	var headerBuf [HeaderSize]byte
	header.encodeInto(headerBuf[:])
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive: seek to start: %w", err)
	}
	if _, err := dst.Write(headerBuf[:]); err != nil {
		return nil, fmt.Errorf("archive: write header: %w", err)
	}

	namesAt := int64(FileTableOffset) + int64(header.MetaLen)
	if _, err := dst.Seek(namesAt, io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive: seek to name blob: %w", err)
	}
	if _, err := dst.Write(names); err != nil {
		return nil, fmt.Errorf("archive: write name blob: %w", err)
	}

	return &Writer{dst: dst, header: header}, nil
}

// WritePayload writes data at the next 2048-byte-aligned position,
// padding with a seek gap rather than zero bytes when data is larger
// than the padding it would otherwise need. It returns the offset the
// payload was actually written at, for the entry's DataOffset field.
//
// Padding is skipped entirely when the payload is no larger than the gap
// to the next boundary: the existing bytes already there (or the file's
// natural zero-extension) are left untouched and the payload written
// straight into that gap, matching the original writer's seekp-based
// padding rule.
func (w *Writer) WritePayload(data []byte) (uint32, error) {
	pos, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("archive: tell: %w", err)
	}
	padding := (PaddingUnit - (pos % PaddingUnit)) % PaddingUnit
	if int64(len(data)) > padding {
		pos, err = w.dst.Seek(padding, io.SeekCurrent)
		if err != nil {
			return 0, fmt.Errorf("archive: seek past padding: %w", err)
		}
	}
	if _, err := w.dst.Write(data); err != nil {
		return 0, fmt.Errorf("archive: write payload: %w", err)
	}
	return uint32(pos), nil
}

// Finalize pads the archive to end exactly one byte before the next
// 2048-byte boundary, writes a trailing null byte there, and rewrites
// the file table with entries' final offsets and lengths.
func (w *Writer) Finalize(entries []Entry) error {
	pos, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("archive: tell: %w", err)
	}
	endPos := ((pos + PaddingUnit) &^ (PaddingUnit - 1)) - 1
	if _, err := w.dst.Seek(endPos, io.SeekStart); err != nil {
		return fmt.Errorf("archive: seek to end padding: %w", err)
	}
	if _, err := w.dst.Write([]byte{0}); err != nil {
		return fmt.Errorf("archive: write trailing byte: %w", err)
	}

	buf := make([]byte, len(entries)*EntrySize)
	for i, e := range entries {
		e.encodeInto(buf[i*EntrySize : (i+1)*EntrySize])
	}
	if _, err := w.dst.Seek(FileTableOffset, io.SeekStart); err != nil {
		return fmt.Errorf("archive: seek to file table: %w", err)
	}
	if _, err := w.dst.Write(buf); err != nil {
		return fmt.Errorf("archive: write file table: %w", err)
	}
	return nil
}
