// Package archive reads and writes DAT texture archives: a fixed
// 16-byte header, a file table of fixed-size entries, a name blob, and
// a sequence of 2048-byte-aligned compressed payloads.
package archive

import (
	"encoding/binary"
	"fmt"
)

// Magic values identifying the two DAT archive name encodings.
const (
	MagicPlain  = 0x45564144 // "DAVE", null-terminated ASCII names
	MagicBase64 = 0x65766144 // "Dave", 6-bit packed names with delta prefixes
)

// HeaderSize is the fixed binary size of a dat_header.
const HeaderSize = 16

// EntrySize is the fixed binary size of one file_info entry.
const EntrySize = 16

// FileTableOffset is the fixed offset of the file table within the archive.
const FileTableOffset = 2048

// PaddingUnit is the alignment granularity payloads are written at.
const PaddingUnit = 2048

// Header is the 16-byte archive header.
type Header struct {
	Magic    uint32
	NumFiles uint32
	MetaLen  uint32
	NameLen  uint32
}

// IsBase64 reports whether names in this archive use the packed
// 6-bit encoding rather than plain null-terminated ASCII.
func (h Header) IsBase64() (bool, error) {
	switch h.Magic {
	case MagicPlain:
		return false, nil
	case MagicBase64:
		return true, nil
	default:
		return false, fmt.Errorf("archive: unknown DAT file format (magic %#08x)", h.Magic)
	}
}

func decodeHeader(buf []byte) Header {
	return Header{
		Magic:    binary.LittleEndian.Uint32(buf[0:4]),
		NumFiles: binary.LittleEndian.Uint32(buf[4:8]),
		MetaLen:  binary.LittleEndian.Uint32(buf[8:12]),
		NameLen:  binary.LittleEndian.Uint32(buf[12:16]),
	}
}

func (h Header) encodeInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.NumFiles)
	binary.LittleEndian.PutUint32(buf[8:12], h.MetaLen)
	binary.LittleEndian.PutUint32(buf[12:16], h.NameLen)
}

// Entry is one file_info record: the file's name offset into the name
// blob, its payload offset in the archive, and its compressed and
// decompressed lengths.
type Entry struct {
	NameOffset    uint32
	DataOffset    uint32
	DecompressLen uint32
	CompressLen   uint32
}

func decodeEntry(buf []byte) Entry {
	return Entry{
		NameOffset:    binary.LittleEndian.Uint32(buf[0:4]),
		DataOffset:    binary.LittleEndian.Uint32(buf[4:8]),
		DecompressLen: binary.LittleEndian.Uint32(buf[8:12]),
		CompressLen:   binary.LittleEndian.Uint32(buf[12:16]),
	}
}

func (e Entry) encodeInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], e.NameOffset)
	binary.LittleEndian.PutUint32(buf[4:8], e.DataOffset)
	binary.LittleEndian.PutUint32(buf[8:12], e.DecompressLen)
	binary.LittleEndian.PutUint32(buf[12:16], e.CompressLen)
}

// Stored reports whether the entry's payload is stored uncompressed
// (CompressLen == DecompressLen) rather than deflated.
func (e Entry) Stored() bool {
	return e.CompressLen == e.DecompressLen
}
