package archive

import (
	"bytes"
	"io"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Magic: MagicPlain, NumFiles: 3, MetaLen: 48, NameLen: 20}
	buf := make([]byte, HeaderSize)
	h.encodeInto(buf)
	got := decodeHeader(buf)
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestHeaderIsBase64(t *testing.T) {
	t.Run("Plain", func(t *testing.T) {
		h := Header{Magic: MagicPlain}
		b64, err := h.IsBase64()
		if err != nil || b64 {
			t.Errorf("got base64=%v err=%v", b64, err)
		}
	})
	t.Run("Base64", func(t *testing.T) {
		h := Header{Magic: MagicBase64}
		b64, err := h.IsBase64()
		if err != nil || !b64 {
			t.Errorf("got base64=%v err=%v", b64, err)
		}
	})
	t.Run("Unknown", func(t *testing.T) {
		h := Header{Magic: 0x12345678}
		if _, err := h.IsBase64(); err == nil {
			t.Error("expected error for unknown magic")
		}
	})
}

func TestEntryRoundTrip(t *testing.T) {
	e := Entry{NameOffset: 4, DataOffset: 2048, DecompressLen: 900, CompressLen: 400}
	buf := make([]byte, EntrySize)
	e.encodeInto(buf)
	if got := decodeEntry(buf); got != e {
		t.Errorf("got %+v, want %+v", got, e)
	}
}

func TestDecodePlainName(t *testing.T) {
	names := []byte("foo.tex\x00bar.tex\x00")
	name, err := decodePlainName(names, Entry{NameOffset: 0})
	if err != nil {
		t.Fatalf("decodePlainName: %v", err)
	}
	if name != "foo.tex" {
		t.Errorf("got %q", name)
	}

	name, err = decodePlainName(names, Entry{NameOffset: 8})
	if err != nil {
		t.Fatalf("decodePlainName: %v", err)
	}
	if name != "bar.tex" {
		t.Errorf("got %q", name)
	}
}

func TestDecodePlainNameUnterminated(t *testing.T) {
	names := []byte("foo.tex")
	if _, err := decodePlainName(names, Entry{NameOffset: 0}); err == nil {
		t.Error("expected error for unterminated name")
	}
}

// TestDecodeBase64Name decodes a hand-packed, delta-prefixed pair of
// names: the packed bytes for "foo.tex" followed by a second entry
// that shares its first 3 characters ("foo") and appends "2.tex".
func TestDecodeBase64Name(t *testing.T) {
	names := []byte{
		0xDA, 0x38, 0x1E, 0x68, 0xC6, 0x02, // "foo.tex"
		0x3B, 0xC8, 0x1C, 0x68, 0xC6, 0x02, // delta(keep=3) + "2.tex"
	}

	name0, shared, err := decodeBase64Name(names, Entry{NameOffset: 0}, nil)
	if err != nil {
		t.Fatalf("decode entry 0: %v", err)
	}
	if name0 != "foo.tex" {
		t.Fatalf("entry 0: got %q, want foo.tex", name0)
	}

	name1, _, err := decodeBase64Name(names, Entry{NameOffset: 6}, shared)
	if err != nil {
		t.Fatalf("decode entry 1: %v", err)
	}
	if name1 != "foo2.tex" {
		t.Fatalf("entry 1: got %q, want foo2.tex", name1)
	}
}

func TestDecodeBase64NameInvalidCharacter(t *testing.T) {
	// unit0 = 48 (table index of the first '+' filler slot): not a
	// valid leading character and not a valid delta prefix marker
	// either, since 0x30 triggers the delta path which then rejects it.
	names := []byte{0x30, 0x00, 0x00}
	if _, _, err := decodeBase64Name(names, Entry{NameOffset: 0}, nil); err == nil {
		t.Error("expected error for malformed delta prefix")
	}
}

// seekableBuffer is a byte-slice-backed io.ReadWriteSeeker for tests,
// the way the archive on disk behaves under random-access writes.
type seekableBuffer struct {
	buf []byte
	pos int64
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		s.pos = offset
	case 1:
		s.pos += offset
	case 2:
		s.pos = int64(len(s.buf)) + offset
	}
	return s.pos, nil
}

func (s *seekableBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	n := copy(s.buf[s.pos:end], p)
	s.pos += int64(n)
	return n, nil
}

func (s *seekableBuffer) Read(p []byte) (int, error) {
	n := copy(p, s.buf[s.pos:])
	s.pos += int64(n)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func TestWriterReaderRoundTrip(t *testing.T) {
	names := []byte("a.tex\x00bb.bin\x00")
	header := Header{Magic: MagicPlain, NumFiles: 2, MetaLen: uint32(2 * EntrySize), NameLen: uint32(len(names))}

	dst := &seekableBuffer{}
	w, err := NewWriter(dst, header, names)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	payload0 := bytes.Repeat([]byte{0xAA}, 100)
	off0, err := w.WritePayload(payload0)
	if err != nil {
		t.Fatalf("WritePayload 0: %v", err)
	}
	payload1 := bytes.Repeat([]byte{0xBB}, 3000)
	off1, err := w.WritePayload(payload1)
	if err != nil {
		t.Fatalf("WritePayload 1: %v", err)
	}

	entries := []Entry{
		{NameOffset: 0, DataOffset: off0, DecompressLen: uint32(len(payload0)), CompressLen: uint32(len(payload0))},
		{NameOffset: 6, DataOffset: off1, DecompressLen: uint32(len(payload1)), CompressLen: uint32(len(payload1))},
	}
	if err := w.Finalize(entries); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	src := &seekableBuffer{buf: dst.buf}
	a, err := NewReader(src)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if a.Header != header {
		t.Errorf("header mismatch: got %+v, want %+v", a.Header, header)
	}
	if len(a.Entries) != 2 || a.Entries[0].DataOffset != off0 || a.Entries[1].DataOffset != off1 {
		t.Errorf("entries mismatch: got %+v", a.Entries)
	}
	if a.Filename[0] != "a.tex" || a.Filename[1] != "bb.bin" {
		t.Errorf("names mismatch: got %v", a.Filename)
	}

	got0, err := a.ReadPayload(src, a.Entries[0])
	if err != nil || !bytes.Equal(got0, payload0) {
		t.Errorf("payload 0 mismatch: err=%v got=%v", err, got0)
	}
	got1, err := a.ReadPayload(src, a.Entries[1])
	if err != nil || !bytes.Equal(got1, payload1) {
		t.Errorf("payload 1 mismatch: err=%v len(got)=%d", err, len(got1))
	}

	// the archive's final byte must sit one before a 2048 boundary.
	if (len(dst.buf))%PaddingUnit != 0 {
		t.Errorf("archive length %d is not 2048-aligned", len(dst.buf))
	}
}

func TestWritePayloadAlignsWhenDataExceedsGap(t *testing.T) {
	names := []byte("a.tex\x00")
	header := Header{Magic: MagicPlain, NumFiles: 1, MetaLen: EntrySize, NameLen: uint32(len(names))}
	dst := &seekableBuffer{}
	w, err := NewWriter(dst, header, names)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	// A payload larger than the gap to the next 2048 boundary should
	// jump past the padding before writing.
	startPos, _ := dst.Seek(0, 1)
	gap := (PaddingUnit - (startPos % PaddingUnit)) % PaddingUnit
	payload := bytes.Repeat([]byte{0x01}, int(gap)+10)

	off, err := w.WritePayload(payload)
	if err != nil {
		t.Fatalf("WritePayload: %v", err)
	}
	if int64(off)%PaddingUnit != 0 {
		t.Errorf("expected payload aligned to 2048, got offset %d", off)
	}
}
