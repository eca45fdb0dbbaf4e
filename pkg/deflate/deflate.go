// Package deflate wraps raw-DEFLATE (no zlib or gzip framing) decompress
// and compress operations for texture payloads, built on
// github.com/klauspost/compress/flate.
package deflate

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// FixingSize is the number of leading bytes (the size of a texture's
// tex_header) that Decompress inflates before deciding, via needsFixing,
// whether the rest of the stream is worth inflating at all.
const FixingSize = 14

// ErrWouldNotShrink is returned by Compress when the deflated form would
// not be smaller than the raw input; callers store the raw payload in
// that case instead.
var ErrWouldNotShrink = fmt.Errorf("deflate: compressed form would not be smaller than raw")

// Decompress inflates compressed into a buffer of exactly decompressLen
// bytes. needsFixing is called with the first FixingSize inflated bytes;
// if it reports false, Decompress stops early and returns (nil, false,
// nil) without inflating the remainder — the caller should keep the
// original compressed bytes. If needsFixing reports true, the full
// payload is inflated and returned with ok=true. If decompressLen is
// smaller than FixingSize, Decompress returns (nil, false, nil) without
// calling needsFixing; a stream that ends before FixingSize bytes is an
// error.
func Decompress(compressed []byte, decompressLen int, needsFixing func(header []byte) (bool, error)) (out []byte, ok bool, err error) {
	if decompressLen < FixingSize {
		return nil, false, nil
	}

	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()

	out = make([]byte, decompressLen)
	n, err := io.ReadFull(r, out[:FixingSize])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, false, fmt.Errorf("deflate: inflate header: %w", err)
	}
	if n < FixingSize {
		return nil, false, fmt.Errorf("deflate: unable to inflate texture header")
	}

	fix, ferr := needsFixing(out[:FixingSize])
	if ferr != nil {
		return nil, false, ferr
	}
	if !fix {
		return nil, false, nil
	}

	rest, err := io.ReadFull(r, out[FixingSize:])
	if err != nil && err != io.EOF {
		return nil, false, fmt.Errorf("deflate: inflate body: %w", err)
	}
	if FixingSize+rest != decompressLen {
		return nil, false, fmt.Errorf("deflate: decompressed size incorrect: got %d, want %d", FixingSize+rest, decompressLen)
	}

	return out, true, nil
}

// Compress deflates decompressed at the given level (0-9, or -1 for the
// flate package's default). It returns
// ErrWouldNotShrink if the deflated form would not be strictly smaller
// than len(decompressed); the caller is expected to store the raw form
// in that case.
func Compress(decompressed []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("deflate: new writer: %w", err)
	}
	if _, err := w.Write(decompressed); err != nil {
		return nil, fmt.Errorf("deflate: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("deflate: close: %w", err)
	}

	if buf.Len() >= len(decompressed) {
		return nil, ErrWouldNotShrink
	}
	return buf.Bytes(), nil
}
