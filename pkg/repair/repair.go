// Package repair orchestrates a single pass over a DAT archive: every
// entry's payload is carried through unchanged except ".tex" textures,
// which are inflated, checked, and patched by pkg/texture before being
// written back out. The pass is single-threaded and streams straight
// from the source archive to the destination, the way dat_proc.cpp's
// process_textures does.
package repair

import (
	"fmt"
	"io"
	"strings"

	"github.com/goopsie/dattexfix/pkg/archive"
	"github.com/goopsie/dattexfix/pkg/deflate"
	"github.com/goopsie/dattexfix/pkg/texture"
)

// Config controls how repaired texture payloads are recompressed.
type Config struct {
	// CompressionLevel is passed straight to the deflate writer. Use
	// DefaultCompressionLevel to match the original tool's default.
	CompressionLevel int
}

// DefaultCompressionLevel matches zlib's Z_DEFAULT_COMPRESSION, which
// is what the original tool used when no -fN flag was given.
const DefaultCompressionLevel = -1

// Stats summarizes one Run.
type Stats struct {
	TexturesSeen    int
	TexturesPatched int
}

// Run reads the archive from in, repairs any texture payload that
// needs it, and writes the resulting archive to out. Progress lines
// (one per texture that needs fixing, then one before the file table
// is rewritten) are written to progress, matching the original tool's
// per-file console output; pass io.Discard to silence it.
func Run(in io.ReadSeeker, out io.WriteSeeker, cfg Config, progress io.Writer) (Stats, error) {
	var stats Stats

	a, err := archive.NewReader(in)
	if err != nil {
		return stats, fmt.Errorf("repair: read archive: %w", err)
	}

	w, err := archive.NewWriter(out, a.Header, a.Names)
	if err != nil {
		return stats, fmt.Errorf("repair: start writer: %w", err)
	}

	entries := make([]archive.Entry, len(a.Entries))
	for i, e := range a.Entries {
		name := a.Filename[i]
		payload, err := a.ReadPayload(in, e)
		if err != nil {
			return stats, fmt.Errorf("repair: read %q: %w", name, err)
		}

		if strings.HasSuffix(name, ".tex") {
			payload, e, err = repairOne(name, payload, e, cfg, progress, &stats)
			if err != nil {
				return stats, fmt.Errorf("repair: %q: %w", name, err)
			}
		}

		off, err := w.WritePayload(payload)
		if err != nil {
			return stats, fmt.Errorf("repair: write %q: %w", name, err)
		}
		e.DataOffset = off
		entries[i] = e
	}

	fmt.Fprintln(progress, "Writing new File Directory")
	if err := w.Finalize(entries); err != nil {
		return stats, fmt.Errorf("repair: finalize: %w", err)
	}
	return stats, nil
}

// repairOne inflates (if needed), fixes, and recompresses a single
// ".tex" entry's payload, returning the bytes to write back and the
// entry with its lengths updated to match.
func repairOne(name string, payload []byte, e archive.Entry, cfg Config, progress io.Writer, stats *Stats) ([]byte, archive.Entry, error) {
	var raw []byte
	var needsFix bool

	switch {
	case e.CompressLen < e.DecompressLen:
		var ok bool
		var err error
		raw, ok, err = deflate.Decompress(payload, int(e.DecompressLen), texture.NeedsFixing)
		if err != nil {
			return nil, e, err
		}
		needsFix = ok
	case e.CompressLen == e.DecompressLen:
		raw = payload
		ok, err := texture.NeedsFixing(raw)
		if err != nil {
			return nil, e, err
		}
		needsFix = ok
	default:
		return nil, e, fmt.Errorf("compressed texture larger than decompressed is invalid")
	}

	if !needsFix {
		return payload, e, nil
	}

	stats.TexturesSeen++
	fmt.Fprintf(progress, "%s - ", name)

	changed, fixed, err := texture.FixDXT(raw)
	if err != nil {
		return nil, e, err
	}
	if !changed {
		fmt.Fprintln(progress, "Good")
		return payload, e, nil
	}

	stats.TexturesPatched++
	fmt.Fprintln(progress, "Patched")

	e.DecompressLen = uint32(len(fixed))
	compressed, err := deflate.Compress(fixed, cfg.CompressionLevel)
	if err == deflate.ErrWouldNotShrink {
		e.CompressLen = e.DecompressLen
		return fixed, e, nil
	}
	if err != nil {
		return nil, e, err
	}
	e.CompressLen = uint32(len(compressed))
	return compressed, e, nil
}
