package deflate

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/flate"
)

func deflateRaw(t *testing.T, data []byte, level int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestDecompressNeedsFixingFalse(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, 100)
	compressed := deflateRaw(t, payload, 6)

	called := false
	out, ok, err := Decompress(compressed, len(payload), func(header []byte) (bool, error) {
		called = true
		if len(header) != FixingSize {
			t.Errorf("header length: got %d, want %d", len(header), FixingSize)
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !called {
		t.Fatal("needsFixing was never called")
	}
	if ok {
		t.Error("expected ok=false for needsFixing=false")
	}
	if out != nil {
		t.Error("expected nil output when no fixing is needed")
	}
}

func TestDecompressNeedsFixingTrue(t *testing.T) {
	payload := append(bytes.Repeat([]byte{0xAB}, FixingSize), bytes.Repeat([]byte{0xCD}, 200)...)
	compressed := deflateRaw(t, payload, 6)

	out, ok, err := Decompress(compressed, len(payload), func(header []byte) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !bytes.Equal(out, payload) {
		t.Error("decompressed payload mismatch")
	}
}

func TestDecompressTooShortForFixingSize(t *testing.T) {
	payload := []byte{1, 2, 3}
	compressed := deflateRaw(t, payload, 6)

	out, ok, err := Decompress(compressed, len(payload), func(header []byte) (bool, error) {
		t.Fatal("needsFixing should not be called when decompressLen < FixingSize")
		return false, nil
	})
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if ok || out != nil {
		t.Error("expected ok=false, out=nil for short payload")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("echo texture payload "), 50)

	compressed, err := Compress(payload, 6)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) >= len(payload) {
		t.Fatalf("expected shrinkage: compressed=%d raw=%d", len(compressed), len(payload))
	}

	out, ok, err := Decompress(compressed, len(payload), func(header []byte) (bool, error) { return true, nil })
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !ok || !bytes.Equal(out, payload) {
		t.Error("round trip mismatch")
	}
}

func TestCompressWouldNotShrink(t *testing.T) {
	// High-entropy, already-incompressible data is typical of DXT5
	// block bytes; deflating it should not shrink it.
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte(i*37 + 11)
	}

	_, err := Compress(payload, 9)
	if err != ErrWouldNotShrink {
		t.Errorf("expected ErrWouldNotShrink, got %v", err)
	}
}
