package compress

import (
	"bytes"
	"testing"

	"github.com/aoneahsan/strata-storage/lib/transform"
)

func compressors() map[string]transform.Compressor {
	return map[string]transform.Compressor{
		"gzip": NewGzipCompressor(0, 0),
		"s2":   NewS2Compressor(0),
	}
}

// TestCompressRoundTrip verifies a compressible payload round-trips exactly
func TestCompressRoundTrip(t *testing.T) {
	for name, c := range compressors() {
		t.Run(name, func(t *testing.T) {
			// highly repetitive payload, well above the threshold
			data := bytes.Repeat([]byte("strata-storage "), 200)

			result, err := c.Compress(data)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if !result.DidCompress() {
				t.Fatal("Expected the payload to be compressed")
			}
			if len(result.Bytes()) >= len(data) {
				t.Errorf("Compressed size %d should be smaller than original %d", len(result.Bytes()), len(data))
			}

			out, err := c.Decompress(result.Bytes())
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Error("Round trip did not restore the original payload")
			}
		})
	}
}

// TestCompressDeclinesSmallPayload verifies the decline path for payloads
// below the threshold
func TestCompressDeclinesSmallPayload(t *testing.T) {
	for name, c := range compressors() {
		t.Run(name, func(t *testing.T) {
			data := []byte("tiny")
			result, err := c.Compress(data)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if result.DidCompress() {
				t.Error("Payload below threshold should be declined")
			}
			if !bytes.Equal(result.Bytes(), data) {
				t.Error("Declined result must carry the original payload")
			}
		})
	}
}

// TestCompressDeclinesIncompressible verifies payloads the algorithm cannot
// shrink are declined rather than grown
func TestCompressDeclinesIncompressible(t *testing.T) {
	for name, c := range compressors() {
		t.Run(name, func(t *testing.T) {
			// pseudo-random bytes do not compress
			data := make([]byte, 4096)
			state := uint32(0x9e3779b9)
			for i := range data {
				state = state*1664525 + 1013904223
				data[i] = byte(state >> 24)
			}

			result, err := c.Compress(data)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if result.DidCompress() {
				t.Error("Incompressible payload should be declined")
			}
		})
	}
}

// TestDecompressCorruptData verifies corrupt input fails with an error
func TestDecompressCorruptData(t *testing.T) {
	for name, c := range compressors() {
		t.Run(name, func(t *testing.T) {
			if _, err := c.Decompress([]byte("\x00corrupt stream\xff")); err == nil {
				t.Error("Expected an error for corrupt input")
			}
		})
	}
}
