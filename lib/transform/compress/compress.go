package compress

import (
	"bytes"
	"io"

	"github.com/aoneahsan/strata-storage/lib/transform"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
)

// DefaultThreshold is the payload size below which compression is declined.
// Tiny payloads gain nothing from gzip and usually grow instead.
const DefaultThreshold = 1024

// NewGzipCompressor creates a compressor using gzip at the given level
// (gzip.DefaultCompression when 0). Payloads smaller than threshold bytes
// are declined, as are payloads that gzip fails to shrink. A threshold
// of 0 selects DefaultThreshold; pass a negative threshold to compress
// everything.
func NewGzipCompressor(level, threshold int) transform.Compressor {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &gzipCompressorImpl{level: level, threshold: threshold}
}

// gzipCompressorImpl implements transform.Compressor using gzip
type gzipCompressorImpl struct {
	level     int
	threshold int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transform.Compressor)
// --------------------------------------------------------------------------

func (c *gzipCompressorImpl) Compress(data []byte) (transform.Result, error) {
	if len(data) < c.threshold {
		return transform.Declined(data), nil
	}

	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return transform.Result{}, err
	}
	if _, err := w.Write(data); err != nil {
		return transform.Result{}, err
	}
	if err := w.Close(); err != nil {
		return transform.Result{}, err
	}

	// compression that grows the payload is worse than none
	if buf.Len() >= len(data) {
		return transform.Declined(data), nil
	}

	return transform.Compressed(buf.Bytes()), nil
}

func (c *gzipCompressorImpl) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// --------------------------------------------------------------------------
// S2
// --------------------------------------------------------------------------

// NewS2Compressor creates a compressor using s2, a faster snappy variant
// trading ratio for speed. Decline semantics match the gzip compressor:
// payloads below threshold bytes or that s2 fails to shrink are stored
// untouched. A threshold of 0 selects DefaultThreshold.
func NewS2Compressor(threshold int) transform.Compressor {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &s2CompressorImpl{threshold: threshold}
}

// s2CompressorImpl implements transform.Compressor using s2
type s2CompressorImpl struct {
	threshold int
}

func (c *s2CompressorImpl) Compress(data []byte) (transform.Result, error) {
	if len(data) < c.threshold {
		return transform.Declined(data), nil
	}

	encoded := s2.Encode(nil, data)
	if len(encoded) >= len(data) {
		return transform.Declined(data), nil
	}
	return transform.Compressed(encoded), nil
}

func (c *s2CompressorImpl) Decompress(data []byte) ([]byte, error) {
	return s2.Decode(nil, data)
}
