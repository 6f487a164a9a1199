package codec

import (
	"bytes"
	"encoding/gob"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// gobCodecImpl encodes envelopes with encoding/gob. Each call uses a
// fresh encoder so the stream carries the full type description every
// time; that makes single-envelope payloads self-contained at the cost
// of a fixed per-envelope overhead the binary codec does not pay.
type gobCodecImpl struct{}

// NewGOBCodec creates a codec that serializes envelopes with Go's gob
// format. Kept for compatibility with gob-based tooling; the binary
// codec is smaller and faster for the same data.
func NewGOBCodec() Codec {
	return gobCodecImpl{}
}

func (gobCodecImpl) Encode(env *storage.Envelope) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 + len(env.Value))
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodecImpl) Decode(b []byte, env *storage.Envelope) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(env)
}

func (gobCodecImpl) Name() string { return "gob" }
