package codec

import (
	"encoding/json"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// jsonCodecImpl encodes envelopes as JSON objects. The envelope's Value
// field is a byte slice, so encoding/json renders it as base64; the
// surrounding fields (timestamps, tags, metadata, flags) stay readable,
// which is the point of this codec.
type jsonCodecImpl struct{}

// NewJSONCodec creates a codec that serializes envelopes as JSON.
// Payloads are larger and slower to produce than the binary codec's,
// but export files and persisted rows can be inspected with any JSON
// tooling.
func NewJSONCodec() Codec {
	return jsonCodecImpl{}
}

func (jsonCodecImpl) Encode(env *storage.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (jsonCodecImpl) Decode(b []byte, env *storage.Envelope) error {
	return json.Unmarshal(b, env)
}

func (jsonCodecImpl) Name() string { return "json" }
