package codec

import (
	"fmt"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// Codec serializes storage envelopes into bytes and back. Byte-oriented
// adapters (bolt, sqlite, fs) persist envelopes through a codec, and the
// export tooling uses one for its on-disk format.
type Codec interface {
	// Encode serializes an envelope into a byte slice.
	Encode(env *storage.Envelope) ([]byte, error)
	// Decode deserializes a byte slice into the provided envelope.
	Decode(b []byte, env *storage.Envelope) error
	// Name returns the codec identifier used in configuration.
	Name() string
}

// Get resolves a codec by its configuration name. An empty name selects
// the binary codec, the default for byte-oriented adapters.
func Get(name string) (Codec, error) {
	switch name {
	case "", "binary":
		return NewBinaryCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	case "gob":
		return NewGOBCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %q (must be one of json, gob, binary)", name)
	}
}
