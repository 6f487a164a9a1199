package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// NewBinaryCodec creates a codec using a custom binary format optimized
// for speed and compact envelopes. This is the default codec for
// byte-oriented adapters.
func NewBinaryCodec() Codec {
	return &binaryCodecImpl{}
}

// binaryCodecImpl implements the Codec interface using a custom binary format
type binaryCodecImpl struct {
}

// binaryVersion identifies the envelope wire layout. Bump on any change.
const binaryVersion byte = 1

// Bit flags to indicate which optional fields are present
const (
	hasExpires   byte = 1 << 0
	hasValue     byte = 1 << 1
	hasTags      byte = 1 << 2
	hasMeta      byte = 1 << 3
	isEncrypted  byte = 1 << 4
	isCompressed byte = 1 << 5
)

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.Codec)
// --------------------------------------------------------------------------

func (c binaryCodecImpl) Encode(env *storage.Envelope) ([]byte, error) {
	result := make([]byte, c.sizeBytes(env))

	result[0] = binaryVersion

	var flags byte
	pos := 2 // start after version and flags

	// Created and Updated are always present
	binary.BigEndian.PutUint64(result[pos:pos+8], uint64(env.Created))
	pos += 8
	binary.BigEndian.PutUint64(result[pos:pos+8], uint64(env.Updated))
	pos += 8

	if env.Expires != 0 {
		flags |= hasExpires
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(env.Expires))
		pos += 8
	}

	if env.Value != nil {
		flags |= hasValue
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(env.Value)))
		pos += 4
		copy(result[pos:pos+len(env.Value)], env.Value)
		pos += len(env.Value)
	}

	if len(env.Tags) > 0 {
		flags |= hasTags
		binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(env.Tags)))
		pos += 2
		for _, tag := range env.Tags {
			binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(tag)))
			pos += 2
			copy(result[pos:pos+len(tag)], tag)
			pos += len(tag)
		}
	}

	if len(env.Metadata) > 0 {
		flags |= hasMeta
		binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(env.Metadata)))
		pos += 2
		for k, v := range env.Metadata {
			binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(k)))
			pos += 2
			copy(result[pos:pos+len(k)], k)
			pos += len(k)
			binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(v)))
			pos += 4
			copy(result[pos:pos+len(v)], v)
			pos += len(v)
		}
	}

	if env.Encrypted {
		flags |= isEncrypted
	}
	if env.Compressed {
		flags |= isCompressed
	}

	result[1] = flags
	return result, nil
}

func (c binaryCodecImpl) Decode(b []byte, env *storage.Envelope) error {
	if len(b) < 18 { // version + flags + created + updated
		return fmt.Errorf("envelope data too short: %d bytes", len(b))
	}
	if b[0] != binaryVersion {
		return fmt.Errorf("unsupported envelope version %d", b[0])
	}

	flags := b[1]
	pos := 2

	env.Created = int64(binary.BigEndian.Uint64(b[pos : pos+8]))
	pos += 8
	env.Updated = int64(binary.BigEndian.Uint64(b[pos : pos+8]))
	pos += 8

	env.Expires = 0
	if flags&hasExpires != 0 {
		if pos+8 > len(b) {
			return fmt.Errorf("truncated expires field at offset %d", pos)
		}
		env.Expires = int64(binary.BigEndian.Uint64(b[pos : pos+8]))
		pos += 8
	}

	env.Value = nil
	if flags&hasValue != 0 {
		if pos+4 > len(b) {
			return fmt.Errorf("truncated value length at offset %d", pos)
		}
		valueLen := int(binary.BigEndian.Uint32(b[pos : pos+4]))
		pos += 4
		if pos+valueLen > len(b) {
			return fmt.Errorf("value length %d exceeds remaining data", valueLen)
		}
		env.Value = make([]byte, valueLen)
		copy(env.Value, b[pos:pos+valueLen])
		pos += valueLen
	}

	env.Tags = nil
	if flags&hasTags != 0 {
		if pos+2 > len(b) {
			return fmt.Errorf("truncated tag count at offset %d", pos)
		}
		count := int(binary.BigEndian.Uint16(b[pos : pos+2]))
		pos += 2
		env.Tags = make([]string, 0, count)
		for i := 0; i < count; i++ {
			if pos+2 > len(b) {
				return fmt.Errorf("truncated tag length at offset %d", pos)
			}
			tagLen := int(binary.BigEndian.Uint16(b[pos : pos+2]))
			pos += 2
			if pos+tagLen > len(b) {
				return fmt.Errorf("tag length %d exceeds remaining data", tagLen)
			}
			env.Tags = append(env.Tags, string(b[pos:pos+tagLen]))
			pos += tagLen
		}
	}

	env.Metadata = nil
	if flags&hasMeta != 0 {
		if pos+2 > len(b) {
			return fmt.Errorf("truncated metadata count at offset %d", pos)
		}
		count := int(binary.BigEndian.Uint16(b[pos : pos+2]))
		pos += 2
		env.Metadata = make(map[string]string, count)
		for i := 0; i < count; i++ {
			if pos+2 > len(b) {
				return fmt.Errorf("truncated metadata key length at offset %d", pos)
			}
			keyLen := int(binary.BigEndian.Uint16(b[pos : pos+2]))
			pos += 2
			if pos+keyLen > len(b) {
				return fmt.Errorf("metadata key length %d exceeds remaining data", keyLen)
			}
			key := string(b[pos : pos+keyLen])
			pos += keyLen
			if pos+4 > len(b) {
				return fmt.Errorf("truncated metadata value length at offset %d", pos)
			}
			valLen := int(binary.BigEndian.Uint32(b[pos : pos+4]))
			pos += 4
			if pos+valLen > len(b) {
				return fmt.Errorf("metadata value length %d exceeds remaining data", valLen)
			}
			env.Metadata[key] = string(b[pos : pos+valLen])
			pos += valLen
		}
	}

	env.Encrypted = flags&isEncrypted != 0
	env.Compressed = flags&isCompressed != 0

	return nil
}

func (c binaryCodecImpl) Name() string { return "binary" }

// sizeBytes calculates the exact encoded size of an envelope
func (c binaryCodecImpl) sizeBytes(env *storage.Envelope) int {
	size := 2 + 8 + 8 // version + flags + created + updated
	if env.Expires != 0 {
		size += 8
	}
	if env.Value != nil {
		size += 4 + len(env.Value)
	}
	if len(env.Tags) > 0 {
		size += 2
		for _, tag := range env.Tags {
			size += 2 + len(tag)
		}
	}
	if len(env.Metadata) > 0 {
		size += 2
		for k, v := range env.Metadata {
			size += 2 + len(k) + 4 + len(v)
		}
	}
	return size
}
