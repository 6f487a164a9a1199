package codec

import (
	"reflect"
	"testing"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// testCodecs is a map of codec name to factory function
var testCodecs = map[string]func() Codec{
	"JSON":   NewJSONCodec,
	"GOB":    NewGOBCodec,
	"Binary": NewBinaryCodec,
}

// testEnvelopes creates a set of envelopes with different fields filled
func testEnvelopes() []storage.Envelope {
	return []storage.Envelope{
		// minimal envelope
		{
			Value:   []byte("plain value"),
			Created: 1700000000000,
			Updated: 1700000000000,
		},

		// envelope with expiry
		{
			Value:   []byte("session data"),
			Created: 1700000000000,
			Updated: 1700000001000,
			Expires: 1700000600000,
		},

		// tagged envelope with metadata
		{
			Value:    []byte(`{"id":42}`),
			Created:  1700000000000,
			Updated:  1700000000000,
			Tags:     []string{"user", "profile"},
			Metadata: map[string]string{"origin": "import", "schema": "v2"},
		},

		// envelope with every field filled
		{
			Value:      []byte{0x1f, 0x8b, 0x00, 0xff},
			Created:    1700000000000,
			Updated:    1700000002000,
			Expires:    1700000600000,
			Tags:       []string{"secret"},
			Metadata:   map[string]string{"kdf": "pbkdf2"},
			Encrypted:  true,
			Compressed: true,
		},
	}
}

// TestCodecRoundTrip tests that envelopes survive encode/decode unchanged
func TestCodecRoundTrip(t *testing.T) {
	envelopes := testEnvelopes()

	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			for i, env := range envelopes {
				data, err := c.Encode(&env)
				if err != nil {
					t.Errorf("Failed to encode envelope %d: %v", i, err)
					continue
				}

				var result storage.Envelope
				if err := c.Decode(data, &result); err != nil {
					t.Errorf("Failed to decode envelope %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(env, result) {
					t.Errorf("Envelope %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, env, result)
				}
			}
		})
	}
}

// TestCodecFlagFidelity verifies the transformation flags survive all codecs.
// The read pipeline depends on them, so a codec that loses a flag corrupts
// every encrypted or compressed entry.
func TestCodecFlagFidelity(t *testing.T) {
	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			c := factory()

			for _, env := range []storage.Envelope{
				{Value: []byte("x"), Encrypted: true},
				{Value: []byte("x"), Compressed: true},
				{Value: []byte("x"), Encrypted: true, Compressed: true},
				{Value: []byte("x")},
			} {
				data, err := c.Encode(&env)
				if err != nil {
					t.Fatalf("Encode failed: %v", err)
				}
				var result storage.Envelope
				if err := c.Decode(data, &result); err != nil {
					t.Fatalf("Decode failed: %v", err)
				}
				if result.Encrypted != env.Encrypted || result.Compressed != env.Compressed {
					t.Errorf("Flags lost: sent (enc=%v, comp=%v), got (enc=%v, comp=%v)",
						env.Encrypted, env.Compressed, result.Encrypted, result.Compressed)
				}
			}
		})
	}
}

// TestGet tests codec resolution by configuration name
func TestGet(t *testing.T) {
	for _, name := range []string{"", "json", "gob", "binary"} {
		if _, err := Get(name); err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
		}
	}
	if _, err := Get("msgpack"); err == nil {
		t.Error("Get of an unknown codec should fail")
	}
}

// TestInvalidBinaryData tests how the binary codec handles corrupt input
func TestInvalidBinaryData(t *testing.T) {
	c := NewBinaryCodec()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Header only, no timestamps",
			data:        []byte{1, 0},
			expectError: true,
		},
		{
			name:        "Wrong version",
			data:        append([]byte{99, 0}, make([]byte, 16)...),
			expectError: true,
		},
		{
			name:        "Minimal valid envelope",
			data:        append([]byte{1, 0}, make([]byte, 16)...),
			expectError: false,
		},
		{
			name: "Claims value but data missing",
			// version, hasValue flag, timestamps, then a length with no payload
			data:        append(append([]byte{1, 2}, make([]byte, 16)...), 0, 0, 0, 10),
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var env storage.Envelope
			err := c.Decode(tc.data, &env)

			if tc.expectError && err == nil {
				t.Error("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
