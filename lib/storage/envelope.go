package storage

import "time"

// --------------------------------------------------------------------------
// Storage Envelope
// --------------------------------------------------------------------------

// Envelope is the unit actually handed to a backend: the (possibly
// compressed, possibly encrypted) payload plus the metadata needed to
// reverse the transformations and to decide expiry.
//
// The Encrypted and Compressed flags are authoritative. An envelope always
// self-describes its transformation state; the orchestrator never infers it
// from the payload bytes.
type Envelope struct {
	// Value is the payload after the write pipeline ran over it
	Value []byte `json:"value"`
	// Created is set once, Updated on every write (epoch milliseconds)
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
	// Expires is the absolute expiry in epoch milliseconds, 0 = never
	Expires int64 `json:"expires,omitempty"`
	// Tags are caller-supplied strings for grouping and queries
	Tags []string `json:"tags,omitempty"`
	// Metadata is a caller-supplied opaque map
	Metadata map[string]string `json:"metadata,omitempty"`
	// Transformation flags, required to reverse the pipeline on read
	Encrypted  bool `json:"encrypted,omitempty"`
	Compressed bool `json:"compressed,omitempty"`
}

// NowMillis returns the current time in epoch milliseconds, the time unit
// used throughout envelopes and TTL calculations.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Clone returns a deep copy of the envelope. Adapters that keep envelopes
// in process memory must hand out copies so callers cannot mutate stored
// state behind the adapter's back.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Value != nil {
		cp.Value = make([]byte, len(e.Value))
		copy(cp.Value, e.Value)
	}
	if e.Tags != nil {
		cp.Tags = make([]string, len(e.Tags))
		copy(cp.Tags, e.Tags)
	}
	if e.Metadata != nil {
		cp.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// HasTag reports whether the envelope carries the given tag.
func (e *Envelope) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
