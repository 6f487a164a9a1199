package transform

// --------------------------------------------------------------------------
// Compression Result Type
// --------------------------------------------------------------------------

// Result is the outcome of a compression attempt. A compressor is allowed
// to decline (payload too small, output larger than the input); the two
// cases are explicit constructors so the orchestrator never has to guess
// from the payload shape whether compression happened.
type Result struct {
	data       []byte
	compressed bool
}

// Compressed wraps bytes that were actually compressed.
func Compressed(data []byte) Result {
	return Result{data: data, compressed: true}
}

// Declined wraps the untouched original payload.
func Declined(original []byte) Result {
	return Result{data: original, compressed: false}
}

// Bytes returns the payload to store, compressed or not.
func (r Result) Bytes() []byte { return r.data }

// DidCompress reports whether compression was applied. The orchestrator
// records this on the envelope so the read path knows what to reverse.
func (r Result) DidCompress() bool { return r.compressed }

// --------------------------------------------------------------------------
// Collaborator Interfaces
// --------------------------------------------------------------------------

// Compressor is the reversible byte-compressor collaborator of the value
// pipeline. Compress may decline; Decompress must exactly reverse a
// non-declined Compress.
type Compressor interface {
	Compress(data []byte) (Result, error)
	Decompress(data []byte) ([]byte, error)
}

// Encryptor is the AEAD cipher collaborator of the value pipeline.
// Implementations derive the cipher key from the caller's password and
// authenticate the ciphertext, so tampering and wrong passwords both fail
// on Decrypt.
type Encryptor interface {
	Encrypt(plain []byte, password string) ([]byte, error)
	Decrypt(blob []byte, password string) ([]byte, error)
	// Available reports whether the cipher primitive is usable.
	Available() bool
}
