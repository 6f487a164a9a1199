package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/aoneahsan/strata-storage/lib/transform"
	"golang.org/x/crypto/pbkdf2"
)

// Blob layout: salt (16) || nonce (12) || AES-256-GCM ciphertext.
// The salt is generated per Encrypt call, so the same plaintext encrypted
// twice yields different blobs.
const (
	saltSize   = 16
	nonceSize  = 12
	keySize    = 32
	iterations = 100_000
)

// NewAESGCMEncryptor creates the default encryption collaborator:
// AES-256-GCM with a PBKDF2-SHA256 derived key.
func NewAESGCMEncryptor() transform.Encryptor {
	return &aesGCMImpl{}
}

// aesGCMImpl implements transform.Encryptor using AES-256-GCM
type aesGCMImpl struct {
}

// deriveKey stretches the password into a cipher key with PBKDF2.
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transform.Encryptor)
// --------------------------------------------------------------------------

func (e *aesGCMImpl) Encrypt(plain []byte, password string) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	blob := make([]byte, 0, saltSize+nonceSize+len(plain)+aead.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = aead.Seal(blob, nonce, plain, nil)

	return blob, nil
}

func (e *aesGCMImpl) Decrypt(blob []byte, password string) ([]byte, error) {
	if len(blob) < saltSize+nonceSize {
		return nil, fmt.Errorf("encrypted blob too short: %d bytes", len(blob))
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, err
	}

	// GCM authenticates, so a wrong password and tampered data both fail here
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plain, nil
}

func (e *aesGCMImpl) Available() bool {
	return true
}
