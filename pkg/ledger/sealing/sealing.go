package sealing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// Hasher computes a content hash incrementally. It accepts writes of raw
// artifact bytes and produces a hex-encoded digest, which allows the
// ingestion pipeline to hash while streaming without re-reading the source.
type Hasher interface {
	io.Writer

	// Sum returns the hex-encoded digest of all bytes written so far.
	Sum() string
}

// HashProvider produces deterministic content hashes. The hash of the
// original plaintext bytes is the content address of a piece of evidence
// and the baseline for tamper detection.
type HashProvider interface {
	// Algorithm returns the algorithm name recorded in hash certificates
	// (e.g. "SHA-256").
	Algorithm() string

	// Hash returns the hex-encoded digest of data.
	Hash(data []byte) string

	// NewHasher returns an incremental hasher for streaming input.
	NewHasher() Hasher
}

// EncryptionProvider encrypts evidence at rest. The ledger treats the
// cipher as an opaque primitive; key custody is the caller's concern.
type EncryptionProvider interface {
	// Algorithm returns the cipher identity (e.g. "AES-256-GCM").
	Algorithm() string

	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// SigningProvider signs export payloads so downstream reporting can prove
// a custody snapshot originated from this ledger.
type SigningProvider interface {
	// Algorithm returns the signature scheme name (e.g. "HMAC-SHA256").
	Algorithm() string

	Sign(payload []byte) (string, error)
}

// SHA256Provider implements HashProvider using SHA-256 with hex encoding.
type SHA256Provider struct{}

// NewSHA256Provider creates the default content hash provider.
func NewSHA256Provider() *SHA256Provider {
	return &SHA256Provider{}
}

// Algorithm returns the hash algorithm name.
func (p *SHA256Provider) Algorithm() string { return "SHA-256" }

// Hash returns the hex-encoded SHA-256 digest of data.
func (p *SHA256Provider) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewHasher returns an incremental SHA-256 hasher.
func (p *SHA256Provider) NewHasher() Hasher {
	return &sha256Hasher{h: sha256.New()}
}

type sha256Hasher struct {
	h hash.Hash
}

func (s *sha256Hasher) Write(p []byte) (int, error) {
	return s.h.Write(p)
}

func (s *sha256Hasher) Sum() string {
	return hex.EncodeToString(s.h.Sum(nil))
}

// AESGCMProvider implements EncryptionProvider using AES-GCM with a
// random nonce prepended to each ciphertext. The key is an opaque handle
// supplied by the composition root; it is never stored by the ledger.
type AESGCMProvider struct {
	aead cipher.AEAD
}

// NewAESGCMProvider creates an AES-GCM encryption provider. The key must
// be 16, 24, or 32 bytes (AES-128/192/256).
func NewAESGCMProvider(key []byte) (*AESGCMProvider, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &AESGCMProvider{aead: aead}, nil
}

// Algorithm returns the cipher identity.
func (p *AESGCMProvider) Algorithm() string { return "AES-256-GCM" }

// Encrypt seals plaintext with a fresh random nonce. The nonce is
// prepended to the returned ciphertext.
func (p *AESGCMProvider) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, p.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return p.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Authentication failure
// (a modified blob) is reported as an error.
func (p *AESGCMProvider) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < p.aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce (%d bytes)", len(ciphertext))
	}

	nonce, sealed := ciphertext[:p.aead.NonceSize()], ciphertext[p.aead.NonceSize():]

	plaintext, err := p.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// HMACSigner implements SigningProvider using HMAC-SHA256. Signatures are
// deterministic for a given key and payload, which keeps export bundles
// reproducible.
type HMACSigner struct {
	key []byte
}

// NewHMACSigner creates an HMAC-SHA256 signing provider.
func NewHMACSigner(key []byte) *HMACSigner {
	return &HMACSigner{key: key}
}

// Algorithm returns the signature scheme name.
func (s *HMACSigner) Algorithm() string { return "HMAC-SHA256" }

// Sign returns the hex-encoded HMAC of payload.
func (s *HMACSigner) Sign(payload []byte) (string, error) {
	mac := hmac.New(sha256.New, s.key)
	if _, err := mac.Write(payload); err != nil {
		return "", err
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Subkey derivation labels. Distinct labels guarantee the cipher and
// signing keys are independent even though both derive from one master.
const (
	labelEncryption = "quaestor/evidence-encryption"
	labelSigning    = "quaestor/export-signing"
)

// DeriveKeys expands a master key into independent 256-bit encryption and
// signing subkeys via HKDF-SHA256, so compromising one never exposes the
// other. Derivation is deterministic for a given master.
func DeriveKeys(master []byte) (encryption, signing []byte, err error) {
	if len(master) == 0 {
		return nil, nil, fmt.Errorf("master key is empty")
	}

	encryption, err = hkdf.Key(sha256.New, master, nil, labelEncryption, 32)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	signing, err = hkdf.Key(sha256.New, master, nil, labelSigning, 32)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive signing key: %w", err)
	}

	return encryption, signing, nil
}
