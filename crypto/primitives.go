// Package crypto implements the keyed PRF, KDF and AEAD primitives the rest
// of cuckoopir builds on: bucket placement (PRF), peer subkey derivation
// (KDF), and payload confidentiality/integrity (AEAD).
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length in bytes of a KDF input key and of every subkey it
// derives.
const KeySize = 16

// kdfSalt is the fixed HKDF salt required by the spec: SHA256("MC-OSAM-Salt").
var kdfSalt = sha256.Sum256([]byte("MC-OSAM-Salt"))

// PRF is a pseudorandom function used for bucket placement, implemented as
// HMAC-SHA256 over the big-endian encoding of seq, truncated to its first
// 8 bytes and read back as a big-endian uint64. Callers reduce the result
// modulo a bucket count. key may be any non-empty byte sequence.
func PRF(key []byte, seq uint64) (uint64, error) {
	if len(key) == 0 {
		return 0, ErrInvalidKeyLength
	}
	mac := hmac.New(sha256.New, key)
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	if _, err := mac.Write(seqBytes[:]); err != nil {
		return 0, err
	}
	sum := mac.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), nil
}

// KDF derives a 16-byte subkey from a 16-byte shared secret and an info
// string, using HKDF-SHA256 with the fixed salt above.
func KDF(key []byte, info string) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	reader := hkdf.New(sha256.New, key, kdfSalt[:], []byte(info))
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, ErrHkdfExpansionFailed
	}
	return out, nil
}
