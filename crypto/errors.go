package crypto

import "errors"

// Error kinds for the crypto package, matching the taxonomy in spec.md §7.
var (
	ErrInvalidKeyLength    = errors.New("crypto: invalid key length")
	ErrHkdfExpansionFailed = errors.New("crypto: hkdf expansion failed")
	ErrEncryptionFailed    = errors.New("crypto: encryption failed")
	ErrDecryptionFailed    = errors.New("crypto: decryption failed")
)
