package client

import "errors"

var (
	// ErrInvalidArgument covers a non-positive table size passed to New or
	// UpdateSize, and a non-positive bucket depth passed to Decrypt.
	ErrInvalidArgument = errors.New("client: invalid argument")
	// ErrUnknownPeer is returned when an operation names a peer that has
	// never been through AddKey.
	ErrUnknownPeer = errors.New("client: unknown peer")
	// ErrDecryptionFailed is returned by Decrypt when no candidate chunk,
	// across every supplied bucket record, authenticates under the
	// peer's k_enc. This is the expected outcome of a read that misses —
	// the message sought either isn't present or belongs to a different
	// seq_no — not a sign of corruption.
	ErrDecryptionFailed = errors.New("client: decryption failed")
)
