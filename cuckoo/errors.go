package cuckoo

import "errors"

// Error kinds, matching spec.md §7. Both are non-retryable by the table
// itself; a caller may retry with a different seq_no.
var (
	ErrInvalidInput         = errors.New("cuckoo: invalid input")
	ErrNoSpaceAfterEviction = errors.New("cuckoo: no space after eviction")
)

// MaxEvictions bounds the length of an eviction chain before Insert gives
// up and hands the caller its last carried item.
const MaxEvictions = 500
