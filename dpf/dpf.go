// Package dpf implements a two-server distributed point function over a
// fixed-size table of byte records. A query for index i yields two key
// shares — a leader share and a helper share — such that each server,
// evaluating its own share against every record, produces a response;
// XORing the two responses together reconstructs record i exactly, while
// either response alone is indistinguishable from a random record for
// every index (spec.md §4.C).
//
// This is a non-succinct, table-masking construction: a key share is one
// independent r-byte mask per domain point rather than a compact
// PRG-expanded tree. Key material is O(N*r); evaluation is O(N) on both
// sides. See DESIGN.md for why this trade was made over a GGM-tree DPF.
package dpf

import (
	"crypto/rand"
	"encoding/binary"
)

// Key is one server's share of a single-index query; a BatchRequest
// carries one Key per queried index. Masks has
// one r-byte entry per domain point, where r is RecordSize.
type Key struct {
	RecordSize int
	Masks      [][]byte
}

// Request bundles the two per-server key shares produced for one logical
// query. Leader and Helper are handed to the two servers respectively;
// a server never sees the other's share.
type Request struct {
	Leader Key
	Helper Key
}

// Response is one server's answer to a Key: the XOR-masked combination of
// every record in the domain, RecordSize bytes wide.
type Response []byte

// Gen produces a Request for querying index idx out of a domain of size
// domainSize, where each record is recordSize bytes wide. Each returned
// key share, taken alone, is domainSize independent uniformly random
// masks regardless of idx — the secrecy property holds unconditionally,
// not just computationally.
func Gen(domainSize, idx, recordSize int) (Request, error) {
	if domainSize <= 0 || recordSize <= 0 || idx < 0 || idx >= domainSize {
		return Request{}, ErrInvalidQuery
	}

	leaderMasks := make([][]byte, domainSize)
	helperMasks := make([][]byte, domainSize)

	for x := 0; x < domainSize; x++ {
		mask := make([]byte, recordSize)
		if _, err := rand.Read(mask); err != nil {
			return Request{}, ErrProcessing
		}
		leaderMasks[x] = mask

		helper := make([]byte, recordSize)
		copy(helper, mask)
		if x == idx {
			for i := range helper {
				helper[i] ^= 0xFF
			}
		}
		helperMasks[x] = helper
	}

	return Request{
		Leader: Key{RecordSize: recordSize, Masks: leaderMasks},
		Helper: Key{RecordSize: recordSize, Masks: helperMasks},
	}, nil
}

// HandleRequest evaluates key against records, returning
// XOR_x (records[x] AND key.Masks[x]). Every records[x] must be exactly
// key.RecordSize bytes. This is the server-side half of the protocol: a
// server holding only one key share learns nothing about which index was
// queried from the share alone.
func HandleRequest(key Key, records [][]byte) (Response, error) {
	if len(records) != len(key.Masks) {
		return nil, ErrProcessing
	}

	out := make([]byte, key.RecordSize)
	for x, record := range records {
		if len(record) != key.RecordSize {
			return nil, ErrProcessing
		}
		mask := key.Masks[x]
		for i := 0; i < key.RecordSize; i++ {
			out[i] ^= record[i] & mask[i]
		}
	}
	return out, nil
}

// CombineResponses reconstructs the queried record by XORing the two
// servers' responses together, because bitwise AND distributes over XOR:
// XOR_x (record[x] AND (maskL[x] XOR maskH[x])) collapses to record[i]
// exactly, since maskL and maskH agree everywhere except index i, where
// they are bitwise complements of one another.
func CombineResponses(leader, helper Response) ([]byte, error) {
	if len(leader) != len(helper) {
		return nil, ErrProcessing
	}
	out := make([]byte, len(leader))
	for i := range out {
		out[i] = leader[i] ^ helper[i]
	}
	return out, nil
}

// BatchRequest bundles the per-server key shares for a batch of queried
// indices, one Key per index, in query order. The read path always
// batches the pair [b1, b2] so a single round trip recovers both of an
// item's candidate bucket records.
type BatchRequest struct {
	Leader []Key
	Helper []Key
}

// GenBatch produces a BatchRequest for querying every index in indices
// out of the same domain. Each index's key pair is generated
// independently via Gen; batching only changes the wire shape, not the
// per-index security property.
func GenBatch(domainSize int, indices []int, recordSize int) (BatchRequest, error) {
	if len(indices) == 0 {
		return BatchRequest{}, ErrInvalidQuery
	}
	batch := BatchRequest{
		Leader: make([]Key, len(indices)),
		Helper: make([]Key, len(indices)),
	}
	for i, idx := range indices {
		req, err := Gen(domainSize, idx, recordSize)
		if err != nil {
			return BatchRequest{}, err
		}
		batch.Leader[i] = req.Leader
		batch.Helper[i] = req.Helper
	}
	return batch, nil
}

// HandleRequestBatch evaluates every key in keys against records in turn,
// returning one Response per key in the same order.
func HandleRequestBatch(keys []Key, records [][]byte) ([]Response, error) {
	out := make([]Response, len(keys))
	for i, key := range keys {
		resp, err := HandleRequest(key, records)
		if err != nil {
			return nil, err
		}
		out[i] = resp
	}
	return out, nil
}

// CombineResponsesBatch reconstructs each queried record from the
// corresponding pair of leader/helper responses, in order.
func CombineResponsesBatch(leader, helper []Response) ([][]byte, error) {
	if len(leader) != len(helper) {
		return nil, ErrProcessing
	}
	out := make([][]byte, len(leader))
	for i := range leader {
		rec, err := CombineResponses(leader[i], helper[i])
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// MarshalKeys encodes a batch of keys as a flat blob: a 4-byte key count
// followed by each key's MarshalKey encoding, each prefixed with its own
// 4-byte length so UnmarshalKeys can split them back apart.
func MarshalKeys(keys []Key) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out[0:4], uint32(len(keys)))
	for _, k := range keys {
		encoded := MarshalKey(k)
		lenPrefix := make([]byte, 4)
		binary.BigEndian.PutUint32(lenPrefix, uint32(len(encoded)))
		out = append(out, lenPrefix...)
		out = append(out, encoded...)
	}
	return out
}

// UnmarshalKeys decodes a blob produced by MarshalKeys.
func UnmarshalKeys(blob []byte) ([]Key, error) {
	if len(blob) < 4 {
		return nil, ErrProcessing
	}
	count := int(binary.BigEndian.Uint32(blob[0:4]))
	offset := 4
	keys := make([]Key, count)
	for i := 0; i < count; i++ {
		if len(blob) < offset+4 {
			return nil, ErrProcessing
		}
		length := int(binary.BigEndian.Uint32(blob[offset : offset+4]))
		offset += 4
		if len(blob) < offset+length {
			return nil, ErrProcessing
		}
		key, err := UnmarshalKey(blob[offset : offset+length])
		if err != nil {
			return nil, err
		}
		keys[i] = key
		offset += length
	}
	if offset != len(blob) {
		return nil, ErrProcessing
	}
	return keys, nil
}

// MarshalResponses encodes a batch of Responses as a flat blob: a 4-byte
// count followed by each response length-prefixed with 4 bytes.
func MarshalResponses(responses []Response) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(responses)))
	for _, r := range responses {
		lenPrefix := make([]byte, 4)
		binary.BigEndian.PutUint32(lenPrefix, uint32(len(r)))
		out = append(out, lenPrefix...)
		out = append(out, r...)
	}
	return out
}

// UnmarshalResponses decodes a blob produced by MarshalResponses.
func UnmarshalResponses(blob []byte) ([]Response, error) {
	if len(blob) < 4 {
		return nil, ErrProcessing
	}
	count := int(binary.BigEndian.Uint32(blob[0:4]))
	offset := 4
	responses := make([]Response, count)
	for i := 0; i < count; i++ {
		if len(blob) < offset+4 {
			return nil, ErrProcessing
		}
		length := int(binary.BigEndian.Uint32(blob[offset : offset+4]))
		offset += 4
		if len(blob) < offset+length {
			return nil, ErrProcessing
		}
		responses[i] = Response(blob[offset : offset+length])
		offset += length
	}
	if offset != len(blob) {
		return nil, ErrProcessing
	}
	return responses, nil
}

// MarshalKey encodes a Key as a flat byte blob: a 4-byte record size
// followed by a 4-byte mask count, followed by the masks themselves in
// order. MarshalKeys frames a batch of these encodings, and that blob is
// what a request carries over a transport.Peer; responses are framed by
// MarshalResponses instead (spec.md §1's non-goal rules out JSON/base64
// framing for this internal blob; it is not a user-facing interchange
// format).
func MarshalKey(k Key) []byte {
	out := make([]byte, 8, 8+len(k.Masks)*k.RecordSize)
	binary.BigEndian.PutUint32(out[0:4], uint32(k.RecordSize))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(k.Masks)))
	for _, m := range k.Masks {
		out = append(out, m...)
	}
	return out
}

// UnmarshalKey decodes a blob produced by MarshalKey.
func UnmarshalKey(blob []byte) (Key, error) {
	if len(blob) < 8 {
		return Key{}, ErrProcessing
	}
	recordSize := int(binary.BigEndian.Uint32(blob[0:4]))
	count := int(binary.BigEndian.Uint32(blob[4:8]))
	if recordSize <= 0 || count < 0 {
		return Key{}, ErrProcessing
	}
	want := 8 + count*recordSize
	if len(blob) != want {
		return Key{}, ErrProcessing
	}

	masks := make([][]byte, count)
	offset := 8
	for i := 0; i < count; i++ {
		mask := make([]byte, recordSize)
		copy(mask, blob[offset:offset+recordSize])
		masks[i] = mask
		offset += recordSize
	}
	return Key{RecordSize: recordSize, Masks: masks}, nil
}
