// Package cuckoo implements a keyed, bucketed cuckoo hash table: each item
// has two PRF-derived candidate buckets, inserts displace existing
// occupants along a bounded random-walk eviction chain, and two replicas
// seeded identically converge to byte-identical arenas given the same
// insert sequence.
package cuckoo

import (
	"math/rand"

	"github.com/privateboard/cuckoopir/crypto"
)

// slot is the in-memory descriptor for one table slot; slots with
// filled == false carry no meaningful id/seqNo/bucket values.
type slot struct {
	filled  bool
	id      uint64
	seqNo   uint64
	bucket1 uint64
	bucket2 uint64
}

// Table is a keyed two-choice bucketed cuckoo table. It is not safe for
// concurrent use; callers needing concurrent access must serialize it
// externally (spec.md §5).
type Table struct {
	NumBuckets  uint64
	BucketDepth uint64
	ItemSize    int

	data  []byte
	index []slot

	key1, key2 []byte
	rng        *rand.Rand
}

// New constructs a Table of NumBuckets buckets, bucketDepth slots per
// bucket, and itemSize bytes per slot. If data is nil, a fresh zero-filled
// arena is allocated. Zero-filling, not random cover bytes, is what keeps
// two independently-constructed replicas byte-identical: two tables built
// with the same (numBuckets, bucketDepth, itemSize, seed, key1, key2) and
// fed the same insert sequence must produce byte-identical arenas, since
// the two-server DPF read only cancels non-queried buckets when both
// servers hold identical data there. If data is non-nil its length must
// be exactly numBuckets*bucketDepth*itemSize, or New fails. seed drives
// the eviction RNG.
func New(numBuckets, bucketDepth uint64, itemSize int, data []byte, seed uint64, key1, key2 []byte) (*Table, error) {
	if numBuckets == 0 || bucketDepth == 0 || itemSize <= 0 {
		return nil, ErrInvalidInput
	}
	expected := int(numBuckets*bucketDepth) * itemSize

	if data == nil {
		data = make([]byte, expected)
	} else if len(data) != expected {
		return nil, ErrInvalidInput
	}

	return &Table{
		NumBuckets:  numBuckets,
		BucketDepth: bucketDepth,
		ItemSize:    itemSize,
		data:        data,
		index:       make([]slot, numBuckets*bucketDepth),
		key1:        key1,
		key2:        key2,
		rng:         rand.New(rand.NewSource(int64(seed))),
	}, nil
}

// Keys returns the table's placement keys. Insert accepts a client's item
// only when the placement keys the client derived for its peer (crypto.KDF
// of the shared secret with info "key1" and "key2") equal these.
func (t *Table) Keys() (key1, key2 []byte) {
	return t.key1, t.key2
}

// FilledCount returns the number of occupied slots.
func (t *Table) FilledCount() int {
	n := 0
	for _, s := range t.index {
		if s.filled {
			n++
		}
	}
	return n
}

// BucketRecord returns the d*w-byte concatenation of bucket b's slot
// payloads — the server-side DPF layer's view of one domain point. It is a
// view into the arena: bucket b occupies slots [b*d, (b+1)*d), and slots
// are laid out row-major by index, so the record is one contiguous span.
func (t *Table) BucketRecord(b uint64) []byte {
	start := int(b*t.BucketDepth) * t.ItemSize
	end := int((b+1)*t.BucketDepth) * t.ItemSize
	out := make([]byte, end-start)
	copy(out, t.data[start:end])
	return out
}

// Insert places item, verifying its payload width and its declared buckets
// against the table's own PRF recomputation first; a mismatch in either
// returns ErrInvalidInput. When item, and every occupant it displaces along
// the eviction chain, ends up in a slot, it returns (nil, nil). If the
// chain runs for MaxEvictions steps without resolving, it returns the item
// still being carried, which is no longer in the table, with a nil error.
// ErrNoSpaceAfterEviction is returned only if a slot just emptied by an
// eviction cannot be refilled (spec.md §4.B).
func (t *Table) Insert(item Item) (*Item, error) {
	if len(item.Payload) != t.ItemSize {
		return nil, ErrInvalidInput
	}

	want1, err := crypto.PRF(t.key1, item.SeqNo)
	if err != nil {
		return nil, ErrInvalidInput
	}
	want1 %= t.NumBuckets
	want2, err := crypto.PRF(t.key2, item.SeqNo)
	if err != nil {
		return nil, ErrInvalidInput
	}
	want2 %= t.NumBuckets

	if want1 != item.Bucket1 || want2 != item.Bucket2 {
		return nil, ErrInvalidInput
	}

	primary, secondary := item.Bucket1, item.Bucket2
	if t.rng.Intn(2) == 1 {
		primary, secondary = secondary, primary
	}

	if t.tryInsert(primary, item) {
		return nil, nil
	}

	current := item
	next := secondary

	for i := 0; i < MaxEvictions; i++ {
		if t.tryInsert(next, current) {
			return nil, nil
		}

		evictSlot := next*t.BucketDepth + uint64(t.rng.Intn(int(t.BucketDepth)))
		evicted := t.readSlot(evictSlot)
		t.index[evictSlot].filled = false

		if !t.tryInsert(next, current) {
			return nil, ErrNoSpaceAfterEviction
		}

		current = evicted
		if current.Bucket1 == next {
			next = current.Bucket2
		} else {
			next = current.Bucket1
		}
	}

	return &current, nil
}

// Get scans bucket prf1 and then bucket prf2 for a filled slot whose
// stored buckets equal (prf1, prf2), returning a copy of the first match.
// prf1 must not equal prf2; this is a precondition, not an error return,
// per spec.md §6. Get is not on the DPF read path — it exists for local
// testing and a possible trusted-reader variant (spec.md §9).
func (t *Table) Get(prf1, prf2 uint64) *Item {
	if prf1 == prf2 {
		panic("cuckoo: Get requires prf1 != prf2")
	}
	if item := t.searchBucket(prf1, prf1, prf2); item != nil {
		return item
	}
	return t.searchBucket(prf2, prf1, prf2)
}

// Clear empties the slot holding the item with the given id, if any. It
// exists for local bookkeeping (e.g. test scenario S4's drain phase) and
// is not part of the DPF read path.
func (t *Table) Clear(id uint64) bool {
	for i := range t.index {
		if t.index[i].filled && t.index[i].id == id {
			t.index[i].filled = false
			return true
		}
	}
	return false
}

func (t *Table) searchBucket(bucket, bucket1, bucket2 uint64) *Item {
	start := bucket * t.BucketDepth
	end := start + t.BucketDepth
	for i := start; i < end; i++ {
		s := t.index[i]
		if s.filled && s.bucket1 == bucket1 && s.bucket2 == bucket2 {
			item := t.readSlot(i)
			return &item
		}
	}
	return nil
}

func (t *Table) tryInsert(bucket uint64, item Item) bool {
	start := bucket * t.BucketDepth
	end := start + t.BucketDepth
	for i := start; i < end; i++ {
		if !t.index[i].filled {
			dataStart := int(i) * t.ItemSize
			copy(t.data[dataStart:dataStart+t.ItemSize], item.Payload)
			t.index[i] = slot{
				filled:  true,
				id:      item.ID,
				seqNo:   item.SeqNo,
				bucket1: item.Bucket1,
				bucket2: item.Bucket2,
			}
			return true
		}
	}
	return false
}

func (t *Table) readSlot(i uint64) Item {
	s := t.index[i]
	dataStart := int(i) * t.ItemSize
	payload := make([]byte, t.ItemSize)
	copy(payload, t.data[dataStart:dataStart+t.ItemSize])
	return Item{
		ID:      s.id,
		Payload: payload,
		SeqNo:   s.seqNo,
		Bucket1: s.bucket1,
		Bucket2: s.bucket2,
	}
}
