package cuckoo

// Item is a single record a Table stores: an encrypted payload pinned to
// the two buckets its writer's keys permit it to occupy.
type Item struct {
	ID      uint64
	Payload []byte
	SeqNo   uint64
	Bucket1 uint64
	Bucket2 uint64
}

// Equal reports whether two items are the same under the table's equality
// semantics: id and both declared buckets must match. Payload is not
// compared, since eviction never alters it.
func (it Item) Equal(other Item) bool {
	return it.ID == other.ID && it.Bucket1 == other.Bucket1 && it.Bucket2 == other.Bucket2
}
