// Package server implements one replica of the two-server board: a cuckoo
// table guarded by a read/write lock, with writes applied directly and
// reads answered through the dpf adapter without ever seeing which index
// was actually queried.
package server

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/privateboard/cuckoopir/cuckoo"
	"github.com/privateboard/cuckoopir/dpf"
)

// Server wraps a single cuckoo.Table replica. Write holds the write lock
// for the whole insert, so concurrent Writes are serialized by the Server
// itself; HandleRequest holds only the read lock while it copies the
// bucket records, so concurrent reads do not block each other.
type Server struct {
	mu  sync.RWMutex
	tbl *cuckoo.Table
	log zerolog.Logger
}

// New constructs a Server over a freshly allocated table of the given
// shape and keys.
func New(numBuckets, bucketDepth uint64, itemSize int, seed uint64, key1, key2 []byte, log zerolog.Logger) (*Server, error) {
	tbl, err := cuckoo.New(numBuckets, bucketDepth, itemSize, nil, seed, key1, key2)
	if err != nil {
		return nil, err
	}
	return &Server{tbl: tbl, log: log}, nil
}

// NewFromItems constructs a Server and bulk-loads it by inserting every
// element in items in order, matching the original bulk-construction path
// where a server is built directly from an existing element set rather
// than grown one write at a time (original_source's Server::new /
// PirServer::new).
func NewFromItems(numBuckets, bucketDepth uint64, itemSize int, seed uint64, key1, key2 []byte, items []cuckoo.Item, log zerolog.Logger) (*Server, error) {
	srv, err := New(numBuckets, bucketDepth, itemSize, seed, key1, key2, log)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if _, err := srv.tbl.Insert(item); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

// Write inserts item into the table, holding the write lock for the
// duration of the cuckoo insert (including any eviction chain it
// triggers). It returns the item the insert displaced, if any.
func (s *Server) Write(item cuckoo.Item) (*cuckoo.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted, err := s.tbl.Insert(item)
	if err != nil {
		s.log.Debug().Uint64("seq_no", item.SeqNo).Err(err).Msg("write failed")
		return nil, err
	}
	s.log.Debug().Uint64("seq_no", item.SeqNo).Bool("evicted", evicted != nil).Msg("write applied")
	return evicted, nil
}

// HandleRequest evaluates a batch of dpf.Keys (as produced by
// dpf.MarshalKeys) against the table's bucket array and returns this
// replica's batched response blob, one response per key in the same
// order. It takes only a read lock, so concurrent reads never block each
// other, but do block a concurrent Write.
func (s *Server) HandleRequest(keysBlob []byte) ([]byte, error) {
	keys, err := dpf.UnmarshalKeys(keysBlob)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	records := s.bucketRecords()
	s.mu.RUnlock()

	for _, key := range keys {
		if len(key.Masks) != len(records) {
			return nil, dpf.ErrProcessing
		}
	}

	responses, err := dpf.HandleRequestBatch(keys, records)
	if err != nil {
		s.log.Debug().Err(err).Msg("read failed")
		return nil, err
	}
	s.log.Debug().Int("num_records", len(records)).Int("num_queries", len(keys)).Msg("read answered")
	return dpf.MarshalResponses(responses), nil
}

// Keys returns the table's placement keys; see cuckoo.Table.Keys for when
// a client's items match them.
func (s *Server) Keys() (key1, key2 []byte) {
	return s.tbl.Keys()
}

// NumBuckets returns the domain size a dpf.Key must cover to query this
// server.
func (s *Server) NumBuckets() uint64 {
	return s.tbl.NumBuckets
}

func (s *Server) bucketRecords() [][]byte {
	records := make([][]byte, s.tbl.NumBuckets)
	for b := uint64(0); b < s.tbl.NumBuckets; b++ {
		records[b] = s.tbl.BucketRecord(b)
	}
	return records
}
