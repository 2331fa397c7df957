// Package client implements the write and read paths a board user drives
// against a pair of non-colluding server replicas: encrypt-then-place for
// writes, and DPF-request-then-combine-then-search for reads.
package client

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/rs/zerolog"

	"github.com/privateboard/cuckoopir/crypto"
	"github.com/privateboard/cuckoopir/cuckoo"
	"github.com/privateboard/cuckoopir/dpf"
)

// keySet is the per-peer key triple derived from one shared secret: two
// placement keys and one payload encryption key.
type keySet struct {
	key1, key2, kEnc []byte
}

// Request bundles the two per-server key-batch blobs produced by one
// GenerateWrite or GenerateRead call.
type Request struct {
	Leader []byte
	Helper []byte
}

// Response bundles the two servers' answers to one Request.
type Response struct {
	Leader []byte
	Helper []byte
}

// Client holds a local identifier, the table size N it assumes the server
// replicas share, and a key set per peer it has exchanged a secret with.
type Client struct {
	ID string
	N  int

	peers map[string]keySet
	log   zerolog.Logger
}

// New constructs a Client for a table of size N, where N must be
// positive.
func New(id string, n int, log zerolog.Logger) (*Client, error) {
	if n <= 0 {
		return nil, ErrInvalidArgument
	}
	return &Client{ID: id, N: n, peers: make(map[string]keySet), log: log}, nil
}

// UpdateSize changes the client's assumed table size, preserving every
// peer's key set. It models a server-side resize being mirrored by the
// client, since bucket placement depends on N.
func (c *Client) UpdateSize(n int) error {
	if n <= 0 {
		return ErrInvalidArgument
	}
	c.N = n
	return nil
}

// AddKey derives and stores the (key1, key2, k_enc) triple for peer from
// shared secret k. A second call for the same peer replaces the triple
// atomically.
func (c *Client) AddKey(peer string, k []byte) error {
	key1, err := crypto.KDF(k, "key1")
	if err != nil {
		return err
	}
	key2, err := crypto.KDF(k, "key2")
	if err != nil {
		return err
	}
	kEnc, err := crypto.KDF(k, "k_enc")
	if err != nil {
		return err
	}
	c.peers[peer] = keySet{key1: key1, key2: key2, kEnc: kEnc}
	return nil
}

// Encrypt produces the padded, authenticated ciphertext for plaintext
// under peer's k_enc. The result is exactly crypto.ItemSize(paddingSize) bytes
// wide, matching the table's fixed slot width.
func (c *Client) Encrypt(peer string, plaintext []byte, paddingSize int) ([]byte, error) {
	ks, ok := c.peers[peer]
	if !ok {
		return nil, ErrUnknownPeer
	}
	return crypto.Encrypt(ks.kEnc, plaintext, paddingSize)
}

// GenerateWrite computes the item's two candidate buckets from seqNo,
// assigns it a random id, and also generates a DPF request batching both
// candidate buckets — enabling the immediate-readback pattern used in
// integration tests. The returned item is what the caller hands to a
// server's Write; the request is optional and may be discarded if the
// caller only needs to write.
func (c *Client) GenerateWrite(peer string, ciphertext []byte, seqNo uint64, recordSize int) (cuckoo.Item, Request, error) {
	ks, ok := c.peers[peer]
	if !ok {
		return cuckoo.Item{}, Request{}, ErrUnknownPeer
	}

	b1, err := placementBucket(ks.key1, seqNo, c.N)
	if err != nil {
		return cuckoo.Item{}, Request{}, err
	}
	b2, err := placementBucket(ks.key2, seqNo, c.N)
	if err != nil {
		return cuckoo.Item{}, Request{}, err
	}

	id, err := randomID()
	if err != nil {
		return cuckoo.Item{}, Request{}, err
	}

	item := cuckoo.Item{ID: id, Payload: ciphertext, SeqNo: seqNo, Bucket1: b1, Bucket2: b2}

	req, err := c.generateRequestForBuckets(b1, b2, recordSize)
	if err != nil {
		return cuckoo.Item{}, Request{}, err
	}
	return item, req, nil
}

// GenerateRead computes the peer's two candidate buckets for seqNo and
// returns a DPF request batching both, without constructing an item.
func (c *Client) GenerateRead(peer string, seqNo uint64, recordSize int) (Request, error) {
	ks, ok := c.peers[peer]
	if !ok {
		return Request{}, ErrUnknownPeer
	}

	b1, err := placementBucket(ks.key1, seqNo, c.N)
	if err != nil {
		return Request{}, err
	}
	b2, err := placementBucket(ks.key2, seqNo, c.N)
	if err != nil {
		return Request{}, err
	}

	return c.generateRequestForBuckets(b1, b2, recordSize)
}

func (c *Client) generateRequestForBuckets(b1, b2 uint64, recordSize int) (Request, error) {
	batch, err := dpf.GenBatch(c.N, []int{int(b1), int(b2)}, recordSize)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Leader: dpf.MarshalKeys(batch.Leader),
		Helper: dpf.MarshalKeys(batch.Helper),
	}, nil
}

// ProcessResponses recombines the two servers' answers into the
// reconstructed bucket records, in the order the originating Request
// queried them.
func (c *Client) ProcessResponses(resp Response) ([][]byte, error) {
	leader, err := dpf.UnmarshalResponses(resp.Leader)
	if err != nil {
		return nil, err
	}
	helper, err := dpf.UnmarshalResponses(resp.Helper)
	if err != nil {
		return nil, err
	}
	return dpf.CombineResponsesBatch(leader, helper)
}

// Decrypt searches every reconstructed bucket record for the one chunk
// that authenticates under peer's k_enc, returning the first it finds.
// bucketDepth is the number of equal-width chunks each record splits
// into. It returns ErrDecryptionFailed if no chunk across any record
// authenticates — the expected outcome when the sought message isn't
// present under this peer/seq_no.
func (c *Client) Decrypt(peer string, records [][]byte, bucketDepth int) ([]byte, error) {
	ks, ok := c.peers[peer]
	if !ok {
		return nil, ErrUnknownPeer
	}
	if bucketDepth <= 0 {
		return nil, ErrInvalidArgument
	}

	for _, record := range records {
		if len(record)%bucketDepth != 0 {
			continue
		}
		chunkSize := len(record) / bucketDepth
		for i := 0; i < bucketDepth; i++ {
			chunk := record[i*chunkSize : (i+1)*chunkSize]
			if plaintext, err := crypto.Decrypt(ks.kEnc, chunk); err == nil {
				c.log.Debug().Bool("decrypted", true).Msg("decrypt attempted")
				return plaintext, nil
			}
		}
	}
	c.log.Debug().Bool("decrypted", false).Msg("decrypt attempted")
	return nil, ErrDecryptionFailed
}

func placementBucket(key []byte, seqNo uint64, n int) (uint64, error) {
	v, err := crypto.PRF(key, seqNo)
	if err != nil {
		return 0, err
	}
	return v % uint64(n), nil
}

func randomID() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
