package server

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/privateboard/cuckoopir/crypto"
	"github.com/privateboard/cuckoopir/cuckoo"
	"github.com/privateboard/cuckoopir/dpf"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestWriteThenHandleRequestRecoversPayload(t *testing.T) {
	key1 := bytes.Repeat([]byte{0x11}, crypto.KeySize)
	key2 := bytes.Repeat([]byte{0x22}, crypto.KeySize)

	const numBuckets = 8
	const bucketDepth = 4
	const itemSize = 32

	srv, err := New(numBuckets, bucketDepth, itemSize, 1, key1, key2, testLogger())
	require.NoError(t, err)

	seqNo := uint64(7)
	b1, err := crypto.PRF(key1, seqNo)
	require.NoError(t, err)
	b1 %= numBuckets
	b2, err := crypto.PRF(key2, seqNo)
	require.NoError(t, err)
	b2 %= numBuckets

	payload := bytes.Repeat([]byte{0x55}, itemSize)
	item := cuckoo.Item{ID: 1, Payload: payload, SeqNo: seqNo, Bucket1: b1, Bucket2: b2}

	_, err = srv.Write(item)
	require.NoError(t, err)

	recordSize := int(bucketDepth) * itemSize
	// Insert puts the item in whichever candidate bucket its RNG picks, so
	// query both and look for the payload in either record.
	batch, err := dpf.GenBatch(numBuckets, []int{int(b1), int(b2)}, recordSize)
	require.NoError(t, err)

	leaderBlob, err := srv.HandleRequest(dpf.MarshalKeys(batch.Leader))
	require.NoError(t, err)
	helperBlob, err := srv.HandleRequest(dpf.MarshalKeys(batch.Helper))
	require.NoError(t, err)

	leaderResp, err := dpf.UnmarshalResponses(leaderBlob)
	require.NoError(t, err)
	helperResp, err := dpf.UnmarshalResponses(helperBlob)
	require.NoError(t, err)

	records, err := dpf.CombineResponsesBatch(leaderResp, helperResp)
	require.NoError(t, err)

	require.Contains(t, string(records[0])+string(records[1]), string(payload))
}

func TestHandleRequestRejectsWrongDomainKey(t *testing.T) {
	key1 := bytes.Repeat([]byte{0x33}, crypto.KeySize)
	key2 := bytes.Repeat([]byte{0x44}, crypto.KeySize)

	srv, err := New(4, 2, 16, 1, key1, key2, testLogger())
	require.NoError(t, err)

	batch, err := dpf.GenBatch(99, []int{0}, 32)
	require.NoError(t, err)

	_, err = srv.HandleRequest(dpf.MarshalKeys(batch.Leader))
	require.ErrorIs(t, err, dpf.ErrProcessing)
}

func TestNewFromItemsBulkLoads(t *testing.T) {
	key1 := bytes.Repeat([]byte{0x55}, crypto.KeySize)
	key2 := bytes.Repeat([]byte{0x66}, crypto.KeySize)

	const numBuckets = 8
	const bucketDepth = 4
	const itemSize = 16

	var items []cuckoo.Item
	for i := uint64(0); i < 5; i++ {
		b1, err := crypto.PRF(key1, i)
		require.NoError(t, err)
		b2, err := crypto.PRF(key2, i)
		require.NoError(t, err)
		items = append(items, cuckoo.Item{
			ID:      i,
			Payload: bytes.Repeat([]byte{byte(i)}, itemSize),
			SeqNo:   i,
			Bucket1: b1 % numBuckets,
			Bucket2: b2 % numBuckets,
		})
	}

	srv, err := NewFromItems(numBuckets, bucketDepth, itemSize, 1, key1, key2, items, testLogger())
	require.NoError(t, err)
	require.EqualValues(t, numBuckets, srv.NumBuckets())
	require.Equal(t, len(items), srv.tbl.FilledCount())
}
