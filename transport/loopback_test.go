package transport

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/privateboard/cuckoopir/client"
	"github.com/privateboard/cuckoopir/crypto"
	"github.com/privateboard/cuckoopir/server"
)

const (
	scenarioN           = 10
	scenarioBucketDepth = 4
	scenarioPadding     = 48
	scenarioSeed        = 12345
)

func scenarioItemSize() int {
	return 12 + scenarioPadding + 16
}

func scenarioRecordSize() int {
	return scenarioBucketDepth * scenarioItemSize()
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// write performs the encrypt-place-write round trip through both Loopback
// replicas, generating the item once and writing the identical item to
// leader and helper, the way two non-colluding servers stay in sync.
func write(t *testing.T, c *client.Client, peer string, leader, helper *Loopback, msg []byte, seqNo uint64) {
	t.Helper()
	ct, err := c.Encrypt(peer, msg, scenarioPadding)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	item, _, err := c.GenerateWrite(peer, ct, seqNo, scenarioRecordSize())
	if err != nil {
		t.Fatalf("GenerateWrite: %v", err)
	}
	if _, err := leader.Write(item); err != nil {
		t.Fatalf("leader Write: %v", err)
	}
	if _, err := helper.Write(item); err != nil {
		t.Fatalf("helper Write: %v", err)
	}
}

// read performs the read-combine-decrypt half of a round trip, querying
// both server replicas and decrypting through c.
func read(t *testing.T, c *client.Client, peer string, leader, helper *Loopback, seqNo uint64) ([]byte, error) {
	t.Helper()
	req, err := c.GenerateRead(peer, seqNo, scenarioRecordSize())
	if err != nil {
		t.Fatalf("GenerateRead: %v", err)
	}

	leaderBlob, err := leader.Read(req.Leader)
	if err != nil {
		t.Fatalf("leader Read: %v", err)
	}
	helperBlob, err := helper.Read(req.Helper)
	if err != nil {
		t.Fatalf("helper Read: %v", err)
	}

	records, err := c.ProcessResponses(client.Response{Leader: leaderBlob, Helper: helperBlob})
	if err != nil {
		t.Fatalf("ProcessResponses: %v", err)
	}
	return c.Decrypt(peer, records, scenarioBucketDepth)
}

// newScenarioPair builds two replicas whose placement keys are the ones
// every client derives from the shared secret, so their writes validate.
func newScenarioPair(t *testing.T, shared []byte) (*Loopback, *Loopback) {
	t.Helper()
	key1, err := crypto.KDF(shared, "key1")
	if err != nil {
		t.Fatal(err)
	}
	key2, err := crypto.KDF(shared, "key2")
	if err != nil {
		t.Fatal(err)
	}

	leaderSrv, err := server.New(scenarioN, scenarioBucketDepth, scenarioItemSize(), scenarioSeed, key1, key2, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	helperSrv, err := server.New(scenarioN, scenarioBucketDepth, scenarioItemSize(), scenarioSeed, key1, key2, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return NewLoopback(leaderSrv), NewLoopback(helperSrv)
}

func stripToFirstNull(b []byte) []byte {
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		return b[:idx]
	}
	return b
}

// S1: single write, single read.
func TestSingleWriteSingleRead(t *testing.T) {
	leader, helper := newScenarioPair(t, bytes.Repeat([]byte{0x01}, 16))

	a, err := client.New("A", scenarioN, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	b, err := client.New("B", scenarioN, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	k := bytes.Repeat([]byte{0x01}, 16)
	if err := a.AddKey("K", k); err != nil {
		t.Fatal(err)
	}
	if err := b.AddKey("K", k); err != nil {
		t.Fatal(err)
	}

	write(t, a, "K", leader, helper, []byte("hello"), 0)

	got, err := read(t, b, "K", leader, helper, 0)
	if err != nil {
		t.Fatalf("read seq=0: %v", err)
	}
	if !bytes.Equal(stripToFirstNull(got), []byte("hello")) {
		t.Fatalf("got %q, want %q", stripToFirstNull(got), "hello")
	}
}

// S2: sequence separation — two messages at two seq_nos must not
// interfere, and an unused seq_no returns no message.
func TestSequenceSeparation(t *testing.T) {
	leader, helper := newScenarioPair(t, bytes.Repeat([]byte{0x01}, 16))

	a, err := client.New("A", scenarioN, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	b, err := client.New("B", scenarioN, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	k := bytes.Repeat([]byte{0x01}, 16)
	if err := a.AddKey("K", k); err != nil {
		t.Fatal(err)
	}
	if err := b.AddKey("K", k); err != nil {
		t.Fatal(err)
	}

	write(t, a, "K", leader, helper, []byte("one"), 0)
	write(t, a, "K", leader, helper, []byte("two"), 1)

	got, err := read(t, b, "K", leader, helper, 1)
	if err != nil {
		t.Fatalf("read seq=1: %v", err)
	}
	if !bytes.Equal(stripToFirstNull(got), []byte("two")) {
		t.Fatalf("got %q, want %q", stripToFirstNull(got), "two")
	}

	if _, err := read(t, b, "K", leader, helper, 2); err != client.ErrDecryptionFailed {
		t.Fatalf("expected ErrDecryptionFailed for unused seq_no, got %v", err)
	}
}

// S3: two-way symmetry — the same key pair supports messages flowing in
// either direction.
func TestTwoWaySymmetry(t *testing.T) {
	leader, helper := newScenarioPair(t, bytes.Repeat([]byte{0x03}, 16))

	a, err := client.New("A", scenarioN, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	b, err := client.New("B", scenarioN, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	k := bytes.Repeat([]byte{0x03}, 16)
	if err := a.AddKey("K", k); err != nil {
		t.Fatal(err)
	}
	if err := b.AddKey("K", k); err != nil {
		t.Fatal(err)
	}

	write(t, a, "K", leader, helper, []byte("ping"), 0)

	got, err := read(t, b, "K", leader, helper, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stripToFirstNull(got), []byte("ping")) {
		t.Fatalf("got %q, want %q", stripToFirstNull(got), "ping")
	}

	write(t, b, "K", leader, helper, []byte("pong"), 1)

	got, err = read(t, a, "K", leader, helper, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(stripToFirstNull(got), []byte("pong")) {
		t.Fatalf("got %q, want %q", stripToFirstNull(got), "pong")
	}
}
