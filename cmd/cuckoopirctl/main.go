// Command cuckoopirctl runs a self-contained demo of the anonymous
// message board: two server replicas and two clients in one process,
// connected over an in-process loopback transport, writing one message
// and reading it back.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/privateboard/cuckoopir/client"
	"github.com/privateboard/cuckoopir/crypto"
	"github.com/privateboard/cuckoopir/internal/config"
	"github.com/privateboard/cuckoopir/internal/telemetry"
	"github.com/privateboard/cuckoopir/server"
	"github.com/privateboard/cuckoopir/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
		message    string
		seqNo      uint64
	)

	cmd := &cobra.Command{
		Use:   "cuckoopirctl",
		Short: "Run a two-replica demo of the anonymous message board",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			return runDemo(configPath, message, seqNo, level)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringVarP(&message, "message", "m", "hello board", "message to write and read back")
	cmd.Flags().Uint64Var(&seqNo, "seq", 0, "sequence number to write and read at")

	return cmd
}

func runDemo(configPath, message string, seqNo uint64, level zerolog.Level) error {
	board, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	srvLog := telemetry.New("server", level, os.Stderr)
	cliLog := telemetry.New("client", level, os.Stderr)
	shared := bytes.Repeat([]byte{0x03}, 16)
	key1, err := crypto.KDF(shared, "key1")
	if err != nil {
		return fmt.Errorf("derive key1: %w", err)
	}
	key2, err := crypto.KDF(shared, "key2")
	if err != nil {
		return fmt.Errorf("derive key2: %w", err)
	}

	leaderSrv, err := server.New(board.NumBuckets, board.BucketDepth, board.ItemSize(), board.Seed, key1, key2, srvLog)
	if err != nil {
		return fmt.Errorf("new leader server: %w", err)
	}
	helperSrv, err := server.New(board.NumBuckets, board.BucketDepth, board.ItemSize(), board.Seed, key1, key2, srvLog)
	if err != nil {
		return fmt.Errorf("new helper server: %w", err)
	}
	leader := transport.NewLoopback(leaderSrv)
	helper := transport.NewLoopback(helperSrv)

	alice, err := client.New("alice", int(board.NumBuckets), cliLog)
	if err != nil {
		return fmt.Errorf("new alice client: %w", err)
	}
	bob, err := client.New("bob", int(board.NumBuckets), cliLog)
	if err != nil {
		return fmt.Errorf("new bob client: %w", err)
	}

	if err := alice.AddKey("bob", shared); err != nil {
		return fmt.Errorf("alice add key: %w", err)
	}
	if err := bob.AddKey("alice", shared); err != nil {
		return fmt.Errorf("bob add key: %w", err)
	}

	recordSize := int(board.BucketDepth) * board.ItemSize()

	ct, err := alice.Encrypt("bob", []byte(message), board.PaddingSize)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	item, _, err := alice.GenerateWrite("bob", ct, seqNo, recordSize)
	if err != nil {
		return fmt.Errorf("generate write: %w", err)
	}
	if _, err := leader.Write(item); err != nil {
		return fmt.Errorf("write to leader: %w", err)
	}
	if _, err := helper.Write(item); err != nil {
		return fmt.Errorf("write to helper: %w", err)
	}

	req, err := bob.GenerateRead("alice", seqNo, recordSize)
	if err != nil {
		return fmt.Errorf("generate read: %w", err)
	}
	leaderResp, err := leader.Read(req.Leader)
	if err != nil {
		return fmt.Errorf("leader read: %w", err)
	}
	helperResp, err := helper.Read(req.Helper)
	if err != nil {
		return fmt.Errorf("helper read: %w", err)
	}

	records, err := bob.ProcessResponses(client.Response{Leader: leaderResp, Helper: helperResp})
	if err != nil {
		return fmt.Errorf("process responses: %w", err)
	}

	plaintext, err := bob.Decrypt("alice", records, int(board.BucketDepth))
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}

	fmt.Printf("wrote %q, read back %q\n", message, bytes.TrimRight(plaintext, "\x00"))
	return nil
}
