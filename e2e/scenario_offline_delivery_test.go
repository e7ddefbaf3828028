package e2e

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/wire"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// The scenario from the behavioral contract: user A online, user B
// offline. A sends a private "hi" to B. The store holds one pending entry
// for B and A gets nothing back. B connects, receives exactly one frame
// with content "hi" marked Delivered, and the entry is gone. The engine
// here runs against a real on-disk Badger store and real TCP sockets.
func Test_Scenario_Offline_Private_Delivery(t *testing.T) {
	req := require.New(t)
	cfg, err := LoadConfig()
	req.NoError(err)

	handshakeTimeout, err := time.ParseDuration(cfg.HandshakeTimeout)
	req.NoError(err)
	stepTimeout, err := time.ParseDuration(cfg.StepTimeout)
	req.NoError(err)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	log := slog.Default()
	registry := runtime.NewRegistry()
	queue := repositories.NewQueueRepository(db, log)
	groups := repositories.NewGroupRepository(db, log)
	router := runtime.NewRouter(log, registry, groups)
	engine := runtime.NewEngine(log, registry, router, queue, cfg.ListenAddr, handshakeTimeout, 0)

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		_ = engine.Serve(ctx, lis)
		close(served)
	}()
	defer func() {
		cancel()
		<-served
	}()
	addr := lis.Addr().String()

	// Given user A online
	alice := connect(t, addr, "alice", registry, stepTimeout)
	defer alice.Close()

	// When A sends a private "hi" to the offline B
	sendMessage(t, alice, domain.Message{
		Mode:       domain.ModePrivate,
		ReceiverID: "bob",
		Content:    "hi",
	})

	// Then the store holds exactly one pending entry for B
	req.Eventually(func() bool {
		pending, drainErr := queue.Drain("bob")
		return drainErr == nil && len(pending) == 1 &&
			pending[0].Content == "hi" &&
			pending[0].Status == domain.StatusPending
	}, stepTimeout, 20*time.Millisecond)

	// And A received no acknowledgment or error
	req.NoError(alice.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	_, err = wire.ReadFrame(alice, wire.DefaultMaxFrameSize)
	req.Error(err)

	// When B connects
	bob := connect(t, addr, "bob", registry, stepTimeout)
	defer bob.Close()

	// Then B receives exactly one frame with content "hi", Delivered
	req.NoError(bob.SetReadDeadline(time.Now().Add(stepTimeout)))
	payload, err := wire.ReadFrame(bob, wire.DefaultMaxFrameSize)
	req.NoError(err)
	msg, err := wire.DecodeMessage(payload)
	req.NoError(err)
	req.Equal("hi", msg.Content)
	req.Equal("alice", msg.SenderID)
	req.Equal(domain.StatusDelivered, msg.Status)

	// And the store no longer contains the entry
	req.Eventually(func() bool {
		pending, drainErr := queue.Drain("bob")
		return drainErr == nil && len(pending) == 0
	}, stepTimeout, 20*time.Millisecond)

	// And nothing else arrives
	req.NoError(bob.SetReadDeadline(time.Now().Add(300 * time.Millisecond)))
	_, err = wire.ReadFrame(bob, wire.DefaultMaxFrameSize)
	req.Error(err)
}

func connect(t *testing.T, addr, userID string, registry *runtime.Registry, timeout time.Duration) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	payload, err := wire.EncodeHandshake(wire.Handshake{UserID: userID})
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(conn, payload))

	require.Eventually(t, func() bool {
		_, ok := registry.Lookup(userID)
		return ok
	}, timeout, 10*time.Millisecond)
	return conn
}

func sendMessage(t *testing.T, conn net.Conn, msg domain.Message) {
	t.Helper()
	payload, err := wire.EncodeMessage(msg)
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(conn, payload))
}
