package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/wire"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Engine ties registry, router, store and sessions together. One logical
// task per connection runs the full read loop; outbound sends reach a
// session either from its own task (replay) or from any other task
// (fan-out delivery), which is why Session serializes writes internally.
//
// Engine is a contract.Worker: it runs supervised and returns only when
// its context is canceled or the durable store breaks the delivery
// contract.
type Engine struct {
	log              *slog.Logger
	registry         *Registry
	router           *Router
	store            contract.Store
	addr             string
	handshakeTimeout time.Duration
	maxFrame         uint32
}

func NewEngine(log *slog.Logger, registry *Registry, router *Router, store contract.Store,
	addr string, handshakeTimeout time.Duration, maxFrame uint32) *Engine {
	return &Engine{
		log:              log,
		registry:         registry,
		router:           router,
		store:            store,
		addr:             addr,
		handshakeTimeout: handshakeTimeout,
		maxFrame:         maxFrame,
	}
}

// Run listens on the configured address and serves connections until ctx
// is canceled. A store failure is fatal: it propagates out of Run instead
// of being swallowed, because silently losing a queued message violates
// the durability contract.
func (e *Engine) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", e.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", e.addr, err)
	}
	e.log.Info("Delivery engine listening", "address", lis.Addr().String())
	return e.Serve(ctx, lis)
}

// Serve accepts connections from lis. Split from Run so tests can hand in
// their own listener.
func (e *Engine) Serve(ctx context.Context, lis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		_ = lis.Close()
		e.registry.CloseAll()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := lis.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accepting connection: %w", err)
			}
			g.Go(func() error {
				return e.handleConn(gctx, conn)
			})
		}
	})

	return g.Wait()
}

// handleConn drives one connection through its lifecycle:
// Connecting -> Authenticated -> Active -> Closing -> Closed.
// Connection-level failures terminate only this connection and return nil;
// only a broken store returns an error.
func (e *Engine) handleConn(ctx context.Context, conn net.Conn) error {
	session := NewSession(conn, e.maxFrame)

	identity, err := e.handshake(session)
	if err != nil {
		e.log.Warn("Closing connection before registration",
			"remote", conn.RemoteAddr().String(), "error", err)
		_ = session.Close()
		return nil
	}
	e.log.Info(fmt.Sprintf("User %s connected", identity))

	// Last connect wins: the prior session is closed before this one
	// becomes the lookup target. The second close covers a register
	// racing in between.
	if prev, ok := e.registry.Lookup(identity); ok {
		e.log.Info(fmt.Sprintf("User %s reconnected, closing previous session", identity))
		_ = prev.Close()
	}
	if prev := e.registry.Register(identity, session); prev != nil {
		_ = prev.Close()
	}
	defer func() {
		// Guarded: a disconnect racing a faster reconnect must not
		// unregister the newer session.
		e.registry.Unregister(identity, session)
		_ = session.Close()
		e.log.Info(fmt.Sprintf("User %s disconnected", identity))
	}()

	// A handshake that completes after shutdown began registered too
	// late for the CloseAll sweep, and the sweep will not run again.
	if ctx.Err() != nil {
		return nil
	}

	// Queued messages are fully drained before live traffic for this
	// session is processed.
	if err := e.replay(identity, session); err != nil {
		if stderrors.Is(err, errors.ErrStoreFailure) {
			return err
		}
		return nil
	}

	return e.activeLoop(ctx, identity, session)
}

// handshake reads the identity frame within the configured timeout.
func (e *Engine) handshake(session *Session) (string, error) {
	if err := session.SetReadDeadline(time.Now().Add(e.handshakeTimeout)); err != nil {
		return "", err
	}
	raw, err := session.ReadFrame()
	if err != nil {
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			return "", errors.ErrHandshakeTimeout
		}
		return "", err
	}
	if err := session.SetReadDeadline(time.Time{}); err != nil {
		return "", err
	}
	hs, err := wire.DecodeHandshake(raw)
	if err != nil {
		return "", err
	}
	return hs.UserID, nil
}

// replay flushes the offline queue, oldest first. Each entry is marked
// delivered only after its write succeeded; a failed write leaves the
// rest pending for the next connect, with no retry on this one.
func (e *Engine) replay(identity string, session *Session) error {
	pending, err := e.store.Drain(identity)
	if err != nil {
		return fmt.Errorf("%w: draining for %s: %v", errors.ErrStoreFailure, identity, err)
	}
	if len(pending) == 0 {
		return nil
	}
	e.log.Info(fmt.Sprintf("Replaying %d queued messages for %s", len(pending), identity))

	for _, msg := range pending {
		out := msg
		out.Status = domain.StatusDelivered
		if err := session.Send(out); err != nil {
			e.log.Warn("Replay interrupted, remaining messages stay pending",
				"user_id", identity, "message_id", msg.ID.String(), "error", err)
			return err
		}
		if err := e.store.MarkDelivered(identity, msg.ID.String()); err != nil {
			return fmt.Errorf("%w: marking %s delivered for %s: %v",
				errors.ErrStoreFailure, msg.ID, identity, err)
		}
	}
	return nil
}

// activeLoop consumes inbound frames until the transport closes. A single
// bad frame is logged and skipped, never a reason to drop the connection.
func (e *Engine) activeLoop(ctx context.Context, identity string, session *Session) error {
	for {
		raw, err := session.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.log.Debug("Read loop terminated", "user_id", identity, "error", err)
			return nil
		}
		if err := e.process(identity, raw); err != nil {
			if stderrors.Is(err, errors.ErrStoreFailure) {
				return err
			}
			e.log.Warn("Message dropped", "user_id", identity, "error", err)
		}
	}
}

// process stamps, routes and delivers one inbound message. The engine,
// never the client, assigns id and sentAt; the sender identity always
// comes from the handshake.
func (e *Engine) process(sender string, raw []byte) error {
	msg, err := wire.DecodeMessage(raw)
	if err != nil {
		return err
	}
	msg.SenderID = sender
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	msg.Status = domain.StatusPending

	deliveries, err := e.router.Route(msg)
	if err != nil {
		return err
	}

	// Failures here are per recipient: one recipient's outcome never
	// affects the others' copies.
	for _, delivery := range deliveries {
		if err := e.deliver(delivery); err != nil {
			return err
		}
	}
	return nil
}

// deliver attempts a live send and falls back to the offline queue, so a
// message is never silently dropped by a send-time race with a
// disconnecting recipient. Lookup releases the registry shard before the
// blocking send.
func (e *Engine) deliver(delivery domain.Delivery) error {
	if session, ok := e.registry.Lookup(delivery.Recipient); ok {
		out := delivery.Message
		out.Status = domain.StatusDelivered
		err := session.Send(out)
		if err == nil {
			return nil
		}
		e.log.Warn("Live send failed, falling back to offline queue",
			"recipient", delivery.Recipient, "message_id", delivery.Message.ID.String(), "error", err)
	}

	if err := e.store.Enqueue(delivery.Recipient, delivery.Message); err != nil {
		return fmt.Errorf("%w: enqueue for %s: %v", errors.ErrStoreFailure, delivery.Recipient, err)
	}
	return nil
}
