package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/wire"
	"net"
	"sync"
	"time"
)

// Session wraps one client's live transport. It owns the framing in both
// directions and a single outbound write lock: interleaved partial writes
// from concurrent senders would corrupt framing, so Send holds the lock
// for the whole frame.
type Session struct {
	conn     net.Conn
	maxFrame uint32

	wmu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func NewSession(conn net.Conn, maxFrame uint32) *Session {
	if maxFrame == 0 {
		maxFrame = wire.DefaultMaxFrameSize
	}
	return &Session{
		conn:     conn,
		maxFrame: maxFrame,
		closed:   make(chan struct{}),
	}
}

// Send serializes msg as a single length-delimited frame and writes it.
// Safe for concurrent use from any goroutine.
func (s *Session) Send(msg domain.Message) error {
	select {
	case <-s.closed:
		return errors.ErrSessionClosed
	default:
	}

	payload, err := wire.EncodeMessage(msg)
	if err != nil {
		return err
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	return wire.WriteFrame(s.conn, payload)
}

// ReadFrame blocks for the next inbound frame. The sequence of calls
// terminates with an error when the transport closes or a frame cannot
// be read whole. Only the connection's own task reads.
func (s *Session) ReadFrame() ([]byte, error) {
	return wire.ReadFrame(s.conn, s.maxFrame)
}

// SetReadDeadline bounds the next read, used for the handshake timeout.
func (s *Session) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// Close shuts the transport down. Idempotent: the read loop, an external
// shutdown and an error path may all call it. Closing unblocks any
// in-flight read so the connection's task terminates promptly.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

// RemoteAddr identifies the peer for logging.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}
