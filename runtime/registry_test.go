package runtime

import (
	"chat-relay/domain"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	mu     sync.Mutex
	sent   []domain.Message
	closed int
}

func (s *stubSession) Send(msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *stubSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func Test_Registry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.NewString()
	session := &stubSession{}

	// Given nobody is online
	_, ok := registry.Lookup(identity)
	req.False(ok)

	// When the user registers
	prev := registry.Register(identity, session)

	// Then there was no prior session and lookup resolves
	req.Nil(prev)
	found, ok := registry.Lookup(identity)
	req.True(ok)
	req.Same(session, found)
}

func Test_Registry_Last_Connect_Wins(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.NewString()
	older := &stubSession{}
	newer := &stubSession{}

	// Given a registered session
	registry.Register(identity, older)

	// When the same identity reconnects
	prev := registry.Register(identity, newer)

	// Then the prior session is handed back for closing
	req.Same(older, prev)

	// And the old session is unreachable via lookup
	found, ok := registry.Lookup(identity)
	req.True(ok)
	req.Same(newer, found)
}

func Test_Registry_Unregister_Is_Guarded_By_Session_Instance(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	identity := uuid.NewString()
	older := &stubSession{}
	newer := &stubSession{}

	// Given an overlapping reconnect
	registry.Register(identity, older)
	registry.Register(identity, newer)

	// When the stale disconnect fires
	removed := registry.Unregister(identity, older)

	// Then it does not clobber the newer session
	req.False(removed)
	found, ok := registry.Lookup(identity)
	req.True(ok)
	req.Same(newer, found)

	// And the genuine disconnect removes it
	req.True(registry.Unregister(identity, newer))
	_, ok = registry.Lookup(identity)
	req.False(ok)
}

func Test_Registry_Unregister_Unknown_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.False(registry.Unregister(uuid.NewString(), &stubSession{}))
}

func Test_Registry_Snapshot_Lists_Online_Identities(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Register("alice", &stubSession{})
	registry.Register("bob", &stubSession{})
	registry.Register("clara", &stubSession{})
	registry.Unregister("bob", nil) // wrong instance, bob stays

	snapshot := registry.Snapshot()
	req.ElementsMatch([]string{"alice", "bob", "clara"}, snapshot)
}

func Test_Registry_CloseAll_Closes_Every_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := &stubSession{}
	second := &stubSession{}

	registry.Register("alice", first)
	registry.Register("bob", second)

	registry.CloseAll()

	req.Equal(1, first.closed)
	req.Equal(1, second.closed)
	req.Empty(registry.Snapshot())
}

func Test_Registry_Concurrent_Distinct_Identities(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			identity := uuid.NewString()
			session := &stubSession{}
			registry.Register(identity, session)
			_, ok := registry.Lookup(identity)
			if ok {
				registry.Unregister(identity, session)
			}
		}()
	}
	wg.Wait()

	req.Empty(registry.Snapshot())
}
