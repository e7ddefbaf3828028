// Package runtime hosts the live side of the delivery engine: the
// presence registry, sessions, routing and the per-connection loops.
// It orchestrates delivery without owning durable state.
package runtime

import (
	"chat-relay/contract"
	"hash/fnv"
	"sync"
)

const registryShards = 32

type shard struct {
	mu       sync.RWMutex
	sessions map[string]contract.Session
}

// Registry is the concurrent mapping from user identity to its current
// session. It is partitioned by identity key so register/unregister/lookup
// for unrelated identities never contend on one lock.
type Registry struct {
	shards [registryShards]*shard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[string]contract.Session)}
	}
	return r
}

func (r *Registry) shardFor(identity string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return r.shards[h.Sum32()%registryShards]
}

// Register associates an identity with its session, replacing any prior
// session (last connect wins). The prior session, if any, is returned so
// the caller can close it before the replacement becomes observable to
// new lookups through delivery.
func (r *Registry) Register(identity string, session contract.Session) contract.Session {
	s := r.shardFor(identity)
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.sessions[identity]
	s.sessions[identity] = session
	return prev
}

// Unregister removes the mapping only if session is still the registered
// instance. A disconnect racing a faster reconnect of the same identity
// must not clobber the newer session.
func (r *Registry) Unregister(identity string, session contract.Session) bool {
	s := r.shardFor(identity)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[identity]
	if !ok || current != session {
		return false
	}
	delete(s.sessions, identity)
	return true
}

// Lookup returns the current live session for an identity.
func (r *Registry) Lookup(identity string) (contract.Session, bool) {
	s := r.shardFor(identity)
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[identity]
	return session, ok
}

// Snapshot returns the identities online at this instant, the broadcast
// target set. Shards are read one at a time; the result is a point-in-time
// view, not a consistent cut across shards.
func (r *Registry) Snapshot() []string {
	var identities []string
	for _, s := range r.shards {
		s.mu.RLock()
		for identity := range s.sessions {
			identities = append(identities, identity)
		}
		s.mu.RUnlock()
	}
	return identities
}

// CloseAll tears down every registered session, used at shutdown.
func (r *Registry) CloseAll() {
	for _, s := range r.shards {
		s.mu.Lock()
		for identity, session := range s.sessions {
			_ = session.Close()
			delete(s.sessions, identity)
		}
		s.mu.Unlock()
	}
}
