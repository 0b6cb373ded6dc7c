package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	id        string
	principal string
	open      bool

	mu   sync.Mutex
	sent [][]byte
	fail bool
}

func newFakeSession(id, principal string) *fakeSession {
	return &fakeSession{id: id, principal: principal, open: true}
}

func (s *fakeSession) ID() string        { return s.id }
func (s *fakeSession) Principal() string { return s.principal }
func (s *fakeSession) IsOpen() bool      { return s.open }

func (s *fakeSession) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return assert.AnError
	}
	s.sent = append(s.sent, data)
	return nil
}

func (s *fakeSession) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestRegistryAddAndSessionsFor(t *testing.T) {
	r := NewRegistry()
	s1 := newFakeSession("s1", "alice")
	s2 := newFakeSession("s2", "bob")

	r.Add("alice:bob", s1)
	r.Add("alice:bob", s2)

	sessions := r.SessionsFor("alice:bob")
	assert.Len(t, sessions, 2)
	assert.Empty(t, r.SessionsFor("other"))
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	s1 := newFakeSession("s1", "alice")

	r.Add("alice:bob", s1)
	r.Remove("alice:bob", "s1")

	assert.Empty(t, r.SessionsFor("alice:bob"))

	// Removing from an unknown channel is a no-op.
	r.Remove("missing", "s1")
}

func TestRegistryRemoveSessionEverywhere(t *testing.T) {
	r := NewRegistry()
	s1 := newFakeSession("s1", "alice")

	r.Add("alice:bob", s1)
	r.Add("seoul", s1)

	r.RemoveSession("s1")

	assert.Empty(t, r.SessionsFor("alice:bob"))
	assert.Empty(t, r.SessionsFor("seoul"))
}

func TestRegistryChannelsForUser(t *testing.T) {
	r := NewRegistry()
	alice := newFakeSession("s1", "alice")
	bob := newFakeSession("s2", "bob")

	r.Add("alice:bob", alice)
	r.Add("alice:bob", bob)
	r.Add("seoul", alice)

	channels := r.ChannelsForUser("alice")
	assert.ElementsMatch(t, []string{"alice:bob", "seoul"}, channels)

	assert.ElementsMatch(t, []string{"alice:bob"}, r.ChannelsForUser("bob"))
	assert.Empty(t, r.ChannelsForUser("carol"))
}

func TestRegistryChannelsForUserSkipsClosedSessions(t *testing.T) {
	r := NewRegistry()
	alice := newFakeSession("s1", "alice")
	alice.open = false

	r.Add("alice:bob", alice)

	assert.Empty(t, r.ChannelsForUser("alice"))
}
