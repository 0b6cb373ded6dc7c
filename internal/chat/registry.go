package chat

import (
	"sync"

	"chatrelay/pkg/metrics"
)

// Session is a live push recipient attached to one or more channels. The
// websocket and SSE layers provide implementations.
type Session interface {
	ID() string
	Principal() string
	IsOpen() bool
	Send(data []byte) error
}

// Registry tracks which sessions are attached to which channels. It is
// process-local: each relay instance only pushes to sessions it owns, and
// the bus fans the envelope out to every instance.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[string]Session),
	}
}

func (r *Registry) Add(channel string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.channels[channel]
	if !ok {
		sessions = make(map[string]Session)
		r.channels[channel] = sessions
	}
	sessions[s.ID()] = s
	r.updateGauges()
}

func (r *Registry) Remove(channel, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sessions, ok := r.channels[channel]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.channels, channel)
		}
	}
	r.updateGauges()
}

// RemoveSession detaches a session from every channel it joined. Called when
// the underlying connection closes.
func (r *Registry) RemoveSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for channel, sessions := range r.channels {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.channels, channel)
		}
	}
	r.updateGauges()
}

// SessionsFor returns a snapshot of the sessions attached to a channel.
// Callers iterate the snapshot without holding the registry lock.
func (r *Registry) SessionsFor(channel string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions, ok := r.channels[channel]
	if !ok {
		return nil
	}
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s)
	}
	return out
}

// ChannelsForUser lists the channels the user currently has an open session
// on.
func (r *Registry) ChannelsForUser(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for channel, sessions := range r.channels {
		for _, s := range sessions {
			if s.Principal() == userID && s.IsOpen() {
				out = append(out, channel)
				break
			}
		}
	}
	return out
}

func (r *Registry) updateGauges() {
	total := 0
	seen := make(map[string]struct{})
	for _, sessions := range r.channels {
		for id := range sessions {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				total++
			}
		}
	}
	metrics.SetActiveSessions(total)
	metrics.SetActiveChannels(len(r.channels))
}
