package relay

import (
	"sync"

	"github.com/google/uuid"
)

type queueEntry struct {
	ticket     string
	sessionID  string
	minPlayers int
}

// Matchmaker pools sessions until enough are waiting to form a match.
// FIFO: the oldest request decides the threshold, and the oldest waiters
// fill the match.
type Matchmaker struct {
	mu    sync.Mutex
	queue []queueEntry
}

// FormedMatch is the outcome of a successful pairing.
type FormedMatch struct {
	MatchID      string
	Participants []string
}

func NewMatchmaker() *Matchmaker {
	return &Matchmaker{}
}

// Enqueue adds a session to the pool and returns its cancellation ticket.
// If the pool now satisfies the oldest request's threshold, the formed
// match is returned alongside.
func (m *Matchmaker) Enqueue(sessionID string, minPlayers int) (string, *FormedMatch) {
	if minPlayers < 2 {
		minPlayers = 2
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A session already waiting keeps its place and its ticket; without
	// this a client repeating the request could fill a match with itself.
	for _, e := range m.queue {
		if e.sessionID == sessionID {
			return e.ticket, nil
		}
	}

	ticket := uuid.NewString()
	m.queue = append(m.queue, queueEntry{ticket: ticket, sessionID: sessionID, minPlayers: minPlayers})

	need := m.queue[0].minPlayers
	if len(m.queue) < need {
		return ticket, nil
	}

	formed := &FormedMatch{MatchID: uuid.NewString()}
	for _, e := range m.queue[:need] {
		formed.Participants = append(formed.Participants, e.sessionID)
	}
	m.queue = append([]queueEntry(nil), m.queue[need:]...)
	return ticket, formed
}

// Cancel withdraws a pending ticket. Returns false if the ticket is unknown
// or was already consumed by a formed match; the caller treats that as a
// no-op, not an error.
func (m *Matchmaker) Cancel(ticket string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.queue {
		if e.ticket == ticket {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Remove drops every queue entry belonging to a session, used when the
// session disconnects while waiting.
func (m *Matchmaker) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.queue[:0]
	for _, e := range m.queue {
		if e.sessionID != sessionID {
			kept = append(kept, e)
		}
	}
	m.queue = kept
}

// QueueLen reports how many sessions are waiting.
func (m *Matchmaker) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
