// Package relay implements the reference real-time channel the netcode core
// rides on: a WebSocket relay that assigns session ids, pools matchmaking
// requests, and forwards opaque in-match state payloads between the
// participants of a match. It never interprets payloads beyond stamping the
// sender's session id on them.
package relay

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"

	"github.com/openpaddle/netpong/shared/messages"
)

type match struct {
	id           string
	participants []string
}

// Server routes messages between connected clients.
type Server struct {
	mu sync.RWMutex

	transport *transports.WsServerTransport

	sessions  map[*router.NetworkClient]string // connection -> session id
	conns     map[string]*router.NetworkClient // session id -> connection
	matches   map[string]*match                // match id -> match
	inMatch   map[string]string                // session id -> match id
	matchmake *Matchmaker

	// send delivers one typed message to a connection. Overridable in
	// tests; the default goes through the necs router, which serializes
	// the message itself.
	send func(client *router.NetworkClient, msg any) error
}

// NewServer creates a relay with an empty matchmaking pool.
func NewServer() *Server {
	s := &Server{
		sessions:  make(map[*router.NetworkClient]string),
		conns:     make(map[string]*router.NetworkClient),
		matches:   make(map[string]*match),
		inMatch:   make(map[string]string),
		matchmake: NewMatchmaker(),
		send: func(client *router.NetworkClient, msg any) error {
			return client.SendMessage(msg)
		},
	}
	s.setupRouterCallbacks()
	return s
}

// Start serves WebSocket connections on the given port. Blocks.
func (s *Server) Start(port uint) error {
	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		s.onConnect(client)
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		s.onDisconnect(client, err)
	})

	router.On(func(client *router.NetworkClient, msg messages.MatchmakeRequest) {
		s.onMatchmakeRequest(client, msg)
	})

	router.On(func(client *router.NetworkClient, msg messages.MatchmakeCancel) {
		if s.matchmake.Cancel(msg.Ticket) {
			log.Printf("[relay] cancelled ticket %s", msg.Ticket)
		}
	})

	router.On(func(client *router.NetworkClient, msg messages.MatchData) {
		s.onMatchData(client, msg)
	})

	router.On(func(client *router.NetworkClient, msg messages.LeaveMatch) {
		s.mu.RLock()
		sessionID := s.sessions[client]
		s.mu.RUnlock()
		s.leaveMatch(sessionID, msg.MatchID)
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		log.Printf("[relay] client error: %v", err)
	})
}

func (s *Server) onConnect(client *router.NetworkClient) {
	sessionID := uuid.NewString()

	s.mu.Lock()
	s.sessions[client] = sessionID
	s.conns[sessionID] = client
	s.mu.Unlock()

	log.Printf("[relay] session %s connected", sessionID)
	s.sendTo(sessionID, messages.Welcome{SessionID: sessionID})
}

func (s *Server) onDisconnect(client *router.NetworkClient, err error) {
	s.mu.Lock()
	sessionID, known := s.sessions[client]
	delete(s.sessions, client)
	delete(s.conns, sessionID)
	matchID := s.inMatch[sessionID]
	s.mu.Unlock()

	if !known {
		return
	}
	if err != nil {
		log.Printf("[relay] session %s disconnected: %v", sessionID, err)
	} else {
		log.Printf("[relay] session %s disconnected", sessionID)
	}

	s.matchmake.Remove(sessionID)
	if matchID != "" {
		s.leaveMatch(sessionID, matchID)
	}
}

func (s *Server) onMatchmakeRequest(client *router.NetworkClient, msg messages.MatchmakeRequest) {
	s.mu.RLock()
	sessionID := s.sessions[client]
	s.mu.RUnlock()
	if sessionID == "" {
		return
	}

	ticket, formed := s.matchmake.Enqueue(sessionID, msg.MinPlayers)
	s.sendTo(sessionID, messages.MatchmakeTicket{Ticket: ticket})

	if formed == nil {
		return
	}

	m := &match{id: formed.MatchID, participants: formed.Participants}
	s.mu.Lock()
	s.matches[m.id] = m
	for _, p := range m.participants {
		s.inMatch[p] = m.id
	}
	s.mu.Unlock()

	log.Printf("[relay] formed match %s with %v", m.id, m.participants)
	for _, p := range m.participants {
		s.sendTo(p, messages.Matched{
			MatchID:      m.id,
			Participants: m.participants,
			SessionID:    p,
		})
	}
}

// onMatchData forwards a state payload to every other participant of the
// sender's match, with the sender's session id stamped on. Payloads from
// sessions not in the named match are dropped.
func (s *Server) onMatchData(client *router.NetworkClient, msg messages.MatchData) {
	s.mu.RLock()
	sessionID := s.sessions[client]
	m := s.matches[msg.MatchID]
	member := s.inMatch[sessionID] == msg.MatchID
	var participants []string
	if m != nil {
		participants = append(participants, m.participants...)
	}
	s.mu.RUnlock()

	if sessionID == "" || m == nil || !member {
		return
	}

	msg.SenderID = sessionID
	for _, p := range participants {
		if p != sessionID {
			s.sendTo(p, msg)
		}
	}
}

func (s *Server) leaveMatch(sessionID, matchID string) {
	if sessionID == "" {
		return
	}

	s.mu.Lock()
	m := s.matches[matchID]
	if m == nil || s.inMatch[sessionID] != matchID {
		s.mu.Unlock()
		return
	}
	delete(s.inMatch, sessionID)
	var remaining []string
	for _, p := range m.participants {
		if p != sessionID {
			remaining = append(remaining, p)
		}
	}
	m.participants = remaining
	if len(m.participants) == 0 {
		delete(s.matches, matchID)
	}
	s.mu.Unlock()

	log.Printf("[relay] session %s left match %s", sessionID, matchID)
	for _, p := range remaining {
		s.sendTo(p, messages.PresenceEvent{MatchID: matchID, Leaves: []string{sessionID}})
	}
}

func (s *Server) sendTo(sessionID string, msg any) {
	s.mu.RLock()
	client := s.conns[sessionID]
	s.mu.RUnlock()
	if client == nil {
		return
	}

	// SendMessage serializes msg itself; handing it pre-serialized bytes
	// would put a msgpack-encoded []uint8 on the wire and the receiving
	// router would never dispatch it to the typed handlers.
	if err := s.send(client, msg); err != nil {
		log.Printf("[relay] send to %s: %v", sessionID, err)
	}
}
