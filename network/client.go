package network

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/coder/websocket"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"

	"github.com/openpaddle/netpong/shared/messages"
)

// ClientState tracks the relay connection lifecycle.
type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateMatchmaking
	StateInMatch
	StateError
)

// Client manages a WebSocket connection to the relay.
// All shared fields are protected by mu (router callbacks run on necs
// goroutines); inbound match events are buffered on channels and drained
// by the game loop between simulation ticks, so the netcode core itself
// never sees a half-applied update.
type Client struct {
	mu sync.RWMutex

	state     ClientState
	lastError error
	sessionID string
	matchID   string
	conn      *websocket.Conn

	matchmaking bool
	ticketCh    chan string

	matchedCh  chan messages.Matched
	presenceCh chan messages.PresenceEvent
	dataCh     chan messages.MatchData

	// sendFn replaces the websocket write path in tests; nil otherwise.
	sendFn func(msg any) error
}

// NewClient creates a disconnected relay client.
func NewClient() *Client {
	return &Client{
		state:      StateDisconnected,
		ticketCh:   make(chan string, 1),
		matchedCh:  make(chan messages.Matched, 1),
		presenceCh: make(chan messages.PresenceEvent, 8),
		dataCh:     make(chan messages.MatchData, 64),
	}
}

// Connect dials the relay in a background goroutine. A second Connect while
// one is outstanding is rejected.
func (c *Client) Connect(address string) error {
	c.mu.Lock()
	if c.state == StateConnecting {
		c.mu.Unlock()
		return fmt.Errorf("connect already in progress")
	}
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	// A re-dial after an error or drop registers the callbacks again;
	// reset the router first so handlers are never duplicated.
	router.ResetRouter()

	router.OnConnect(func(_ *router.NetworkClient) {
		log.Println("[client] connected to relay")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.Welcome) {
		log.Printf("[client] session id %s", msg.SessionID)
		c.mu.Lock()
		c.sessionID = msg.SessionID
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.MatchmakeTicket) {
		select {
		case c.ticketCh <- msg.Ticket:
		default:
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.Matched) {
		log.Printf("[client] matched %s with %d participants", msg.MatchID, len(msg.Participants))
		c.mu.Lock()
		c.matchID = msg.MatchID
		c.matchmaking = false
		c.state = StateInMatch
		c.mu.Unlock()

		select { // drain stale, push latest
		case <-c.matchedCh:
		default:
		}
		c.matchedCh <- msg
	})

	router.On(func(_ *router.NetworkClient, msg messages.PresenceEvent) {
		select {
		case c.presenceCh <- msg:
		default:
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.MatchData) {
		select {
		case c.dataCh <- msg:
		default:
			// Cadence outran the game loop; dropping the oldest-unread
			// packet is safe, the next one supersedes it.
		}
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] disconnected: %v", err)
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.matchmaking = false
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] error: %v", err)
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
	return nil
}

// FindMatch submits a matchmaking request and waits for the relay's ticket.
// At most one matchmaking attempt may be outstanding; a concurrent second
// call is rejected rather than interleaved.
func (c *Client) FindMatch(ctx context.Context, minPlayers int) (string, error) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return "", fmt.Errorf("not connected")
	}
	if c.matchmaking {
		c.mu.Unlock()
		return "", fmt.Errorf("matchmaking already in progress")
	}
	c.matchmaking = true
	c.state = StateMatchmaking
	c.mu.Unlock()

	if err := c.send(messages.MatchmakeRequest{MinPlayers: minPlayers}); err != nil {
		c.mu.Lock()
		c.matchmaking = false
		c.state = StateConnected
		c.mu.Unlock()
		return "", err
	}

	select {
	case ticket := <-c.ticketCh:
		return ticket, nil
	case <-ctx.Done():
		// A ticket that raced the deadline still wins; matchmaking stays
		// outstanding exactly as if it had arrived in time.
		select {
		case ticket := <-c.ticketCh:
			return ticket, nil
		default:
		}
		c.mu.Lock()
		c.matchmaking = false
		if c.state == StateMatchmaking {
			c.state = StateConnected
		}
		c.mu.Unlock()
		return "", ctx.Err()
	}
}

// CancelMatchmaking withdraws a pending matchmaking ticket. Best-effort and
// racy by design: if the match forms before the relay observes the cancel,
// the match proceeds and the cancel is a no-op.
func (c *Client) CancelMatchmaking(ticket string) error {
	c.mu.Lock()
	if c.matchmaking {
		c.matchmaking = false
		c.state = StateConnected
	}
	c.mu.Unlock()
	return c.send(messages.MatchmakeCancel{Ticket: ticket})
}

// Send emits one opaque state payload into the match. Implements
// session.Transport.
func (c *Client) Send(matchID string, opcode int64, payload []byte) error {
	return c.send(messages.MatchData{MatchID: matchID, OpCode: opcode, Payload: payload})
}

// Leave quits the match channel. Implements session.Transport.
func (c *Client) Leave(matchID string) error {
	c.mu.Lock()
	if c.matchID == matchID {
		c.matchID = ""
		if c.state == StateInMatch {
			c.state = StateConnected
		}
	}
	c.mu.Unlock()
	return c.send(messages.LeaveMatch{MatchID: matchID})
}

// Disconnect tears down the connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.matchmaking = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

// State returns the connection state.
func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastError returns the error that moved the client into StateError, if any.
func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// SessionID returns the session id the relay assigned this connection.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// LatestMatched returns the most recent Matched event, or nil. Non-blocking.
func (c *Client) LatestMatched() *messages.Matched {
	select {
	case m := <-c.matchedCh:
		return &m
	default:
		return nil
	}
}

// DrainPresence returns all pending presence events, non-blocking.
func (c *Client) DrainPresence() []messages.PresenceEvent {
	return drainChan(c.presenceCh)
}

// DrainMatchData returns all pending match data payloads, non-blocking.
func (c *Client) DrainMatchData() []messages.MatchData {
	return drainChan(c.dataCh)
}

func (c *Client) send(msg any) error {
	if c.sendFn != nil {
		return c.sendFn(msg)
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
