// Package messages holds the typed envelope messages exchanged between
// clients and the relay. They are serialized by the necs router; in-match
// state payloads inside MatchData use the shared/protocol binary format
// instead and are never interpreted by the relay.
package messages

// Welcome is sent by the relay right after a connection is accepted and
// assigns the connection its session id.
type Welcome struct {
	SessionID string
}

// MatchmakeRequest asks the relay to place the sender in the matchmaking
// pool until MinPlayers are available.
type MatchmakeRequest struct {
	MinPlayers int
}

// MatchmakeTicket acknowledges a MatchmakeRequest. The ticket cancels the
// request; it is useless once a match has been formed.
type MatchmakeTicket struct {
	Ticket string
}

// MatchmakeCancel withdraws a pending matchmaking request. Cancellation is
// best-effort: if the match forms first, the cancel is a no-op.
type MatchmakeCancel struct {
	Ticket string
}

// Matched tells a client its matchmaking request was fulfilled.
// Participants lists every session id in the match; SessionID marks the
// recipient's own entry.
type Matched struct {
	MatchID      string
	Participants []string
	SessionID    string
}

// MatchData carries one opaque state payload within a match. The relay
// stamps SenderID before forwarding so receivers can route the payload to
// the right entity.
type MatchData struct {
	MatchID  string
	SenderID string
	OpCode   int64
	Payload  []byte
}

// PresenceEvent reports membership changes within a match.
type PresenceEvent struct {
	MatchID string
	Joins   []string
	Leaves  []string
}

// LeaveMatch tells the relay the sender is quitting the match.
type LeaveMatch struct {
	MatchID string
}
