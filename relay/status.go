package relay

import (
	"encoding/json"
	"log"
	"net/http"
)

// MatchInfo is one active match in a status snapshot.
type MatchInfo struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
}

// StatusSnapshot is the JSON body served by the status endpoint.
type StatusSnapshot struct {
	Sessions   int         `json:"sessions"`
	QueueDepth int         `json:"queueDepth"`
	Matches    []MatchInfo `json:"matches"`
}

// Snapshot returns the relay's current sessions, queue depth and matches.
func (s *Server) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatusSnapshot{
		Sessions:   len(s.conns),
		QueueDepth: s.matchmake.QueueLen(),
		Matches:    make([]MatchInfo, 0, len(s.matches)),
	}
	for _, m := range s.matches {
		snap.Matches = append(snap.Matches, MatchInfo{
			ID:           m.id,
			Participants: append([]string(nil), m.participants...),
		})
	}
	return snap
}

// Status serves a JSON snapshot of the relay's state.
func Status(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
			log.Printf("[relay] status encode error: %v", err)
		}
	}
}

// Health reports liveness.
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
