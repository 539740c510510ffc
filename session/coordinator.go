// Package session tracks match membership and routes inbound state packets
// to the right local entity. The Coordinator is strictly single-threaded:
// the game loop that drives the simulation tick is the only caller, and
// transport events must be handed to it between ticks so an update is never
// observed half-applied.
package session

import (
	"log"
	"time"

	"github.com/openpaddle/netpong/network"
	"github.com/openpaddle/netpong/shared/gamemath"
	"github.com/openpaddle/netpong/shared/netconfig"
	"github.com/openpaddle/netpong/shared/protocol"
)

// Role says whether an entity is driven by local input or by remote packets.
type Role int

const (
	RoleLocal Role = iota
	RoleRemote
)

func (r Role) String() string {
	if r == RoleLocal {
		return "local"
	}
	return "remote"
}

// State is the coordinator's membership state.
type State int

const (
	StateDisconnected State = iota
	StateMatched
	StateInMatch
)

// Transport is the outbound half of the real-time channel. Reliable,
// ordered delivery is the transport's problem, not the coordinator's.
type Transport interface {
	Send(matchID string, opcode int64, payload []byte) error
	Leave(matchID string) error
}

// PlayerEntity is one participant's paddle. Exclusively owned by the
// coordinator's entity map; its smoother (and the clock estimator inside
// it) is never shared with another entity and dies with it.
type PlayerEntity struct {
	SessionID string
	Role      Role
	Motion    *network.PredictionSmoother
}

// EntityEvent notifies game logic that an entity appeared or went away.
type EntityEvent struct {
	SessionID string
	Role      Role
}

// RemoteState notifies game logic that a remote entity received a state
// packet this frame.
type RemoteState struct {
	SessionID string
	Packet    protocol.PaddlePacket
}

// Config carries the knobs the coordinator hands to entity smoothers.
type Config struct {
	// Screen bounds paddle positions, per axis.
	Screen gamemath.Vec2
	// Predict enables dead reckoning and extrapolation for remote entities.
	Predict bool
	// Smooth enables correction blending for remote entities.
	Smooth bool
	// FramesBetweenPackets is the expected packet cadence in frames.
	FramesBetweenPackets float64
	// EstimatedLatency is the average one-way latency estimate in seconds.
	// Per-packet clock-drift deviation corrects it on arrival.
	EstimatedLatency float64
	// Now returns the local clock in seconds. Defaults to the monotonic
	// process clock.
	Now func() float64
}

// Coordinator owns the entity map and match membership. Single writer; no
// locking by design.
type Coordinator struct {
	cfg       Config
	transport Transport

	state    State
	matchID  string
	localID  string
	hostID   string
	entities map[string]*PlayerEntity

	localInput gamemath.Vec2

	spawnedCh chan EntityEvent
	removedCh chan EntityEvent
	stateCh   chan RemoteState
}

// NewCoordinator creates a disconnected coordinator.
func NewCoordinator(transport Transport, cfg Config) *Coordinator {
	if cfg.FramesBetweenPackets <= 0 {
		cfg.FramesBetweenPackets = netconfig.FramesBetweenPackets
	}
	if cfg.Now == nil {
		start := time.Now()
		cfg.Now = func() float64 { return time.Since(start).Seconds() }
	}
	return &Coordinator{
		cfg:       cfg,
		transport: transport,
		entities:  make(map[string]*PlayerEntity),
		spawnedCh: make(chan EntityEvent, 8),
		removedCh: make(chan EntityEvent, 8),
		stateCh:   make(chan RemoteState, 16),
	}
}

// State returns the membership state.
func (c *Coordinator) State() State { return c.state }

// Host returns the session id of the elected host peer.
func (c *Coordinator) Host() string { return c.hostID }

// Entity returns the entity for a session id, or nil.
func (c *Coordinator) Entity(sessionID string) *PlayerEntity {
	return c.entities[sessionID]
}

// EntityCount returns the number of live entities.
func (c *Coordinator) EntityCount() int { return len(c.entities) }

// OnMatched installs a fresh match. The host is the participant with the
// lexicographically greatest session id. Spawning is idempotent: a session
// id that already has an entity is skipped.
func (c *Coordinator) OnMatched(matchID string, participants []string, self string) {
	if len(participants) == 0 {
		panic("session: matched with no participants")
	}

	c.matchID = matchID
	c.localID = self

	host := participants[0]
	for _, p := range participants[1:] {
		if p > host {
			host = p
		}
	}
	c.hostID = host

	c.state = StateMatched
	for _, p := range participants {
		c.spawn(p)
	}
	c.state = StateInMatch

	log.Printf("[session] matched %s: %d participants, host=%s self=%s",
		matchID, len(participants), host, self)
}

// OnPresenceChange applies membership churn. If the host is among the
// leavers a new host is elected as the lexicographic *minimum* of the
// remaining participants. The minimum here versus the maximum at initial
// election is intentional and pinned by tests; do not unify the two rules.
func (c *Coordinator) OnPresenceChange(joins, leaves []string) {
	if c.state == StateDisconnected {
		return
	}

	for _, l := range leaves {
		if l != c.hostID {
			continue
		}
		host := ""
		for id := range c.entities {
			if leaving(id, leaves) {
				continue
			}
			if host == "" || id < host {
				host = id
			}
		}
		if host == "" {
			panic("session: host re-election with no participants")
		}
		c.hostID = host
		log.Printf("[session] host %s left, new host %s", l, host)
		break
	}

	for _, j := range joins {
		c.spawn(j)
	}
	for _, l := range leaves {
		c.despawn(l)
	}
}

// OnMatchState routes one inbound state payload. Packets referencing an
// unknown session id, a non-remote entity, or a mismatched identity are
// dropped silently: under normal churn a peer keeps sending briefly after
// its entity is gone, and that is not an error.
func (c *Coordinator) OnMatchState(senderID string, opcode int64, payload []byte) {
	entity, ok := c.entities[senderID]
	if !ok {
		return
	}
	if entity.Role != RoleRemote || entity.SessionID != senderID {
		return
	}

	switch opcode {
	case protocol.OpPaddleState:
		var pkt protocol.PaddlePacket
		if err := pkt.UnmarshalBinary(payload); err != nil {
			log.Printf("[session] dropping paddle packet from %s: %v", senderID, err)
			return
		}
		entity.Motion.OnRemotePacket(
			float64(pkt.SendTime),
			gamemath.Vec2{X: float64(pkt.PosX), Y: float64(pkt.PosY)},
			gamemath.Vec2{X: float64(pkt.VelX), Y: float64(pkt.VelY)},
			gamemath.Vec2{X: float64(pkt.InputX), Y: float64(pkt.InputY)},
			c.cfg.Now(),
			c.cfg.EstimatedLatency,
			c.cfg.Predict,
			c.cfg.Smooth,
		)
		select {
		case c.stateCh <- RemoteState{SessionID: senderID, Packet: pkt}:
		default:
		}
	case protocol.OpBallState, protocol.OpScored, protocol.OpRespawned, protocol.OpNewRound:
		// Ball and scoring payloads belong to game logic; the coordinator
		// only guarantees they reached a valid remote entity.
	}
}

// SetLocalInput stores the input applied to the local entity on the next
// Update.
func (c *Coordinator) SetLocalInput(input gamemath.Vec2) {
	c.localInput = input
}

// Update advances every entity by one frame: the local entity integrates
// the stored input, remote entities extrapolate and blend.
func (c *Coordinator) Update(dt float64) {
	for _, e := range c.entities {
		if e.Role == RoleLocal {
			e.Motion.UpdateLocal(c.localInput, dt)
		} else {
			e.Motion.UpdateRemote(c.cfg.FramesBetweenPackets, c.cfg.Predict)
		}
	}
}

// SendLocalState encodes the local entity's simulation state and emits it
// on the transport. No-op when there is no local entity.
func (c *Coordinator) SendLocalState() error {
	e := c.entities[c.localID]
	if e == nil || c.state != StateInMatch {
		return nil
	}
	sim := e.Motion.Buffer().Simulation
	pkt := protocol.PaddlePacket{
		SendTime: float32(c.cfg.Now()),
		PosX:     float32(sim.Position.X),
		PosY:     float32(sim.Position.Y),
		VelX:     float32(sim.Velocity.X),
		VelY:     float32(sim.Velocity.Y),
		InputX:   float32(sim.Input.X),
		InputY:   float32(sim.Input.Y),
	}
	payload, err := pkt.MarshalBinary()
	if err != nil {
		return err
	}
	return c.transport.Send(c.matchID, protocol.OpPaddleState, payload)
}

// QuitMatch leaves the transport channel, destroys every entity and clears
// membership. Always returns to Disconnected, even if the leave fails.
func (c *Coordinator) QuitMatch() {
	if c.state == StateDisconnected {
		return
	}
	if err := c.transport.Leave(c.matchID); err != nil {
		log.Printf("[session] leave %s: %v", c.matchID, err)
	}
	for id := range c.entities {
		c.despawn(id)
	}
	c.matchID = ""
	c.localID = ""
	c.hostID = ""
	c.state = StateDisconnected
}

// DrainSpawned returns all pending entity-spawned events, non-blocking.
func (c *Coordinator) DrainSpawned() []EntityEvent { return drainChan(c.spawnedCh) }

// DrainRemoved returns all pending entity-removed events, non-blocking.
func (c *Coordinator) DrainRemoved() []EntityEvent { return drainChan(c.removedCh) }

// DrainRemoteStates returns all pending remote-state events, non-blocking.
func (c *Coordinator) DrainRemoteStates() []RemoteState { return drainChan(c.stateCh) }

func (c *Coordinator) spawn(sessionID string) {
	if _, exists := c.entities[sessionID]; exists {
		return
	}
	role := RoleRemote
	if sessionID == c.localID {
		role = RoleLocal
	}
	c.entities[sessionID] = &PlayerEntity{
		SessionID: sessionID,
		Role:      role,
		Motion:    network.NewPredictionSmoother(c.cfg.Screen),
	}
	select {
	case c.spawnedCh <- EntityEvent{SessionID: sessionID, Role: role}:
	default:
	}
	log.Printf("[session] spawned %s entity %s", role, sessionID)
}

func (c *Coordinator) despawn(sessionID string) {
	e, exists := c.entities[sessionID]
	if !exists {
		return
	}
	delete(c.entities, sessionID)
	select {
	case c.removedCh <- EntityEvent{SessionID: sessionID, Role: e.Role}:
	default:
	}
	log.Printf("[session] removed %s entity %s", e.Role, sessionID)
}

func leaving(id string, leaves []string) bool {
	for _, l := range leaves {
		if l == id {
			return true
		}
	}
	return false
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
