package session

import (
	"testing"

	"github.com/openpaddle/netpong/shared/gamemath"
	"github.com/openpaddle/netpong/shared/protocol"
)

type fakeTransport struct {
	sent   []sentPacket
	leaves []string
}

type sentPacket struct {
	matchID string
	opcode  int64
	payload []byte
}

func (f *fakeTransport) Send(matchID string, opcode int64, payload []byte) error {
	f.sent = append(f.sent, sentPacket{matchID, opcode, payload})
	return nil
}

func (f *fakeTransport) Leave(matchID string) error {
	f.leaves = append(f.leaves, matchID)
	return nil
}

func newTestCoordinator() (*Coordinator, *fakeTransport) {
	tr := &fakeTransport{}
	c := NewCoordinator(tr, Config{
		Screen:               gamemath.Vec2{X: 1280, Y: 720},
		Predict:              true,
		Smooth:               true,
		FramesBetweenPackets: 3,
		Now:                  func() float64 { return 100 },
	})
	return c, tr
}

func encodePaddle(t *testing.T, pkt protocol.PaddlePacket) []byte {
	t.Helper()
	data, err := pkt.MarshalBinary()
	if err != nil {
		t.Fatalf("encode paddle packet: %v", err)
	}
	return data
}

func TestOnMatched_ElectsLexicographicMaxHost(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")

	if got := c.Host(); got != "B" {
		t.Fatalf("expected host B, got %q", got)
	}
	if c.State() != StateInMatch {
		t.Fatalf("expected InMatch state, got %d", c.State())
	}

	local := c.Entity("A")
	remote := c.Entity("B")
	if local == nil || local.Role != RoleLocal {
		t.Fatalf("expected local entity for A, got %+v", local)
	}
	if remote == nil || remote.Role != RoleRemote {
		t.Fatalf("expected remote entity for B, got %+v", remote)
	}
}

func TestOnMatched_SpawnIsIdempotent(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")
	before := c.EntityCount()
	smoother := c.Entity("B").Motion

	c.OnPresenceChange([]string{"B"}, nil)

	if c.EntityCount() != before {
		t.Fatalf("respawning an existing session changed entity count: %d -> %d", before, c.EntityCount())
	}
	if c.Entity("B").Motion != smoother {
		t.Fatalf("respawn replaced the entity's state")
	}
}

func TestOnMatched_EmptyParticipantsPanics(t *testing.T) {
	c, _ := newTestCoordinator()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on empty participant set")
		}
	}()
	c.OnMatched("m1", nil, "A")
}

func TestOnPresenceChange_HostLeaveReelectsLexicographicMin(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B", "C"}, "A")
	if c.Host() != "C" {
		t.Fatalf("expected initial host C, got %q", c.Host())
	}

	c.OnPresenceChange(nil, []string{"C"})

	// Initial election takes the maximum id, re-election after a host
	// leave takes the minimum of the remainder. Both rules are pinned.
	if got := c.Host(); got != "A" {
		t.Fatalf("expected re-elected host A, got %q", got)
	}
	if c.Entity("C") != nil {
		t.Fatalf("expected C's entity destroyed")
	}
}

func TestOnPresenceChange_NonHostLeaveKeepsHost(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B", "C"}, "A")

	c.OnPresenceChange(nil, []string{"B"})

	if got := c.Host(); got != "C" {
		t.Fatalf("expected host unchanged, got %q", got)
	}
	if c.EntityCount() != 2 {
		t.Fatalf("expected 2 entities after leave, got %d", c.EntityCount())
	}
}

func TestOnPresenceChange_JoinSpawnsRemote(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")
	c.DrainSpawned()

	c.OnPresenceChange([]string{"D"}, nil)

	e := c.Entity("D")
	if e == nil || e.Role != RoleRemote {
		t.Fatalf("expected remote entity for D, got %+v", e)
	}
	spawns := c.DrainSpawned()
	if len(spawns) != 1 || spawns[0].SessionID != "D" {
		t.Fatalf("expected one spawn notification for D, got %+v", spawns)
	}
}

func TestOnMatchState_UnknownSenderDroppedSilently(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")

	payload := encodePaddle(t, protocol.PaddlePacket{PosX: 9})
	c.OnMatchState("Z", protocol.OpPaddleState, payload)

	if c.EntityCount() != 2 {
		t.Fatalf("unknown sender changed entity map")
	}
	if events := c.DrainRemoteStates(); len(events) != 0 {
		t.Fatalf("unknown sender produced state events: %+v", events)
	}
}

func TestOnMatchState_LocalEntityDropped(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")

	payload := encodePaddle(t, protocol.PaddlePacket{PosX: 9})
	c.OnMatchState("A", protocol.OpPaddleState, payload)

	if got := c.Entity("A").Motion.Buffer().Simulation.Position.X; got != 0 {
		t.Fatalf("packet addressed to the local entity must be dropped, position moved to %f", got)
	}
}

func TestOnMatchState_RoutesPaddlePacket(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")

	pkt := protocol.PaddlePacket{SendTime: 99.5, PosX: 320, PosY: 240, VelX: 5, VelY: -5, InputY: 1}
	c.OnMatchState("B", protocol.OpPaddleState, encodePaddle(t, pkt))

	sim := c.Entity("B").Motion.Buffer().Simulation
	if sim.Velocity.X != 5 || sim.Velocity.Y != -5 {
		t.Fatalf("expected packet velocity applied, got %+v", sim.Velocity)
	}
	if sim.Input.Y != 1 {
		t.Fatalf("expected packet input applied, got %+v", sim.Input)
	}

	events := c.DrainRemoteStates()
	if len(events) != 1 || events[0].SessionID != "B" {
		t.Fatalf("expected one remote state event for B, got %+v", events)
	}
}

func TestOnMatchState_ShortPayloadDropped(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")

	c.OnMatchState("B", protocol.OpPaddleState, []byte{1, 2, 3})

	sim := c.Entity("B").Motion.Buffer().Simulation
	if sim.Position.X != 0 || sim.Position.Y != 0 {
		t.Fatalf("short payload mutated state: %+v", sim)
	}
}

func TestOnMatchState_StubOpcodesDoNotTouchMotion(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")

	for _, op := range []int64{protocol.OpBallState, protocol.OpScored, protocol.OpRespawned, protocol.OpNewRound} {
		c.OnMatchState("B", op, []byte{1, 2, 3, 4})
	}

	sim := c.Entity("B").Motion.Buffer().Simulation
	if sim.Position.X != 0 {
		t.Fatalf("stub opcode mutated motion state: %+v", sim)
	}
}

func TestUpdate_DrivesLocalAndRemote(t *testing.T) {
	c, _ := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")

	c.Entity("A").Motion.Buffer().Simulation.Velocity = gamemath.Vec2{X: 60}
	c.SetLocalInput(gamemath.Vec2{Y: -1})
	c.Update(1.0)

	local := c.Entity("A").Motion.Buffer()
	if local.Simulation.Position.X != 60 {
		t.Errorf("expected local integration, got %+v", local.Simulation.Position)
	}
	if local.Simulation.Input.Y != -1 {
		t.Errorf("expected stored local input, got %+v", local.Simulation.Input)
	}
	if local.Display != local.Simulation {
		t.Errorf("local display must mirror simulation")
	}
}

func TestSendLocalState_EncodesSimulation(t *testing.T) {
	c, tr := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B"}, "A")
	c.Entity("A").Motion.Buffer().Simulation.Position = gamemath.Vec2{X: 640, Y: 360}

	if err := c.SendLocalState(); err != nil {
		t.Fatalf("send local state: %v", err)
	}

	if len(tr.sent) != 1 {
		t.Fatalf("expected 1 outbound packet, got %d", len(tr.sent))
	}
	sent := tr.sent[0]
	if sent.matchID != "m1" || sent.opcode != protocol.OpPaddleState {
		t.Fatalf("unexpected envelope: %+v", sent)
	}

	var pkt protocol.PaddlePacket
	if err := pkt.UnmarshalBinary(sent.payload); err != nil {
		t.Fatalf("decode outbound payload: %v", err)
	}
	if pkt.PosX != 640 || pkt.PosY != 360 {
		t.Fatalf("expected encoded simulation position, got %+v", pkt)
	}
	if pkt.SendTime != 100 {
		t.Fatalf("expected send time from injected clock, got %f", pkt.SendTime)
	}
}

func TestQuitMatch_TearsEverythingDown(t *testing.T) {
	c, tr := newTestCoordinator()
	c.OnMatched("m1", []string{"A", "B", "C"}, "A")
	c.DrainRemoved()

	c.QuitMatch()

	if c.State() != StateDisconnected {
		t.Fatalf("expected Disconnected after quit, got %d", c.State())
	}
	if c.EntityCount() != 0 {
		t.Fatalf("expected no entities after quit, got %d", c.EntityCount())
	}
	if len(tr.leaves) != 1 || tr.leaves[0] != "m1" {
		t.Fatalf("expected transport leave for m1, got %+v", tr.leaves)
	}
	if removed := c.DrainRemoved(); len(removed) != 3 {
		t.Fatalf("expected 3 removal notifications, got %d", len(removed))
	}

	// A stale packet after teardown is silently ignored.
	c.OnMatchState("B", protocol.OpPaddleState, make([]byte, protocol.PaddlePacketSize))
}
