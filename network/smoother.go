package network

import (
	"github.com/openpaddle/netpong/shared/gamemath"
	"github.com/openpaddle/netpong/shared/netconfig"
)

// PredictionSmoother converts sparse, delayed remote state packets into a
// smooth, time-correct on-screen position for one entity.
//
// Three techniques stack:
//
//   - Clock-drift correction. Each packet's time offset (receiver clock
//     minus sender clock) is fed into a rolling average; the offset's
//     deviation from that average adjusts the caller-supplied latency
//     estimate for this specific packet. Absolute offsets are meaningless
//     without synchronized clocks, deviations from the recent norm are not.
//   - Dead reckoning. The corrected latency is paid off by integrating the
//     received state forward in fixed ticks, assuming the remote player
//     kept applying the same input.
//   - Smoothing. The correction discontinuity is masked by blending the
//     display state from the pre-correction snapshot toward the simulation,
//     with the blend paced to finish when the next packet is due.
//
// A locally controlled entity uses UpdateLocal only and never smooths.
type PredictionSmoother struct {
	buffer     *EntityStateBuffer
	clockDelta *RollingAverage

	// smoothing factor; 0 means idle, (0,1] means a blend is in flight
	factor float64

	screen gamemath.Vec2
}

// NewPredictionSmoother creates a smoother whose positions are clamped into
// [0, screen] per axis.
func NewPredictionSmoother(screen gamemath.Vec2) *PredictionSmoother {
	return &PredictionSmoother{
		buffer:     NewEntityStateBuffer(),
		clockDelta: NewRollingAverage(netconfig.ClockSampleWindow),
		screen:     screen,
	}
}

// Buffer exposes the triple-buffered motion state.
func (s *PredictionSmoother) Buffer() *EntityStateBuffer {
	return s.buffer
}

// Display returns the state rendering should draw this frame.
func (s *PredictionSmoother) Display() MotionState {
	return s.buffer.Display
}

// SmoothingFactor reports the in-flight blend, in [0, 1].
func (s *PredictionSmoother) SmoothingFactor() float64 {
	return s.factor
}

// step advances a motion state by one explicit-Euler integration over dt
// and clamps the position into screen bounds. Clamping never bounces;
// bounce is game logic.
func (s *PredictionSmoother) step(m *MotionState, dt float64) {
	m.Position = gamemath.ClampVec(m.Position.Add(m.Velocity.Scale(dt)), s.screen)
}

// UpdateLocal advances a locally controlled entity by dt with the given
// input. The display always mirrors the simulation exactly; corrections
// and smoothing only ever apply to remote entities.
func (s *PredictionSmoother) UpdateLocal(input gamemath.Vec2, dt float64) {
	s.buffer.Simulation.Input = input
	s.step(&s.buffer.Simulation, dt)
	s.buffer.Display = s.buffer.Simulation
}

// OnRemotePacket applies an authoritative state sample from the remote
// peer. sendTime is the sender's clock at emission, localTime the
// receiver's clock at arrival, both in seconds; estimatedLatency is the
// caller's average one-way latency estimate.
//
// When predict is set, the packet's clock offset updates the rolling
// baseline and the offset's deviation from that baseline corrects
// estimatedLatency; the corrected latency is then consumed by fixed-tick
// dead reckoning so the simulation lands where the remote entity should be
// *now* rather than where it was when the packet left.
func (s *PredictionSmoother) OnRemotePacket(
	sendTime float64,
	position, velocity, input gamemath.Vec2,
	localTime, estimatedLatency float64,
	predict, smooth bool,
) {
	if smooth {
		s.buffer.Previous = s.buffer.Display
		s.factor = 1.0
	} else {
		s.factor = 0
	}

	// The packet is authoritative for the instant it was sent.
	s.buffer.Simulation = MotionState{Position: position, Velocity: velocity, Input: input}

	if !predict {
		return
	}

	timeDelta := localTime - sendTime
	s.clockDelta.AddValue(timeDelta)
	deviation := timeDelta - s.clockDelta.AverageValue()
	latency := estimatedLatency + deviation

	for latency >= netconfig.SimTickSeconds {
		s.step(&s.buffer.Simulation, netconfig.SimTickSeconds)
		latency -= netconfig.SimTickSeconds
	}
}

// UpdateRemote advances a remote entity by one frame. framesBetweenPackets
// is the observed packet cadence in frames; the smoothing factor decays by
// its reciprocal so a blend finishes exactly when the next packet is
// expected. With predict set the simulation keeps extrapolating between
// packets, and while a blend is in flight the previous snapshot advances
// too so both interpolation endpoints move coherently.
func (s *PredictionSmoother) UpdateRemote(framesBetweenPackets float64, predict bool) {
	decay := 1.0 / framesBetweenPackets
	s.factor = max(0, s.factor-decay)

	if predict {
		s.step(&s.buffer.Simulation, netconfig.SimTickSeconds)
		if s.factor > 0 {
			s.step(&s.buffer.Previous, netconfig.SimTickSeconds)
		}
	}

	if s.factor > 0 {
		s.buffer.Display.Position = gamemath.LerpVec(s.buffer.Previous.Position, s.buffer.Simulation.Position, s.factor)
		s.buffer.Display.Velocity = gamemath.LerpVec(s.buffer.Previous.Velocity, s.buffer.Simulation.Velocity, s.factor)
	} else {
		s.buffer.Display = s.buffer.Simulation
	}
}
