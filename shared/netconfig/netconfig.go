// Package netconfig defines lightweight constants shared between client and
// relay for network synchronization. It must have zero dependencies on any
// graphics library so the relay binary stays headless.
package netconfig

import "github.com/openpaddle/netpong/shared/gamemath"

const (
	// SimTickRate is the fixed simulation rate. Dead-reckoning catch-up
	// and extrapolation both advance in steps of 1/SimTickRate seconds.
	SimTickRate = 60

	// SimTickSeconds is the duration of one fixed simulation step.
	SimTickSeconds = 1.0 / float64(SimTickRate)

	// FramesBetweenPackets is how many simulation frames elapse between
	// consecutive outbound state packets. Smoothing decay is derived from
	// it so a correction blend finishes right when the next packet lands.
	FramesBetweenPackets = 3

	// ClockSampleWindow is the capacity of the per-entity rolling average
	// of packet time offsets used for clock-drift estimation.
	ClockSampleWindow = 10

	// MinPlayers is the default matchmaking pool size.
	MinPlayers = 2
)

// ScreenSize bounds paddle positions. Integration clamps each axis into
// [0, ScreenSize] independently; bouncing is game logic, not netcode.
var ScreenSize = gamemath.Vec2{X: 1280, Y: 720}
