package network

import "github.com/openpaddle/netpong/shared/gamemath"

// MotionState is one sample of an entity's motion. Pure value type.
type MotionState struct {
	Position gamemath.Vec2
	Velocity gamemath.Vec2
	Input    gamemath.Vec2
}

// EntityStateBuffer triple-buffers an entity's motion state:
//
//   - Simulation is the authoritative working copy. Local physics
//     integrates it and remote corrections overwrite it.
//   - Previous is the snapshot captured when the current smoothing
//     interval started.
//   - Display is the blended value rendering reads.
//
// The three are kept as separate named values because each has a distinct
// update rule; collapsing them would entangle correction with presentation.
type EntityStateBuffer struct {
	Simulation MotionState
	Previous   MotionState
	Display    MotionState
}

// NewEntityStateBuffer returns a buffer with all three states zeroed and
// therefore identical.
func NewEntityStateBuffer() *EntityStateBuffer {
	return &EntityStateBuffer{}
}
