// Package protocol defines the binary wire format for in-match state
// payloads. Payloads ride inside the relay's MatchData envelope tagged with
// an opcode; each opcode has a fixed schema with fixed-width fields, no
// length prefix and no version tag, so encode and decode must agree on the
// exact byte layout.
package protocol

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"math"
)

// Opcodes for in-match state payloads. Only OpPaddleState is interpreted by
// the netcode core; the rest are routed to game logic uninterpreted.
const (
	OpPaddleState int64 = 1
	OpBallState   int64 = 2
	OpScored      int64 = 3
	OpRespawned   int64 = 4
	OpNewRound    int64 = 5
)

// FormatError reports a payload too short for its opcode's schema.
type FormatError struct {
	Op   int64
	Need int
	Got  int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("protocol: opcode %d payload needs %d bytes, got %d", e.Op, e.Need, e.Got)
}

// PaddlePacketSize is the encoded size of a PaddlePacket: seven 32-bit
// floats, nothing else.
const PaddlePacketSize = 7 * 4

// PaddlePacket carries one paddle state sample. SendTime is the sender's
// local clock in seconds; receivers never compare it against their own
// clock directly, only against a rolling baseline of recent offsets.
type PaddlePacket struct {
	SendTime float32
	PosX     float32
	PosY     float32
	VelX     float32
	VelY     float32
	InputX   float32
	InputY   float32
}

var (
	_ encoding.BinaryMarshaler   = (*PaddlePacket)(nil)
	_ encoding.BinaryUnmarshaler = (*PaddlePacket)(nil)
)

// MarshalBinary encodes the seven fields in declared order as little-endian
// IEEE-754 floats. Values are written verbatim; NaN and Inf survive.
func (p *PaddlePacket) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, PaddlePacketSize)
	for _, f := range [7]float32{p.SendTime, p.PosX, p.PosY, p.VelX, p.VelY, p.InputX, p.InputY} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf, nil
}

// UnmarshalBinary decodes exactly PaddlePacketSize bytes written by
// MarshalBinary. Extra trailing bytes are ignored; a short buffer is a
// FormatError. Field values are not validated.
func (p *PaddlePacket) UnmarshalBinary(data []byte) error {
	if len(data) < PaddlePacketSize {
		return &FormatError{Op: OpPaddleState, Need: PaddlePacketSize, Got: len(data)}
	}
	fields := [7]*float32{&p.SendTime, &p.PosX, &p.PosY, &p.VelX, &p.VelY, &p.InputX, &p.InputY}
	for i, f := range fields {
		*f = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return nil
}
