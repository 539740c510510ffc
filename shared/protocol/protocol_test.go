package protocol

import (
	"errors"
	"math"
	"testing"
)

func TestPaddlePacket_RoundTripExact(t *testing.T) {
	original := PaddlePacket{
		SendTime: 1234.5678,
		PosX:     -640.25,
		PosY:     0,
		VelX:     math.MaxFloat32,
		VelY:     -math.SmallestNonzeroFloat32,
		InputX:   -1,
		InputY:   0.0001,
	}

	data, err := original.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}
	if len(data) != PaddlePacketSize {
		t.Fatalf("expected %d encoded bytes, got %d", PaddlePacketSize, len(data))
	}

	var decoded PaddlePacket
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip mismatch: sent %+v, got %+v", original, decoded)
	}
}

func TestPaddlePacket_ShortBufferIsFormatError(t *testing.T) {
	var pkt PaddlePacket
	err := pkt.UnmarshalBinary(make([]byte, PaddlePacketSize-1))
	if err == nil {
		t.Fatalf("expected error for short buffer")
	}

	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *FormatError, got %T", err)
	}
	if ferr.Need != PaddlePacketSize || ferr.Got != PaddlePacketSize-1 {
		t.Fatalf("unexpected error detail: %+v", ferr)
	}
}

func TestPaddlePacket_EmptyBufferIsFormatError(t *testing.T) {
	var pkt PaddlePacket
	if err := pkt.UnmarshalBinary(nil); err == nil {
		t.Fatalf("expected error for empty buffer")
	}
}

func TestPaddlePacket_ValuesAreNotValidated(t *testing.T) {
	original := PaddlePacket{
		SendTime: float32(math.NaN()),
		PosX:     float32(math.Inf(1)),
		PosY:     float32(math.Inf(-1)),
	}

	data, err := original.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal returned error: %v", err)
	}

	var decoded PaddlePacket
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	if !math.IsNaN(float64(decoded.SendTime)) {
		t.Errorf("expected NaN send time to pass through, got %v", decoded.SendTime)
	}
	if !math.IsInf(float64(decoded.PosX), 1) || !math.IsInf(float64(decoded.PosY), -1) {
		t.Errorf("expected infinities to pass through, got %v %v", decoded.PosX, decoded.PosY)
	}
}

func TestPaddlePacket_TrailingBytesIgnored(t *testing.T) {
	original := PaddlePacket{SendTime: 1, PosX: 2, PosY: 3, VelX: 4, VelY: 5, InputX: 6, InputY: 7}
	data, _ := original.MarshalBinary()
	data = append(data, 0xde, 0xad)

	var decoded PaddlePacket
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal returned error: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip mismatch with trailing bytes: %+v", decoded)
	}
}

func TestOpcodeValues(t *testing.T) {
	// Wire-compatible peers depend on these exact values.
	ops := map[int64]int64{
		OpPaddleState: 1,
		OpBallState:   2,
		OpScored:      3,
		OpRespawned:   4,
		OpNewRound:    5,
	}
	for got, want := range ops {
		if got != want {
			t.Errorf("opcode value changed: got %d, want %d", got, want)
		}
	}
}
