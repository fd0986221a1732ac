package quetzal_test

import (
	"bytes"
	"testing"

	"github.com/kestrel-if/zengine/quetzal"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := []uint8{0x01, 0x02, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00}
	current := []uint8{0x01, 0xFF, 0x03, 0x04, 0x00, 0x00, 0x00, 0x07}

	state := quetzal.SaveState{
		Header: quetzal.Header{
			Release:  42,
			Serial:   [6]byte{'2', '6', '0', '7', '3', '1'},
			Checksum: 0xBEEF,
			PC:       0x1234,
		},
		DynamicMemory: current,
		Frames: []quetzal.Frame{
			{
				ReturnPC:       0x4000,
				HasStore:       true,
				ReturnVariable: 3,
				ArgCount:       2,
				Locals:         []uint16{10, 20, 30},
				EvalStack:      []uint16{1, 2},
			},
			{
				ReturnPC: 0x5000,
				HasStore: false,
				ArgCount: 0,
			},
		},
	}

	encoded, err := quetzal.Encode(state, original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if !bytes.Equal(encoded[0:4], []byte("FORM")) || !bytes.Equal(encoded[8:12], []byte("IFZS")) {
		t.Fatalf("encoded stream missing FORM/IFZS markers: %x", encoded[:12])
	}

	decoded, err := quetzal.Decode(encoded, original)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Header != state.Header {
		t.Errorf("Header = %+v, want %+v", decoded.Header, state.Header)
	}
	if !bytes.Equal(decoded.DynamicMemory, current) {
		t.Errorf("DynamicMemory = %v, want %v", decoded.DynamicMemory, current)
	}
	if len(decoded.Frames) != 2 {
		t.Fatalf("len(Frames) = %d, want 2", len(decoded.Frames))
	}
	if decoded.Frames[0].ReturnPC != 0x4000 || decoded.Frames[0].ReturnVariable != 3 ||
		decoded.Frames[0].ArgCount != 2 || !decoded.Frames[0].HasStore {
		t.Errorf("Frames[0] = %+v", decoded.Frames[0])
	}
	if len(decoded.Frames[0].Locals) != 3 || decoded.Frames[0].Locals[1] != 20 {
		t.Errorf("Frames[0].Locals = %v, want [10 20 30]", decoded.Frames[0].Locals)
	}
	if len(decoded.Frames[0].EvalStack) != 2 || decoded.Frames[0].EvalStack[1] != 2 {
		t.Errorf("Frames[0].EvalStack = %v, want [1 2]", decoded.Frames[0].EvalStack)
	}
	if decoded.Frames[1].HasStore {
		t.Errorf("Frames[1].HasStore = true, want false (a procedure call)")
	}
}

func TestDecodeRejectsNonIFZSStream(t *testing.T) {
	_, err := quetzal.Decode([]byte("not a save file at all"), nil)
	if err == nil {
		t.Errorf("Decode: expected an error for a non-FORM stream")
	}
}

func TestDecodeRejectsMissingMemoryChunk(t *testing.T) {
	state := quetzal.SaveState{Header: quetzal.Header{PC: 1}}
	encoded, err := quetzal.Encode(state, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Encode always writes a CMem chunk right after the fixed-size (13-byte,
	// odd so padded to 14) IFhd chunk; corrupt its id to simulate a file
	// that carries neither CMem nor UMem.
	mangled := append([]byte(nil), encoded...)
	copy(mangled[34:38], []byte("XMem"))

	if _, err := quetzal.Decode(mangled, nil); err == nil {
		t.Errorf("Decode: expected an error when no CMem/UMem chunk is present")
	}
}
