package bitreader_test

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/robertof/go-victron-exporter/bitreader"
)

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex.DecodeString(%q): %v", s, err)
	}

	return b
}

func TestReader_Sequence(t *testing.T) {
	data := mustDecodeHex(t, "1a2b3c4d5e6f7890")
	r := bitreader.New(data)

	for i, want := range []bool{false, true, false, true} {
		got, err := r.ReadBool()
		if err != nil {
			t.Fatalf("ReadBool() #%d got error: %v", i, err)
		}
		if got != want {
			t.Fatalf("ReadBool() #%d: got %v, wanted %v", i, got, want)
		}
	}

	if got, err := r.ReadUnsigned(6); err != nil || got != 0x31 {
		t.Fatalf("ReadUnsigned(6): got (%#x, %v), wanted 0x31", got, err)
	}

	if got, err := r.ReadSigned(6); err != nil || got != 0x0A {
		t.Fatalf("ReadSigned(6): got (%#x, %v), wanted 0x0a", got, err)
	}

	if got, err := r.ReadSigned(4); err != nil || got != -0x04 {
		t.Fatalf("ReadSigned(4): got (%d, %v), wanted -4", got, err)
	}

	if got, err := r.ReadUnsigned(11); err != nil || got != 0x4D3 {
		t.Fatalf("ReadUnsigned(11): got (%#x, %v), wanted 0x4d3", got, err)
	}

	// one padding bit separates the last field from the byte boundary
	if got, err := r.ReadBool(); err != nil || got {
		t.Fatalf("ReadBool(): got (%v, %v), wanted false", got, err)
	}

	if got, err := r.ReadUnsigned(32); err != nil || got != 0x90786F5E {
		t.Fatalf("ReadUnsigned(32): got (%#x, %v), wanted 0x90786f5e", got, err)
	}

	if r.Remaining() != 0 {
		t.Fatalf("Remaining(): got %d, wanted 0", r.Remaining())
	}
}

func TestReader_OutOfData(t *testing.T) {
	r := bitreader.New([]byte{0xff})

	if _, err := r.ReadUnsigned(9); !errors.Is(err, bitreader.ErrOutOfData) {
		t.Fatalf("ReadUnsigned(9) on one byte: got %v, wanted ErrOutOfData", err)
	}

	empty := bitreader.New(nil)

	if _, err := empty.ReadBool(); !errors.Is(err, bitreader.ErrOutOfData) {
		t.Fatalf("ReadBool() on empty data: got %v, wanted ErrOutOfData", err)
	}

	if err := empty.Skip(1); !errors.Is(err, bitreader.ErrOutOfData) {
		t.Fatalf("Skip(1) on empty data: got %v, wanted ErrOutOfData", err)
	}
}

func TestReader_ExactEnd(t *testing.T) {
	r := bitreader.New([]byte{0xab, 0xcd})

	got, err := r.ReadUnsigned(16)
	if err != nil {
		t.Fatalf("ReadUnsigned(16) got error: %v", err)
	}

	if got != 0xcdab {
		t.Fatalf("ReadUnsigned(16): got %#x, wanted 0xcdab", got)
	}

	if _, err := r.ReadBool(); !errors.Is(err, bitreader.ErrOutOfData) {
		t.Fatalf("ReadBool() past the end: got %v, wanted ErrOutOfData", err)
	}
}

func TestReader_Signed(t *testing.T) {
	cases := []struct {
		data []byte
		bits uint
		want int64
	}{
		{[]byte{0xff, 0xff}, 16, -1},
		{[]byte{0x00, 0x80}, 16, -32768},
		{[]byte{0xff, 0x7f}, 16, 32767},
		{[]byte{0x01}, 1, -1},
		{[]byte{0x0a, 0x00}, 16, 10},
	}

	for _, c := range cases {
		r := bitreader.New(c.data)

		got, err := r.ReadSigned(c.bits)
		if err != nil {
			t.Fatalf("ReadSigned(%d) on %x got error: %v", c.bits, c.data, err)
		}

		if got != c.want {
			t.Fatalf("ReadSigned(%d) on %x: got %d, wanted %d", c.bits, c.data, got, c.want)
		}
	}
}

func TestReader_CloneIsIndependent(t *testing.T) {
	r := bitreader.New([]byte{0x34, 0x12, 0x22})

	if err := r.Skip(4); err != nil {
		t.Fatalf("Skip(4) got error: %v", err)
	}

	checkpoint := r.Clone()

	if err := r.Skip(16); err != nil {
		t.Fatalf("Skip(16) got error: %v", err)
	}

	tag, err := r.ReadUnsigned(2)
	if err != nil {
		t.Fatalf("ReadUnsigned(2) got error: %v", err)
	}

	if tag != 2 {
		t.Fatalf("ReadUnsigned(2): got %d, wanted 2", tag)
	}

	if checkpoint.Offset() != 4 {
		t.Fatalf("checkpoint.Offset(): got %d, wanted 4", checkpoint.Offset())
	}

	value, err := checkpoint.ReadUnsigned(16)
	if err != nil {
		t.Fatalf("checkpoint.ReadUnsigned(16) got error: %v", err)
	}

	if value != 0x2123 {
		t.Fatalf("checkpoint.ReadUnsigned(16): got %#x, wanted 0x2123", value)
	}

	if r.Offset() != 22 {
		t.Fatalf("Offset(): got %d, wanted 22", r.Offset())
	}
}
