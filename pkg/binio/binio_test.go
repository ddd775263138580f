package binio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestReader_LittleEndianValues(t *testing.T) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint8(7))
	binary.Write(buf, binary.LittleEndian, uint16(0x0103))
	binary.Write(buf, binary.LittleEndian, int16(-2))
	binary.Write(buf, binary.LittleEndian, uint32(0xDEADBEEF))
	binary.Write(buf, binary.LittleEndian, int32(-100))
	binary.Write(buf, binary.LittleEndian, float32(1.5))

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	if got := r.U8(); got != 7 {
		t.Errorf("U8 = %d, want 7", got)
	}
	if got := r.U16(); got != 259 {
		t.Errorf("U16 = %d, want 259", got)
	}
	if got := r.I16(); got != -2 {
		t.Errorf("I16 = %d, want -2", got)
	}
	if got := r.U32(); got != 0xDEADBEEF {
		t.Errorf("U32 = %x, want deadbeef", got)
	}
	if got := r.I32(); got != -100 {
		t.Errorf("I32 = %d, want -100", got)
	}
	if got := r.F32(); got != 1.5 {
		t.Errorf("F32 = %f, want 1.5", got)
	}
	if r.Err() != nil {
		t.Errorf("unexpected error: %v", r.Err())
	}
}

func TestReader_Truncated(t *testing.T) {
	r, _ := NewReader(bytes.NewReader([]byte{1, 2, 3}))

	if _, err := r.ReadFixed(4); !errors.Is(err, ErrTruncated) {
		t.Fatalf("ReadFixed(4) error = %v, want ErrTruncated", err)
	}

	// Sticky: later reads keep failing and return zero values.
	if got := r.U8(); got != 0 {
		t.Errorf("U8 after failure = %d, want 0", got)
	}
	if !errors.Is(r.Err(), ErrTruncated) {
		t.Errorf("Err() = %v, want ErrTruncated", r.Err())
	}
}

func TestReader_OriginRelativeSeek(t *testing.T) {
	data := []byte{0xAA, 0xAA, 0xAA, 0xAA, 10, 20, 30, 40}
	rs := bytes.NewReader(data)
	rs.Seek(4, io.SeekStart)

	r, err := NewReader(rs)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if r.Origin() != 4 {
		t.Fatalf("Origin = %d, want 4", r.Origin())
	}

	if err := r.SeekOrigin(2); err != nil {
		t.Fatalf("SeekOrigin failed: %v", err)
	}
	if got := r.U8(); got != 30 {
		t.Errorf("byte at origin+2 = %d, want 30", got)
	}
	if r.Relative() != 3 {
		t.Errorf("Relative = %d, want 3", r.Relative())
	}

	r.Skip(-3)
	if got := r.U8(); got != 10 {
		t.Errorf("byte after Skip(-3) = %d, want 10", got)
	}
	if r.Position() != 5 {
		t.Errorf("Position = %d, want 5", r.Position())
	}
}

func TestReader_Arrays(t *testing.T) {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, []uint16{1, 2, 3})
	binary.Write(buf, binary.LittleEndian, []int32{-1, 5})
	binary.Write(buf, binary.LittleEndian, []float32{0.25, -8})

	r, _ := NewReader(bytes.NewReader(buf.Bytes()))
	u16 := r.U16s(3)
	i32 := r.I32s(2)
	f32 := r.F32s(2)
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}

	if len(u16) != 3 || u16[2] != 3 {
		t.Errorf("U16s = %v", u16)
	}
	if len(i32) != 2 || i32[0] != -1 || i32[1] != 5 {
		t.Errorf("I32s = %v", i32)
	}
	if len(f32) != 2 || f32[0] != 0.25 || f32[1] != -8 {
		t.Errorf("F32s = %v", f32)
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	w := NewWriter(buf)
	w.U16(260)
	w.U8(1)
	w.Zero(1)
	w.I32(-42)
	w.Vec3([3]float32{1, -2, 0.5})
	if w.Err() != nil {
		t.Fatalf("write failed: %v", w.Err())
	}
	if w.Written() != 20 {
		t.Errorf("Written = %d, want 20", w.Written())
	}

	r, _ := NewReader(bytes.NewReader(buf.Bytes()))
	if r.U16() != 260 || r.U8() != 1 || r.U8() != 0 || r.I32() != -42 {
		t.Error("header values did not round trip")
	}
	if v := r.Vec3(); v != [3]float32{1, -2, 0.5} {
		t.Errorf("Vec3 = %v", v)
	}
}
