package binio

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer writes little-endian values with a sticky error.
type Writer struct {
	w       io.Writer
	n       int64
	err     error
	scratch [8]byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first write error.
func (w *Writer) Err() error {
	return w.err
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	return w.n
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	if err != nil {
		w.err = err
	}
	return n, err
}

// U8 writes one byte.
func (w *Writer) U8(v uint8) {
	w.scratch[0] = v
	w.Write(w.scratch[:1])
}

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) {
	binary.LittleEndian.PutUint16(w.scratch[:2], v)
	w.Write(w.scratch[:2])
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	w.Write(w.scratch[:4])
}

// I32 writes a little-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// F32 writes a little-endian IEEE-754 float32.
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// Vec3 writes three consecutive float32 values.
func (w *Writer) Vec3(v [3]float32) {
	w.F32(v[0])
	w.F32(v[1])
	w.F32(v[2])
}

// Zero writes n zero bytes. Reserved fields are always written as zero.
func (w *Writer) Zero(n int) {
	for i := 0; i < n; i++ {
		w.U8(0)
	}
}
