// Package binio provides little-endian cursors over seekable byte streams.
//
// Every Reader remembers the stream position it was created at (its origin).
// Model records are frequently embedded inside larger container files, so all
// section offsets stored in a record are resolved against that origin rather
// than against the start of the file.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrTruncated is returned when a field needs more bytes than the stream holds.
var ErrTruncated = errors.New("truncated stream")

// Reader reads little-endian values from an io.ReadSeeker.
//
// Typed getters (U8, U16, F32, ...) use a sticky error: after the first failure
// they return zero values and Err reports the failure. ReadFixed and Seek
// return their errors directly as well.
type Reader struct {
	rs      io.ReadSeeker
	origin  int64
	pos     int64
	err     error
	scratch [8]byte
}

// NewReader creates a Reader whose origin is the current position of rs.
func NewReader(rs io.ReadSeeker) (*Reader, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating origin: %w", err)
	}
	return &Reader{rs: rs, origin: pos, pos: pos}, nil
}

// Origin returns the absolute stream position the reader was created at.
func (r *Reader) Origin() int64 {
	return r.origin
}

// Position returns the absolute stream position.
func (r *Reader) Position() int64 {
	return r.pos
}

// Relative returns the position measured from the origin.
func (r *Reader) Relative() int64 {
	return r.pos - r.origin
}

// Err returns the first error encountered by a typed getter.
func (r *Reader) Err() error {
	return r.err
}

// ReadFixed reads exactly n bytes.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if n < 0 {
		r.err = fmt.Errorf("negative read length %d: %w", n, ErrTruncated)
		return nil, r.err
	}
	buf := make([]byte, n)
	if err := r.fill(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Reader) fill(buf []byte) error {
	got, err := io.ReadFull(r.rs, buf)
	r.pos += int64(got)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("need %d bytes at offset %d, have %d: %w", len(buf), r.pos-int64(got), got, ErrTruncated)
		}
		r.err = err
		return err
	}
	return nil
}

// Skip advances the cursor by n bytes without reading them.
func (r *Reader) Skip(n int64) {
	r.Seek(n, io.SeekCurrent)
}

// Seek moves the cursor. io.SeekStart is interpreted relative to the origin,
// io.SeekCurrent relative to the current position. io.SeekEnd is passed through.
func (r *Reader) Seek(offset int64, whence int) error {
	if r.err != nil {
		return r.err
	}
	var (
		pos int64
		err error
	)
	switch whence {
	case io.SeekStart:
		pos, err = r.rs.Seek(r.origin+offset, io.SeekStart)
	case io.SeekCurrent:
		pos, err = r.rs.Seek(r.pos+offset, io.SeekStart)
	default:
		pos, err = r.rs.Seek(offset, whence)
	}
	if err != nil {
		r.err = fmt.Errorf("seeking to %d: %w", offset, err)
		return r.err
	}
	r.pos = pos
	return nil
}

// SeekOrigin moves the cursor to origin+offset.
func (r *Reader) SeekOrigin(offset int64) error {
	return r.Seek(offset, io.SeekStart)
}

func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf := r.scratch[:n]
	if err := r.fill(buf); err != nil {
		return nil
	}
	return buf
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// I16 reads a little-endian int16.
func (r *Reader) I16() int16 {
	return int16(r.U16())
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// I32 reads a little-endian int32.
func (r *Reader) I32() int32 {
	return int32(r.U32())
}

// F32 reads a little-endian IEEE-754 float32.
func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// Vec3 reads three consecutive float32 values.
func (r *Reader) Vec3() [3]float32 {
	return [3]float32{r.F32(), r.F32(), r.F32()}
}

// U16s reads count consecutive uint16 values.
func (r *Reader) U16s(count int) []uint16 {
	buf, err := r.ReadFixed(count * 2)
	if err != nil {
		return nil
	}
	out := make([]uint16, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}
	return out
}

// U32s reads count consecutive uint32 values.
func (r *Reader) U32s(count int) []uint32 {
	buf, err := r.ReadFixed(count * 4)
	if err != nil {
		return nil
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out
}

// I32s reads count consecutive int32 values.
func (r *Reader) I32s(count int) []int32 {
	raw := r.U32s(count)
	if raw == nil {
		return nil
	}
	out := make([]int32, count)
	for i, v := range raw {
		out[i] = int32(v)
	}
	return out
}

// F32s reads count consecutive float32 values.
func (r *Reader) F32s(count int) []float32 {
	raw := r.U32s(count)
	if raw == nil {
		return nil
	}
	out := make([]float32, count)
	for i, v := range raw {
		out[i] = math.Float32frombits(v)
	}
	return out
}
