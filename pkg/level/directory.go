// Package level locates and decodes the models stored in a level container.
//
// A container starts with a group table: a count, then (offset, size) pairs
// measured from the container start. Each group holds a model count followed
// by per-model offsets measured from the group start.
package level

import (
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/td5kit/pkg/binio"
)

// Container errors.
var (
	ErrNoModels      = errors.New("container holds no models")
	ErrBadDirectory  = errors.New("malformed container directory")
	ErrEntryNotFound = errors.New("model entry not found")
)

// maxDirectoryCount bounds group and model counts before allocation.
const maxDirectoryCount = 1 << 16

// Entry locates one model inside a container.
type Entry struct {
	Group  int
	Index  int
	Offset int64 // Absolute stream offset
	Size   int64 // Bytes up to the next model or the end of the group; 0 if unknown
}

// Name returns the conventional file name for an unpacked entry.
func (e Entry) Name() string {
	return fmt.Sprintf("%04X.dat", e.Offset)
}

// ReadDirectory reads the container directory at the current position of rs
// and returns its entries in group-then-model order.
//
// Some releases store one extra leading value (0 or 1) in every model list;
// it is recognized and dropped.
func ReadDirectory(rs io.ReadSeeker) ([]Entry, error) {
	r, err := binio.NewReader(rs)
	if err != nil {
		return nil, err
	}

	groupCount := r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading group count: %w", err)
	}
	if groupCount > maxDirectoryCount {
		return nil, fmt.Errorf("%d groups: %w", groupCount, ErrBadDirectory)
	}

	type group struct{ offset, size uint32 }
	groups := make([]group, groupCount)
	for i := range groups {
		groups[i].offset = r.U32()
		groups[i].size = r.U32()
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading group table: %w", err)
	}

	var entries []Entry
	for g, grp := range groups {
		r.SeekOrigin(int64(grp.offset))
		count := r.U32()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("reading group %d: %w", g, err)
		}
		if count > maxDirectoryCount {
			return nil, fmt.Errorf("group %d lists %d models: %w", g, count, ErrBadDirectory)
		}
		if count == 0 {
			continue
		}

		offsets := r.U32s(int(count))
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("reading group %d offsets: %w", g, err)
		}
		if offsets[0] == 0 || offsets[0] == 1 {
			offsets = append(offsets[1:], r.U32())
			if err := r.Err(); err != nil {
				return nil, fmt.Errorf("reading group %d offsets: %w", g, err)
			}
		}

		for i, off := range offsets {
			var size int64
			if i+1 < len(offsets) {
				size = int64(offsets[i+1]) - int64(off)
			} else {
				size = int64(grp.size) - int64(off)
			}
			entries = append(entries, Entry{
				Group:  g,
				Index:  i,
				Offset: r.Origin() + int64(grp.offset) + int64(off),
				Size:   max(size, 0),
			})
		}
	}
	return entries, nil
}

// ReadOffsets returns just the absolute model offsets of the directory at
// the current position of rs.
func ReadOffsets(rs io.ReadSeeker) ([]int64, error) {
	entries, err := ReadDirectory(rs)
	if err != nil {
		return nil, err
	}
	offsets := make([]int64, len(entries))
	for i, e := range entries {
		offsets[i] = e.Offset
	}
	return offsets, nil
}
