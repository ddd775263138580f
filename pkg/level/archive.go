package level

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Faultbox/td5kit/pkg/formats"
	"github.com/Faultbox/td5kit/pkg/mesh"
)

// Archive is an opened models container.
type Archive struct {
	file    *os.File
	size    int64
	entries []Entry
	byName  map[string]int
}

// Open opens a models container for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	entries, err := ReadDirectory(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	archive := &Archive{
		file:    file,
		size:    info.Size(),
		entries: entries,
		byName:  make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		archive.byName[normalizeName(e.Name())] = i
	}
	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// Entries returns the directory in group-then-model order.
func (a *Archive) Entries() []Entry {
	return a.entries
}

// Offsets returns the absolute model offsets in directory order.
func (a *Archive) Offsets() []int64 {
	offsets := make([]int64, len(a.entries))
	for i, e := range a.entries {
		offsets[i] = e.Offset
	}
	return offsets
}

// ReaderAt exposes the container for concurrent decoding.
func (a *Archive) ReaderAt() io.ReaderAt {
	return a.file
}

// Decode decodes every listed model in directory order, using up to workers
// goroutines when workers > 1.
func (a *Archive) Decode(ctx context.Context, f formats.Format, workers int, opts formats.Options) ([]*mesh.Mesh, error) {
	section := io.NewSectionReader(a.ReaderAt(), 0, a.size)
	return decodeAll(ctx, section, a.Offsets(), f, workers, opts)
}

// List returns the entry names in directory order.
func (a *Archive) List() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name()
	}
	return names
}

// Contains checks if an entry exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.byName[normalizeName(name)]
	return ok
}

// Read returns the raw bytes of the named entry.
func (a *Archive) Read(name string) ([]byte, error) {
	i, ok := a.byName[normalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrEntryNotFound)
	}
	return a.ReadEntry(a.entries[i])
}

// ReadEntry returns the raw bytes of e. Entries of unknown size extend to
// the end of the file.
func (a *Archive) ReadEntry(e Entry) ([]byte, error) {
	size := e.Size
	if size == 0 {
		size = a.size - e.Offset
	}
	if e.Offset < 0 || size < 0 || e.Offset+size > a.size {
		return nil, fmt.Errorf("entry %s spans [%d,%d) beyond file size %d: %w",
			e.Name(), e.Offset, e.Offset+size, a.size, ErrBadDirectory)
	}

	data := make([]byte, size)
	if _, err := a.file.ReadAt(data, e.Offset); err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
	}
	return data, nil
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSuffix(strings.ToLower(name), ".dat"))
}
