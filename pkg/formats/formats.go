// Package formats provides decoders and encoders for Test Drive model formats.
//
// Supported layouts:
//   - TD5: static meshes with per-corner vertex records (read and write)
//   - TD6: indexed triangle meshes, standalone or track variant
//   - TDO3: matrix-transformed triangle lists and the track container
//   - Strips: the adjacency-encoded collision mesh
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/pkg/mesh"
)

// Format errors.
var (
	ErrBadMagic         = errors.New("bad header magic")
	ErrImplausibleCount = errors.New("implausible element count")
	ErrUnknownFormat    = errors.New("unknown model format")
	ErrMissingDirectory = errors.New("companion asset missing")
	ErrNothingToExport  = errors.New("nothing to export")
	ErrNoModel          = errors.New("model slot is empty")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrTooManyTriangles = errors.New("too many triangles for submesh record")
	ErrBadStripRecord   = errors.New("malformed strip record")
)

// maxElements bounds every count read from a header before allocation.
const maxElements = 1 << 22

// Format identifies an on-disk model layout.
type Format int

const (
	FormatUnknown   Format = iota
	FormatTD5              // Test Drive 5 static mesh
	FormatTD6              // Test Drive 6 standalone mesh
	FormatTD6Track         // Test Drive 6 track mesh (vertex colors, no normals)
	FormatTDO3             // Test Drive Overdrive single model (.dmp)
	FormatTDO3Track        // Test Drive Overdrive track container (.mp)
	FormatStrips           // Collision strip mesh
)

var formatNames = map[Format]string{
	FormatTD5:       "td5",
	FormatTD6:       "td6",
	FormatTD6Track:  "td6track",
	FormatTDO3:      "tdo3",
	FormatTDO3Track: "tdo3track",
	FormatStrips:    "strips",
}

// String returns the short format tag.
func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(f))
}

// ParseFormat converts a format tag back into a Format.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Sniff inspects the first bytes of a model record and returns the format
// their magic identifies. Layouts without a magic report FormatUnknown.
func Sniff(prefix []byte) Format {
	if len(prefix) < 2 {
		return FormatUnknown
	}
	switch binary.LittleEndian.Uint16(prefix) {
	case td5Magic:
		return FormatTD5
	case td6Magic:
		return FormatTD6
	}
	return FormatUnknown
}

// Options configures a decode call.
type Options struct {
	Name          string      // Mesh name (track models get an index suffix)
	Logger        *zap.Logger // Receives per-face diagnostics; nil discards them
	WeldTolerance float32     // Strip weld distance; zero selects DefaultWeldTolerance, negative welds exactly
	TextureNames  []string    // Optional texture names indexed by texture id
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) textureName(id uint32) string {
	if int(id) < len(o.TextureNames) {
		return o.TextureNames[id]
	}
	return ""
}

// Decode decodes the model record at the current position of rs.
func Decode(rs io.ReadSeeker, f Format, opts Options) ([]*mesh.Mesh, error) {
	var (
		m   *mesh.Mesh
		err error
	)
	switch f {
	case FormatTD5:
		m, err = DecodeTD5(rs, opts)
	case FormatTD6:
		m, err = DecodeTD6(rs, false, opts)
	case FormatTD6Track:
		m, err = DecodeTD6(rs, true, opts)
	case FormatTDO3:
		m, err = DecodeTDO3(rs, opts)
	case FormatTDO3Track:
		return DecodeTDO3Track(rs, opts)
	case FormatStrips:
		m, err = DecodeStrips(rs, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, err
	}
	return []*mesh.Mesh{m}, nil
}

// DecodeFile opens path and decodes it. FormatUnknown sniffs the magic.
// Track containers also pick up a sibling TEXTURES.REF when present. Named
// textures found next to path are recorded as material texture paths.
func DecodeFile(path string, f Format, opts Options) ([]*mesh.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	if f == FormatUnknown {
		if f = Sniff(data); f == FormatUnknown {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
		}
	}
	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var refErr error
	if f == FormatTDO3Track && opts.TextureNames == nil {
		refs, err := LoadTextureRef(filepath.Dir(path))
		if err != nil {
			refErr = err
			opts.logger().Warn("textures will not be assigned", zap.Error(err))
		}
		opts.TextureNames = TextureNames(refs)
	}

	meshes, err := Decode(bytes.NewReader(data), f, opts)
	if err != nil {
		return nil, err
	}
	if refErr != nil {
		for _, m := range meshes {
			m.Warn(refErr)
		}
	}
	if missing := ResolveTextures(filepath.Dir(path), meshes); missing > 0 {
		opts.logger().Debug("texture files not found", zap.String("dir", filepath.Dir(path)), zap.Int("materials", missing))
	}
	return meshes, nil
}

func checkCount(what string, n uint32) error {
	if n > maxElements {
		return fmt.Errorf("%s %d: %w", what, n, ErrImplausibleCount)
	}
	return nil
}

// warn records a recoverable condition on the mesh and logs it.
func warn(m *mesh.Mesh, log *zap.Logger, msg string, err error, fields ...zap.Field) {
	m.Warn(err)
	log.Warn(msg, append(fields, zap.String("mesh", m.Name), zap.Error(err))...)
}
