// Package texpack unpacks the palettized texture pack (textures.dat) and
// writes its textures as ordinary image files.
package texpack

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/pkg/binio"
)

// TextureSize is the edge length of every packed texture.
const TextureSize = 64

// Texture flags.
const (
	FlagAlwaysSet = 0x001
	FlagBlackKey  = 0x100 // Pure black palette entries are transparent
	FlagAdditive  = 0x200 // Drawn with additive blending
)

const (
	headerMarker   = 6
	maxPaletteSize = 256
	maxTextures    = 1 << 16
)

// Texture pack errors.
var (
	ErrBadTextureHeader = errors.New("unexpected texture header")
	ErrBadPalette       = errors.New("bad texture palette")
	ErrTooManyTextures  = errors.New("implausible texture count")
)

// Texture is one decoded texture.
type Texture struct {
	Index int
	Flags uint16
	Image *image.NRGBA

	// Warnings holds recoverable problems found while decoding.
	Warnings []error
}

// BlackKey reports whether black is the transparent color.
func (t *Texture) BlackKey() bool {
	return t.Flags&FlagBlackKey != 0
}

// Additive reports whether the texture is blended additively.
func (t *Texture) Additive() bool {
	return t.Flags&FlagAdditive != 0
}

// Decode reads every texture of the pack at the current position of rs.
// Texture offsets are measured from that position. log may be nil.
func Decode(rs io.ReadSeeker, log *zap.Logger) ([]Texture, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r, err := binio.NewReader(rs)
	if err != nil {
		return nil, err
	}

	count := r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading texture count: %w", err)
	}
	if count > maxTextures {
		return nil, fmt.Errorf("%d textures: %w", count, ErrTooManyTextures)
	}
	offsets := r.U32s(int(count))
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading texture offsets: %w", err)
	}

	textures := make([]Texture, count)
	for i, off := range offsets {
		if err := r.SeekOrigin(int64(off)); err != nil {
			return nil, fmt.Errorf("texture %d: %w", i, err)
		}
		if err := decodeTexture(r, &textures[i], log); err != nil {
			return nil, fmt.Errorf("texture %d: %w", i, err)
		}
		textures[i].Index = i
	}
	return textures, nil
}

func decodeTexture(r *binio.Reader, tex *Texture, log *zap.Logger) error {
	b1, b2 := r.U8(), r.U8()
	tex.Flags = uint16(r.I16())
	paletteSize := r.I32()
	if err := r.Err(); err != nil {
		return err
	}
	if b1 != headerMarker || b2 != headerMarker {
		err := fmt.Errorf("marker bytes %d %d at 0x%X: %w", b1, b2, r.Position()-8, ErrBadTextureHeader)
		tex.Warnings = append(tex.Warnings, err)
		log.Warn("unknown texture header", zap.Error(err))
	}
	if paletteSize < 0 || paletteSize > maxPaletteSize {
		return fmt.Errorf("%d entries: %w", paletteSize, ErrBadPalette)
	}

	palette := make([]color.NRGBA, paletteSize)
	for i := range palette {
		b, g, rd := r.U8(), r.U8(), r.U8()
		c := color.NRGBA{R: rd, G: g, B: b, A: 255}
		if tex.BlackKey() && rd == 0 && g == 0 && b == 0 {
			c.A = 0
		}
		palette[i] = c
	}

	indices, err := r.ReadFixed(TextureSize * TextureSize)
	if err != nil {
		return err
	}

	img := image.NewNRGBA(image.Rect(0, 0, TextureSize, TextureSize))
	bad := 0
	for i, idx := range indices {
		c := color.NRGBA{A: 255}
		if int(idx) < len(palette) {
			c = palette[idx]
		} else {
			bad++
		}
		img.SetNRGBA(i%TextureSize, i/TextureSize, c)
	}
	if bad > 0 {
		err := fmt.Errorf("%d pixels index past %d palette entries: %w", bad, len(palette), ErrBadPalette)
		tex.Warnings = append(tex.Warnings, err)
		log.Warn("texture palette too short", zap.Error(err))
	}
	tex.Image = img
	return nil
}
