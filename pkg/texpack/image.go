package texpack

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

// ImageFormat selects the output image encoding.
type ImageFormat string

// Supported output formats.
const (
	PNG  ImageFormat = "png"
	WebP ImageFormat = "webp"
	TGA  ImageFormat = "tga"
	BMP  ImageFormat = "bmp"
)

// ErrUnknownImageFormat is returned for unsupported output formats.
var ErrUnknownImageFormat = errors.New("unknown image format")

// ParseImageFormat converts a name such as "webp" into an ImageFormat.
func ParseImageFormat(s string) (ImageFormat, error) {
	f := ImageFormat(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	switch f {
	case PNG, WebP, TGA, BMP:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownImageFormat, s)
}

// Ext returns the file extension including the dot.
func (f ImageFormat) Ext() string {
	return "." + string(f)
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f ImageFormat) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case WebP:
		return nativewebp.Encode(w, img, nil)
	case TGA:
		return tga.Encode(w, img)
	case BMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnknownImageFormat, string(f))
}

// FileName returns the output name for texture index i.
func FileName(i int, f ImageFormat) string {
	return fmt.Sprintf("texture_%d%s", i, f.Ext())
}

// Save writes every texture into dir and returns the written paths.
func Save(dir string, textures []Texture, f ImageFormat) ([]string, error) {
	if _, err := ParseImageFormat(string(f)); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	paths := make([]string, 0, len(textures))
	for _, tex := range textures {
		path := filepath.Join(dir, FileName(tex.Index, f))
		if err := saveImage(path, tex.Image, f); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func saveImage(path string, img image.Image, f ImageFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	if err := Encode(file, img, f); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
