// Package encoding converts the fixed-width legacy strings found in Test Drive
// asset files.
package encoding

import (
	"bytes"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// LegacyToUTF8 converts Windows-1252 encoded bytes to a UTF-8 string.
// Returns the input unchanged if conversion fails.
func LegacyToUTF8(data []byte) string {
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// FixedStringToUTF8 decodes a NUL-padded fixed-size field. Anything after
// the first NUL is ignored.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return LegacyToUTF8(data)
}

// NormalizeAssetPath converts a stored asset name into a host path
// component: backslashes become separators and the name is lowercased.
func NormalizeAssetPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return filepath.FromSlash(strings.ToLower(name))
}
