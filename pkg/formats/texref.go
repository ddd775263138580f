package formats

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/td5kit/pkg/binio"
	"github.com/Faultbox/td5kit/pkg/encoding"
	"github.com/Faultbox/td5kit/pkg/mesh"
)

// TextureRefName is the texture table stored next to TDO3 track files.
const TextureRefName = "TEXTURES.REF"

const textureRefNameSize = 60

// TextureRef is one entry of a TEXTURES.REF table. Entry i names the texture
// for material id i.
type TextureRef struct {
	Kind uint32
	Name string
}

// ReadTextureRef reads a TEXTURES.REF table.
func ReadTextureRef(rs io.ReadSeeker) ([]TextureRef, error) {
	r, err := binio.NewReader(rs)
	if err != nil {
		return nil, err
	}

	count := r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading texture table count: %w", err)
	}
	if err := checkCount("texture table count", count); err != nil {
		return nil, err
	}

	refs := make([]TextureRef, count)
	for i := range refs {
		refs[i].Kind = r.U32()
		name, err := r.ReadFixed(textureRefNameSize)
		if err != nil {
			return nil, fmt.Errorf("reading texture table entry %d: %w", i, err)
		}
		refs[i].Name = encoding.FixedStringToUTF8(name)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading texture table: %w", err)
	}
	return refs, nil
}

// LoadTextureRef reads TEXTURES.REF from dir. A missing file is reported as
// ErrMissingDirectory.
func LoadTextureRef(dir string) ([]TextureRef, error) {
	path := filepath.Join(dir, TextureRefName)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrMissingDirectory)
		}
		return nil, fmt.Errorf("opening texture table: %w", err)
	}
	defer f.Close()

	return ReadTextureRef(f)
}

// TextureNames returns the texture names indexed by material id.
func TextureNames(refs []TextureRef) []string {
	if len(refs) == 0 {
		return nil
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return names
}

// ResolveTexturePath returns the file in dir that a stored texture name
// refers to, or "" when there is none. The name is tried as stored, then
// lowercased.
func ResolveTexturePath(dir, name string) string {
	if name == "" {
		return ""
	}
	stored := filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	for _, candidate := range []string{stored, encoding.NormalizeAssetPath(name)} {
		path := filepath.Join(dir, candidate)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// ResolveTextures sets TexturePath on every named material of meshes whose
// texture exists in dir and returns how many materials remain unresolved.
func ResolveTextures(dir string, meshes []*mesh.Mesh) int {
	missing := 0
	for _, m := range meshes {
		for i := range m.Materials {
			mat := &m.Materials[i]
			if mat.TextureName == "" {
				continue
			}
			if mat.TexturePath = ResolveTexturePath(dir, mat.TextureName); mat.TexturePath == "" {
				missing++
			}
		}
	}
	return missing
}
