package mesh

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
)

// WriteOBJ writes meshes as a Wavefront OBJ document. Each mesh becomes an
// object placed at its origin; UVs are written per face corner.
// Only Origin is applied to positions; the rotation in Transform is not.
func WriteOBJ(w io.Writer, meshes ...*Mesh) error {
	return WriteOBJWithLib(w, "", meshes...)
}

// WriteOBJWithLib is WriteOBJ with an mtllib reference to mtlName. An empty
// mtlName writes no reference.
func WriteOBJWithLib(w io.Writer, mtlName string, meshes ...*Mesh) error {
	bw := bufio.NewWriter(w)
	vertBase, uvBase := 1, 1

	if mtlName != "" {
		fmt.Fprintf(bw, "mtllib %s\n", mtlName)
	}

	for mi, m := range meshes {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("mesh_%d", mi)
		}
		fmt.Fprintf(bw, "o %s\n", name)

		for _, v := range m.Vertices {
			p := v.Position.Add(m.Origin)
			fmt.Fprintf(bw, "v %g %g %g\n", p[0], p[1], p[2])
		}
		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "vn %g %g %g\n", v.Normal[0], v.Normal[1], v.Normal[2])
		}

		uvCount := 0
		for s := range m.Submeshes {
			sub := &m.Submeshes[s]
			for _, tri := range sub.Triangles {
				for _, c := range tri.Corners {
					fmt.Fprintf(bw, "vt %g %g\n", c.UV[0], c.UV[1])
				}
			}
			for _, quad := range sub.Quads {
				for _, c := range quad.Corners {
					fmt.Fprintf(bw, "vt %g %g\n", c.UV[0], c.UV[1])
				}
			}
		}

		for s := range m.Submeshes {
			sub := &m.Submeshes[s]
			if sub.FaceCount() == 0 {
				continue
			}
			fmt.Fprintf(bw, "usemtl %s\n", materialAt(m, s).Name())

			for _, tri := range sub.Triangles {
				writeFace(bw, tri.Indices[:], vertBase, uvBase+uvCount)
				uvCount += 3
			}
			for _, quad := range sub.Quads {
				writeFace(bw, quad.Indices[:], vertBase, uvBase+uvCount)
				uvCount += 4
			}
		}

		vertBase += len(m.Vertices)
		uvBase += uvCount
	}

	return bw.Flush()
}

func writeFace(w io.Writer, indices []int, vertBase, uvStart int) {
	fmt.Fprint(w, "f")
	for i, idx := range indices {
		v := idx + vertBase
		fmt.Fprintf(w, " %d/%d/%d", v, uvStart+i, v)
	}
	fmt.Fprintln(w)
}

// WriteMTL writes a material library with one entry per distinct material
// name used by meshes. Texture paths are written relative to dir, the
// directory the library is stored in, when possible.
func WriteMTL(w io.Writer, dir string, meshes ...*Mesh) error {
	bw := bufio.NewWriter(w)
	seen := make(map[string]bool)

	for _, m := range meshes {
		for s := range m.Submeshes {
			mat := materialAt(m, s)
			name := mat.Name()
			if seen[name] {
				continue
			}
			seen[name] = true

			fmt.Fprintf(bw, "newmtl %s\n", name)
			fmt.Fprintln(bw, "Kd 1 1 1")
			if mat.TexturePath != "" {
				path := mat.TexturePath
				if rel, err := filepath.Rel(dir, path); err == nil {
					path = rel
				}
				fmt.Fprintf(bw, "map_Kd %s\n", filepath.ToSlash(path))
			}
			fmt.Fprintln(bw)
		}
	}

	return bw.Flush()
}

// materialAt returns the material of submesh s, synthesizing one from the
// submesh texture id when the slot is missing.
func materialAt(m *Mesh, s int) Material {
	if s < len(m.Materials) {
		return m.Materials[s]
	}
	return Material{Slot: s, TextureID: uint32(m.Submeshes[s].TextureID)}
}
