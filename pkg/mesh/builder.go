package mesh

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Face construction errors. Both are recoverable: the face is skipped.
var (
	ErrDegenerateFace   = errors.New("degenerate face")
	ErrBadVertexHandle  = errors.New("vertex handle out of range")
	ErrBadMaterialIndex = errors.New("material slot out of range")
)

// VertexHandle refers to a vertex added to a Sink.
type VertexHandle int

// FaceHandle refers to a face added to a Sink.
type FaceHandle int

// Sink receives geometry incrementally. Decoders feed a Sink; Builder is the
// in-memory implementation.
type Sink interface {
	AddVertex(pos, normal mgl32.Vec3) VertexHandle
	AddFace(verts []VertexHandle, material int, uvs []mgl32.Vec2, colors [][4]uint8) (FaceHandle, error)
}

type faceKey [4]int

// Builder assembles a Mesh through the Sink interface.
type Builder struct {
	mesh    *Mesh
	touched []bool
	faces   map[faceKey]struct{}
	count   int
}

// NewBuilder starts a mesh with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		mesh:  New(name),
		faces: make(map[faceKey]struct{}),
	}
}

// AddMaterial appends a material slot with its submesh and returns the slot index.
func (b *Builder) AddMaterial(textureID uint32, textureName string) int {
	slot := len(b.mesh.Submeshes)
	b.mesh.Submeshes = append(b.mesh.Submeshes, Submesh{TextureID: uint16(textureID)})
	b.mesh.Materials = append(b.mesh.Materials, Material{
		Slot:        slot,
		TextureID:   textureID,
		TextureName: textureName,
	})
	return slot
}

// AddVertex appends a vertex and returns its handle.
func (b *Builder) AddVertex(pos, normal mgl32.Vec3) VertexHandle {
	b.mesh.Vertices = append(b.mesh.Vertices, Vertex{Position: pos, Normal: normal, Color: White})
	b.touched = append(b.touched, false)
	return VertexHandle(len(b.mesh.Vertices) - 1)
}

// AddFace adds a triangle or quad to the given material slot. Faces with
// repeated vertices, or whose vertex set already forms a face, are rejected
// with ErrDegenerateFace. Missing uvs default to (0,0) and missing colors to white.
func (b *Builder) AddFace(verts []VertexHandle, material int, uvs []mgl32.Vec2, colors [][4]uint8) (FaceHandle, error) {
	if len(verts) != 3 && len(verts) != 4 {
		return -1, fmt.Errorf("%d corners: %w", len(verts), ErrDegenerateFace)
	}
	if material < 0 || material >= len(b.mesh.Submeshes) {
		return -1, fmt.Errorf("slot %d: %w", material, ErrBadMaterialIndex)
	}

	key := faceKey{-1, -1, -1, -1}
	for i, v := range verts {
		if int(v) < 0 || int(v) >= len(b.mesh.Vertices) {
			return -1, fmt.Errorf("handle %d: %w", v, ErrBadVertexHandle)
		}
		key[i] = int(v)
	}
	sort.Ints(key[:len(verts)])
	for i := 1; i < len(verts); i++ {
		if key[i] == key[i-1] {
			return -1, fmt.Errorf("vertex %d repeated: %w", key[i], ErrDegenerateFace)
		}
	}
	if _, exists := b.faces[key]; exists {
		return -1, fmt.Errorf("face %v already exists: %w", key[:len(verts)], ErrDegenerateFace)
	}
	b.faces[key] = struct{}{}

	corners := make([]Corner, len(verts))
	for i := range corners {
		corners[i].Color = White
		if i < len(uvs) {
			corners[i].UV = uvs[i]
		}
		if i < len(colors) {
			corners[i].Color = colors[i]
		}
		if v := int(verts[i]); !b.touched[v] {
			b.touched[v] = true
			b.mesh.Vertices[v].UV = corners[i].UV
			b.mesh.Vertices[v].Color = corners[i].Color
		}
	}

	sub := &b.mesh.Submeshes[material]
	if len(verts) == 3 {
		tri := Triangle{}
		for i := 0; i < 3; i++ {
			tri.Indices[i] = int(verts[i])
			tri.Corners[i] = corners[i]
		}
		sub.Triangles = append(sub.Triangles, tri)
	} else {
		quad := Quad{}
		for i := 0; i < 4; i++ {
			quad.Indices[i] = int(verts[i])
			quad.Corners[i] = corners[i]
		}
		sub.Quads = append(sub.Quads, quad)
	}

	handle := FaceHandle(b.count)
	b.count++
	return handle, nil
}

// Mesh returns the assembled mesh. The builder must not be used afterwards.
func (b *Builder) Mesh() *Mesh {
	b.mesh.BoundsMin, b.mesh.BoundsMax = b.mesh.Bounds()
	return b.mesh
}

// Raw returns the mesh under construction so decoders can set header fields.
func (b *Builder) Raw() *Mesh {
	return b.mesh
}

// RecomputeNormals replaces vertex normals with the normalized sum of the
// area-weighted normals of the faces using each vertex.
func RecomputeNormals(m *Mesh) {
	acc := make([]mgl32.Vec3, len(m.Vertices))
	addFace := func(idx []int) {
		p0 := m.Vertices[idx[0]].Position
		for i := 1; i+1 < len(idx); i++ {
			p1 := m.Vertices[idx[i]].Position
			p2 := m.Vertices[idx[i+1]].Position
			n := p1.Sub(p0).Cross(p2.Sub(p0))
			acc[idx[0]] = acc[idx[0]].Add(n)
			acc[idx[i]] = acc[idx[i]].Add(n)
			acc[idx[i+1]] = acc[idx[i+1]].Add(n)
		}
	}
	for s := range m.Submeshes {
		for _, tri := range m.Submeshes[s].Triangles {
			addFace(tri.Indices[:])
		}
		for _, quad := range m.Submeshes[s].Quads {
			addFace(quad.Indices[:])
		}
	}
	for i, n := range acc {
		if n.Len() > 0 {
			n = n.Normalize()
		}
		m.Vertices[i].Normal = n
	}
}
