// Package mesh holds the decoded geometry model shared by every format.
package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
)

// White is the default vertex color for formats without a color channel.
var White = [4]uint8{255, 255, 255, 255}

// Vertex is a welded vertex. UV and Color hold the attributes of the first
// face corner that referenced the vertex; per-corner values live on faces.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Color    [4]uint8
	Source   [3]float32 // Position as stored on disk; valid when Mesh.HasSource
}

// Corner holds the attributes a face stores per corner.
type Corner struct {
	UV       mgl32.Vec2
	Color    [4]uint8
	SourceUV [2]float32 // UV as stored on disk; valid when Mesh.HasSource
}

// Triangle is a three-corner face.
type Triangle struct {
	Indices [3]int
	Corners [3]Corner
}

// Quad is a four-corner face.
type Quad struct {
	Indices [4]int
	Corners [4]Corner
}

// Submesh groups faces sharing one material slot.
type Submesh struct {
	TextureID uint16
	Triangles []Triangle
	Quads     []Quad
}

// FaceCount returns the number of triangles and quads in the submesh.
func (s *Submesh) FaceCount() int {
	return len(s.Triangles) + len(s.Quads)
}

// Material describes one material slot. Slot order equals submesh order.
type Material struct {
	Slot        int
	TextureID   uint32
	TextureName string // Empty unless a texture reference table was available
	TexturePath string // Host path of the texture image; empty when none was found
}

// Name returns a stable material name for exporters.
func (m Material) Name() string {
	if m.TextureName != "" {
		return m.TextureName
	}
	return fmt.Sprintf("td5_%d", m.TextureID)
}

// Mesh is the result of decoding one model record.
type Mesh struct {
	Name      string
	Vertices  []Vertex
	Submeshes []Submesh
	Materials []Material

	// Object placement in engine space.
	Origin    mgl32.Vec3
	Transform mgl32.Mat4 // Local-to-world transform (identity unless the format stores one)
	BoundsMin mgl32.Vec3
	BoundsMax mgl32.Vec3

	// Raw header values kept for re-encoding.
	Radius    float32
	Center    [3]float32
	Billboard bool

	HasNormals bool // Normals were read from the source
	HasColors  bool // Per-corner colors were read from the source
	HasUVs     bool // Per-corner UVs were read from the source
	HasSource  bool // Vertex.Source and Corner.SourceUV hold the TD5 values they were decoded from

	Warnings []error
}

// New returns an empty mesh with an identity transform.
func New(name string) *Mesh {
	return &Mesh{
		Name:      name,
		Transform: mgl32.Ident4(),
	}
}

// Warn records a recoverable condition.
func (m *Mesh) Warn(err error) {
	m.Warnings = append(m.Warnings, err)
}

// WarningErr combines all recorded warnings into one error, or nil.
func (m *Mesh) WarningErr() error {
	return multierr.Combine(m.Warnings...)
}

// TriangleCount returns the number of triangles across all submeshes.
func (m *Mesh) TriangleCount() int {
	total := 0
	for i := range m.Submeshes {
		total += len(m.Submeshes[i].Triangles)
	}
	return total
}

// QuadCount returns the number of quads across all submeshes.
func (m *Mesh) QuadCount() int {
	total := 0
	for i := range m.Submeshes {
		total += len(m.Submeshes[i].Quads)
	}
	return total
}

// IsEmpty returns true if the mesh has no faces.
func (m *Mesh) IsEmpty() bool {
	return m.TriangleCount() == 0 && m.QuadCount() == 0
}

// Validate checks that every face index refers to an existing vertex.
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for s := range m.Submeshes {
		sub := &m.Submeshes[s]
		for f, tri := range sub.Triangles {
			for _, idx := range tri.Indices {
				if idx < 0 || idx >= n {
					return fmt.Errorf("submesh %d triangle %d: index %d out of range [0,%d)", s, f, idx, n)
				}
			}
		}
		for f, quad := range sub.Quads {
			for _, idx := range quad.Indices {
				if idx < 0 || idx >= n {
					return fmt.Errorf("submesh %d quad %d: index %d out of range [0,%d)", s, f, idx, n)
				}
			}
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounds of the vertex positions.
func (m *Mesh) Bounds() (lo, hi mgl32.Vec3) {
	if len(m.Vertices) == 0 {
		return
	}
	lo = m.Vertices[0].Position
	hi = lo
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v.Position[i] < lo[i] {
				lo[i] = v.Position[i]
			}
			if v.Position[i] > hi[i] {
				hi[i] = v.Position[i]
			}
		}
	}
	return lo, hi
}
