package formats

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/pkg/binio"
	"github.com/Faultbox/td5kit/pkg/mesh"
)

// TD6 layout constants.
const (
	td6Magic       = 260
	td6HeaderSize  = 52
	td6SubmeshSize = 32
	td6VertexSize  = 32
)

// TD6Submesh is an on-disk TD6 submesh descriptor. Each submesh owns a
// private vertex block and a 16-bit index block.
type TD6Submesh struct {
	TextureID    uint16
	VertexCount  uint32
	IndexCount   uint32
	VertexOffset uint32
	IndexOffset  uint32
}

type td6Block struct {
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	uvs       []mgl32.Vec2
	colors    [][4]uint8
	indices   []uint16
}

// DecodeTD6 decodes a TD6 model starting at the current position of rs.
// Track models carry vertex colors instead of normals; their normals are
// recomputed from the faces after building.
func DecodeTD6(rs io.ReadSeeker, track bool, opts Options) (*mesh.Mesh, error) {
	r, err := binio.NewReader(rs)
	if err != nil {
		return nil, err
	}
	log := opts.logger()

	magic := r.U16()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TD6 header: %w", err)
	}
	if magic != td6Magic {
		return nil, fmt.Errorf("%w: TD6 expects %d, got %d", ErrBadMagic, td6Magic, magic)
	}
	billboard := r.U8()
	r.Skip(1)
	submeshCount := r.U32()
	totalVertices := r.U32()
	radius := r.F32()
	center := r.Vec3()
	r.Skip(12) // three unused floats
	r.Skip(4)
	submeshOffset := r.U32()
	r.U32() // shared vertex offset, superseded by per-submesh offsets
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TD6 header: %w", err)
	}
	if err := checkCount("TD6 submesh count", submeshCount); err != nil {
		return nil, err
	}

	// Submesh descriptors
	r.SeekOrigin(int64(submeshOffset))
	descriptors := make([]TD6Submesh, submeshCount)
	for i := range descriptors {
		d := &descriptors[i]
		r.Skip(2)
		d.TextureID = r.U16()
		r.Skip(4)
		d.VertexCount = r.U32()
		d.IndexCount = r.U32()
		d.VertexOffset = r.U32()
		d.IndexOffset = r.U32()
		r.Skip(8)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TD6 submeshes: %w", err)
	}

	// Per-submesh vertex and index blocks
	blocks := make([]td6Block, submeshCount)
	for i, d := range descriptors {
		if err := checkCount("TD6 vertex count", d.VertexCount); err != nil {
			return nil, err
		}
		if err := checkCount("TD6 index count", d.IndexCount); err != nil {
			return nil, err
		}
		blk := &blocks[i]
		r.SeekOrigin(int64(d.VertexOffset))
		for j := uint32(0); j < d.VertexCount; j++ {
			pos := r.Vec3()
			if track {
				r.Skip(4)
				blk.colors = append(blk.colors, [4]uint8{r.U8(), r.U8(), r.U8(), r.U8()})
				r.Skip(4)
				blk.normals = append(blk.normals, mgl32.Vec3{})
			} else {
				blk.normals = append(blk.normals, TD6Axes.Normal(r.Vec3()))
			}
			u, v := r.F32(), r.F32()
			blk.positions = append(blk.positions, TD6Axes.Position(pos))
			blk.uvs = append(blk.uvs, TD6Axes.UV(u, v))
		}
		r.SeekOrigin(int64(d.IndexOffset))
		blk.indices = r.U16s(int(d.IndexCount))
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("reading TD6 submesh %d: %w", i, err)
		}
	}

	// Weld the concatenated vertex blocks into one pool.
	var positions, normals []mgl32.Vec3
	for _, blk := range blocks {
		positions = append(positions, blk.positions...)
		normals = append(normals, blk.normals...)
	}
	canon, remap := mesh.Weld(positions, normals)

	b := mesh.NewBuilder(opts.Name)
	for _, src := range canon {
		b.AddVertex(positions[src], normals[src])
	}

	m := b.Raw()
	m.Radius = radius
	m.Center = center
	m.Billboard = billboard != 0
	m.HasNormals = !track
	m.HasColors = track
	m.HasUVs = true
	if m.Billboard {
		m.Origin = BillboardOrigin(radius, center)
	}
	if int(totalVertices) != len(positions) {
		log.Debug("TD6 vertex total differs from submesh sum",
			zap.Uint32("header", totalVertices), zap.Int("submeshes", len(positions)))
	}

	base := 0
	for s, d := range descriptors {
		blk := &blocks[s]
		slot := b.AddMaterial(uint32(d.TextureID), opts.textureName(uint32(d.TextureID)))

		for f := 0; f+2 < len(blk.indices); f += 3 {
			// Stored winding is reversed.
			tri := [3]int{int(blk.indices[f+2]), int(blk.indices[f+1]), int(blk.indices[f])}
			if !inRange(tri[:], len(blk.positions)) {
				warn(m, log, "skipping face", fmt.Errorf("submesh %d face %d indices %v: %w", s, f/3, tri, ErrIndexOutOfRange),
					zap.Int("submesh", s), zap.Int("face", f/3))
				continue
			}

			verts := make([]mesh.VertexHandle, 3)
			uvs := make([]mgl32.Vec2, 3)
			var colors [][4]uint8
			for i, idx := range tri {
				verts[i] = mesh.VertexHandle(remap[base+idx])
				uvs[i] = blk.uvs[idx]
				if track {
					colors = append(colors, blk.colors[idx])
				}
			}
			if _, err := b.AddFace(verts, slot, uvs, colors); err != nil {
				warn(m, log, "skipping face", fmt.Errorf("submesh %d face %d: %w", s, f/3, err),
					zap.Int("submesh", s), zap.Int("face", f/3))
			}
		}
		base += len(blk.positions)
	}

	out := b.Mesh()
	if track {
		mesh.RecomputeNormals(out)
	}
	return out, nil
}

func inRange(indices []int, n int) bool {
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return false
		}
	}
	return true
}
