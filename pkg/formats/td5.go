package formats

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/pkg/binio"
	"github.com/Faultbox/td5kit/pkg/mesh"
)

// TD5 layout constants.
const (
	td5Magic          = 259
	td5HeaderSize     = 64
	td5SubmeshSize    = 16
	td5VertexSize     = 44
	td5NormalSize     = 16
	billboardDropRate = 0.65 // Fraction of the radius a billboard sinks below its center
)

// TD5Submesh is an on-disk TD5 submesh descriptor.
type TD5Submesh struct {
	TextureID uint16
	Triangles uint16
	Quads     uint16
}

// td5Corner is one raw vertex record.
type td5Corner struct {
	pos   [3]float32
	uv    [2]float32
	color [4]uint8
}

// DecodeTD5 decodes a TD5 model starting at the current position of rs.
func DecodeTD5(rs io.ReadSeeker, opts Options) (*mesh.Mesh, error) {
	r, err := binio.NewReader(rs)
	if err != nil {
		return nil, err
	}
	log := opts.logger()

	magic := r.U16()
	billboard := r.U8()
	r.Skip(1)
	submeshCount := r.U32()
	vertexCount := r.U32()
	radius := r.F32()
	center := r.Vec3()
	r.Skip(16)
	submeshOffset := r.U32()
	vertexOffset := r.U32()
	normalOffset := r.U32()
	r.Skip(8)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TD5 header: %w", err)
	}
	if magic != td5Magic {
		return nil, fmt.Errorf("%w: TD5 expects %d, got %d", ErrBadMagic, td5Magic, magic)
	}
	if err := checkCount("TD5 submesh count", submeshCount); err != nil {
		return nil, err
	}
	if err := checkCount("TD5 vertex count", vertexCount); err != nil {
		return nil, err
	}

	// Submesh descriptors
	r.SeekOrigin(int64(submeshOffset))
	descriptors := make([]TD5Submesh, submeshCount)
	needed := 0
	for i := range descriptors {
		r.Skip(2)
		descriptors[i].TextureID = r.U16()
		r.Skip(4)
		descriptors[i].Triangles = r.U16()
		descriptors[i].Quads = r.U16()
		r.Skip(4)
		needed += int(descriptors[i].Triangles)*3 + int(descriptors[i].Quads)*4
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TD5 submeshes: %w", err)
	}
	if needed > int(vertexCount) {
		return nil, fmt.Errorf("TD5 submeshes reference %d vertices, table holds %d: %w", needed, vertexCount, ErrIndexOutOfRange)
	}

	// Vertex records
	r.SeekOrigin(int64(vertexOffset))
	corners := make([]td5Corner, vertexCount)
	for i := range corners {
		c := &corners[i]
		c.pos = r.Vec3()
		r.Skip(16)
		c.uv = [2]float32{r.F32(), r.F32()}
		r.Skip(4)
		c.color = [4]uint8{r.U8(), r.U8(), r.U8(), r.U8()}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TD5 vertices: %w", err)
	}

	// Normal records
	hasNormals := normalOffset != 0
	positions := make([]mgl32.Vec3, vertexCount)
	normals := make([]mgl32.Vec3, vertexCount)
	for i := range corners {
		positions[i] = TD5Axes.Position(corners[i].pos)
	}
	if hasNormals {
		r.SeekOrigin(int64(normalOffset))
		for i := range normals {
			normals[i] = TD5Axes.Normal(r.Vec3())
			r.Skip(4)
		}
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("reading TD5 normals: %w", err)
		}
	}

	// Weld on the stored positions so distinct source values stay distinct
	// after scaling.
	stored := make([]mgl32.Vec3, vertexCount)
	for i := range corners {
		stored[i] = corners[i].pos
	}
	canon, remap := mesh.Weld(stored, normals)
	b := mesh.NewBuilder(opts.Name)
	m := b.Raw()
	for _, src := range canon {
		h := b.AddVertex(positions[src], normals[src])
		m.Vertices[h].Source = corners[src].pos
	}

	m.Radius = radius
	m.Center = center
	m.Billboard = billboard != 0
	m.HasNormals = hasNormals
	m.HasColors = true
	m.HasUVs = true
	m.HasSource = true
	if m.Billboard {
		m.Origin = BillboardOrigin(radius, center)
	}

	offset := 0
	for s, d := range descriptors {
		slot := b.AddMaterial(uint32(d.TextureID), opts.textureName(uint32(d.TextureID)))
		for t := 0; t < int(d.Triangles); t++ {
			addTD5Face(b, log, corners, remap, offset, 3, slot, s)
			offset += 3
		}
		for q := 0; q < int(d.Quads); q++ {
			addTD5Face(b, log, corners, remap, offset, 4, slot, s)
			offset += 4
		}
	}

	return b.Mesh(), nil
}

func addTD5Face(b *mesh.Builder, log *zap.Logger, corners []td5Corner, remap []int, offset, n, slot, submesh int) {
	verts := make([]mesh.VertexHandle, n)
	uvs := make([]mgl32.Vec2, n)
	colors := make([][4]uint8, n)
	for i := 0; i < n; i++ {
		c := corners[offset+i]
		verts[i] = mesh.VertexHandle(remap[offset+i])
		uvs[i] = TD5Axes.UV(c.uv[0], c.uv[1])
		colors[i] = c.color
	}
	if _, err := b.AddFace(verts, slot, uvs, colors); err != nil {
		warn(b.Raw(), log, "skipping face", fmt.Errorf("submesh %d vertex %d: %w", submesh, offset, err),
			zap.Int("submesh", submesh), zap.Int("offset", offset))
		return
	}

	sub := &b.Raw().Submeshes[slot]
	var added []mesh.Corner
	if n == 3 {
		added = sub.Triangles[len(sub.Triangles)-1].Corners[:]
	} else {
		added = sub.Quads[len(sub.Quads)-1].Corners[:]
	}
	for i := range added {
		added[i].SourceUV = corners[offset+i].uv
	}
}

// BillboardOrigin returns where a billboard model is placed in engine space:
// its center lowered by a fixed fraction of its radius.
func BillboardOrigin(radius float32, center [3]float32) mgl32.Vec3 {
	lowered := center
	lowered[1] = float32(float64(center[1]) - float64(radius)*billboardDropRate)
	return TD5Axes.Position(lowered)
}

// EncodeTD5 writes m in the TD5 layout. Faces are bucketed by submesh in
// ascending slot order and every face is written as unshared triangles, so
// quads become two-triangle fans. The normal table is written only when the
// mesh carries source normals.
func EncodeTD5(w io.Writer, m *mesh.Mesh) error {
	if m == nil || m.IsEmpty() {
		return ErrNothingToExport
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("encoding TD5: %w", err)
	}

	type corner struct {
		vertex int
		attrs  mesh.Corner
	}

	buckets := make([][]corner, len(m.Submeshes))
	for s := range m.Submeshes {
		sub := &m.Submeshes[s]
		for _, tri := range sub.Triangles {
			for i := 0; i < 3; i++ {
				buckets[s] = append(buckets[s], corner{tri.Indices[i], tri.Corners[i]})
			}
		}
		for _, quad := range sub.Quads {
			for _, i := range [6]int{0, 1, 2, 0, 2, 3} {
				buckets[s] = append(buckets[s], corner{quad.Indices[i], quad.Corners[i]})
			}
		}
		if len(buckets[s])/3 > 0xFFFF {
			return fmt.Errorf("submesh %d has %d triangles: %w", s, len(buckets[s])/3, ErrTooManyTriangles)
		}
	}

	var corners []corner
	for _, bucket := range buckets {
		corners = append(corners, bucket...)
	}

	submeshOffset := uint32(td5HeaderSize)
	vertexOffset := submeshOffset + td5SubmeshSize*uint32(len(m.Submeshes))
	normalOffset := uint32(0)
	if m.HasNormals {
		normalOffset = vertexOffset + td5VertexSize*uint32(len(corners))
	}

	radius, center := m.Radius, m.Center
	if radius == 0 && center == ([3]float32{}) {
		radius, center = td5Bounds(m)
	}

	bw := binio.NewWriter(w)

	// Header
	bw.U16(td5Magic)
	if m.Billboard {
		bw.U8(1)
	} else {
		bw.U8(0)
	}
	bw.Zero(1)
	bw.U32(uint32(len(m.Submeshes)))
	bw.U32(uint32(len(corners)))
	bw.F32(radius)
	bw.Vec3(center)
	bw.Zero(16)
	bw.U32(submeshOffset)
	bw.U32(vertexOffset)
	bw.U32(normalOffset)
	bw.Zero(8)

	// Submesh descriptors
	for s, bucket := range buckets {
		bw.Zero(2)
		bw.U16(m.Submeshes[s].TextureID)
		bw.Zero(4)
		bw.U16(uint16(len(bucket) / 3))
		bw.U16(0)
		bw.Zero(4)
	}

	// Vertex records
	for _, c := range corners {
		pos, uv := td5Record(m, c.vertex, c.attrs)
		bw.Vec3(pos)
		bw.Zero(16)
		bw.F32(uv[0])
		bw.F32(uv[1])
		bw.Zero(4)
		bw.Write(c.attrs.Color[:])
	}

	// Normal records
	if m.HasNormals {
		for _, c := range corners {
			bw.Vec3(TD5Axes.SourceNormal(m.Vertices[c.vertex].Normal))
			bw.Zero(4)
		}
	}

	if err := bw.Err(); err != nil {
		return fmt.Errorf("writing TD5: %w", err)
	}
	return nil
}

// td5Record returns the stored position and UV of one corner. Values decoded
// from a TD5 file are written back unchanged; meshes without UVs write (0,0).
func td5Record(m *mesh.Mesh, vertex int, c mesh.Corner) ([3]float32, [2]float32) {
	if m.HasSource {
		return m.Vertices[vertex].Source, c.SourceUV
	}
	pos := TD5Axes.SourcePosition(m.Vertices[vertex].Position)
	if !m.HasUVs {
		return pos, [2]float32{}
	}
	u, v := TD5Axes.SourceUV(c.UV)
	return pos, [2]float32{u, v}
}

// td5Bounds derives header radius and center for meshes that did not come
// from a TD5 file: the largest bounding-box dimension and the object origin,
// both in source units.
func td5Bounds(m *mesh.Mesh) (float32, [3]float32) {
	lo, hi := m.Bounds()
	size := hi.Sub(lo)
	largest := size[0]
	if size[1] > largest {
		largest = size[1]
	}
	if size[2] > largest {
		largest = size[2]
	}
	radius := float32(float64(largest) / TD5Axes.scale)
	return radius, TD5Axes.SourcePosition(m.Origin)
}
