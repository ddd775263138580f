package formats

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/pkg/binio"
	"github.com/Faultbox/td5kit/pkg/mesh"
)

// TDO3 layout constants.
const (
	tdo3EmptyTag    = 0xFFFFFFFF
	tdo3TrackPad    = 36 // Unknown block after the type tag, track models
	tdo3ModelPad    = 40 // Unknown block after the type tag, standalone models
	tdo3TrailerSize = 4  // Padding after each present track model
)

// DecodeTDO3 decodes a standalone TDO3 model (.dmp). A model slot whose type
// tag is all ones returns ErrNoModel.
func DecodeTDO3(rs io.ReadSeeker, opts Options) (*mesh.Mesh, error) {
	r, err := binio.NewReader(rs)
	if err != nil {
		return nil, err
	}

	tag := r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TDO3 type tag: %w", err)
	}
	if tag == tdo3EmptyTag {
		return nil, ErrNoModel
	}
	return decodeTDO3Model(r, false, opts.Name, opts)
}

// DecodeTDO3Track decodes a TDO3 track container (.mp): a model count
// followed by that many tagged model slots. Empty slots are skipped and do
// not produce a mesh; mesh names carry the slot index.
func DecodeTDO3Track(rs io.ReadSeeker, opts Options) ([]*mesh.Mesh, error) {
	r, err := binio.NewReader(rs)
	if err != nil {
		return nil, err
	}
	log := opts.logger()

	count := r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TDO3 track header: %w", err)
	}
	if err := checkCount("TDO3 model count", count); err != nil {
		return nil, err
	}

	meshes := make([]*mesh.Mesh, 0, count)
	for i := uint32(0); i < count; i++ {
		tag := r.U32()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("reading TDO3 track model %d tag: %w", i, err)
		}
		if tag == tdo3EmptyTag {
			log.Debug("empty track slot", zap.Uint32("slot", i))
			continue
		}

		name := fmt.Sprintf("%s_%03d", opts.Name, i)
		m, err := decodeTDO3Model(r, true, name, opts)
		if err != nil {
			return nil, fmt.Errorf("track model %d: %w", i, err)
		}
		r.Skip(tdo3TrailerSize)
		meshes = append(meshes, m)
	}
	return meshes, nil
}

func decodeTDO3Model(r *binio.Reader, track bool, name string, opts Options) (*mesh.Mesh, error) {
	log := opts.logger()
	start := r.Position()

	if track {
		r.Skip(tdo3TrackPad)
	} else {
		r.Skip(tdo3ModelPad)
	}
	var rows [4][3]float32
	for i := range rows {
		rows[i] = r.Vec3()
	}
	r.Skip(12)
	boxA := TDO3Axes.Normal(r.Vec3())
	boxB := TDO3Axes.Normal(r.Vec3())
	unk1, unk2 := r.U32(), r.U32()
	faceCount := r.U32()
	vertexCount := r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TDO3 header: %w", err)
	}
	if err := checkCount("TDO3 face count", faceCount); err != nil {
		return nil, err
	}
	if err := checkCount("TDO3 vertex count", vertexCount); err != nil {
		return nil, err
	}
	log.Debug("TDO3 model",
		zap.String("mesh", name), zap.Int64("offset", start),
		zap.Uint32("unk1", unk1), zap.Uint32("unk2", unk2),
		zap.Uint32("faces", faceCount), zap.Uint32("vertices", vertexCount))

	// Parallel vertex arrays
	positions := make([]mgl32.Vec3, vertexCount)
	normals := make([]mgl32.Vec3, vertexCount)
	uvs := make([]mgl32.Vec2, vertexCount)
	for i := range positions {
		positions[i] = TDO3Axes.Position(r.Vec3())
	}
	for i := range normals {
		normals[i] = TDO3Axes.Normal(r.Vec3())
	}
	for i := range uvs {
		u, v := r.F32(), r.F32()
		uvs[i] = TDO3Axes.UV(u, v)
	}

	// Per-face arrays
	materials := r.U32s(int(faceCount))
	indices := r.U32s(int(faceCount) * 3)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading TDO3 geometry: %w", err)
	}

	canon, remap := mesh.Weld(positions, normals)
	b := mesh.NewBuilder(name)
	for _, src := range canon {
		b.AddVertex(positions[src], normals[src])
	}

	// One material slot per distinct material id, ascending.
	slots := make(map[uint32]int)
	ids := make([]uint32, 0)
	for _, id := range materials {
		if _, ok := slots[id]; !ok {
			slots[id] = 0
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		slots[id] = b.AddMaterial(id, opts.textureName(id))
	}

	m := b.Raw()
	m.HasNormals = true
	m.HasUVs = true
	translation := TDO3Axes.Position(rows[3])
	m.Origin = translation
	m.Transform = mgl32.Mat4FromCols(
		TDO3Axes.Normal(rows[0]).Vec4(0),
		TDO3Axes.Normal(rows[1]).Vec4(0),
		TDO3Axes.Normal(rows[2]).Vec4(0),
		translation.Vec4(1),
	)

	for f := 0; f < int(faceCount); f++ {
		// Stored winding is reversed.
		tri := [3]int{int(indices[f*3+2]), int(indices[f*3+1]), int(indices[f*3])}
		if !inRange(tri[:], len(positions)) {
			warn(m, log, "skipping face", fmt.Errorf("face %d indices %v: %w", f, tri, ErrIndexOutOfRange),
				zap.Int("face", f))
			continue
		}
		verts := make([]mesh.VertexHandle, 3)
		faceUVs := make([]mgl32.Vec2, 3)
		for i, idx := range tri {
			verts[i] = mesh.VertexHandle(remap[idx])
			faceUVs[i] = uvs[idx]
		}
		if _, err := b.AddFace(verts, slots[materials[f]], faceUVs, nil); err != nil {
			warn(m, log, "skipping face", fmt.Errorf("face %d: %w", f, err), zap.Int("face", f))
		}
	}

	out := b.Mesh()
	// The stored box replaces the computed one; the axis swap can reorder its corners.
	for i := 0; i < 3; i++ {
		out.BoundsMin[i] = min(boxA[i], boxB[i])
		out.BoundsMax[i] = max(boxA[i], boxB[i])
	}
	return out, nil
}
