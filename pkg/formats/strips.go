package formats

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/pkg/binio"
	"github.com/Faultbox/td5kit/pkg/mesh"
)

// DefaultWeldTolerance is the engine-space distance below which strip
// vertices are merged.
const DefaultWeldTolerance = 0.001

const (
	stripHeaderSize = 20
	stripRecordSize = 24
	stripGeoSize    = 6
)

// StripType selects how a strip record joins its two rows.
type StripType uint8

const (
	StripEven        StripType = iota + 1 // Rows of equal length
	StripGrowRight                        // Row A one shorter, filler at the right end
	StripGrowLeft                         // Row A one shorter, filler at the left end
	StripGrowBoth                         // Row A two shorter, fillers at both ends
	StripShrinkRight                      // Row B one shorter, filler at the right end
	StripShrinkLeft                       // Row B one shorter, filler at the left end
	StripShrinkBoth                       // Row B two shorter, fillers at both ends
	StripSplitA                           // Split marker
	StripSplitB                           // Split marker
	StripEnd                              // Last record of a strip; the next record is a sentinel
	StripSplitC                           // Split marker
)

var stripTypeNames = [...]string{
	StripEven:        "even",
	StripGrowRight:   "grow-right",
	StripGrowLeft:    "grow-left",
	StripGrowBoth:    "grow-both",
	StripShrinkRight: "shrink-right",
	StripShrinkLeft:  "shrink-left",
	StripShrinkBoth:  "shrink-both",
	StripSplitA:      "split-a",
	StripSplitB:      "split-b",
	StripEnd:         "end",
	StripSplitC:      "split-c",
}

// Valid reports whether t is one of the known strip types.
func (t StripType) Valid() bool {
	return t >= StripEven && t <= StripSplitC
}

func (t StripType) String() string {
	if t.Valid() {
		return stripTypeNames[t]
	}
	return fmt.Sprintf("StripType(%d)", uint8(t))
}

// stripShape is the row-length delta of each row relative to breadth+1 and
// the filler triangles closing the length mismatch.
type stripShape struct {
	deltaA, deltaB int
	left, right    bool
}

// stripShapes is indexed by StripType. Split and end markers join their rows
// like StripEven.
//
// Each filler absorbs one vertex of length difference at a row end: it takes
// two adjacent end vertices of the longer row and the end vertex of the
// shorter row, so the quads between them stay aligned. Below, n is the last
// index of the shorter row; with fillers at both ends the longer row's
// right-end indices shift by one.
var stripShapes = [...]stripShape{
	StripEven:        {},
	StripGrowRight:   {deltaA: -1, right: true},             // (A[n], B[n+1], B[n]) after the last quad
	StripGrowLeft:    {deltaA: -1, left: true},              // (A0, B1, B0) before the first quad
	StripGrowBoth:    {deltaA: -2, left: true, right: true}, // both of the above
	StripShrinkRight: {deltaB: -1, right: true},             // (A[n], A[n+1], B[n]) after the last quad
	StripShrinkLeft:  {deltaB: -1, left: true},              // (A0, A1, B0) before the first quad
	StripShrinkBoth:  {deltaB: -2, left: true, right: true}, // both of the above
	StripSplitA:      {},
	StripSplitB:      {},
	StripEnd:         {},
	StripSplitC:      {},
}

// StripFaces returns the number of quads and filler triangles a record of
// type t and the given breadth emits.
func StripFaces(t StripType, breadth int) (quads, fillers int) {
	if !t.Valid() {
		return 0, 0
	}
	shape := stripShapes[t]
	if shape.left {
		fillers++
	}
	if shape.right {
		fillers++
	}
	return breadth - fillers, fillers
}

// StripHeader is the strip section header at the start of the stream.
type StripHeader struct {
	StripsOffset uint32
	MainCount    uint32
	GeoOffset    uint32
	GeoCount     uint32
	TotalCount   uint32
}

// StripRecord is one 24-byte strip record.
type StripRecord struct {
	Type    StripType
	Mask    uint8 // Material slot per quad, bit i for quad i
	Breadth uint8 // Low nibble of the flags byte
	Extra   uint8 // High nibble of the flags byte
	Index0  uint16
	Index2  uint16
	Data1   uint16
	Data2   uint16
	Offset  [3]int32
}

// stripFace is a face on the unwelded strip vertex list.
type stripFace struct {
	verts  []int
	slot   int
	record int
}

// DecodeStrips rebuilds the collision mesh described by a strip section.
// Sentinel records emit nothing. Invalid records are skipped with a warning.
// The result is welded by distance using opts.WeldTolerance and carries
// two material slots, for mask bits 0 and 1.
func DecodeStrips(rs io.ReadSeeker, opts Options) (*mesh.Mesh, error) {
	r, err := binio.NewReader(rs)
	if err != nil {
		return nil, err
	}
	log := opts.logger()

	var hdr StripHeader
	hdr.StripsOffset = r.U32()
	hdr.MainCount = r.U32()
	hdr.GeoOffset = r.U32()
	hdr.GeoCount = r.U32()
	hdr.TotalCount = r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading strip header: %w", err)
	}
	if err := checkCount("strip geometry count", hdr.GeoCount); err != nil {
		return nil, err
	}
	if err := checkCount("strip record count", hdr.TotalCount); err != nil {
		return nil, err
	}

	// Shared position table
	r.SeekOrigin(int64(hdr.GeoOffset))
	geo := make([][3]int32, hdr.GeoCount)
	for i := range geo {
		geo[i] = [3]int32{int32(r.I16()), int32(r.I16()), int32(r.I16())}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading strip geometry: %w", err)
	}

	// Strip records
	r.SeekOrigin(int64(hdr.StripsOffset))
	records := make([]StripRecord, hdr.TotalCount)
	for i := range records {
		rec := &records[i]
		rec.Type = StripType(r.U8())
		r.Skip(1)
		rec.Mask = r.U8()
		flags := r.U8()
		rec.Breadth = flags & 0x0F
		rec.Extra = flags >> 4
		rec.Index0 = r.U16()
		rec.Index2 = r.U16()
		rec.Data1 = r.U16()
		rec.Data2 = r.U16()
		rec.Offset = [3]int32{r.I32(), r.I32(), r.I32()}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading strip records: %w", err)
	}

	b := mesh.NewBuilder(opts.Name)
	b.AddMaterial(0, opts.textureName(0))
	b.AddMaterial(1, opts.textureName(1))
	m := b.Raw()

	lastMain := int(hdr.MainCount) - 2
	var (
		positions []mgl32.Vec3
		faces     []stripFace
		skipNext  bool
	)
	for x, rec := range records {
		if skipNext || x == lastMain {
			log.Debug("sentinel strip record", zap.Int("record", x), zap.Stringer("type", rec.Type))
			skipNext = false
			continue
		}
		skipNext = rec.Type == StripEnd

		rowA, rowB, err := stripRows(rec, geo)
		if err != nil {
			warn(m, log, "skipping strip record", fmt.Errorf("record %d: %w", x, err), zap.Int("record", x))
			continue
		}

		base := len(positions)
		positions = append(positions, rowA...)
		positions = append(positions, rowB...)
		a := func(i int) int { return base + i }
		bb := func(i int) int { return base + len(rowA) + i }

		shape := stripShapes[rec.Type]
		quads, _ := StripFaces(rec.Type, int(rec.Breadth))
		aStart, bStart := 0, 0

		if shape.left {
			if len(rowA) < len(rowB) {
				faces = append(faces, stripFace{[]int{a(0), bb(1), bb(0)}, maskSlot(rec.Mask, 0), x})
				bStart = 1
			} else {
				faces = append(faces, stripFace{[]int{a(0), a(1), bb(0)}, maskSlot(rec.Mask, 0), x})
				aStart = 1
			}
		}
		for q := 0; q < quads; q++ {
			faces = append(faces, stripFace{
				verts:  []int{a(aStart + q), a(aStart + q + 1), bb(bStart + q + 1), bb(bStart + q)},
				slot:   maskSlot(rec.Mask, q),
				record: x,
			})
		}
		if shape.right {
			aEnd, bEnd := aStart+quads, bStart+quads
			slot := maskSlot(rec.Mask, max(quads-1, 0))
			if len(rowA) < len(rowB) {
				faces = append(faces, stripFace{[]int{a(aEnd), bb(bEnd + 1), bb(bEnd)}, slot, x})
			} else {
				faces = append(faces, stripFace{[]int{a(aEnd), a(aEnd + 1), bb(bEnd)}, slot, x})
			}
		}
	}

	tol := opts.WeldTolerance
	if tol == 0 {
		tol = DefaultWeldTolerance
	}
	canon, remap := mesh.WeldTolerance(positions, tol)
	for _, src := range canon {
		b.AddVertex(positions[src], mgl32.Vec3{})
	}

	for _, f := range faces {
		verts := make([]mesh.VertexHandle, len(f.verts))
		for i, v := range f.verts {
			verts[i] = mesh.VertexHandle(remap[v])
		}
		if _, err := b.AddFace(verts, f.slot, nil, nil); err != nil {
			warn(m, log, "skipping face", fmt.Errorf("record %d: %w", f.record, err), zap.Int("record", f.record))
		}
	}

	out := b.Mesh()
	mesh.RecomputeNormals(out)
	return out, nil
}

// stripRows reads both rows of a record from the position table, applies
// the record offset and converts them to engine space.
func stripRows(rec StripRecord, geo [][3]int32) (rowA, rowB []mgl32.Vec3, err error) {
	if !rec.Type.Valid() {
		return nil, nil, fmt.Errorf("type %d: %w", uint8(rec.Type), ErrBadStripRecord)
	}
	shape := stripShapes[rec.Type]
	breadth := int(rec.Breadth)
	lenA := breadth + 1 + shape.deltaA
	lenB := breadth + 1 + shape.deltaB
	if quads, _ := StripFaces(rec.Type, breadth); quads < 0 || lenA < 1 || lenB < 1 {
		return nil, nil, fmt.Errorf("%s strip with breadth %d: %w", rec.Type, breadth, ErrBadStripRecord)
	}

	row := func(start, n int) ([]mgl32.Vec3, error) {
		if start+n > len(geo) {
			return nil, fmt.Errorf("row %d+%d beyond %d positions: %w", start, n, len(geo), ErrIndexOutOfRange)
		}
		out := make([]mgl32.Vec3, n)
		for i := range out {
			p := geo[start+i]
			out[i] = TD5Axes.Position([3]float32{
				float32(int64(p[0]) + int64(rec.Offset[0])),
				float32(int64(p[1]) + int64(rec.Offset[1])),
				float32(int64(p[2]) + int64(rec.Offset[2])),
			})
		}
		return out, nil
	}

	if rowA, err = row(int(rec.Index0), lenA); err != nil {
		return nil, nil, err
	}
	if rowB, err = row(int(rec.Index2), lenB); err != nil {
		return nil, nil, err
	}
	return rowA, rowB, nil
}

// maskSlot returns the material slot bit q of mask selects.
func maskSlot(mask uint8, q int) int {
	if q >= 8 {
		return 0
	}
	return int(mask>>q) & 1
}
