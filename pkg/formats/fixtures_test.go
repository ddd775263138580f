package formats

import (
	"bytes"
	"encoding/binary"
)

// put writes each value little-endian.
func put(buf *bytes.Buffer, values ...any) {
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
}

func zeros(buf *bytes.Buffer, n int) {
	buf.Write(make([]byte, n))
}

type testTD5Vertex struct {
	pos    [3]float32
	uv     [2]float32
	color  [4]uint8
	normal [3]float32
}

type testTD5Submesh struct {
	texture uint16
	tris    uint16
	quads   uint16
}

type testTD5 struct {
	billboard bool
	radius    float32
	center    [3]float32
	submeshes []testTD5Submesh
	vertices  []testTD5Vertex
	normals   bool
}

// createTestTD5 lays out a TD5 file the way the encoder does.
func createTestTD5(m testTD5) []byte {
	buf := new(bytes.Buffer)

	vertexOffset := uint32(64 + 16*len(m.submeshes))
	normalOffset := uint32(0)
	if m.normals {
		normalOffset = vertexOffset + uint32(44*len(m.vertices))
	}

	flag := uint8(0)
	if m.billboard {
		flag = 1
	}
	put(buf, uint16(259), flag, uint8(0))
	put(buf, uint32(len(m.submeshes)), uint32(len(m.vertices)))
	put(buf, m.radius, m.center)
	zeros(buf, 16)
	put(buf, uint32(64), vertexOffset, normalOffset)
	zeros(buf, 8)

	for _, s := range m.submeshes {
		zeros(buf, 2)
		put(buf, s.texture)
		zeros(buf, 4)
		put(buf, s.tris, s.quads)
		zeros(buf, 4)
	}
	for _, v := range m.vertices {
		put(buf, v.pos)
		zeros(buf, 16)
		put(buf, v.uv)
		zeros(buf, 4)
		put(buf, v.color)
	}
	if m.normals {
		for _, v := range m.vertices {
			put(buf, v.normal)
			zeros(buf, 4)
		}
	}
	return buf.Bytes()
}

type testTD6Vertex struct {
	pos    [3]float32
	normal [3]float32
	color  [4]uint8
	uv     [2]float32
}

type testTD6Submesh struct {
	texture  uint16
	vertices []testTD6Vertex
	indices  []uint16
}

// createTestTD6 lays out a TD6 file: header, descriptors, then each
// submesh's vertex block followed by its index block.
func createTestTD6(track bool, submeshes []testTD6Submesh) []byte {
	const headerSize, descSize, vertexSize = 52, 32, 32

	total := 0
	for _, s := range submeshes {
		total += len(s.vertices)
	}

	buf := new(bytes.Buffer)
	put(buf, uint16(260), uint8(0), uint8(0))
	put(buf, uint32(len(submeshes)), uint32(total))
	put(buf, float32(50), [3]float32{0, 0, 0})
	zeros(buf, 12+4)
	put(buf, uint32(headerSize), uint32(headerSize+descSize*len(submeshes)))

	offset := headerSize + descSize*len(submeshes)
	for _, s := range submeshes {
		vertexOffset := offset
		indexOffset := vertexOffset + vertexSize*len(s.vertices)
		offset = indexOffset + 2*len(s.indices)

		zeros(buf, 2)
		put(buf, s.texture)
		zeros(buf, 4)
		put(buf, uint32(len(s.vertices)), uint32(len(s.indices)), uint32(vertexOffset), uint32(indexOffset))
		zeros(buf, 8)
	}
	for _, s := range submeshes {
		for _, v := range s.vertices {
			put(buf, v.pos)
			if track {
				zeros(buf, 4)
				put(buf, v.color)
				zeros(buf, 4)
			} else {
				put(buf, v.normal)
			}
			put(buf, v.uv)
		}
		put(buf, s.indices)
	}
	return buf.Bytes()
}

type testTDO3 struct {
	rows      [4][3]float32
	boxMin    [3]float32
	boxMax    [3]float32
	positions [][3]float32
	normals   [][3]float32
	uvs       [][2]float32
	materials []uint32
	faces     [][3]uint32
}

// writeTestTDO3 appends a tagged model body.
func writeTestTDO3(buf *bytes.Buffer, track bool, m testTDO3) {
	put(buf, uint32(1))
	if track {
		zeros(buf, 36)
	} else {
		zeros(buf, 40)
	}
	for _, row := range m.rows {
		put(buf, row)
	}
	zeros(buf, 12)
	put(buf, m.boxMin, m.boxMax)
	put(buf, uint32(0), uint32(0))
	put(buf, uint32(len(m.faces)), uint32(len(m.positions)))
	for _, p := range m.positions {
		put(buf, p)
	}
	for _, n := range m.normals {
		put(buf, n)
	}
	for _, uv := range m.uvs {
		put(buf, uv)
	}
	put(buf, m.materials)
	for _, f := range m.faces {
		put(buf, f)
	}
}

type testStripRecord struct {
	kind    StripType
	mask    uint8
	breadth uint8
	index0  uint16
	index2  uint16
	offset  [3]int32
}

// createTestStrips lays out a strip section: header, position table, records.
func createTestStrips(mainCount uint32, geo [][3]int16, records []testStripRecord) []byte {
	geoOffset := uint32(20)
	stripsOffset := geoOffset + uint32(6*len(geo))

	buf := new(bytes.Buffer)
	put(buf, stripsOffset, mainCount, geoOffset, uint32(len(geo)), uint32(len(records)))
	for _, p := range geo {
		put(buf, p)
	}
	for _, r := range records {
		put(buf, uint8(r.kind), uint8(0), r.mask, r.breadth)
		put(buf, r.index0, r.index2, uint16(0), uint16(0))
		put(buf, r.offset)
	}
	return buf.Bytes()
}

// stripRowsGeo returns a position table holding two parallel rows: row A
// at indices [0,n) and row B at [n,2n), 100 units apart.
func stripRowsGeo(n int) [][3]int16 {
	geo := make([][3]int16, 0, 2*n)
	for i := 0; i < n; i++ {
		geo = append(geo, [3]int16{int16(i * 100), 0, 0})
	}
	for i := 0; i < n; i++ {
		geo = append(geo, [3]int16{int16(i * 100), 0, 100})
	}
	return geo
}
