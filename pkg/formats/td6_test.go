package formats

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func td6Vertex(x, y, z float32) testTD6Vertex {
	return testTD6Vertex{
		pos:    [3]float32{x, y, z},
		normal: testUp,
		color:  testGreen,
		uv:     [2]float32{0.25, 0.75},
	}
}

// twoSubmeshTD6 has two triangles in separate submeshes sharing the source
// vertex (100,0,0).
func twoSubmeshTD6() []testTD6Submesh {
	return []testTD6Submesh{
		{
			texture:  1,
			vertices: []testTD6Vertex{td6Vertex(0, 0, 0), td6Vertex(100, 0, 0), td6Vertex(0, 0, 100)},
			indices:  []uint16{0, 1, 2},
		},
		{
			texture:  9,
			vertices: []testTD6Vertex{td6Vertex(100, 0, 0), td6Vertex(200, 0, 0), td6Vertex(200, 0, 100)},
			indices:  []uint16{0, 1, 2},
		},
	}
}

func TestDecodeTD6_Standalone(t *testing.T) {
	data := createTestTD6(false, twoSubmeshTD6())

	m, err := DecodeTD6(bytes.NewReader(data), false, Options{Name: "car"})
	if err != nil {
		t.Fatalf("DecodeTD6 failed: %v", err)
	}

	if m.TriangleCount() != 2 {
		t.Fatalf("expected 2 triangles, got %d", m.TriangleCount())
	}
	if len(m.Vertices) != 5 {
		t.Errorf("expected 5 welded vertices across submeshes, got %d", len(m.Vertices))
	}
	if m.Materials[0].TextureID != 1 || m.Materials[1].TextureID != 9 {
		t.Errorf("unexpected materials: %+v", m.Materials)
	}
	if !m.HasNormals || m.HasColors {
		t.Errorf("expected normals without colors, got HasNormals=%v HasColors=%v", m.HasNormals, m.HasColors)
	}

	// Stored (0,1,2) is read as (2,1,0).
	tri := m.Submeshes[0].Triangles[0]
	want := []mgl32.Vec3{{0, -1, 0}, {1, 0, 0}, {0, 0, 0}}
	for i, idx := range tri.Indices {
		if got := m.Vertices[idx].Position; got != want[i] {
			t.Errorf("corner %d: expected %v, got %v", i, want[i], got)
		}
	}
	if tri.Corners[0].UV != (mgl32.Vec2{0.25, 0.25}) {
		t.Errorf("expected flipped UV, got %v", tri.Corners[0].UV)
	}
	if tri.Corners[0].Color != [4]uint8{255, 255, 255, 255} {
		t.Errorf("standalone corners should default to white, got %v", tri.Corners[0].Color)
	}

	shared := m.Submeshes[1].Triangles[0].Indices[2]
	if shared != tri.Indices[1] {
		t.Errorf("vertex shared across submeshes not welded: %d vs %d", shared, tri.Indices[1])
	}
}

func TestDecodeTD6_Track(t *testing.T) {
	data := createTestTD6(true, twoSubmeshTD6())

	m, err := DecodeTD6(bytes.NewReader(data), true, Options{})
	if err != nil {
		t.Fatalf("DecodeTD6 failed: %v", err)
	}
	if m.HasNormals || !m.HasColors {
		t.Errorf("expected colors without stored normals, got HasNormals=%v HasColors=%v", m.HasNormals, m.HasColors)
	}
	if m.TriangleCount() != 2 {
		t.Fatalf("expected 2 triangles, got %d", m.TriangleCount())
	}

	tri := m.Submeshes[0].Triangles[0]
	if tri.Corners[1].Color != testGreen {
		t.Errorf("expected track vertex color, got %v", tri.Corners[1].Color)
	}
	for i, v := range m.Vertices {
		if l := v.Normal.Len(); l < 0.99 || l > 1.01 {
			t.Errorf("vertex %d: expected recomputed unit normal, got %v", i, v.Normal)
		}
	}
}

func TestDecodeTD6_IndexOutOfRange(t *testing.T) {
	subs := twoSubmeshTD6()
	subs[1].indices = []uint16{0, 1, 7}

	m, err := DecodeTD6(bytes.NewReader(createTestTD6(false, subs)), false, Options{})
	if err != nil {
		t.Fatalf("DecodeTD6 failed: %v", err)
	}
	if m.TriangleCount() != 1 {
		t.Errorf("expected the bad triangle to be skipped, got %d triangles", m.TriangleCount())
	}
	if !errors.Is(m.WarningErr(), ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange warning, got %v", m.WarningErr())
	}
}

func TestDecodeTD6_BadMagic(t *testing.T) {
	data := createTestTD5(triAndQuadTD5())
	_, err := DecodeTD6(bytes.NewReader(data), false, Options{})
	if !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
}
