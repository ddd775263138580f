package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// WeldKey identifies a vertex by the exact bit patterns of its position and
// normal. Only bit-identical pairs share a key.
type WeldKey [6]uint32

// KeyOf returns the identity key for a position/normal pair.
func KeyOf(pos, normal mgl32.Vec3) WeldKey {
	return WeldKey{
		math.Float32bits(pos[0]), math.Float32bits(pos[1]), math.Float32bits(pos[2]),
		math.Float32bits(normal[0]), math.Float32bits(normal[1]), math.Float32bits(normal[2]),
	}
}

// Welder assigns welded indices to a stream of vertices. The first occurrence
// of a key becomes canonical and welded indices follow first-occurrence order.
type Welder struct {
	index map[WeldKey]int
	canon []int
	remap []int
}

// NewWelder creates a welder sized for n source vertices.
func NewWelder(n int) *Welder {
	return &Welder{
		index: make(map[WeldKey]int, n),
		canon: make([]int, 0, n),
		remap: make([]int, 0, n),
	}
}

// Add feeds the next source vertex and returns its welded index. isNew reports
// whether the vertex started a new welded vertex.
func (w *Welder) Add(pos, normal mgl32.Vec3) (welded int, isNew bool) {
	key := KeyOf(pos, normal)
	if idx, ok := w.index[key]; ok {
		w.remap = append(w.remap, idx)
		return idx, false
	}
	idx := len(w.canon)
	w.index[key] = idx
	w.canon = append(w.canon, len(w.remap))
	w.remap = append(w.remap, idx)
	return idx, true
}

// Canonical returns, per welded vertex, the source index of its first occurrence.
func (w *Welder) Canonical() []int {
	return w.canon
}

// Remap returns, per source vertex, its welded index.
func (w *Welder) Remap() []int {
	return w.remap
}

// Weld deduplicates vertices by exact (position, normal) identity. normals may
// be nil, in which case every normal is the zero vector.
func Weld(positions, normals []mgl32.Vec3) (canon, remap []int) {
	w := NewWelder(len(positions))
	for i, p := range positions {
		var n mgl32.Vec3
		if normals != nil {
			n = normals[i]
		}
		w.Add(p, n)
	}
	return w.Canonical(), w.Remap()
}

type cell [3]int64

// WeldTolerance merges positions closer than tol to an earlier position.
// Normals are ignored. A non-positive tolerance merges only identical positions.
func WeldTolerance(positions []mgl32.Vec3, tol float32) (canon, remap []int) {
	if tol <= 0 {
		return Weld(positions, nil)
	}

	grid := make(map[cell][]int, len(positions))
	canon = make([]int, 0, len(positions))
	remap = make([]int, len(positions))
	tol2 := tol * tol
	inv := 1 / float64(tol)

	cellOf := func(p mgl32.Vec3) cell {
		return cell{
			int64(math.Floor(float64(p[0]) * inv)),
			int64(math.Floor(float64(p[1]) * inv)),
			int64(math.Floor(float64(p[2]) * inv)),
		}
	}

	for i, p := range positions {
		c := cellOf(p)
		match := -1
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, w := range grid[cell{c[0] + dx, c[1] + dy, c[2] + dz}] {
						if match >= 0 && w >= match {
							continue
						}
						d := positions[canon[w]].Sub(p)
						if d.Dot(d) <= tol2 {
							match = w
						}
					}
				}
			}
		}
		if match >= 0 {
			remap[i] = match
			continue
		}
		idx := len(canon)
		canon = append(canon, i)
		grid[c] = append(grid[c], idx)
		remap[i] = idx
	}
	return canon, remap
}
