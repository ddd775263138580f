package formats

import "github.com/go-gl/mathgl/mgl32"

// axisMap maps a source vector into engine space: engine[i] = sign[i] * src[from[i]].
type axisMap struct {
	from [3]int
	sign [3]float32
}

func (a axisMap) apply(v [3]float32) mgl32.Vec3 {
	return mgl32.Vec3{
		a.sign[0] * v[a.from[0]],
		a.sign[1] * v[a.from[1]],
		a.sign[2] * v[a.from[2]],
	}
}

func (a axisMap) invert(v mgl32.Vec3) [3]float32 {
	var out [3]float32
	for i := 0; i < 3; i++ {
		out[a.from[i]] = a.sign[i] * v[i]
	}
	return out
}

// Axes converts between a format's source coordinate system (Y-up) and the
// engine coordinate system (Z-up). Inverse methods are the exact algebraic
// inverses used by encoders.
type Axes struct {
	pos   axisMap
	norm  axisMap
	scale float64 // Positions only
	flipV bool
}

// yUpToZUp swaps Y and Z and negates the new Y to keep handedness.
var yUpToZUp = axisMap{from: [3]int{0, 2, 1}, sign: [3]float32{1, -1, 1}}

// TD5Axes is the coordinate system of TD5 models and collision strips.
var TD5Axes = Axes{
	pos:   yUpToZUp,
	norm:  yUpToZUp,
	scale: 0.01,
	flipV: true,
}

// TD6Axes matches TD5.
var TD6Axes = TD5Axes

// TDO3Axes mirrors X as well and keeps the authored scale and UVs.
var TDO3Axes = Axes{
	pos:   axisMap{from: [3]int{0, 2, 1}, sign: [3]float32{-1, -1, 1}},
	norm:  axisMap{from: [3]int{0, 2, 1}, sign: [3]float32{-1, -1, 1}},
	scale: 1,
}

// Position converts a source position into engine space.
func (a Axes) Position(v [3]float32) mgl32.Vec3 {
	p := a.pos.apply(v)
	if a.scale != 1 {
		for i := range p {
			p[i] = float32(float64(p[i]) * a.scale)
		}
	}
	return p
}

// Normal converts a source normal into engine space.
func (a Axes) Normal(n [3]float32) mgl32.Vec3 {
	return a.norm.apply(n)
}

// UV converts a source texture coordinate.
func (a Axes) UV(u, v float32) mgl32.Vec2 {
	if a.flipV {
		v = 1 - v
	}
	return mgl32.Vec2{u, v}
}

// SourcePosition is the inverse of Position.
func (a Axes) SourcePosition(p mgl32.Vec3) [3]float32 {
	if a.scale != 1 {
		for i := range p {
			p[i] = float32(float64(p[i]) / a.scale)
		}
	}
	return a.pos.invert(p)
}

// SourceNormal is the inverse of Normal.
func (a Axes) SourceNormal(n mgl32.Vec3) [3]float32 {
	return a.norm.invert(n)
}

// SourceUV is the inverse of UV.
func (a Axes) SourceUV(uv mgl32.Vec2) (u, v float32) {
	u, v = uv[0], uv[1]
	if a.flipV {
		v = 1 - v
	}
	return u, v
}
