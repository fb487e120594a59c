package layout

import "math"

// Stop 是渐变的一个色标，Offset 取值 [0,1]，按非递减顺序排列。
type Stop struct {
	Offset float64 `json:"offset"`
	Color  Color   `json:"color"`
}

// LinearGradient 沿 From→To 方向插值，两端以外取端点颜色。
type LinearGradient struct {
	From  Point  `json:"from"`
	To    Point  `json:"to"`
	Stops []Stop `json:"stops"`
}

// RadialGradient 在两个圆之间插值（与 HTML canvas createRadialGradient 语义一致）。
type RadialGradient struct {
	C0    Point   `json:"c0"`
	R0    float64 `json:"r0"`
	C1    Point   `json:"c1"`
	R1    float64 `json:"r1"`
	Stops []Stop  `json:"stops"`
}

// Paint 为纯色或渐变；Linear 与 Radial 同时为空时使用 Color。
type Paint struct {
	Color  Color           `json:"color"`
	Linear *LinearGradient `json:"linear,omitempty"`
	Radial *RadialGradient `json:"radial,omitempty"`
}

// Solid returns a flat color paint.
func Solid(c Color) Paint { return Paint{Color: c} }

// Linear returns a linear gradient paint.
func Linear(from, to Point, stops ...Stop) Paint {
	return Paint{Linear: &LinearGradient{From: from, To: to, Stops: stops}}
}

// Radial returns a two-circle radial gradient paint.
func Radial(c0 Point, r0 float64, c1 Point, r1 float64, stops ...Stop) Paint {
	return Paint{Radial: &RadialGradient{C0: c0, R0: r0, C1: c1, R1: r1, Stops: stops}}
}

// IsSolid reports whether the paint is a flat color.
func (p Paint) IsSolid() bool { return p.Linear == nil && p.Radial == nil }

// At 返回逻辑坐标 (x, y) 处的颜色（非预乘）。
func (p Paint) At(x, y float64) Color {
	switch {
	case p.Linear != nil:
		return p.Linear.At(x, y)
	case p.Radial != nil:
		return p.Radial.At(x, y)
	default:
		return p.Color
	}
}

// At evaluates the gradient at (x, y).
func (g *LinearGradient) At(x, y float64) Color {
	dx, dy := g.To.X-g.From.X, g.To.Y-g.From.Y
	den := dx*dx + dy*dy
	if den == 0 {
		return Transparent
	}
	t := ((x-g.From.X)*dx + (y-g.From.Y)*dy) / den
	return colorAtStops(g.Stops, t)
}

// At evaluates the gradient at (x, y). 取满足 r(t) >= 0 的最大 t；无解处透明。
func (g *RadialGradient) At(x, y float64) Color {
	cdx, cdy := g.C1.X-g.C0.X, g.C1.Y-g.C0.Y
	pdx, pdy := x-g.C0.X, y-g.C0.Y
	dr := g.R1 - g.R0

	a := cdx*cdx + cdy*cdy - dr*dr
	b := pdx*cdx + pdy*cdy + g.R0*dr
	c := pdx*pdx + pdy*pdy - g.R0*g.R0

	valid := func(t float64) bool { return g.R0+t*dr >= 0 }

	if math.Abs(a) < 1e-12 {
		if b == 0 {
			return Transparent
		}
		t := c / (2 * b)
		if !valid(t) {
			return Transparent
		}
		return colorAtStops(g.Stops, t)
	}
	disc := b*b - a*c
	if disc < 0 {
		return Transparent
	}
	sq := math.Sqrt(disc)
	t1, t2 := (b+sq)/a, (b-sq)/a
	if t1 < t2 {
		t1, t2 = t2, t1
	}
	switch {
	case valid(t1):
		return colorAtStops(g.Stops, t1)
	case valid(t2):
		return colorAtStops(g.Stops, t2)
	default:
		return Transparent
	}
}

// colorAtStops 在预乘空间中插值，t 超出范围时夹取到端点。
func colorAtStops(stops []Stop, t float64) Color {
	if len(stops) == 0 {
		return Transparent
	}
	if t <= stops[0].Offset {
		return stops[0].Color
	}
	last := stops[len(stops)-1]
	if t >= last.Offset {
		return last.Color
	}
	for i := 1; i < len(stops); i++ {
		s0, s1 := stops[i-1], stops[i]
		if t > s1.Offset {
			continue
		}
		span := s1.Offset - s0.Offset
		if span <= 0 {
			return s1.Color
		}
		return lerpPremultiplied(s0.Color, s1.Color, (t-s0.Offset)/span)
	}
	return last.Color
}

func lerpPremultiplied(c0, c1 Color, f float64) Color {
	a0, a1 := float64(c0.A)/255, float64(c1.A)/255
	a := a0 + (a1-a0)*f
	if a <= 0 {
		return Transparent
	}
	ch := func(v0, v1 uint8) uint8 {
		p0 := float64(v0) * a0
		p1 := float64(v1) * a1
		return clamp8((p0 + (p1-p0)*f) / a)
	}
	return Color{
		R: ch(c0.R, c1.R),
		G: ch(c0.G, c1.G),
		B: ch(c0.B, c1.B),
		A: clamp8(a * 255),
	}
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
