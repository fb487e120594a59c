package layout

import "math"

// SegmentKind 对应 SVG 路径命令。
type SegmentKind string

const (
	SegMoveTo SegmentKind = "M"
	SegLineTo SegmentKind = "L"
	SegQuadTo SegmentKind = "Q"
	SegCubeTo SegmentKind = "C"
	SegClose  SegmentKind = "Z"
)

// Segment 的 Points 依次为控制点与终点（Q 为 2 个，C 为 3 个）。
type Segment struct {
	Kind   SegmentKind `json:"kind"`
	Points []Point     `json:"points,omitempty"`
}

// Path 是逻辑坐标下的矢量路径，坐标均为绝对值。
type Path struct {
	Segments []Segment `json:"segments"`
}

func (p *Path) MoveTo(x, y float64) *Path {
	p.Segments = append(p.Segments, Segment{Kind: SegMoveTo, Points: []Point{{x, y}}})
	return p
}

func (p *Path) LineTo(x, y float64) *Path {
	p.Segments = append(p.Segments, Segment{Kind: SegLineTo, Points: []Point{{x, y}}})
	return p
}

func (p *Path) QuadTo(cx, cy, x, y float64) *Path {
	p.Segments = append(p.Segments, Segment{Kind: SegQuadTo, Points: []Point{{cx, cy}, {x, y}}})
	return p
}

func (p *Path) CubeTo(c1x, c1y, c2x, c2y, x, y float64) *Path {
	p.Segments = append(p.Segments, Segment{Kind: SegCubeTo, Points: []Point{{c1x, c1y}, {c2x, c2y}, {x, y}}})
	return p
}

func (p *Path) Close() *Path {
	p.Segments = append(p.Segments, Segment{Kind: SegClose})
	return p
}

// Empty reports whether the path has no drawable segments.
func (p *Path) Empty() bool { return p == nil || len(p.Segments) == 0 }

// Bounds 返回所有点（含控制点）的外接矩形，是实际几何的保守上界。
func (p *Path) Bounds() Rect {
	if p.Empty() {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, seg := range p.Segments {
		for _, pt := range seg.Points {
			minX = math.Min(minX, pt.X)
			minY = math.Min(minY, pt.Y)
			maxX = math.Max(maxX, pt.X)
			maxY = math.Max(maxY, pt.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// RectPath 返回轴对齐矩形。
func RectPath(r Rect) *Path {
	p := &Path{}
	return p.MoveTo(r.X, r.Y).
		LineTo(r.Right(), r.Y).
		LineTo(r.Right(), r.Bottom()).
		LineTo(r.X, r.Bottom()).
		Close()
}

// ClampRadius 将圆角限制在 [0, 短边/2]，避免路径自相交。
func ClampRadius(r Rect, radius float64) float64 {
	limit := math.Min(r.Width, r.Height) / 2
	if radius > limit {
		radius = limit
	}
	if radius < 0 {
		radius = 0
	}
	return radius
}

// Squircle 由 4 条直边与 4 段二次曲线圆角组成，顺时针闭合。
func Squircle(r Rect, radius float64) *Path {
	rad := ClampRadius(r, radius)
	x, y, w, h := r.X, r.Y, r.Width, r.Height
	p := &Path{}
	return p.MoveTo(x+rad, y).
		LineTo(x+w-rad, y).
		QuadTo(x+w, y, x+w, y+rad).
		LineTo(x+w, y+h-rad).
		QuadTo(x+w, y+h, x+w-rad, y+h).
		LineTo(x+rad, y+h).
		QuadTo(x, y+h, x, y+h-rad).
		LineTo(x, y+rad).
		QuadTo(x, y, x+rad, y).
		Close()
}

// circleKappa 是用三次贝塞尔逼近四分之一圆的控制点系数。
const circleKappa = 0.5522847498

// CirclePath 以四段三次曲线逼近圆。
func CirclePath(center Point, radius float64) *Path {
	cx, cy, r := center.X, center.Y, radius
	k := r * circleKappa
	p := &Path{}
	return p.MoveTo(cx+r, cy).
		CubeTo(cx+r, cy+k, cx+k, cy+r, cx, cy+r).
		CubeTo(cx-k, cy+r, cx-r, cy+k, cx-r, cy).
		CubeTo(cx-r, cy-k, cx-k, cy-r, cx, cy-r).
		CubeTo(cx+k, cy-r, cx+r, cy-k, cx+r, cy).
		Close()
}

// 对勾图形在 22 单位设计网格中的 6 个顶点，网格中心为 (11, 11)。
var checkmarkGrid = [6]Point{
	{9.662, 14.85},
	{6.233, 11.422},
	{7.526, 10.12},
	{9.598, 12.192},
	{13.998, 7.398},
	{15.345, 8.644},
}

const checkmarkGridSize = 22.0

// Checkmark 将设计网格中的对勾缩放到 size 大小并以 center 为中心。
func Checkmark(center Point, size float64) *Path {
	sf := size / checkmarkGridSize
	half := checkmarkGridSize / 2
	p := &Path{}
	for i, pt := range checkmarkGrid {
		x := center.X + (pt.X-half)*sf
		y := center.Y + (pt.Y-half)*sf
		if i == 0 {
			p.MoveTo(x, y)
			continue
		}
		p.LineTo(x, y)
	}
	return p.Close()
}
