package layout

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// 该文件定义卡片布局的数据模型：布局阶段产出 Plan，渲染阶段按顺序执行其中的 Op。
// 所有坐标都是逻辑单位（未乘超采样倍数）。

// Color 采用 0-255 的非预乘 RGBA 数值。
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

// WithAlpha 返回替换透明度后的颜色。
func (c Color) WithAlpha(a uint8) Color {
	c.A = a
	return c
}

// Hex 以 #rrggbbaa（不透明时为 #rrggbb）形式输出。
func (c Color) Hex() string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Transparent is fully transparent black.
var Transparent = Color{}

// ParseHexColor 解析 #rgb、#rrggbb 与 #rrggbbaa。
func ParseHexColor(s string) (Color, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if raw == "" {
		return Color{}, fmt.Errorf("颜色为空")
	}
	if len(raw) == 3 {
		raw = string([]byte{raw[0], raw[0], raw[1], raw[1], raw[2], raw[2]})
	}
	if len(raw) == 6 {
		raw += "ff"
	}
	if len(raw) != 8 {
		return Color{}, fmt.Errorf("无效的颜色 %q", s)
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("无效的颜色 %q", s)
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// MustHex is ParseHexColor for package-level constants.
func MustHex(s string) Color {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Point 是逻辑坐标系中的一个点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect 宽高始终非负。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Inset 向内收缩 d，宽高不会小于 0。
func (r Rect) Inset(d float64) Rect {
	out := Rect{X: r.X + d, Y: r.Y + d, Width: r.Width - 2*d, Height: r.Height - 2*d}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// Font weights accepted by FontSpec.
const (
	WeightRegular = 400
	WeightMedium  = 500
	WeightBold    = 700
	WeightBlack   = 900
)

// FontSpec 描述一次绘制所用的字体；Families 按优先级排列。
type FontSpec struct {
	Families []string `json:"families"`
	Size     float64  `json:"size"`
	Weight   int      `json:"weight"`
	Style    string   `json:"style,omitempty"` // normal | italic
}

// With 返回修改字号与字重后的副本。
func (f FontSpec) With(size float64, weight int) FontSpec {
	f.Size = size
	f.Weight = weight
	f.Families = append([]string(nil), f.Families...)
	return f
}

// Line 表示折行后的一行文本与其测量宽度，创建后不再修改。
type Line struct {
	Content string  `json:"content"`
	Width   float64 `json:"width"`
}

// TextBlock 持有输入文本及折行结果。
type TextBlock struct {
	Text       string   `json:"text"`
	Font       FontSpec `json:"font"`
	MaxWidth   float64  `json:"maxWidth"`
	LineHeight float64  `json:"lineHeight"`
	Lines      []Line   `json:"lines"`
}

// Height 为行数 × 行高；行数至少为 1。
func (b *TextBlock) Height() float64 {
	return float64(len(b.Lines)) * b.LineHeight
}

// OpKind 标识绘制操作的类型。
type OpKind string

const (
	OpFillPath   OpKind = "fill-path"
	OpStrokePath OpKind = "stroke-path"
	OpDrawBitmap OpKind = "draw-bitmap"
	OpDrawText   OpKind = "draw-text"
)

// Shadow 只作用于所在的 Op。
type Shadow struct {
	Color   Color   `json:"color"`
	Blur    float64 `json:"blur"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// TextRun 是一段单行文本，X/Y 为基线起点。
type TextRun struct {
	Content       string   `json:"content"`
	Font          FontSpec `json:"font"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	LetterSpacing float64  `json:"letterSpacing,omitempty"`
}

// Op 携带完整的样式、裁剪与阴影，渲染器不会在 Op 之间保留任何状态。
type Op struct {
	Kind        OpKind      `json:"kind"`
	Path        *Path       `json:"path,omitempty"`
	Paint       Paint       `json:"paint"`
	StrokeWidth float64     `json:"strokeWidth,omitempty"`
	Clip        *Path       `json:"clip,omitempty"`
	Shadow      *Shadow     `json:"shadow,omitempty"`
	Bitmap      image.Image `json:"-"`
	Dest        *Rect       `json:"dest,omitempty"`
	Text        *TextRun    `json:"text,omitempty"`
}

// Plan 是按绘制顺序排列的操作序列，构建完成后不可变。
type Plan struct {
	Template string  `json:"template"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Scale    float64 `json:"scale"`
	Ops      []Op    `json:"ops"`
}

// PixelSize 返回超采样后的画布像素尺寸。
func (p *Plan) PixelSize() (int, int) {
	return ScaledExtent(p.Width, p.Scale), ScaledExtent(p.Height, p.Scale)
}

// planBuilder 按顺序追加 Op，供各模板布局使用。
type planBuilder struct {
	plan Plan
}

func newPlanBuilder(template string, width, height, scale float64) *planBuilder {
	return &planBuilder{plan: Plan{Template: template, Width: width, Height: height, Scale: scale}}
}

func (b *planBuilder) fill(p *Path, paint Paint, shadow *Shadow) {
	b.plan.Ops = append(b.plan.Ops, Op{Kind: OpFillPath, Path: p, Paint: paint, Shadow: shadow})
}

func (b *planBuilder) stroke(p *Path, paint Paint, width float64) {
	b.plan.Ops = append(b.plan.Ops, Op{Kind: OpStrokePath, Path: p, Paint: paint, StrokeWidth: width})
}

// bitmap 的阴影跟随裁剪后位图的不透明像素。
func (b *planBuilder) bitmap(img image.Image, dest Rect, clip *Path, shadow *Shadow) {
	d := dest
	b.plan.Ops = append(b.plan.Ops, Op{Kind: OpDrawBitmap, Bitmap: img, Dest: &d, Clip: clip, Shadow: shadow})
}

func (b *planBuilder) text(run TextRun, c Color, shadow *Shadow) {
	r := run
	b.plan.Ops = append(b.plan.Ops, Op{Kind: OpDrawText, Text: &r, Paint: Solid(c), Shadow: shadow})
}

func (b *planBuilder) build() *Plan {
	out := b.plan
	return &out
}
