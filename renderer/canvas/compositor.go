package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	xdraw "golang.org/x/image/draw"

	"github.com/ByLCY/shinapi/layout"
)

// surface 是单次渲染独占的像素缓冲区，尺寸为超采样后的画布大小。
//
// 每个 Op 都在独立的 canvas 上栅格化为覆盖率蒙版，再以 Over 合成到 dst，
// 因此阴影与裁剪只作用于当前 Op，不会泄漏到后续操作。
type surface struct {
	r      *Renderer
	dst    *image.RGBA
	width  float64 // 逻辑宽度
	height float64 // 逻辑高度
	scale  float64
}

func newSurface(r *Renderer, plan *layout.Plan) (*surface, error) {
	if plan.Scale < 1 {
		return nil, fmt.Errorf("无效的超采样倍数 %g", plan.Scale)
	}
	w, h := plan.PixelSize()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("无效的画布尺寸 %gx%g", plan.Width, plan.Height)
	}
	return &surface{
		r:      r,
		dst:    image.NewRGBA(image.Rect(0, 0, w, h)),
		width:  plan.Width,
		height: plan.Height,
		scale:  plan.Scale,
	}, nil
}

func (s *surface) apply(op layout.Op) error {
	var clip *image.Alpha
	if !op.Clip.Empty() {
		clip = s.pathMask(op.Clip, 0)
	}
	switch op.Kind {
	case layout.OpFillPath, layout.OpStrokePath:
		if op.Path.Empty() {
			return nil
		}
		width := 0.0
		if op.Kind == layout.OpStrokePath {
			if op.StrokeWidth <= 0 {
				return fmt.Errorf("描边宽度必须大于 0")
			}
			width = op.StrokeWidth
		}
		mask := s.pathMask(op.Path, width)
		area := s.pixelRect(op.Path.Bounds(), width/2)
		s.paintMasked(mask, clip, op.Paint, op.Shadow, area)
		return nil
	case layout.OpDrawText:
		if op.Text == nil {
			return fmt.Errorf("draw-text 缺少文本")
		}
		if op.Text.Content == "" {
			return nil
		}
		mask, err := s.textMask(op.Text)
		if err != nil {
			return err
		}
		s.paintMasked(mask, clip, op.Paint, op.Shadow, alphaBounds(mask))
		return nil
	case layout.OpDrawBitmap:
		if op.Bitmap == nil || op.Dest == nil {
			return fmt.Errorf("draw-bitmap 缺少位图或目标区域")
		}
		s.drawBitmap(op.Bitmap, *op.Dest, clip, op.Shadow)
		return nil
	default:
		return fmt.Errorf("未知的绘制操作 %q", op.Kind)
	}
}

// newCanvas 返回与逻辑画布等大的 canvas。使用默认的 CartesianI 坐标系，
// y 轴翻转由 flipY 统一处理。
func (s *surface) newCanvas() (*canvas.Canvas, *canvas.Context) {
	c := canvas.New(s.width, s.height)
	ctx := canvas.NewContext(c)
	return c, ctx
}

func (s *surface) flipY(y float64) float64 { return s.height - y }

// rasterMu 串行化所有 Renderer 的栅格化：canvas 的路径求交会写包级变量。
var rasterMu sync.Mutex

// rasterMask 栅格化 canvas 并取其 alpha 通道作为蒙版。
func (s *surface) rasterMask(c *canvas.Canvas) *image.Alpha {
	rasterMu.Lock()
	img := rasterizer.Draw(c, canvas.DPMM(s.scale), canvas.DefaultColorSpace)
	rasterMu.Unlock()
	bounds := s.dst.Bounds()
	mask := image.NewAlpha(bounds)
	area := bounds.Intersect(img.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		src := img.Pix[img.PixOffset(area.Min.X, y):]
		dst := mask.Pix[mask.PixOffset(area.Min.X, y):]
		for x := 0; x < area.Dx(); x++ {
			dst[x] = src[x*4+3]
		}
	}
	return mask
}

// pathMask 返回路径在像素空间中的覆盖率；strokeWidth > 0 时为描边。
func (s *surface) pathMask(p *layout.Path, strokeWidth float64) *image.Alpha {
	c, ctx := s.newCanvas()
	if strokeWidth > 0 {
		ctx.SetFillColor(canvas.Transparent)
		ctx.SetStrokeColor(canvas.White)
		ctx.SetStrokeWidth(strokeWidth)
	} else {
		ctx.SetFillColor(canvas.White)
		ctx.SetStrokeColor(canvas.Transparent)
	}
	ctx.DrawPath(0, 0, s.toCanvasPath(p))
	return s.rasterMask(c)
}

func (s *surface) toCanvasPath(p *layout.Path) *canvas.Path {
	out := &canvas.Path{}
	for _, seg := range p.Segments {
		pt := func(i int) (float64, float64) {
			return seg.Points[i].X, s.flipY(seg.Points[i].Y)
		}
		switch seg.Kind {
		case layout.SegMoveTo:
			out.MoveTo(pt(0))
		case layout.SegLineTo:
			out.LineTo(pt(0))
		case layout.SegQuadTo:
			cx, cy := pt(0)
			x, y := pt(1)
			out.QuadTo(cx, cy, x, y)
		case layout.SegCubeTo:
			c1x, c1y := pt(0)
			c2x, c2y := pt(1)
			x, y := pt(2)
			out.CubeTo(c1x, c1y, c2x, c2y, x, y)
		case layout.SegClose:
			out.Close()
		}
	}
	return out
}

// textMask 以基线 (X, Y) 绘制单行文本；LetterSpacing > 0 时逐字绘制。
func (s *surface) textMask(run *layout.TextRun) (*image.Alpha, error) {
	s.r.textMu.Lock()
	defer s.r.textMu.Unlock()

	face, err := s.r.face(run.Font, canvas.White)
	if err != nil {
		return nil, err
	}
	c, ctx := s.newCanvas()
	baseline := s.flipY(run.Y)
	if run.LetterSpacing == 0 {
		ctx.DrawText(run.X, baseline, canvas.NewTextLine(face, run.Content, canvas.Left))
	} else {
		x := run.X
		for i, w := 0, 0; i < len(run.Content); i += w {
			_, w = utf8.DecodeRuneInString(run.Content[i:])
			glyph := run.Content[i : i+w]
			ctx.DrawText(x, baseline, canvas.NewTextLine(face, glyph, canvas.Left))
			x += face.TextWidth(glyph) + run.LetterSpacing
		}
	}
	return s.rasterMask(c), nil
}

// pixelRect 将逻辑矩形（外扩 pad）换算为与画布相交的像素矩形。
func (s *surface) pixelRect(r layout.Rect, pad float64) image.Rectangle {
	x0 := int(math.Floor((r.X - pad) * s.scale))
	y0 := int(math.Floor((r.Y - pad) * s.scale))
	x1 := int(math.Ceil((r.Right() + pad) * s.scale))
	y1 := int(math.Ceil((r.Bottom() + pad) * s.scale))
	return image.Rect(x0, y0, x1, y1).Intersect(s.dst.Bounds())
}

// paintMasked 先绘制阴影，再以 paint 填充 mask 覆盖的区域。
func (s *surface) paintMasked(mask, clip *image.Alpha, paint layout.Paint, shadow *layout.Shadow, area image.Rectangle) {
	if clip != nil {
		mask = multiplyMask(mask, clip)
	}
	if shadow != nil && shadow.Color.A > 0 {
		s.drawShadow(shadowSource(mask, paint), clip, *shadow, area)
	}
	if area.Empty() {
		return
	}
	src := s.paintSource(paint, area)
	draw.DrawMask(s.dst, area, src, area.Min, mask, area.Min, draw.Over)
}

// paintSource 返回纯色源或在 area 内按像素中心采样的渐变源。
func (s *surface) paintSource(paint layout.Paint, area image.Rectangle) image.Image {
	if paint.IsSolid() {
		return image.NewUniform(paint.Color)
	}
	img := image.NewNRGBA(area)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		ly := (float64(y) + 0.5) / s.scale
		for x := area.Min.X; x < area.Max.X; x++ {
			c := paint.At((float64(x)+0.5)/s.scale, ly)
			img.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}
	return img
}

// shadowSource 返回产生阴影的 alpha：覆盖率 × 纯色的透明度。
func shadowSource(mask *image.Alpha, paint layout.Paint) *image.Alpha {
	if !paint.IsSolid() || paint.Color.A == 0xff {
		return mask
	}
	out := image.NewAlpha(mask.Bounds())
	a := uint32(paint.Color.A)
	for i, v := range mask.Pix {
		out.Pix[i] = uint8((uint32(v)*a + 127) / 255)
	}
	return out
}

// drawShadow 平移、模糊并着色 alpha 后以 Over 合成；blur 与偏移均为逻辑单位。
func (s *surface) drawShadow(alpha, clip *image.Alpha, sh layout.Shadow, area image.Rectangle) {
	dx := int(math.Round(sh.OffsetX * s.scale))
	dy := int(math.Round(sh.OffsetY * s.scale))
	sigma := sh.Blur / 2 * s.scale
	spread := int(math.Ceil(sigma * 3))

	region := area.Add(image.Pt(dx, dy)).Inset(-spread).Intersect(s.dst.Bounds())
	if region.Empty() {
		return
	}
	tinted := image.NewNRGBA(region)
	ca := uint32(sh.Color.A)
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			sx, sy := x-dx, y-dy
			if !(image.Point{X: sx, Y: sy}).In(alpha.Rect) {
				continue
			}
			v := uint32(alpha.Pix[alpha.PixOffset(sx, sy)])
			if v == 0 {
				continue
			}
			tinted.SetNRGBA(x, y, color.NRGBA{
				R: sh.Color.R, G: sh.Color.G, B: sh.Color.B,
				A: uint8((v*ca + 127) / 255),
			})
		}
	}

	var layer image.Image = tinted
	origin := region.Min
	if sigma > 0 {
		// imaging 返回以 (0,0) 为原点的新图像。
		layer = imaging.Blur(tinted, sigma)
		origin = image.Point{}
	}
	if clip != nil {
		draw.DrawMask(s.dst, region, layer, origin, clip, region.Min, draw.Over)
		return
	}
	draw.Draw(s.dst, region, layer, origin, draw.Over)
}

// drawBitmap 以 CatmullRom 将位图缩放到目标区域，然后按裁剪蒙版合成。
func (s *surface) drawBitmap(img image.Image, dest layout.Rect, clip *image.Alpha, shadow *layout.Shadow) {
	dr := image.Rect(
		int(math.Round(dest.X*s.scale)),
		int(math.Round(dest.Y*s.scale)),
		int(math.Round(dest.Right()*s.scale)),
		int(math.Round(dest.Bottom()*s.scale)),
	)
	if dr.Empty() {
		return
	}
	bounds := s.dst.Bounds()
	area := dr.Intersect(bounds)
	if area.Empty() {
		return
	}
	layer := image.NewRGBA(bounds)
	xdraw.CatmullRom.Scale(layer, dr, img, img.Bounds(), xdraw.Src, nil)

	if shadow != nil && shadow.Color.A > 0 {
		alpha := image.NewAlpha(bounds)
		for y := area.Min.Y; y < area.Max.Y; y++ {
			for x := area.Min.X; x < area.Max.X; x++ {
				alpha.Pix[alpha.PixOffset(x, y)] = layer.Pix[layer.PixOffset(x, y)+3]
			}
		}
		if clip != nil {
			alpha = multiplyMask(alpha, clip)
		}
		// 阴影源已乘过裁剪蒙版，光晕可以溢出到裁剪区域之外。
		s.drawShadow(alpha, nil, *shadow, area)
	}
	if clip != nil {
		draw.DrawMask(s.dst, area, layer, area.Min, clip, area.Min, draw.Over)
		return
	}
	draw.Draw(s.dst, area, layer, area.Min, draw.Over)
}

// multiplyMask 返回两个蒙版逐像素相乘的结果。
func multiplyMask(a, b *image.Alpha) *image.Alpha {
	out := image.NewAlpha(a.Rect)
	for y := a.Rect.Min.Y; y < a.Rect.Max.Y; y++ {
		for x := a.Rect.Min.X; x < a.Rect.Max.X; x++ {
			av := uint32(a.Pix[a.PixOffset(x, y)])
			if av == 0 {
				continue
			}
			var bv uint32
			if (image.Point{X: x, Y: y}).In(b.Rect) {
				bv = uint32(b.Pix[b.PixOffset(x, y)])
			}
			out.Pix[out.PixOffset(x, y)] = uint8((av*bv + 127) / 255)
		}
	}
	return out
}

// alphaBounds 返回蒙版中非零像素的最小外接矩形。
func alphaBounds(m *image.Alpha) image.Rectangle {
	var out image.Rectangle
	for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
		row := m.Pix[m.PixOffset(m.Rect.Min.X, y):m.PixOffset(m.Rect.Max.X, y)]
		for i, v := range row {
			if v != 0 {
				x := m.Rect.Min.X + i
				out = out.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return out
}
