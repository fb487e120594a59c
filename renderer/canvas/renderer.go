package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/shinapi/fonts"
	"github.com/ByLCY/shinapi/layout"
	"github.com/ByLCY/shinapi/renderer"
)

// Renderer rasterizes draw plans via github.com/tdewolff/canvas and encodes PNG.
// It also measures text, so layout and drawing share one set of font metrics.
type Renderer struct {
	// families 以小写名称索引；未命中时回落到 fallback。
	families map[string]*familyEntry
	fallback *familyEntry

	// textMu 串行化字体整形：测量与文本栅格化共用同一批 FontFamily。
	textMu sync.Mutex
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

type familyEntry struct {
	family *canvas.FontFamily
	styles map[canvas.FontStyle]bool
}

// Options configures the canvas renderer.
type Options struct {
	// Families 额外注册的字体家族，按名称匹配 FontSpec.Families。
	Families []*fonts.Family
}

// NewRenderer creates a renderer with only the embedded Go fonts.
func NewRenderer() (*Renderer, error) { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with additional font families.
func NewRendererWithOptions(opts Options) (*Renderer, error) {
	r := &Renderer{families: map[string]*familyEntry{}}
	fallback, err := loadFamily(fonts.Go())
	if err != nil {
		return nil, fmt.Errorf("加载内置字体失败: %w", err)
	}
	r.fallback = fallback
	r.families[normalizeFamily(fonts.FallbackName)] = fallback
	for _, fam := range opts.Families {
		if fam == nil {
			continue
		}
		entry, err := loadFamily(fam)
		if err != nil {
			return nil, fmt.Errorf("加载字体家族 %s 失败: %w", fam.Name, err)
		}
		// 同名家族后注册的覆盖先注册的。
		r.families[normalizeFamily(fam.Name)] = entry
	}
	return r, nil
}

// Render rasterizes the plan and encodes it as PNG.
func (r *Renderer) Render(plan *layout.Plan) ([]byte, error) {
	img, err := r.Rasterize(plan)
	if err != nil {
		return nil, err
	}
	return Encode(img)
}

// Rasterize executes every op of the plan, in order, onto a fresh surface.
func (r *Renderer) Rasterize(plan *layout.Plan) (*image.RGBA, error) {
	if plan == nil {
		return nil, fmt.Errorf("绘制计划为空")
	}
	s, err := newSurface(r, plan)
	if err != nil {
		return nil, err
	}
	for i, op := range plan.Ops {
		if err := s.apply(op); err != nil {
			return nil, fmt.Errorf("执行第 %d 个绘制操作 (%s) 失败: %w", i, op.Kind, err)
		}
	}
	return s.dst, nil
}

// Encode serializes an image as PNG. 相同像素总是得到相同字节。
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}
