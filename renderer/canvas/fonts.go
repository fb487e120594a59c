package canvasrenderer

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/shinapi/fonts"
	"github.com/ByLCY/shinapi/layout"
)

var styleMap = map[fonts.Style]canvas.FontStyle{
	fonts.Regular:    canvas.FontRegular,
	fonts.Medium:     canvas.FontMedium,
	fonts.Bold:       canvas.FontBold,
	fonts.Black:      canvas.FontBlack,
	fonts.Italic:     canvas.FontRegular | canvas.FontItalic,
	fonts.BoldItalic: canvas.FontBold | canvas.FontItalic,
}

func loadFamily(fam *fonts.Family) (*familyEntry, error) {
	if len(fam.Styles[fonts.Regular]) == 0 {
		return nil, fmt.Errorf("字体家族 %s 缺少 regular", fam.Name)
	}
	entry := &familyEntry{
		family: canvas.NewFontFamily(fam.Name),
		styles: map[canvas.FontStyle]bool{},
	}
	// 按固定顺序加载，保证结果与 map 遍历顺序无关。
	for _, s := range []fonts.Style{fonts.Regular, fonts.Medium, fonts.Bold, fonts.Black, fonts.Italic, fonts.BoldItalic} {
		data := fam.Styles[s]
		if len(data) == 0 {
			continue
		}
		style := styleMap[s]
		if err := entry.family.LoadFont(data, 0, style); err != nil {
			return nil, fmt.Errorf("加载 %s 样式失败: %w", s, err)
		}
		entry.styles[style] = true
	}
	return entry, nil
}

func normalizeFamily(name string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
}

// resolveFamily 返回 Families 中第一个已注册的家族，否则回落到内置 Go 字体。
func (r *Renderer) resolveFamily(spec layout.FontSpec) *familyEntry {
	for _, name := range spec.Families {
		if entry, ok := r.families[normalizeFamily(name)]; ok {
			return entry
		}
	}
	return r.fallback
}

// weightChain 给出请求字重的候选样式，依次退化。
func weightChain(weight int) []canvas.FontStyle {
	switch {
	case weight >= layout.WeightBlack:
		return []canvas.FontStyle{canvas.FontBlack, canvas.FontBold, canvas.FontRegular}
	case weight >= layout.WeightBold:
		return []canvas.FontStyle{canvas.FontBold, canvas.FontBlack, canvas.FontRegular}
	case weight >= layout.WeightMedium:
		return []canvas.FontStyle{canvas.FontMedium, canvas.FontRegular}
	default:
		return []canvas.FontStyle{canvas.FontRegular}
	}
}

// pickStyle 只返回家族中实际加载过的样式，避免向 canvas 请求缺失的字体。
func (e *familyEntry) pickStyle(spec layout.FontSpec) canvas.FontStyle {
	chain := weightChain(spec.Weight)
	if strings.EqualFold(spec.Style, "italic") {
		for _, s := range chain {
			if e.styles[s|canvas.FontItalic] {
				return s | canvas.FontItalic
			}
		}
	}
	for _, s := range chain {
		if e.styles[s] {
			return s
		}
	}
	return canvas.FontRegular
}

// face 创建字体面。FontSpec.Size 为逻辑单位，canvas 需要 pt。调用方需持有 textMu。
func (r *Renderer) face(spec layout.FontSpec, col color.Color) (*canvas.FontFace, error) {
	if spec.Size <= 0 {
		return nil, fmt.Errorf("无效的字号 %g", spec.Size)
	}
	entry := r.resolveFamily(spec)
	return entry.family.Face(layout.FontSizeToPt(spec.Size), col, entry.pickStyle(spec), canvas.FontNormal), nil
}

// MeasureText 实现 layout.Measurer，返回逻辑单位下的文本宽度。
func (r *Renderer) MeasureText(text string, spec layout.FontSpec) (float64, error) {
	r.textMu.Lock()
	defer r.textMu.Unlock()
	face, err := r.face(spec, canvas.Black)
	if err != nil {
		return 0, err
	}
	return face.TextWidth(text), nil
}
