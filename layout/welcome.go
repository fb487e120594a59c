package layout

import (
	"fmt"
	"image"
	"strings"
)

// WelcomeRoles 是欢迎卡片使用的全部配色角色。
var WelcomeRoles = []string{
	"base-top", "base-bottom", "grid", "glow-secondary", "overlay",
	"panel", "panel-shadow", "border-start", "border-mid", "border-end",
	"avatar-placeholder", "accent", "title", "title-shadow", "username",
	"pill", "footer", "decoration",
}

// WelcomeConfig 汇总欢迎卡片的固定几何参数。画布尺寸不随内容变化，
// 只有页脚胶囊的宽度由文本测量决定。
type WelcomeConfig struct {
	Width    float64
	Height   float64
	Scale    float64
	Families []string

	GridSize    float64
	GlowRadius  float64
	GlowAlpha   uint8
	Glow2Radius float64

	PanelWidth   float64
	PanelHeight  float64
	PanelRadius  float64
	PanelShadow  Shadow
	BorderWidth  float64
	AvatarSize   float64
	AvatarInset  float64
	AvatarRadius float64
	AvatarGlow   float64
	AvatarStroke float64

	TextGap        float64
	SubtitleSize   float64
	SubtitleRise   float64
	SubtitleTrack  float64
	TitleSize      float64
	TitleDrop      float64
	TitleShadow    Shadow
	UsernameSize   float64
	UsernameDrop   float64
	PillDrop       float64
	PillPadding    float64
	PillHeight     float64
	PillRadius     float64
	PillTextSize   float64
	PillBaseline   float64
	CrossInset     float64
	CrossSize      float64
	CrossThickness float64

	Validation       ValidationPolicy
	BackgroundPolicy FetchPolicy
	AvatarPolicy     FetchPolicy
}

// DefaultWelcomeConfig returns the stock welcome-card geometry.
func DefaultWelcomeConfig() WelcomeConfig {
	return WelcomeConfig{
		Width:    1024,
		Height:   450,
		Scale:    1,
		Families: []string{"Segoe UI", "Roboto", "Helvetica", "Arial", "sans-serif"},

		GridSize:    40,
		GlowRadius:  600,
		GlowAlpha:   0x40,
		Glow2Radius: 500,

		PanelWidth:   900,
		PanelHeight:  350,
		PanelRadius:  24,
		PanelShadow:  Shadow{Blur: 40, OffsetY: 20},
		BorderWidth:  1.5,
		AvatarSize:   220,
		AvatarInset:  60,
		AvatarRadius: 40,
		AvatarGlow:   30,
		AvatarStroke: 4,

		TextGap:        50,
		SubtitleSize:   18,
		SubtitleRise:   55,
		SubtitleTrack:  4,
		TitleSize:      64,
		TitleDrop:      10,
		TitleShadow:    Shadow{Blur: 10, OffsetY: 5},
		UsernameSize:   40,
		UsernameDrop:   60,
		PillDrop:       85,
		PillPadding:    12,
		PillHeight:     28,
		PillRadius:     14,
		PillTextSize:   16,
		PillBaseline:   20,
		CrossInset:     20,
		CrossSize:      6,
		CrossThickness: 2,

		Validation:       NoValidation,
		BackgroundPolicy: FallbackOnFetchError,
		AvatarPolicy:     OmitOnFetchError,
	}
}

// Welcome defaults.
const (
	DefaultWelcomeUsername = "New Member"
	DefaultWelcomeTitle    = "WELCOME"
	DefaultWelcomeSubtitle = "TO THE SERVER"
	DefaultWelcomeFooter   = "You are the newest member"
)

// WelcomeInput 是欢迎卡片的请求字段。
type WelcomeInput struct {
	Username      string
	AvatarURL     string
	Title         string
	Subtitle      string
	Footer        string
	Theme         string // 强调色，十六进制
	BackgroundURL string

	// 由素材解析阶段填入。Background 为空时使用程序化背景，Avatar 为空时跳过头像图层。
	Background image.Image
	Avatar     image.Image
}

// Validate 按校验策略检查必填字段。
func (in *WelcomeInput) Validate(policy ValidationPolicy) error {
	if policy == NoValidation {
		return nil
	}
	if in.Username == "" {
		return MissingParam("username")
	}
	if in.AvatarURL == "" {
		return MissingParam("avatar_url")
	}
	return nil
}

// ApplyDefaults 填充缺省值并将所有文本字段转为大写。
func (in *WelcomeInput) ApplyDefaults() {
	setDefault(&in.Username, DefaultWelcomeUsername)
	setDefault(&in.Title, DefaultWelcomeTitle)
	setDefault(&in.Subtitle, DefaultWelcomeSubtitle)
	setDefault(&in.Footer, DefaultWelcomeFooter)
	in.Username = strings.ToUpper(in.Username)
	in.Title = strings.ToUpper(in.Title)
	in.Subtitle = strings.ToUpper(in.Subtitle)
	in.Footer = strings.ToUpper(in.Footer)
}

// ResolveAccent 解析请求中的强调色；为空或无效时返回主题的 accent，ok 为 false 表示原值无效。
func ResolveAccent(raw string, theme *Theme) (Color, bool, error) {
	def, err := theme.Color("accent")
	if err != nil {
		return Color{}, false, err
	}
	if strings.TrimSpace(raw) == "" {
		return def, true, nil
	}
	c, err := ParseHexColor(raw)
	if err != nil {
		return def, false, nil
	}
	return c, true, nil
}

// Panel 返回居中的玻璃面板矩形。
func (c WelcomeConfig) Panel() Rect {
	return Rect{
		X:      (c.Width - c.PanelWidth) / 2,
		Y:      (c.Height - c.PanelHeight) / 2,
		Width:  c.PanelWidth,
		Height: c.PanelHeight,
	}
}

// AvatarRect 返回头像在面板左侧的位置。
func (c WelcomeConfig) AvatarRect() Rect {
	p := c.Panel()
	return Rect{
		X:      p.X + c.AvatarInset,
		Y:      p.Y + (p.Height-c.AvatarSize)/2,
		Width:  c.AvatarSize,
		Height: c.AvatarSize,
	}
}

// CoverFit 按较大的轴向比例缩放图像使其覆盖目标区域，并居中裁切。
func CoverFit(imgW, imgH int, target Rect) Rect {
	if imgW <= 0 || imgH <= 0 {
		return target
	}
	w, h := float64(imgW), float64(imgH)
	ratio := max(target.Width/w, target.Height/h)
	return Rect{
		X:      target.X + (target.Width-w*ratio)/2,
		Y:      target.Y + (target.Height-h*ratio)/2,
		Width:  w * ratio,
		Height: h * ratio,
	}
}

// BuildWelcome 生成欢迎卡片的绘制计划。
// 图层顺序：背景 → 玻璃面板 → 头像 → 文本 → 角落装饰。
func BuildWelcome(in WelcomeInput, theme *Theme, cfg WelcomeConfig, opts BuildOptions) (*Plan, error) {
	if opts.Measurer == nil {
		return nil, fmt.Errorf("缺少文本测量后端")
	}
	if err := in.Validate(cfg.Validation); err != nil {
		return nil, err
	}
	accent, _, err := ResolveAccent(in.Theme, theme)
	if err != nil {
		return nil, err
	}
	pal := palette{theme: theme}
	var (
		overlay     = pal.get("overlay")
		panel       = pal.get("panel")
		panelShadow = pal.get("panel-shadow")
		borderStart = pal.get("border-start")
		borderMid   = pal.get("border-mid")
		borderEnd   = pal.get("border-end")
		title       = pal.get("title")
		titleShadow = pal.get("title-shadow")
		username    = pal.get("username")
		pill        = pal.get("pill")
		footer      = pal.get("footer")
		decoration  = pal.get("decoration")
	)
	if pal.err != nil {
		return nil, pal.err
	}

	b := newPlanBuilder("welcome", cfg.Width, cfg.Height, cfg.Scale)
	canvasRect := Rect{Width: cfg.Width, Height: cfg.Height}

	if in.Background != nil {
		size := in.Background.Bounds().Size()
		b.bitmap(in.Background, CoverFit(size.X, size.Y, canvasRect), nil, nil)
		b.fill(RectPath(canvasRect), Solid(overlay), nil)
	} else if err := proceduralBackground(b, cfg, &pal, accent); err != nil {
		return nil, err
	}

	panelRect := cfg.Panel()
	ps := cfg.PanelShadow
	ps.Color = panelShadow
	b.fill(Squircle(panelRect, cfg.PanelRadius), Solid(panel), &ps)
	b.stroke(Squircle(panelRect, cfg.PanelRadius), Linear(
		Point{X: panelRect.X, Y: panelRect.Y},
		Point{X: panelRect.Right(), Y: panelRect.Bottom()},
		Stop{Offset: 0, Color: borderStart},
		Stop{Offset: 0.5, Color: borderMid},
		Stop{Offset: 1, Color: borderEnd},
	), cfg.BorderWidth)

	avatarRect := cfg.AvatarRect()
	if in.Avatar != nil {
		frame := Squircle(avatarRect, cfg.AvatarRadius)
		b.bitmap(in.Avatar, avatarRect, frame, &Shadow{Color: accent, Blur: cfg.AvatarGlow})
		b.stroke(frame, Solid(accent), cfg.AvatarStroke)
	}

	textX := avatarRect.Right() + cfg.TextGap
	centerY := cfg.Height / 2
	font := func(size float64, weight int) FontSpec {
		return FontSpec{Families: cfg.Families, Size: size, Weight: weight}
	}

	b.text(TextRun{
		Content:       in.Subtitle,
		Font:          font(cfg.SubtitleSize, WeightBold),
		X:             textX,
		Y:             centerY - cfg.SubtitleRise,
		LetterSpacing: cfg.SubtitleTrack,
	}, accent, nil)

	ts := cfg.TitleShadow
	ts.Color = titleShadow
	b.text(TextRun{
		Content: in.Title,
		Font:    font(cfg.TitleSize, WeightBlack),
		X:       textX,
		Y:       centerY + cfg.TitleDrop,
	}, title, &ts)

	b.text(TextRun{
		Content: in.Username,
		Font:    font(cfg.UsernameSize, WeightRegular),
		X:       textX,
		Y:       centerY + cfg.UsernameDrop,
	}, username, nil)

	footerFont := font(cfg.PillTextSize, WeightRegular)
	footerW, err := opts.Measurer.MeasureText(in.Footer, footerFont)
	if err != nil {
		return nil, fmt.Errorf("测量页脚失败: %w", err)
	}
	pillRect := Rect{
		X:      textX,
		Y:      centerY + cfg.PillDrop,
		Width:  footerW + cfg.PillPadding*2,
		Height: cfg.PillHeight,
	}
	b.fill(Squircle(pillRect, cfg.PillRadius), Solid(pill), nil)
	b.text(TextRun{
		Content: in.Footer,
		Font:    footerFont,
		X:       pillRect.X + cfg.PillPadding,
		Y:       pillRect.Y + cfg.PillBaseline,
	}, footer, nil)

	for _, c := range crossCenters(panelRect, cfg.CrossInset) {
		half, t := cfg.CrossSize/2, cfg.CrossThickness/2
		b.fill(RectPath(Rect{X: c.X - half, Y: c.Y - t, Width: cfg.CrossSize, Height: cfg.CrossThickness}), Solid(decoration), nil)
		b.fill(RectPath(Rect{X: c.X - t, Y: c.Y - half, Width: cfg.CrossThickness, Height: cfg.CrossSize}), Solid(decoration), nil)
	}

	if opts.Debug.Guides {
		b.guide(panelRect)
		b.guide(avatarRect)
		b.guide(pillRect)
	}
	return b.build(), nil
}

// proceduralBackground 绘制深色纵向渐变、网格线与两处径向光晕。
func proceduralBackground(b *planBuilder, cfg WelcomeConfig, pal *palette, accent Color) error {
	top := pal.get("base-top")
	bottom := pal.get("base-bottom")
	grid := pal.get("grid")
	glow2 := pal.get("glow-secondary")
	if pal.err != nil {
		return pal.err
	}
	full := RectPath(Rect{Width: cfg.Width, Height: cfg.Height})

	b.fill(full, Linear(Point{}, Point{Y: cfg.Height},
		Stop{Offset: 0, Color: top},
		Stop{Offset: 1, Color: bottom},
	), nil)

	lines := &Path{}
	if cfg.GridSize > 0 {
		for x := 0.0; x <= cfg.Width; x += cfg.GridSize {
			lines.MoveTo(x, 0).LineTo(x, cfg.Height)
		}
		for y := 0.0; y <= cfg.Height; y += cfg.GridSize {
			lines.MoveTo(0, y).LineTo(cfg.Width, y)
		}
	}
	if !lines.Empty() {
		b.stroke(lines, Solid(grid), 1)
	}

	origin := Point{}
	b.fill(full, Radial(origin, 0, origin, cfg.GlowRadius,
		Stop{Offset: 0, Color: accent.WithAlpha(cfg.GlowAlpha)},
		Stop{Offset: 1, Color: Transparent},
	), nil)

	corner := Point{X: cfg.Width, Y: cfg.Height}
	b.fill(full, Radial(corner, 0, corner, cfg.Glow2Radius,
		Stop{Offset: 0, Color: glow2},
		Stop{Offset: 1, Color: Transparent},
	), nil)
	return nil
}

func crossCenters(panel Rect, inset float64) [4]Point {
	return [4]Point{
		{X: panel.X + inset, Y: panel.Y + inset},
		{X: panel.Right() - inset, Y: panel.Y + inset},
		{X: panel.X + inset, Y: panel.Bottom() - inset},
		{X: panel.Right() - inset, Y: panel.Bottom() - inset},
	}
}
