package layout

import (
	"fmt"
	"image"
	"strings"

	"github.com/ByLCY/shinapi/binding"
)

// TweetRoles 是推文卡片使用的全部配色角色。
var TweetRoles = []string{
	"background", "avatar-default", "name", "handle", "bubble",
	"shadow", "text", "footer", "accent", "badge-mark",
}

// TweetConfig 汇总推文卡片的全部常量，单位均为逻辑单位。
type TweetConfig struct {
	Width    float64
	Scale    float64
	Families []string

	// 正文折行与气泡
	BodySize      float64
	MaxTextWidth  float64
	LineHeight    float64
	BubblePadding float64
	BubbleX       float64
	BubbleY       float64
	BubbleRadius  float64
	TextInset     float64
	BubbleShadow  Shadow

	// 画布高度 = Header + 气泡 + Footer + Margins
	HeaderHeight float64
	FooterHeight float64
	Margins      float64

	// 头部
	Avatar        Rect
	PlaceholderPx int
	NameOrigin    Point
	NameSize      float64
	HandleSize    float64
	HandleGap     float64
	BadgeGap      float64
	BadgeRise     float64
	BadgeRadius   float64
	CheckSize     float64

	FooterGap    float64
	FooterSize   float64
	FooterFormat string

	Validation   ValidationPolicy
	AvatarPolicy FetchPolicy
}

// DefaultTweetConfig returns the stock tweet-card geometry.
func DefaultTweetConfig() TweetConfig {
	return TweetConfig{
		Width:    600,
		Scale:    2,
		Families: []string{"Helvetica", "Arial", "sans-serif"},

		BodySize:      18,
		MaxTextWidth:  500,
		LineHeight:    24,
		BubblePadding: 30,
		BubbleX:       30,
		BubbleY:       70,
		BubbleRadius:  12,
		TextInset:     20,
		BubbleShadow:  Shadow{Blur: 5, OffsetY: 2},

		HeaderHeight: 80,
		FooterHeight: 40,
		Margins:      20,

		Avatar:        Rect{X: 25, Y: 15, Width: 50, Height: 50},
		PlaceholderPx: 60,
		NameOrigin:    Point{X: 85, Y: 35},
		NameSize:      16,
		HandleSize:    14,
		HandleGap:     20,
		BadgeGap:      5,
		BadgeRise:     12,
		BadgeRadius:   8,
		CheckSize:     16,

		FooterGap:    15,
		FooterSize:   12,
		FooterFormat: "${time} · ${day} · ${views} | ${tag|upper}",

		Validation:   RequireFields,
		AvatarPolicy: FailOnFetchError,
	}
}

// TweetInput 是推文卡片的请求字段。
type TweetInput struct {
	Text      string
	Name      string
	Username  string
	AvatarURL string
	Time      string
	Day       string
	Views     string
	Tag       string
	Verified  bool
	Theme     string

	// Avatar 由素材解析阶段填入；为空时跳过头像图层。
	Avatar image.Image
}

// Tweet defaults.
const (
	DefaultTweetName     = "Doji Creates"
	DefaultTweetUsername = "@dojicreates"
	DefaultTweetTime     = "2:17 AM"
	DefaultTweetDay      = "Tuesday"
	DefaultTweetViews    = "192.6K Views"
	DefaultTweetTag      = "CODING LESSONS AND CODING MEMES"
	DefaultTweetTheme    = "light"
)

// Validate 按校验策略检查必填字段。
func (in *TweetInput) Validate(policy ValidationPolicy) error {
	if policy == NoValidation {
		return nil
	}
	if in.Text == "" {
		return MissingParam("text")
	}
	return nil
}

// ApplyDefaults 填充缺省字段；主题名统一转为小写。
func (in *TweetInput) ApplyDefaults() {
	setDefault(&in.Name, DefaultTweetName)
	setDefault(&in.Username, DefaultTweetUsername)
	setDefault(&in.Time, DefaultTweetTime)
	setDefault(&in.Day, DefaultTweetDay)
	setDefault(&in.Views, DefaultTweetViews)
	setDefault(&in.Tag, DefaultTweetTag)
	setDefault(&in.Theme, DefaultTweetTheme)
	in.Theme = strings.ToLower(in.Theme)
}

func setDefault(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

// TweetGeometry 是依赖顺序的派生尺寸：文本块 → 气泡 → 画布。
type TweetGeometry struct {
	Text   *TextBlock
	Bubble Rect
	Height float64
}

// TweetHeight 返回 n 行正文对应的画布逻辑高度，随 n 严格递增。
func (c TweetConfig) TweetHeight(lines int) float64 {
	if lines < 1 {
		lines = 1
	}
	return c.HeaderHeight + c.bubbleHeight(lines) + c.FooterHeight + c.Margins
}

func (c TweetConfig) bubbleHeight(lines int) float64 {
	return float64(lines)*c.LineHeight + c.BubblePadding*2
}

func (c TweetConfig) bodyFont() FontSpec {
	return FontSpec{Families: c.Families, Size: c.BodySize, Weight: WeightRegular}
}

// MeasureTweet 折行正文并推导气泡与画布尺寸。
func MeasureTweet(text string, cfg TweetConfig, m Measurer) (*TweetGeometry, error) {
	block, err := NewTextBlock(text, cfg.bodyFont(), cfg.MaxTextWidth, cfg.LineHeight, m)
	if err != nil {
		return nil, err
	}
	n := len(block.Lines)
	return &TweetGeometry{
		Text: block,
		Bubble: Rect{
			X:      cfg.BubbleX,
			Y:      cfg.BubbleY,
			Width:  cfg.Width - cfg.BubbleX*2,
			Height: cfg.bubbleHeight(n),
		},
		Height: cfg.TweetHeight(n),
	}, nil
}

// BuildTweet 生成推文卡片的绘制计划。
// 图层顺序：背景 → 头像 → 名称 → 认证徽章 → 账号 → 气泡 → 正文 → 页脚。
func BuildTweet(in TweetInput, theme *Theme, cfg TweetConfig, opts BuildOptions) (*Plan, error) {
	if opts.Measurer == nil {
		return nil, fmt.Errorf("缺少文本测量后端")
	}
	if err := in.Validate(cfg.Validation); err != nil {
		return nil, err
	}
	pal := palette{theme: theme}
	var (
		background = pal.get("background")
		nameColor  = pal.get("name")
		handle     = pal.get("handle")
		bubble     = pal.get("bubble")
		shadow     = pal.get("shadow")
		textColor  = pal.get("text")
		footer     = pal.get("footer")
		accent     = pal.get("accent")
		badgeMark  = pal.get("badge-mark")
	)
	if pal.err != nil {
		return nil, pal.err
	}

	geo, err := MeasureTweet(in.Text, cfg, opts.Measurer)
	if err != nil {
		return nil, err
	}
	b := newPlanBuilder("tweet", cfg.Width, geo.Height, cfg.Scale)

	b.fill(RectPath(Rect{Width: cfg.Width, Height: geo.Height}), Solid(background), nil)

	if in.Avatar != nil {
		center := Point{X: cfg.Avatar.X + cfg.Avatar.Width/2, Y: cfg.Avatar.Y + cfg.Avatar.Height/2}
		b.bitmap(in.Avatar, cfg.Avatar, CirclePath(center, cfg.Avatar.Width/2), nil)
	}

	nameFont := FontSpec{Families: cfg.Families, Size: cfg.NameSize, Weight: WeightBold}
	b.text(TextRun{Content: in.Name, Font: nameFont, X: cfg.NameOrigin.X, Y: cfg.NameOrigin.Y}, nameColor, nil)

	if in.Verified {
		nameW, err := opts.Measurer.MeasureText(in.Name, nameFont)
		if err != nil {
			return nil, fmt.Errorf("测量名称失败: %w", err)
		}
		badgeX := cfg.NameOrigin.X + nameW + cfg.BadgeGap
		badgeY := cfg.NameOrigin.Y - cfg.BadgeRise
		center := Point{X: badgeX + cfg.BadgeRadius, Y: badgeY + cfg.BadgeRadius}
		b.fill(CirclePath(center, cfg.BadgeRadius), Solid(accent), nil)
		b.fill(Checkmark(center, cfg.CheckSize), Solid(badgeMark), nil)
	}

	handleFont := FontSpec{Families: cfg.Families, Size: cfg.HandleSize, Weight: WeightRegular}
	b.text(TextRun{
		Content: in.Username,
		Font:    handleFont,
		X:       cfg.NameOrigin.X,
		Y:       cfg.NameOrigin.Y + cfg.HandleGap,
	}, handle, nil)

	bubbleShadow := cfg.BubbleShadow
	bubbleShadow.Color = shadow
	b.fill(Squircle(geo.Bubble, cfg.BubbleRadius), Solid(bubble), &bubbleShadow)

	textX := geo.Bubble.X + cfg.TextInset
	textY := geo.Bubble.Y + cfg.BubblePadding
	for i, line := range geo.Text.Lines {
		b.text(TextRun{
			Content: line.Content,
			Font:    geo.Text.Font,
			X:       textX,
			Y:       textY + float64(i)*cfg.LineHeight,
		}, textColor, nil)
	}

	footerFont := FontSpec{Families: cfg.Families, Size: cfg.FooterSize, Weight: WeightRegular}
	b.text(TextRun{
		Content: FormatTweetFooter(cfg.FooterFormat, in),
		Font:    footerFont,
		X:       textX,
		Y:       geo.Bubble.Bottom() + cfg.FooterGap,
	}, footer, nil)

	if opts.Debug.Guides {
		top := textY - cfg.BodySize
		b.guide(Rect{X: textX, Y: top, Width: cfg.MaxTextWidth, Height: geo.Text.Height()})
		b.guide(geo.Bubble)
	}
	return b.build(), nil
}

// FormatTweetFooter 渲染页脚文本，例如 "2:17 AM · Tuesday · 192.6K Views | TAG"。
func FormatTweetFooter(format string, in TweetInput) string {
	return binding.Interpolate(format, map[string]any{
		"time":  in.Time,
		"day":   in.Day,
		"views": in.Views,
		"tag":   in.Tag,
		"name":  in.Name,
	})
}

// palette 记录第一次取色失败的错误，便于一次性检查整套配色。
type palette struct {
	theme *Theme
	err   error
}

func (p *palette) get(role string) Color {
	if p.err != nil {
		return Color{}
	}
	c, err := p.theme.Color(role)
	if err != nil {
		p.err = err
	}
	return c
}
