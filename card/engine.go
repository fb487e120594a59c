// Package card 串联单次卡片渲染：参数 → 校验 → 主题 → 素材 → 布局 → 渲染。
package card

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/ByLCY/shinapi/asset"
	"github.com/ByLCY/shinapi/layout"
	"github.com/ByLCY/shinapi/renderer"
)

// Template names.
const (
	Tweet   = "tweet"
	Welcome = "welcome"
)

// Backend 同时负责文本测量与栅格化，保证布局与绘制使用同一套字体度量。
type Backend interface {
	renderer.Renderer
	layout.Measurer
}

// AssetResolver 按策略获取远程图片，见 asset.Resolver。
type AssetResolver interface {
	Resolve(ctx context.Context, url string, policy layout.FetchPolicy, placeholder func() image.Image) (image.Image, error)
}

// Options configures an Engine.
type Options struct {
	Themes   *layout.Themes
	Resolver AssetResolver
	Backend  Backend
	Tweet    layout.TweetConfig
	Welcome  layout.WelcomeConfig
	Debug    layout.DebugOptions
	Logger   *slog.Logger
}

// Engine 是无状态的渲染入口，可被并发调用。
type Engine struct {
	tweetThemes   *layout.ThemeSet
	welcomeThemes *layout.ThemeSet
	resolver      AssetResolver
	backend       Backend
	tweet         layout.TweetConfig
	welcome       layout.WelcomeConfig
	debug         layout.DebugOptions
	logger        *slog.Logger
}

// New 校验配色表覆盖了两个模板所需的全部角色。
func New(opts Options) (*Engine, error) {
	if opts.Themes == nil || opts.Resolver == nil || opts.Backend == nil {
		return nil, fmt.Errorf("card engine 需要 Themes、Resolver 与 Backend")
	}
	if err := opts.Themes.Require(Tweet, layout.TweetRoles); err != nil {
		return nil, err
	}
	if err := opts.Themes.Require(Welcome, layout.WelcomeRoles); err != nil {
		return nil, err
	}
	tweetSet, _ := opts.Themes.Set(Tweet)
	welcomeSet, _ := opts.Themes.Set(Welcome)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tweetThemes:   tweetSet,
		welcomeThemes: welcomeSet,
		resolver:      opts.Resolver,
		backend:       opts.Backend,
		tweet:         opts.Tweet,
		welcome:       opts.Welcome,
		debug:         opts.Debug,
		logger:        logger,
	}, nil
}

// Render 生成 PNG；失败时不返回任何图像数据。
func (e *Engine) Render(ctx context.Context, template string, p Params) ([]byte, error) {
	plan, err := e.Plan(ctx, template, p)
	if err != nil {
		return nil, err
	}
	data, err := e.backend.Render(plan)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", template, err)
	}
	return data, nil
}

// Plan 只运行到布局阶段，返回绘制计划。
func (e *Engine) Plan(ctx context.Context, template string, p Params) (*layout.Plan, error) {
	switch template {
	case Tweet:
		return e.tweetPlan(ctx, p)
	case Welcome:
		return e.welcomePlan(ctx, p)
	default:
		return nil, fmt.Errorf("unknown template %q", template)
	}
}

func (e *Engine) opts() layout.BuildOptions {
	return layout.BuildOptions{Measurer: e.backend, Debug: e.debug}
}

// TweetInput 将请求字段映射为推文输入，未做校验与默认值处理。
func TweetInput(p Params) layout.TweetInput {
	return layout.TweetInput{
		Text:      p.String("text"),
		Name:      p.String("name"),
		Username:  p.String("username"),
		AvatarURL: p.String("avatar_url"),
		Time:      p.String("time"),
		Day:       p.String("day"),
		Views:     p.String("views"),
		Tag:       p.String("tag"),
		Verified:  p.Verified("verified"),
		Theme:     p.String("theme"),
	}
}

func (e *Engine) tweetPlan(ctx context.Context, p Params) (*layout.Plan, error) {
	in := TweetInput(p)
	if err := in.Validate(e.tweet.Validation); err != nil {
		return nil, err
	}
	in.ApplyDefaults()
	theme, err := e.tweetThemes.Lookup(in.Theme)
	if err != nil {
		return nil, err
	}
	placeholder, err := theme.Color("avatar-default")
	if err != nil {
		return nil, err
	}
	in.Avatar, err = e.resolver.Resolve(ctx, in.AvatarURL, e.tweet.AvatarPolicy, func() image.Image {
		return asset.CirclePlaceholder(e.tweet.PlaceholderPx, placeholder)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch avatar: %w", err)
	}
	return layout.BuildTweet(in, theme, e.tweet, e.opts())
}

// WelcomeInput 将请求字段映射为欢迎卡片输入；avatar 是 avatar_url 的别名。
func WelcomeInput(p Params) layout.WelcomeInput {
	return layout.WelcomeInput{
		Username:      p.String("username"),
		AvatarURL:     p.First("avatar_url", "avatar"),
		Title:         p.String("title"),
		Subtitle:      p.String("subtitle"),
		Footer:        p.String("footer"),
		Theme:         p.String("theme"),
		BackgroundURL: p.String("bg_image"),
	}
}

func (e *Engine) welcomePlan(ctx context.Context, p Params) (*layout.Plan, error) {
	in := WelcomeInput(p)
	if err := in.Validate(e.welcome.Validation); err != nil {
		return nil, err
	}
	in.ApplyDefaults()
	theme := e.welcomeThemes.Default()
	if _, ok, err := layout.ResolveAccent(in.Theme, theme); err != nil {
		return nil, err
	} else if !ok {
		e.logger.Warn("invalid accent color, using theme accent", "theme", in.Theme)
	}
	placeholder, err := theme.Color("avatar-placeholder")
	if err != nil {
		return nil, err
	}

	in.Background, err = e.resolver.Resolve(ctx, in.BackgroundURL, e.welcome.BackgroundPolicy, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch background: %w", err)
	}
	size := int(e.welcome.AvatarSize)
	in.Avatar, err = e.resolver.Resolve(ctx, in.AvatarURL, e.welcome.AvatarPolicy, func() image.Image {
		return asset.SquarePlaceholder(size, placeholder)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch avatar: %w", err)
	}
	return layout.BuildWelcome(in, theme, e.welcome, e.opts())
}
