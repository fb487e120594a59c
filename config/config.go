// Package config loads the service configuration from TOML.
//
// A missing file yields DefaultConfig. Keys not recognised by the schema are
// collected into Config.Unknown so the caller can warn about them after the
// logger is up.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/ByLCY/shinapi/fonts"
	"github.com/ByLCY/shinapi/logger"
)

// Config is the root of config.toml.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Site     SiteConfig     `toml:"site"`
	Fetch    FetchConfig    `toml:"fetch"`
	Upstream UpstreamConfig `toml:"upstream"`
	Log      LogConfig      `toml:"log"`
	Fonts    FontsConfig    `toml:"fonts"`
	Render   RenderConfig   `toml:"render"`

	// Unknown 记录文件中未被识别的键。
	Unknown []string `toml:"-"`
	// Dir 为配置文件所在目录，相对路径以此为基准。
	Dir string `toml:"-"`
}

type ServerConfig struct {
	Addr                string `toml:"addr"`
	DocsDir             string `toml:"docs_dir"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	MaxBodyBytes        int64  `toml:"max_body_bytes"`
}

// SiteConfig 原样通过 /set 暴露给文档页面。
type SiteConfig struct {
	Name          string         `toml:"name" json:"name"`
	Description   string         `toml:"description" json:"description"`
	Operator      string         `toml:"operator" json:"operator"`
	Author        string         `toml:"author" json:"author,omitempty"`
	Telegram      string         `toml:"telegram" json:"telegram"`
	Icon          string         `toml:"icon" json:"icon"`
	Header        SiteHeader     `toml:"header" json:"header"`
	Notifications []Notification `toml:"notification" json:"notification"`
}

type SiteHeader struct {
	Status    string    `toml:"status" json:"status"`
	ImageSrc  []string  `toml:"image_src" json:"imageSrc"`
	ImageSize ImageSize `toml:"image_size" json:"imageSize"`
}

type ImageSize struct {
	Mobile  string `toml:"mobile" json:"mobile"`
	Tablet  string `toml:"tablet" json:"tablet"`
	Desktop string `toml:"desktop" json:"desktop"`
}

type Notification struct {
	Title   string `toml:"title" json:"title"`
	Message string `toml:"message" json:"message"`
}

type FetchConfig struct {
	TimeoutSeconds int      `toml:"timeout_seconds"`
	MaxBytes       int64    `toml:"max_bytes"`
	Retries        int      `toml:"retries"`
	UserAgent      string   `toml:"user_agent"`
	AllowedHosts   []string `toml:"allowed_hosts"`
}

// Timeout returns the outbound fetch timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// UpstreamConfig 为边界协作方的地址；tempmail 地址中的 {email} 会被替换。
type UpstreamConfig struct {
	FBDownloadURL string `toml:"fbdl_url"`
	TempMailURL   string `toml:"tempmail_url"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
}

type FontsConfig struct {
	Dir      string       `toml:"dir"`
	Families []fonts.Spec `toml:"family"`
}

type RenderConfig struct {
	ThemesFile    string  `toml:"themes_file"`
	TweetScale    float64 `toml:"tweet_scale"`
	WelcomeScale  float64 `toml:"welcome_scale"`
	WelcomeStrict bool    `toml:"welcome_strict"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                ":4000",
			DocsDir:             "docs",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 60,
			MaxBodyBytes:        1 << 20,
		},
		Site: SiteConfig{
			Name:        "Shin APIs",
			Description: "This interactive interface allows you to explore and test our comprehensive collection of API endpoints in real-time.",
			Operator:    "ShinDesu",
			Telegram:    "https://t.me/+AQO22J2q6KBlNWM1",
			Icon:        "/docs/image/icon.png",
			Header: SiteHeader{
				Status:    "Online!",
				ImageSize: ImageSize{Mobile: "80%", Tablet: "40%", Desktop: "40%"},
			},
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 15,
			MaxBytes:       10 << 20,
			Retries:        0,
			UserAgent:      "Mozilla/5.0",
			AllowedHosts:   []string{"*"},
		},
		Upstream: UpstreamConfig{
			FBDownloadURL: "https://saveas.co/smart_download.php",
			TempMailURL:   "https://api.internal.temp-mail.io/api/v3/email/{email}/messages",
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 10},
		Render: RenderConfig{
			TweetScale:   2,
			WelcomeScale: 1,
		},
	}
}

// Load reads path on top of DefaultConfig. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}
	cfg.Dir = filepath.Dir(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	for _, key := range md.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, key.String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	return cfg, nil
}

// ApplyEnv 应用环境变量覆盖。PORT 只替换 server.addr 的端口部分。
func (c *Config) ApplyEnv(getenv func(string) string) error {
	port := strings.TrimSpace(getenv("PORT"))
	if port == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(c.Server.Addr)
	if err != nil {
		host = ""
	}
	c.Server.Addr = net.JoinHostPort(host, port)
	return nil
}

// Resolve 返回相对于配置文件目录的路径；绝对路径原样返回。
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("server.addr %q 无效: %w", c.Server.Addr, err)
	}
	if c.Server.ReadTimeoutSeconds <= 0 || c.Server.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("server 超时必须大于 0")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes 必须大于 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds 必须大于 0，当前为 %d", c.Fetch.TimeoutSeconds)
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes 必须大于 0")
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries 不能为负数")
	}
	for _, p := range c.Fetch.AllowedHosts {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("fetch.allowed_hosts 中的模式 %q 无效", p)
		}
	}
	if _, ok := logger.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("log.level %q 无效，可选 trace, debug, info, ready, warn, error", c.Log.Level)
	}
	if c.Render.TweetScale < 1 || c.Render.WelcomeScale < 1 {
		return fmt.Errorf("render 超采样倍数必须 >= 1")
	}
	if !strings.Contains(c.Upstream.TempMailURL, "{email}") {
		return fmt.Errorf("upstream.tempmail_url 必须包含 {email}")
	}
	for i, f := range c.Fonts.Families {
		if strings.TrimSpace(f.Name) == "" || f.Regular == "" {
			return fmt.Errorf("fonts.family[%d] 需要 name 与 regular", i)
		}
	}
	return nil
}
