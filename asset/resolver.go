// Package asset 负责获取并解码远程图片（头像、背景），或在未提供 URL 时生成占位图。
// 这是整个渲染流程中唯一执行网络 I/O 的部分。
package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-retryablehttp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/shinapi/layout"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxBytes  = 10 << 20
	DefaultUserAgent = "Mozilla/5.0"
)

// ErrTooLarge 表示响应体超过 MaxBytes。
var ErrTooLarge = errors.New("image exceeds size limit")

// Error 是素材获取或解码失败，Op 为 "url"、"host"、"fetch"、"status"、"read" 或 "decode"。
type Error struct {
	Op  string
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("asset %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures a Resolver.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	Retries   int
	UserAgent string

	// AllowedHosts 为 doublestar 模式，匹配 URL 的主机名（不含端口）。为空表示允许全部。
	AllowedHosts []string

	Logger *slog.Logger
}

// Resolver 获取远程图片。它不缓存任何结果，每次调用都会重新请求。
type Resolver struct {
	client    *retryablehttp.Client
	maxBytes  int64
	userAgent string
	hosts     []string
	logger    *slog.Logger
}

// NewResolver validates the host patterns and builds the HTTP client.
func NewResolver(opts Options) (*Resolver, error) {
	for _, p := range opts.AllowedHosts {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("无效的主机匹配模式 %q", p)
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = logger
	// 保留最终响应，由 Fetch 自行判断状态码。
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Resolver{
		client:    client,
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
		hosts:     opts.AllowedHosts,
		logger:    logger,
	}, nil
}

// Fetch downloads rawURL and decodes it. JPEG 的 EXIF 方向会被自动校正。
func (r *Resolver) Fetch(ctx context.Context, rawURL string) (image.Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{Op: "url", URL: rawURL, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &Error{Op: "url", URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	if !r.hostAllowed(u.Hostname()) {
		return nil, &Error{Op: "host", URL: rawURL, Err: fmt.Errorf("host %q is not allowed", u.Hostname())}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Op: "fetch", URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", r.userAgent)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &Error{Op: "fetch", URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Op: "status", URL: rawURL, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, &Error{Op: "read", URL: rawURL, Err: err}
	}
	if int64(len(data)) > r.maxBytes {
		return nil, &Error{Op: "read", URL: rawURL, Err: ErrTooLarge}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &Error{Op: "decode", URL: rawURL, Err: err}
	}
	return img, nil
}

func (r *Resolver) hostAllowed(host string) bool {
	if len(r.hosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, p := range r.hosts {
		if ok, err := doublestar.Match(strings.ToLower(p), host); err == nil && ok {
			return true
		}
	}
	return false
}

// Resolve 按策略解析素材：
//   - rawURL 为空：返回 placeholder()（placeholder 为 nil 时返回 nil），不发起请求；
//   - 获取失败且策略为 FailOnFetchError：返回错误；
//   - FallbackOnFetchError：记录日志并返回 placeholder()；
//   - OmitOnFetchError：记录日志并返回 nil，调用方跳过该图层。
func (r *Resolver) Resolve(ctx context.Context, rawURL string, policy layout.FetchPolicy, placeholder func() image.Image) (image.Image, error) {
	fallback := func() image.Image {
		if placeholder == nil {
			return nil
		}
		return placeholder()
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fallback(), nil
	}
	img, err := r.Fetch(ctx, rawURL)
	if err == nil {
		return img, nil
	}
	switch policy {
	case layout.FailOnFetchError:
		return nil, err
	case layout.FallbackOnFetchError:
		r.logger.Warn("asset fetch failed, using fallback", "url", rawURL, "error", err)
		return fallback(), nil
	default:
		r.logger.Warn("asset fetch failed, skipping layer", "url", rawURL, "error", err)
		return nil, nil
	}
}

