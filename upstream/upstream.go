// Package upstream 封装两个第三方服务：Facebook 视频解析与临时邮箱收件箱。
// 这里只实现请求/响应契约，不做缓存与重试以外的任何处理。
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxResponseBytes 限制上游响应体大小。
const maxResponseBytes = 4 << 20

// Options configures a Client.
type Options struct {
	FBDownloadURL string
	TempMailURL   string // 含 {email} 占位符
	Timeout       time.Duration
	Retries       int
	UserAgent     string
	Logger        *slog.Logger
}

// Client 调用上游服务。
type Client struct {
	http      *retryablehttp.Client
	fbURL     string
	mailURL   string
	userAgent string
}

// NewClient builds a Client on a retryablehttp client.
func NewClient(opts Options) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = max(opts.Retries, 0)
	if opts.Timeout > 0 {
		c.HTTPClient.Timeout = opts.Timeout
	}
	c.Logger = nil
	if opts.Logger != nil {
		c.Logger = opts.Logger
	}
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	ua := opts.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0"
	}
	return &Client{http: c, fbURL: opts.FBDownloadURL, mailURL: opts.TempMailURL, userAgent: ua}
}

// StatusError 表示上游返回了非 2xx 状态码。
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Request failed with status code %d", e.Code)
}

func (c *Client) do(req *retryablehttp.Request) ([]byte, error) {
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: req.URL.String(), Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("读取上游响应失败: %w", err)
	}
	return body, nil
}

// FacebookVideo 是解析结果；字段缺失时为 null。
type FacebookVideo struct {
	Title    *string `json:"title"`
	Desc     *string `json:"desc"`
	Duration *string `json:"duration"`
	Thumb    *string `json:"thumb"`
	SD       *string `json:"sd"`
	HD       *string `json:"hd"`
}

// FacebookVideo 以表单方式提交视频链接并解析返回的 HTML。
func (c *Client) FacebookVideo(ctx context.Context, videoURL string) (*FacebookVideo, error) {
	form := url.Values{"fb_url": {videoURL}}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.fbURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return ParseFacebookVideo(strings.NewReader(string(body)))
}

// TempMailInbox 返回收件箱的原始 JSON。
func (c *Client) TempMailInbox(ctx context.Context, email string) (json.RawMessage, error) {
	target := strings.ReplaceAll(c.mailURL, "{email}", url.PathEscape(email))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("上游返回的不是合法 JSON")
	}
	return json.RawMessage(body), nil
}
