package server

import (
	"net/http"
	"slices"
	"strings"
)

// Param 描述端点的一个请求参数，供文档页面展示。
type Param struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Example     string   `json:"example,omitempty"`
	Required    bool     `json:"required"`
	Options     []string `json:"options,omitempty"`
}

// Meta 是端点的文档元数据。
type Meta struct {
	Name     string            `json:"name"`
	Desc     string            `json:"desc"`
	Method   []string          `json:"method"`
	Category string            `json:"category"`
	Guide    map[string]string `json:"guide,omitempty"`
	Params   []Param           `json:"params,omitempty"`
}

// Item 是 /endpoints 中的一项：元数据加上展示路径与允许的方法。
type Item struct {
	Meta
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

// Category 按类别分组端点，保持注册顺序。
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

type endpoint struct {
	meta    Meta
	handler http.HandlerFunc
}

// route 返回 "/<category-slug>/<name>"。
func route(category, name string) string {
	slug := strings.NewReplacer(" ", "-", "/", "-").Replace(strings.ToLower(category))
	return "/" + slug + "/" + name
}

// displayPath 在路由后附加参数模板，例如 "/canvas/tweet?text=&name="。
func displayPath(r string, params []Param) string {
	if len(params) == 0 {
		return r
	}
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Name+"=")
	}
	return r + "?" + strings.Join(names, "&")
}

func methods(m Meta) []string {
	if len(m.Method) == 0 {
		return []string{http.MethodGet}
	}
	out := make([]string, 0, len(m.Method))
	for _, v := range m.Method {
		out = append(out, strings.ToUpper(v))
	}
	return out
}

// register 挂载端点并记录到目录中。name 为路由的最后一段。
func (s *Server) register(name string, ep endpoint) {
	r := route(ep.meta.Category, name)
	allowed := methods(ep.meta)
	s.mux.HandleFunc(r, func(w http.ResponseWriter, req *http.Request) {
		if !slices.Contains(allowed, req.Method) {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		ep.handler(w, req)
	})

	item := Item{Meta: ep.meta, Path: displayPath(r, ep.meta.Params), Methods: allowed}
	for i := range s.catalog {
		if s.catalog[i].Name == ep.meta.Category {
			s.catalog[i].Items = append(s.catalog[i].Items, item)
			s.logger.Debug("endpoint registered", "route", r, "category", ep.meta.Category)
			return
		}
	}
	s.catalog = append(s.catalog, Category{Name: ep.meta.Category, Items: []Item{item}})
	s.logger.Debug("endpoint registered", "route", r, "category", ep.meta.Category)
}

// Endpoints returns the registered catalog.
func (s *Server) Endpoints() []Category { return s.catalog }

func (s *Server) endpointCount() int {
	n := 0
	for _, c := range s.catalog {
		n += len(c.Items)
	}
	return n
}

var tweetMeta = Meta{
	Name:     "tweet",
	Desc:     "Generate a high-quality, professional image mimicking a Twitter post design with dynamic height based on text content",
	Method:   []string{"get", "post"},
	Category: "canvas",
	Params: []Param{
		{Name: "text", Description: "The main text content of the tweet", Example: "Tinuruan ko lang pano mag if-else mahal nya daw agad ako.", Required: true},
		{Name: "name", Description: "The display name of the user", Example: "Lance Cochangco"},
		{Name: "username", Description: "Username of the user", Example: "@ajirodesu"},
		{Name: "avatar_url", Description: "URL to the avatar image", Example: "https://github.com/ghost.png"},
		{Name: "time", Description: "The time of the post", Example: "2:17 AM"},
		{Name: "day", Description: "The day of the post", Example: "Tuesday"},
		{Name: "views", Description: "The view count", Example: "192.6K Views"},
		{Name: "tag", Description: "The tag or category", Example: "AJIRO HQ"},
		{Name: "verified", Description: "Whether to show verified badge (true/false)", Example: "true", Options: []string{"true", "false"}},
		{Name: "theme", Description: `Theme options, e.g. "dark" for dark mode`, Example: "dark", Options: []string{"light", "dark"}},
	},
}

var welcomeMeta = Meta{
	Name:     "welcome-pro",
	Desc:     "Generate a high-end, glassmorphic welcome image with procedural backgrounds and squircle avatars.",
	Method:   []string{"get", "post"},
	Category: "canvas",
	Params: []Param{
		{Name: "username", Description: "The new member's username", Example: "DesignGod", Required: true},
		{Name: "avatar_url", Description: "User avatar URL", Example: "https://github.com/ghost.png", Required: true},
		{Name: "title", Description: "Main title text", Example: "WELCOME"},
		{Name: "subtitle", Description: "Subtitle (e.g. Server Name)", Example: "TO THE DESIGN LAB"},
		{Name: "footer", Description: "Footer text (e.g. Member count)", Example: "Member #4,291"},
		{Name: "theme", Description: "Accent color (hex)", Example: "#6366f1"},
		{Name: "bg_image", Description: "Optional custom background URL"},
	},
}

var fbdlMeta = Meta{
	Name:     "Facebook Downloader V2",
	Desc:     "Extract downloadable links and metadata from a Facebook video URL using saveas.co",
	Method:   []string{"get"},
	Category: "downloader",
	Guide:    map[string]string{"url": "Direct Facebook video URL to extract download links from"},
	Params:   []Param{{Name: "url", Description: "Direct Facebook video URL", Required: true}},
}

var inboxMeta = Meta{
	Name:     "Inbox",
	Desc:     "Fetch inbox for temporary email",
	Method:   []string{"get", "post"},
	Category: "tempmail",
	Params:   []Param{{Name: "email", Description: "The temporary email address", Example: "example@temp-mail.io", Required: true}},
}
