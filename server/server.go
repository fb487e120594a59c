// Package server 提供 HTTP 接口：卡片生成、两个上游代理、端点目录、站点设置与文档静态文件。
// 所有 JSON 响应都带有 creator 字段。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ByLCY/shinapi/card"
	"github.com/ByLCY/shinapi/config"
	"github.com/ByLCY/shinapi/layout"
	"github.com/ByLCY/shinapi/upstream"
)

const internalError = "Internal server error"

// Cards renders card templates, see card.Engine.
type Cards interface {
	Render(ctx context.Context, template string, p card.Params) ([]byte, error)
}

// Upstream 是两个第三方服务，见 upstream.Client。
type Upstream interface {
	FacebookVideo(ctx context.Context, videoURL string) (*upstream.FacebookVideo, error)
	TempMailInbox(ctx context.Context, email string) (json.RawMessage, error)
}

// Options configures a Server.
type Options struct {
	Site         config.SiteConfig
	DocsDir      string
	MaxBodyBytes int64
	Cards        Cards
	Upstream     Upstream
	Logger       *slog.Logger
}

// Server 持有路由与端点目录，构建后只读。
type Server struct {
	mux      *http.ServeMux
	site     config.SiteConfig
	docs     string
	maxBody  int64
	cards    Cards
	upstream Upstream
	catalog  []Category
	logger   *slog.Logger
	now      func() time.Time
}

// New registers every route.
func New(opts Options) (*Server, error) {
	if opts.Cards == nil || opts.Upstream == nil {
		return nil, fmt.Errorf("server 需要 Cards 与 Upstream")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	s := &Server{
		mux:      http.NewServeMux(),
		site:     opts.Site,
		docs:     opts.DocsDir,
		maxBody:  maxBody,
		cards:    opts.Cards,
		upstream: opts.Upstream,
		logger:   logger,
		now:      time.Now,
	}
	if s.docs != "" {
		if info, err := os.Stat(s.docs); err != nil || !info.IsDir() {
			logger.Warn("docs directory not found, static pages disabled", "dir", s.docs)
			s.docs = ""
		}
	}

	s.register("tweet", endpoint{meta: tweetMeta, handler: s.canvasHandler(card.Tweet)})
	s.register("welcome", endpoint{meta: welcomeMeta, handler: s.canvasHandler(card.Welcome)})
	s.register("fbdlv2", endpoint{meta: fbdlMeta, handler: s.handleFBDL})
	s.register("inbox", endpoint{meta: inboxMeta, handler: s.handleInbox})

	s.mux.HandleFunc("GET /endpoints", s.handleEndpoints)
	s.mux.HandleFunc("GET /set", s.handleSettings)
	s.mux.HandleFunc("GET /dashboard", s.page("dashboard.html"))
	s.mux.HandleFunc("GET /category/{category}", s.page("category.html"))
	s.mux.HandleFunc("/", s.handleStatic)
	return s, nil
}

// Handler returns the root handler with panic recovery and request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.recoverPanics(s.mux))
}

// ---- JSON 响应 ----

// writeJSON 写入带 creator 的 JSON（两空格缩进）。
func (s *Server) writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	out := make(map[string]any, len(body)+1)
	out["creator"] = s.site.Author
	for k, v := range body {
		out[k] = v
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		s.logger.Error("encode response", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error": "` + internalError + `"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = internalError
	}
	s.writeJSON(w, status, map[string]any{"error": msg})
}

// ---- 卡片 ----

func (s *Server) canvasHandler(template string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		params, err := s.requestParams(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		data, err := s.cards.Render(r.Context(), template, params)
		if err != nil {
			if layout.IsValidation(err) {
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.Error("render failed", "template", template, "error", err)
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// ---- 上游 ----

func (s *Server) timestamp() string { return s.now().UTC().Format("2006-01-02T15:04:05.000Z") }

func (s *Server) handleFBDL(w http.ResponseWriter, r *http.Request) {
	videoURL := r.URL.Query().Get("url")
	if videoURL == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "Missing required parameter: url",
			"timestamp": s.timestamp(),
		})
		return
	}
	result, err := s.upstream.FacebookVideo(r.Context(), videoURL)
	if err != nil {
		s.logger.Error("fbdl upstream failed", "error", err)
		msg := err.Error()
		if msg == "" {
			msg = "Failed to extract data"
		}
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"error": msg, "timestamp": s.timestamp()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"result": result, "timestamp": s.timestamp()})
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	params, err := s.requestParams(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := params.String("email")
	if email == "" {
		s.writeError(w, http.StatusBadRequest, "Missing required parameter: email")
		return
	}
	answer, err := s.upstream.TempMailInbox(r.Context(), email)
	if err != nil {
		s.logger.Error("tempmail upstream failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"answer": answer})
}

// ---- 目录与设置 ----

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    true,
		"count":     s.endpointCount(),
		"endpoints": s.catalog,
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	raw, err := json.Marshal(s.site)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "")
		return
	}
	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		s.writeError(w, http.StatusInternalServerError, "")
		return
	}
	body["status"] = true
	s.writeJSON(w, http.StatusOK, body)
}

// ---- 静态文档 ----

// docFile 返回 docs 目录下 urlPath 对应的普通文件路径，不存在时返回空串。
func (s *Server) docFile(urlPath string) string {
	if s.docs == "" {
		return ""
	}
	name := filepath.Join(s.docs, filepath.FromSlash(path.Clean("/"+urlPath)))
	if info, err := os.Stat(name); err != nil || info.IsDir() {
		return ""
	}
	return name
}

func (s *Server) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f := s.docFile(name); f != "" {
			http.ServeFile(w, r, f)
			return
		}
		s.notFound(w, r)
	}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.notFound(w, r)
		return
	}
	target := r.URL.Path
	if target == "/" {
		target = "intro.html"
	}
	if f := s.docFile(target); f != "" {
		http.ServeFile(w, r, f)
		return
	}
	s.notFound(w, r)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("404", "method", r.Method, "path", r.URL.Path)
	if f := s.docFile("err/404.html"); f != "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		if data, err := os.ReadFile(f); err == nil {
			_, _ = w.Write(data)
		}
		return
	}
	s.writeError(w, http.StatusNotFound, "Not found")
}

// ---- 中间件 ----

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.status = http.StatusOK
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.logger.Error("500", "path", r.URL.Path, "panic", fmt.Sprint(v))
				if !rec.wrote {
					s.writeError(rec, http.StatusInternalServerError, internalError)
				}
			}
		}()
		next.ServeHTTP(rec, r)
	})
}
