package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ByLCY/shinapi/asset"
	"github.com/ByLCY/shinapi/card"
	"github.com/ByLCY/shinapi/config"
	"github.com/ByLCY/shinapi/layout"
	canvasrenderer "github.com/ByLCY/shinapi/renderer/canvas"
	"github.com/ByLCY/shinapi/upstream"
)

const unreachable = "http://127.0.0.1:1/missing.png"

type fakeUpstream struct {
	video *upstream.FacebookVideo
	inbox json.RawMessage
	err   error
	panic bool
}

func (f *fakeUpstream) FacebookVideo(ctx context.Context, videoURL string) (*upstream.FacebookVideo, error) {
	if f.panic {
		panic("boom")
	}
	return f.video, f.err
}

func (f *fakeUpstream) TempMailInbox(ctx context.Context, email string) (json.RawMessage, error) {
	return f.inbox, f.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newCards(t *testing.T) *card.Engine {
	t.Helper()
	themes, err := layout.DefaultThemes()
	if err != nil {
		t.Fatal(err)
	}
	resolver, err := asset.NewResolver(asset.Options{Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	backend, err := canvasrenderer.NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	e, err := card.New(card.Options{
		Themes: themes, Resolver: resolver, Backend: backend,
		Tweet: layout.DefaultTweetConfig(), Welcome: layout.DefaultWelcomeConfig(),
		Logger: quiet(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func newTestServer(t *testing.T, up *fakeUpstream, docs string) http.Handler {
	t.Helper()
	if up == nil {
		up = &fakeUpstream{}
	}
	site := config.DefaultConfig().Site
	site.Author = "ShinDesu"
	s, err := New(Options{Site: site, DocsDir: docs, Cards: newCards(t), Upstream: up, Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s.Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func get(path string, query url.Values) *http.Request {
	if query != nil {
		path += "?" + query.Encode()
	}
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func TestTweetHelloWorld(t *testing.T) {
	h := newTestServer(t, nil, "")
	rec := do(t, h, get("/canvas/tweet", url.Values{"text": {"Hello world"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1200 {
		t.Fatalf("width = %d", cfg.Width)
	}
}

func TestTweetPostJSON(t *testing.T) {
	h := newTestServer(t, nil, "")
	req := httptest.NewRequest(http.MethodPost, "/canvas/tweet", strings.NewReader(`{"text":"from json","verified":false,"theme":"dark"}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := do(t, h, req); rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	form := strings.NewReader(url.Values{"text": {"from form"}}.Encode())
	req = httptest.NewRequest(http.MethodPost, "/canvas/tweet", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rec := do(t, h, req); rec.Code != http.StatusOK {
		t.Fatalf("form status = %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/canvas/tweet", strings.NewReader(`{"text":`))
	req.Header.Set("Content-Type", "application/json")
	if rec := do(t, h, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("broken json status = %d", rec.Code)
	}
}

func TestTweetErrors(t *testing.T) {
	h := newTestServer(t, nil, "")

	rec := do(t, h, get("/canvas/tweet", nil))
	body := jsonBody(t, rec)
	if rec.Code != http.StatusBadRequest || body["error"] != "Missing required parameter: text" {
		t.Fatalf("missing text: %d %v", rec.Code, body)
	}
	if body["creator"] != "ShinDesu" {
		t.Fatalf("creator missing: %v", body)
	}

	rec = do(t, h, get("/canvas/tweet", url.Values{"text": {"hi"}, "theme": {"sepia"}}))
	body = jsonBody(t, rec)
	msg, _ := body["error"].(string)
	if rec.Code != http.StatusBadRequest || !strings.HasSuffix(msg, "Available themes: light, dark") {
		t.Fatalf("sepia: %d %v", rec.Code, body)
	}

	rec = do(t, h, get("/canvas/tweet", url.Values{"text": {"hi"}, "avatar_url": {unreachable}}))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("avatar failure status = %d", rec.Code)
	}
	if msg, _ := jsonBody(t, rec)["error"].(string); msg == "" {
		t.Fatalf("500 should carry a message")
	}

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/canvas/tweet", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
}

func TestWelcomeRecoversFromUnreachableAssets(t *testing.T) {
	h := newTestServer(t, nil, "")
	for name, q := range map[string]url.Values{
		"background": {"username": {"neo"}, "bg_image": {unreachable}},
		"avatar":     {"username": {"neo"}, "avatar_url": {unreachable}},
	} {
		rec := do(t, h, get("/canvas/welcome", q))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d: %s", name, rec.Code, rec.Body.String())
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
			t.Fatalf("%s: not a PNG", name)
		}
	}
}

func TestEndpointsCatalog(t *testing.T) {
	h := newTestServer(t, nil, "")
	rec := do(t, h, get("/endpoints", nil))
	var body struct {
		Status    bool       `json:"status"`
		Count     int        `json:"count"`
		Creator   string     `json:"creator"`
		Endpoints []Category `json:"endpoints"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Status || body.Count != 4 || len(body.Endpoints) != 3 {
		t.Fatalf("catalog = %+v", body)
	}
	first := body.Endpoints[0]
	if first.Name != "canvas" || len(first.Items) != 2 {
		t.Fatalf("canvas bucket = %+v", first)
	}
	if !strings.HasPrefix(first.Items[0].Path, "/canvas/tweet?text=&name=") {
		t.Fatalf("display path = %q", first.Items[0].Path)
	}
	if got := strings.Join(first.Items[0].Methods, ","); got != "GET,POST" {
		t.Fatalf("methods = %q", got)
	}
}

func TestSettings(t *testing.T) {
	h := newTestServer(t, nil, "")
	body := jsonBody(t, do(t, h, get("/set", nil)))
	if body["status"] != true || body["name"] != "Shin APIs" || body["operator"] != "ShinDesu" {
		t.Fatalf("settings = %v", body)
	}
}

func TestFBDL(t *testing.T) {
	title := "clip"
	up := &fakeUpstream{video: &upstream.FacebookVideo{Title: &title}}
	h := newTestServer(t, up, "")

	rec := do(t, h, get("/downloader/fbdlv2", nil))
	body := jsonBody(t, rec)
	if rec.Code != http.StatusBadRequest || body["error"] != "Missing required parameter: url" || body["timestamp"] != "2026-01-02T03:04:05.000Z" {
		t.Fatalf("missing url: %d %v", rec.Code, body)
	}

	rec = do(t, h, get("/downloader/fbdlv2", url.Values{"url": {"https://fb.watch/x"}}))
	body = jsonBody(t, rec)
	result, _ := body["result"].(map[string]any)
	if rec.Code != http.StatusOK || result["title"] != "clip" || result["hd"] != nil {
		t.Fatalf("fbdl: %d %v", rec.Code, body)
	}

	up.err = errors.New("upstream down")
	rec = do(t, h, get("/downloader/fbdlv2", url.Values{"url": {"https://fb.watch/x"}}))
	if rec.Code != http.StatusInternalServerError || jsonBody(t, rec)["error"] != "upstream down" {
		t.Fatalf("fbdl error: %d %s", rec.Code, rec.Body.String())
	}
}

func TestInbox(t *testing.T) {
	up := &fakeUpstream{inbox: json.RawMessage(`[{"subject":"hi"}]`)}
	h := newTestServer(t, up, "")

	if rec := do(t, h, get("/tempmail/inbox", nil)); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing email status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/tempmail/inbox", strings.NewReader("email=a%40temp-mail.io"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, h, req)
	answer, _ := jsonBody(t, rec)["answer"].([]any)
	if rec.Code != http.StatusOK || len(answer) != 1 {
		t.Fatalf("inbox: %d %s", rec.Code, rec.Body.String())
	}
}

func TestPanicRecovered(t *testing.T) {
	h := newTestServer(t, &fakeUpstream{panic: true}, "")
	rec := do(t, h, get("/downloader/fbdlv2", url.Values{"url": {"x"}}))
	if rec.Code != http.StatusInternalServerError || jsonBody(t, rec)["error"] != "Internal server error" {
		t.Fatalf("panic: %d %s", rec.Code, rec.Body.String())
	}
}

func TestStaticDocsAndNotFound(t *testing.T) {
	h := newTestServer(t, nil, "")
	rec := do(t, h, get("/nope", nil))
	if rec.Code != http.StatusNotFound || jsonBody(t, rec)["error"] != "Not found" {
		t.Fatalf("404 json: %d %s", rec.Code, rec.Body.String())
	}

	docs := t.TempDir()
	if err := os.WriteFile(filepath.Join(docs, "intro.html"), []byte("<h1>intro</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(docs, "err"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docs, "err", "404.html"), []byte("lost"), 0o644); err != nil {
		t.Fatal(err)
	}
	h = newTestServer(t, nil, docs)
	rec = do(t, h, get("/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "intro") {
		t.Fatalf("intro: %d %q", rec.Code, rec.Body.String())
	}
	rec = do(t, h, get("/dashboard", nil))
	if rec.Code != http.StatusNotFound || rec.Body.String() != "lost" {
		t.Fatalf("missing dashboard: %d %q", rec.Code, rec.Body.String())
	}
}
