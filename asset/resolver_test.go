package asset

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ByLCY/shinapi/layout"
)

// unreachableURL 指向保留端口，连接会被立即拒绝。
const unreachableURL = "http://127.0.0.1:1/avatar.png"

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestResolver(t *testing.T, opts Options) *Resolver {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	r, err := NewResolver(opts)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func imageServer(t *testing.T, body []byte, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Errorf("missing user agent")
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchDecodesPNG(t *testing.T) {
	srv := imageServer(t, pngBytes(t, 7, 5), http.StatusOK)
	r := newTestResolver(t, Options{})
	img, err := r.Fetch(context.Background(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := img.Bounds().Size(); got != (image.Point{X: 7, Y: 5}) {
		t.Fatalf("size = %v", got)
	}
}

func TestFetchErrors(t *testing.T) {
	notFound := imageServer(t, []byte("nope"), http.StatusNotFound)
	garbage := imageServer(t, []byte("definitely not an image"), http.StatusOK)
	big := imageServer(t, pngBytes(t, 64, 64), http.StatusOK)

	cases := []struct {
		name string
		opts Options
		url  string
		op   string
	}{
		{"status", Options{}, notFound.URL, "status"},
		{"decode", Options{}, garbage.URL, "decode"},
		{"too large", Options{MaxBytes: 16}, big.URL, "read"},
		{"unreachable", Options{}, unreachableURL, "fetch"},
		{"scheme", Options{}, "ftp://example.com/a.png", "url"},
		{"host", Options{AllowedHosts: []string{"*.example.com"}}, unreachableURL, "host"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestResolver(t, tc.opts)
			_, err := r.Fetch(context.Background(), tc.url)
			var ae *Error
			if !errors.As(err, &ae) {
				t.Fatalf("want *Error, got %v", err)
			}
			if ae.Op != tc.op {
				t.Fatalf("op = %q, want %q (%v)", ae.Op, tc.op, err)
			}
		})
	}
}

func TestHostAllowList(t *testing.T) {
	r := newTestResolver(t, Options{AllowedHosts: []string{"*.githubusercontent.com", "127.0.0.1"}})
	for host, want := range map[string]bool{
		"raw.githubusercontent.com": true,
		"RAW.GithubUserContent.com": true,
		"127.0.0.1":                 true,
		"evil.example.com":          false,
	} {
		if got := r.hostAllowed(host); got != want {
			t.Fatalf("hostAllowed(%q) = %v, want %v", host, got, want)
		}
	}
	if _, err := NewResolver(Options{AllowedHosts: []string{"[unclosed"}}); err == nil {
		t.Fatalf("invalid pattern should be rejected")
	}
}

func TestResolvePolicies(t *testing.T) {
	r := newTestResolver(t, Options{})
	ctx := context.Background()
	ph := func() image.Image { return SquarePlaceholder(4, color.Black) }

	img, err := r.Resolve(ctx, "", layout.FailOnFetchError, ph)
	if err != nil || img == nil || img.Bounds().Dx() != 4 {
		t.Fatalf("absent url should yield placeholder, got %v, %v", img, err)
	}
	if img, err := r.Resolve(ctx, "", layout.OmitOnFetchError, nil); err != nil || img != nil {
		t.Fatalf("absent url without placeholder = %v, %v", img, err)
	}

	if _, err := r.Resolve(ctx, unreachableURL, layout.FailOnFetchError, ph); err == nil {
		t.Fatalf("fail policy should propagate the error")
	}
	img, err = r.Resolve(ctx, unreachableURL, layout.FallbackOnFetchError, ph)
	if err != nil || img == nil {
		t.Fatalf("fallback policy = %v, %v", img, err)
	}
	img, err = r.Resolve(ctx, unreachableURL, layout.OmitOnFetchError, ph)
	if err != nil || img != nil {
		t.Fatalf("omit policy = %v, %v", img, err)
	}
}

func TestPlaceholders(t *testing.T) {
	c := color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	circle := CirclePlaceholder(60, c).(*image.RGBA)
	if got := circle.RGBAAt(30, 30); got != c {
		t.Fatalf("circle center = %v", got)
	}
	if got := circle.RGBAAt(1, 1); got.A != 0 {
		t.Fatalf("circle corner should be transparent, got %v", got)
	}
	again := CirclePlaceholder(60, c).(*image.RGBA)
	if !bytes.Equal(circle.Pix, again.Pix) {
		t.Fatalf("placeholder is not deterministic")
	}

	square := SquarePlaceholder(220, c).(*image.RGBA)
	if square.Bounds().Dx() != 220 || square.RGBAAt(0, 0) != c || square.RGBAAt(219, 219) != c {
		t.Fatalf("square placeholder not filled")
	}
}
