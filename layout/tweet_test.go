package layout

import (
	"image"
	"strings"
	"testing"
)

func tweetTheme(t *testing.T, name string) *Theme {
	t.Helper()
	set, err := mustDefaultThemes(t).Set("tweet")
	if err != nil {
		t.Fatal(err)
	}
	th, err := set.Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	return th
}

func defaultTweet(text string) TweetInput {
	in := TweetInput{Text: text, Verified: true}
	in.ApplyDefaults()
	return in
}

func kinds(p *Plan) []OpKind {
	out := make([]OpKind, 0, len(p.Ops))
	for _, op := range p.Ops {
		out = append(out, op.Kind)
	}
	return out
}

func TestTweetHeightMonotonic(t *testing.T) {
	cfg := DefaultTweetConfig()
	prev := 0.0
	for n := 1; n <= 60; n++ {
		h := cfg.TweetHeight(n)
		if h <= prev {
			t.Fatalf("height not strictly increasing at n=%d: %g <= %g", n, h, prev)
		}
		if want := 80 + float64(n)*24 + 60 + 40 + 20; h != want {
			t.Fatalf("TweetHeight(%d) = %g, want %g", n, h, want)
		}
		prev = h
	}
}

func TestMeasureTweetHeightTracksLines(t *testing.T) {
	cfg := DefaultTweetConfig()
	m := &stubMeasurer{}
	prevLines, prevHeight := 0, 0.0
	for words := 1; words <= 120; words += 7 {
		text := strings.TrimSpace(strings.Repeat("word ", words))
		geo, err := MeasureTweet(text, cfg, m)
		if err != nil {
			t.Fatal(err)
		}
		n := len(geo.Text.Lines)
		if n < prevLines || (n > prevLines && geo.Height <= prevHeight) {
			t.Fatalf("height %g for %d lines after %g for %d lines", geo.Height, n, prevHeight, prevLines)
		}
		if geo.Bubble.Height != geo.Text.Height()+60 {
			t.Fatalf("bubble height %g does not follow text height %g", geo.Bubble.Height, geo.Text.Height())
		}
		prevLines, prevHeight = n, geo.Height
	}
}

func TestBuildTweetOrder(t *testing.T) {
	in := defaultTweet("Hello world")
	in.Avatar = image.NewRGBA(image.Rect(0, 0, 60, 60))
	plan, err := BuildTweet(in, tweetTheme(t, "light"), DefaultTweetConfig(), BuildOptions{Measurer: &stubMeasurer{}})
	if err != nil {
		t.Fatalf("BuildTweet() error = %v", err)
	}
	want := []OpKind{
		OpFillPath,   // background
		OpDrawBitmap, // avatar
		OpDrawText,   // name
		OpFillPath,   // badge disc
		OpFillPath,   // checkmark
		OpDrawText,   // handle
		OpFillPath,   // bubble
		OpDrawText,   // body line
		OpDrawText,   // footer
	}
	got := kinds(plan)
	if len(got) != len(want) {
		t.Fatalf("ops = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("op %d = %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}
	if w, h := plan.PixelSize(); w != 1200 || h != 2*(80+24+60+40+20) {
		t.Fatalf("PixelSize() = %dx%d", w, h)
	}

	avatar := plan.Ops[1]
	if avatar.Clip == nil || *avatar.Dest != (Rect{X: 25, Y: 15, Width: 50, Height: 50}) {
		t.Fatalf("avatar op = %+v", avatar)
	}
	// 只有气泡带阴影。
	for i, op := range plan.Ops {
		if (op.Shadow != nil) != (i == 6) {
			t.Fatalf("op %d shadow = %+v", i, op.Shadow)
		}
	}
	if s := plan.Ops[6].Shadow; s.Blur != 5 || s.OffsetY != 2 || s.Color != (Color{0, 0, 0, 0x0d}) {
		t.Fatalf("bubble shadow = %+v", s)
	}
	footer := plan.Ops[8].Text
	if footer.Content != "2:17 AM · Tuesday · 192.6K Views | CODING LESSONS AND CODING MEMES" {
		t.Fatalf("footer = %q", footer.Content)
	}
	if footer.X != 50 || footer.Y != 70+84+15 {
		t.Fatalf("footer at (%g, %g)", footer.X, footer.Y)
	}
	body := plan.Ops[7].Text
	if body.Content != "Hello world" || body.X != 50 || body.Y != 100 || body.Font.Size != 18 {
		t.Fatalf("body = %+v", body)
	}
}

func TestBuildTweetBadgeFollowsName(t *testing.T) {
	m := &stubMeasurer{}
	in := defaultTweet("x")
	plan, err := BuildTweet(in, tweetTheme(t, "dark"), DefaultTweetConfig(), BuildOptions{Measurer: m})
	if err != nil {
		t.Fatal(err)
	}
	// 无头像：背景、名称、徽章圆、对勾。
	disc := plan.Ops[2]
	nameW := float64(len(DefaultTweetName)) * 16 * 0.5
	b := disc.Path.Bounds()
	if !near(b.X, 85+nameW+5) || !near(b.Y, 23) || !near(b.Width, 16) {
		t.Fatalf("badge bounds = %+v (name width %g)", b, nameW)
	}
	if disc.Paint.Color != MustHex("#1d9bf0") {
		t.Fatalf("badge color = %+v", disc.Paint.Color)
	}
	if plan.Ops[3].Paint.Color != MustHex("#ffffff") {
		t.Fatalf("checkmark color = %+v", plan.Ops[3].Paint.Color)
	}
}

func TestBuildTweetUnverifiedHasNoBadge(t *testing.T) {
	in := defaultTweet("no badge here")
	in.Verified = false
	plan, err := BuildTweet(in, tweetTheme(t, "light"), DefaultTweetConfig(), BuildOptions{Measurer: &stubMeasurer{}})
	if err != nil {
		t.Fatal(err)
	}
	for _, op := range plan.Ops {
		if op.Kind == OpFillPath && op.Paint.Color == MustHex("#1d9bf0") {
			t.Fatalf("unexpected badge op")
		}
	}
	if len(plan.Ops) != 6 {
		t.Fatalf("ops = %v", kinds(plan))
	}
}

func TestBuildTweetMultiline(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("lorem ipsum dolor ", 20))
	plan, err := BuildTweet(defaultTweet(text), tweetTheme(t, "light"), DefaultTweetConfig(), BuildOptions{Measurer: &stubMeasurer{}})
	if err != nil {
		t.Fatal(err)
	}
	var ys []float64
	for _, op := range plan.Ops {
		if op.Kind == OpDrawText && op.Text.Font.Size == 18 {
			ys = append(ys, op.Text.Y)
		}
	}
	if len(ys) < 2 {
		t.Fatalf("expected multiple body lines, got %d", len(ys))
	}
	for i, y := range ys {
		if y != 100+float64(i)*24 {
			t.Fatalf("line %d at y=%g", i, y)
		}
	}
	if plan.Height != DefaultTweetConfig().TweetHeight(len(ys)) {
		t.Fatalf("height %g does not match %d lines", plan.Height, len(ys))
	}
}

func TestBuildTweetValidation(t *testing.T) {
	in := TweetInput{}
	in.ApplyDefaults()
	_, err := BuildTweet(in, tweetTheme(t, "light"), DefaultTweetConfig(), BuildOptions{Measurer: &stubMeasurer{}})
	if !IsValidation(err) || err.Error() != "Missing required parameter: text" {
		t.Fatalf("err = %v", err)
	}
	if _, err := BuildTweet(defaultTweet("x"), tweetTheme(t, "light"), DefaultTweetConfig(), BuildOptions{}); err == nil {
		t.Fatalf("missing measurer should fail")
	}
	bare := &Theme{Name: "bare", Roles: map[string]Color{"background": {}}}
	if _, err := BuildTweet(defaultTweet("x"), bare, DefaultTweetConfig(), BuildOptions{Measurer: &stubMeasurer{}}); !IsValidation(err) {
		t.Fatalf("incomplete theme should be a validation error, got %v", err)
	}
}

func TestTweetDefaults(t *testing.T) {
	in := TweetInput{Text: "t", Theme: "DARK"}
	in.ApplyDefaults()
	if in.Theme != "dark" || in.Name != DefaultTweetName || in.Tag != DefaultTweetTag {
		t.Fatalf("defaults = %+v", in)
	}
}
