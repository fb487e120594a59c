package layout

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

// stubMeasurer 是一个最小实现，仅用于测试：宽度 = 字符数 × 字号 × factor。
// 避免引入 renderer 造成循环依赖。
type stubMeasurer struct {
	factor float64
	calls  int
}

func (s *stubMeasurer) MeasureText(text string, font FontSpec) (float64, error) {
	s.calls++
	f := s.factor
	if f == 0 {
		f = 0.5
	}
	return float64(utf8.RuneCountInString(text)) * font.Size * f, nil
}

type failingMeasurer struct{}

var errMeasure = errors.New("no font")

func (failingMeasurer) MeasureText(string, FontSpec) (float64, error) { return 0, errMeasure }

// 10 logical units per rune.
var tenPerRune = FontSpec{Families: []string{"Go"}, Size: 10, Weight: WeightRegular}

func contents(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Content)
	}
	return out
}

func TestWrapGreedy(t *testing.T) {
	m := &stubMeasurer{factor: 1}
	lines, err := Wrap("aaaa bbbb cccc", tenPerRune, 100, m)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	// "aaaa bbbb " 恰好 100，不超过上限，继续累积。
	want := []string{"aaaa bbbb", "cccc"}
	if got := contents(lines); !reflect.DeepEqual(got, want) {
		t.Fatalf("Wrap() = %q, want %q", got, want)
	}
	if lines[0].Width != 90 || lines[1].Width != 40 {
		t.Fatalf("unexpected widths: %+v", lines)
	}
}

func TestWrapEmptyYieldsOneLine(t *testing.T) {
	lines, err := Wrap("", tenPerRune, 100, &stubMeasurer{factor: 1})
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	if len(lines) != 1 || lines[0].Content != "" || lines[0].Width != 0 {
		t.Fatalf("empty text should yield one empty line, got %+v", lines)
	}
}

func TestWrapLongWordStaysWhole(t *testing.T) {
	lines, err := Wrap("hi supercalifragilistic ok", tenPerRune, 50, &stubMeasurer{factor: 1})
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	want := []string{"hi", "supercalifragilistic", "ok"}
	if got := contents(lines); !reflect.DeepEqual(got, want) {
		t.Fatalf("Wrap() = %q, want %q", got, want)
	}
	if lines[1].Width <= 50 {
		t.Fatalf("overlong word should overflow, width=%g", lines[1].Width)
	}
}

func TestWrapFirstWordNeverCommitsEmptyLine(t *testing.T) {
	lines, err := Wrap("enormousword", tenPerRune, 10, &stubMeasurer{factor: 1})
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	if len(lines) != 1 || lines[0].Content != "enormousword" {
		t.Fatalf("Wrap() = %+v", lines)
	}
}

// TestWrapRejoinPreservesWords 断言：重新拼接各行后，单词既不丢失、不重排，也不重复。
func TestWrapRejoinPreservesWords(t *testing.T) {
	inputs := []string{
		"Hello world",
		"Tinuruan ko lang pano mag if-else mahal nya daw agad ako.",
		strings.Repeat("lorem ipsum dolor sit amet ", 20),
		"  leading and trailing  ",
		"double  spaces   inside   the text which should wrap somewhere",
		"a",
		"",
	}
	widths := []float64{30, 80, 200, 500}
	for _, in := range inputs {
		for _, w := range widths {
			lines, err := Wrap(in, tenPerRune, w, &stubMeasurer{factor: 1})
			if err != nil {
				t.Fatalf("Wrap(%q) error = %v", in, err)
			}
			if len(lines) < 1 {
				t.Fatalf("Wrap(%q) returned no lines", in)
			}
			joined := strings.Join(contents(lines), " ")
			if got, want := strings.Fields(joined), strings.Fields(in); !reflect.DeepEqual(got, want) {
				t.Fatalf("width %g: words changed\n got: %q\nwant: %q", w, got, want)
			}
			for _, l := range lines {
				if l.Content != strings.TrimSpace(l.Content) {
					t.Fatalf("line not trimmed: %q", l.Content)
				}
			}
		}
	}
}

func TestWrapDeterministic(t *testing.T) {
	text := strings.Repeat("determinism matters ", 15)
	first, err := Wrap(text, tenPerRune, 120, &stubMeasurer{factor: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := Wrap(text, tenPerRune, 120, &stubMeasurer{factor: 1})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Wrap() not deterministic")
		}
	}
}

func TestWrapPropagatesMeasureError(t *testing.T) {
	if _, err := Wrap("a b", tenPerRune, 100, failingMeasurer{}); !errors.Is(err, errMeasure) {
		t.Fatalf("expected wrapped measure error, got %v", err)
	}
	if _, err := Wrap("a b", tenPerRune, 100, nil); err == nil {
		t.Fatalf("nil measurer should fail")
	}
}

func TestTextBlockHeight(t *testing.T) {
	block, err := NewTextBlock("aaaa bbbb cccc dddd", tenPerRune, 100, 24, &stubMeasurer{factor: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(block.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(block.Lines))
	}
	if block.Height() != 48 {
		t.Fatalf("Height() = %g, want 48", block.Height())
	}
}
