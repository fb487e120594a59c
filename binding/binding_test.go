package binding

import "testing"

func TestInterpolateFooter(t *testing.T) {
	data := map[string]any{
		"time":  "2:17 AM",
		"day":   "Tuesday",
		"views": "192.6K Views",
		"tag":   "coding memes",
	}
	got := Interpolate("${time} · ${day} · ${views} | ${tag|upper}", data)
	want := "2:17 AM · Tuesday · 192.6K Views | CODING MEMES"
	if got != want {
		t.Fatalf("Interpolate() = %q, want %q", got, want)
	}
}

func TestInterpolateKeepsUnknown(t *testing.T) {
	data := map[string]any{"a": "x"}
	cases := map[string]string{
		"${missing}":     "${missing}",
		"${a|nope}":      "${a|nope}",
		"${ }":           "${ }",
		"plain":          "plain",
		"${a} ${a|trim}": "x x",
	}
	for in, want := range cases {
		if got := Interpolate(in, data); got != want {
			t.Fatalf("Interpolate(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Interpolate("${a}", nil); got != "${a}" {
		t.Fatalf("nil data should keep placeholder, got %q", got)
	}
}

func TestLookupNested(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{
			"names": []any{"doji", "shin"},
		},
	}
	v, ok := Lookup(data, "user.names[1]")
	if !ok || v != "shin" {
		t.Fatalf("Lookup() = %v, %v", v, ok)
	}
	if _, ok := Lookup(data, "user.names[5]"); ok {
		t.Fatalf("out of range index should fail")
	}
	if _, ok := Lookup(data, "user.names[x]"); ok {
		t.Fatalf("non-numeric index should fail")
	}
}
