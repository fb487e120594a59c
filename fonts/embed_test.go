package fonts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestGoFamilyHasAllStyles(t *testing.T) {
	fam := Go()
	for _, s := range []Style{Regular, Medium, Bold, Black, Italic, BoldItalic} {
		if len(fam.Styles[s]) == 0 {
			t.Fatalf("style %s missing", s)
		}
	}
	if !bytes.Equal(fam.Styles[Black], fam.Styles[Bold]) {
		t.Fatalf("black should reuse bold")
	}
}

func TestLoadBuiltinAndFile(t *testing.T) {
	data, err := Load("", "builtin:go-bold")
	if err != nil || len(data) == 0 {
		t.Fatalf("Load(builtin) = %d bytes, %v", len(data), err)
	}
	if _, err := Load("", "builtin:comic-sans"); err == nil {
		t.Fatalf("unknown builtin should fail")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.ttf"), []byte("fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err = Load(dir, "x.ttf")
	if err != nil || string(data) != "fake" {
		t.Fatalf("Load(file) = %q, %v", data, err)
	}
	if _, err := Load(dir, "missing.ttf"); err == nil {
		t.Fatalf("missing file should fail")
	}
}

func TestSpecLoad(t *testing.T) {
	fam, err := Spec{Name: "Brand", Regular: "builtin:go-regular", Bold: "builtin:go-bold"}.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if len(fam.Styles) != 2 || fam.Name != "Brand" {
		t.Fatalf("family = %s with %d styles", fam.Name, len(fam.Styles))
	}
	if _, err := (Spec{Name: "Brand"}).Load(""); err == nil {
		t.Fatalf("regular is required")
	}
	if _, err := (Spec{Regular: "builtin:go-regular"}).Load(""); err == nil {
		t.Fatalf("name is required")
	}
}
