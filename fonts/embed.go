package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Style 标识字体家族中的一个字重/样式。
type Style string

const (
	Regular    Style = "regular"
	Medium     Style = "medium"
	Bold       Style = "bold"
	Black      Style = "black"
	Italic     Style = "italic"
	BoldItalic Style = "bold-italic"
)

// FallbackName 是内置 Go 字体家族的名称，未知字体名都会回落到它。
const FallbackName = "Go"

var builtin = map[string][]byte{
	"go-regular":       goregular.TTF,
	"go-medium":        gomedium.TTF,
	"go-medium-italic": gomediumitalic.TTF,
	"go-bold":          gobold.TTF,
	"go-bold-italic":   gobolditalic.TTF,
	"go-italic":        goitalic.TTF,
}

// Family 保存一个字体家族各样式的原始字节。
type Family struct {
	Name   string
	Styles map[Style][]byte
}

// Go returns the embedded Go font family. Go 字体没有 Black 字重，使用 Bold 代替。
func Go() *Family {
	return &Family{
		Name: FallbackName,
		Styles: map[Style][]byte{
			Regular:    goregular.TTF,
			Medium:     gomedium.TTF,
			Bold:       gobold.TTF,
			Black:      gobold.TTF,
			Italic:     goitalic.TTF,
			BoldItalic: gobolditalic.TTF,
		},
	}
}

// Spec 描述配置文件中的一个字体家族，各路径可写为 "builtin:go-bold" 或文件路径。
type Spec struct {
	Name       string `toml:"name"`
	Regular    string `toml:"regular"`
	Medium     string `toml:"medium"`
	Bold       string `toml:"bold"`
	Black      string `toml:"black"`
	Italic     string `toml:"italic"`
	BoldItalic string `toml:"bold_italic"`
}

// Load 读取 Spec 中列出的全部样式；regular 为必填项。
func (s Spec) Load(dir string) (*Family, error) {
	if strings.TrimSpace(s.Name) == "" {
		return nil, fmt.Errorf("字体家族缺少 name")
	}
	if s.Regular == "" {
		return nil, fmt.Errorf("字体家族 %s 缺少 regular", s.Name)
	}
	fam := &Family{Name: s.Name, Styles: map[Style][]byte{}}
	for style, src := range map[Style]string{
		Regular:    s.Regular,
		Medium:     s.Medium,
		Bold:       s.Bold,
		Black:      s.Black,
		Italic:     s.Italic,
		BoldItalic: s.BoldItalic,
	} {
		if src == "" {
			continue
		}
		data, err := Load(dir, src)
		if err != nil {
			return nil, err
		}
		fam.Styles[style] = data
	}
	return fam, nil
}

// Load 返回字体的字节数据，path 可写为 "builtin:go-regular"，或相对 dir 的文件路径。
func Load(dir, path string) ([]byte, error) {
	if name, ok := strings.CutPrefix(path, "builtin:"); ok {
		data, found := builtin[name]
		if !found {
			return nil, fmt.Errorf("找不到内置字体 %s", path)
		}
		return data, nil
	}
	target := path
	if !filepath.IsAbs(target) && dir != "" {
		target = filepath.Join(dir, target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", target, err)
	}
	return data, nil
}
