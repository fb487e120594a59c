package layout

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/ByLCY/shinapi/dsl"
)

//go:embed themes/default.cards
var defaultThemeSource []byte

// Theme 是语义角色到颜色的映射，每次渲染只有一个生效的 Theme。
type Theme struct {
	Name  string           `json:"name"`
	Roles map[string]Color `json:"roles"`
}

// Color 返回角色对应的颜色；缺失角色属于校验错误。
func (t *Theme) Color(role string) (Color, error) {
	if t == nil {
		return Color{}, Validationf("Theme is not configured")
	}
	c, ok := t.Roles[role]
	if !ok {
		return Color{}, Validationf("Theme %q does not define color %q", t.Name, role)
	}
	return c, nil
}

// ThemeSet 保存某个模板可选的主题，保持声明顺序。
type ThemeSet struct {
	Name   string
	themes []*Theme
}

// Names 按声明顺序返回主题名。
func (s *ThemeSet) Names() []string {
	out := make([]string, 0, len(s.themes))
	for _, t := range s.themes {
		out = append(out, t.Name)
	}
	return out
}

// Lookup 查找主题；未知主题返回列出可用主题的校验错误。
func (s *ThemeSet) Lookup(name string) (*Theme, error) {
	for _, t := range s.themes {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, Validationf("Invalid theme. Available themes: %s", strings.Join(s.Names(), ", "))
}

// Default returns the first declared theme.
func (s *ThemeSet) Default() *Theme {
	if len(s.themes) == 0 {
		return nil
	}
	return s.themes[0]
}

// Themes 是进程级只读配色表，初始化后不再修改。
type Themes struct {
	Name    string
	Version string
	sets    map[string]*ThemeSet
}

// Set 返回指定模板的主题集合。
func (t *Themes) Set(name string) (*ThemeSet, error) {
	set, ok := t.sets[name]
	if !ok {
		return nil, fmt.Errorf("配色表缺少 set %q", name)
	}
	return set, nil
}

// Require 校验集合中每个主题都定义了 roles 中的全部角色。
func (t *Themes) Require(set string, roles []string) error {
	s, err := t.Set(set)
	if err != nil {
		return err
	}
	if len(s.themes) == 0 {
		return fmt.Errorf("set %q 未声明任何主题", set)
	}
	for _, th := range s.themes {
		var missing []string
		for _, role := range roles {
			if _, ok := th.Roles[role]; !ok {
				missing = append(missing, role)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("主题 %s.%s 缺少颜色: %s", set, th.Name, strings.Join(missing, ", "))
		}
	}
	return nil
}

// DefaultThemes 解析内置配色表。
func DefaultThemes() (*Themes, error) {
	return ParseThemes("default.cards", bytes.NewReader(defaultThemeSource))
}

// ParseThemes 解析并构建配色表。
func ParseThemes(filename string, r io.Reader) (*Themes, error) {
	doc, err := dsl.ParseNamed(filename, r)
	if err != nil {
		return nil, fmt.Errorf("解析配色表失败: %w", err)
	}
	return BuildThemes(doc)
}

// BuildThemes 将 AST 转为配色表；extends 只能引用同一 set 中先声明的主题。
func BuildThemes(doc *dsl.Document) (*Themes, error) {
	if doc == nil {
		return nil, fmt.Errorf("配色表为空")
	}
	out := &Themes{Name: doc.Name, Version: doc.Version, sets: map[string]*ThemeSet{}}
	for _, sec := range doc.Sets {
		if _, dup := out.sets[sec.Name]; dup {
			return nil, fmt.Errorf("%s: 重复的 set %q", sec.Pos, sec.Name)
		}
		set := &ThemeSet{Name: sec.Name}
		byName := map[string]*Theme{}
		for _, decl := range sec.Themes {
			if _, dup := byName[decl.Name]; dup {
				return nil, fmt.Errorf("%s: set %s 中重复的主题 %q", decl.Pos, sec.Name, decl.Name)
			}
			th := &Theme{Name: decl.Name, Roles: map[string]Color{}}
			if decl.Extends != "" {
				base, ok := byName[decl.Extends]
				if !ok {
					return nil, fmt.Errorf("%s: 主题 %s 继承了未声明的主题 %q", decl.Pos, decl.Name, decl.Extends)
				}
				for k, v := range base.Roles {
					th.Roles[k] = v
				}
			}
			for _, entry := range decl.Entries {
				c, err := themeValue(entry.Value)
				if err != nil {
					return nil, fmt.Errorf("%s: %s.%s.%s: %w", entry.Pos, sec.Name, decl.Name, entry.Key, err)
				}
				th.Roles[entry.Key] = c
			}
			byName[decl.Name] = th
			set.themes = append(set.themes, th)
		}
		out.sets[sec.Name] = set
	}
	return out, nil
}

func themeValue(v *dsl.Value) (Color, error) {
	switch {
	case v == nil:
		return Color{}, fmt.Errorf("缺少取值")
	case v.Color != nil, v.String != nil:
		return ParseHexColor(v.Raw())
	case v.Ident != nil && strings.EqualFold(*v.Ident, "transparent"):
		return Transparent, nil
	default:
		return Color{}, fmt.Errorf("不支持的颜色取值 %q", v.Raw())
	}
}
