package card

import (
	"fmt"
	"strings"
)

// Params 是一次请求的字段集合，来自查询串、表单或 JSON 请求体，值为 string、bool 或数字。
type Params map[string]any

// String 返回字段的字符串形式；缺失或为 null 时返回空串。
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case []string:
		if len(x) == 0 {
			return ""
		}
		return x[0]
	default:
		return fmt.Sprint(x)
	}
}

// First 返回 keys 中第一个非空字段。
func (p Params) First(keys ...string) string {
	for _, k := range keys {
		if s := p.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Verified 解析认证标记：缺失为 true；"true"、"1" 或 JSON true 为 true；其余为 false。
func (p Params) Verified(key string) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return true
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x == 1
	default:
		s := strings.TrimSpace(strings.ToLower(p.String(key)))
		return s == "true" || s == "1"
	}
}
