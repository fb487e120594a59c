package layout

import (
	"encoding/json"
	"os"
)

// guideColor 是调试参考线的颜色（半透明品红）。
var guideColor = Color{R: 0xff, G: 0x00, B: 0xff, A: 0x99}

func (b *planBuilder) guide(r Rect) {
	b.stroke(RectPath(r), Solid(guideColor), 1)
}

// WriteDebugJSON 将绘制计划输出为 JSON，便于调试或可视化；位图只记录目标区域。
func WriteDebugJSON(plan *Plan, path string) error {
	if plan == nil {
		return nil
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
