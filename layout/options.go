package layout

// BuildOptions 配置布局阶段所需的依赖，例如文本测量后端。
type BuildOptions struct {
	Measurer Measurer
	Debug    DebugOptions
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	Guides bool // 在 Plan 末尾追加文本块与面板的参考线
}

// Measurer 返回文本在给定字体下的渲染宽度（逻辑单位）。
// 实现必须是确定性的：相同输入、相同字体得到相同宽度。
type Measurer interface {
	MeasureText(text string, font FontSpec) (float64, error)
}
