package renderer

import "github.com/ByLCY/shinapi/layout"

// Renderer 按顺序执行绘制计划并输出编码后的图像。
// Render 返回生成的二进制数据（PNG 字节切片）以及可能的错误；失败时不返回部分图像。
type Renderer interface {
	Render(plan *layout.Plan) ([]byte, error)
}
