package layout

import "math"

// 逻辑单位约定：
// 布局中的 1 个逻辑单位对应 CSS 中的 1px，在渲染器内部映射为 canvas 的 1mm，
// 超采样倍数 scale 即每逻辑单位的像素数（canvas.DPMM(scale)）。
// 字号同样以逻辑单位给出，创建字体面时需换算为 pt。

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// FontSizeToPt converts a logical font size to the point size canvas expects.
func FontSizeToPt(size float64) float64 { return size * MmToPt }

// PtToLogical converts a point measurement back to logical units.
func PtToLogical(pt float64) float64 { return pt * PtToMm }

// ScaledExtent 返回逻辑长度在 scale 倍超采样下的像素数，向上取整。
func ScaledExtent(logical, scale float64) int {
	if logical <= 0 || scale <= 0 {
		return 0
	}
	// 去掉浮点误差，例如 600*2 不应得到 1201。
	return int(math.Ceil(logical*scale - 1e-9))
}

// ToPixels 将逻辑长度换算为像素（不取整）。
func ToPixels(logical, scale float64) float64 { return logical * scale }
