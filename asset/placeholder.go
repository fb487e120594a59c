package asset

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"
)

// kappa 为四段三次贝塞尔近似圆所用的控制点比例。
const kappa = 0.5522847498

// CirclePlaceholder 返回 size×size 的透明图像，内切一个纯色圆。结果只取决于参数。
func CirclePlaceholder(size int, c color.Color) image.Image {
	if size <= 0 {
		size = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float32(size) / 2
	k := r * kappa
	z := vector.NewRasterizer(size, size)
	z.MoveTo(r, 0)
	z.CubeTo(r+k, 0, 2*r, r-k, 2*r, r)
	z.CubeTo(2*r, r+k, r+k, 2*r, r, 2*r)
	z.CubeTo(r-k, 2*r, 0, r+k, 0, r)
	z.CubeTo(0, r-k, r-k, 0, r, 0)
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
	return dst
}

// SquarePlaceholder returns a size×size image filled with c.
func SquarePlaceholder(size int, c color.Color) image.Image {
	if size <= 0 {
		size = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return dst
}
