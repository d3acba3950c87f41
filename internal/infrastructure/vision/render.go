//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
)

// renderFrame рисует тестовый кадр без OpenCV.
func renderFrame(width, height int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(img, panelRect, image.NewUniform(color.RGBA{R: 211, G: 211, B: 211, A: 255}), image.Point{}, draw.Src)
	strokeRect(img, panelRect, color.Black, 1)
	strokeRect(img, markerRect, color.RGBA{R: 255, A: 255}, 2)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func strokeRect(img draw.Image, r image.Rectangle, c color.Color, thickness int) {
	src := image.NewUniform(c)
	for i := 0; i < thickness; i++ {
		inner := r.Inset(i)
		draw.Draw(img, image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+1), src, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(inner.Min.X, inner.Max.Y-1, inner.Max.X, inner.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(inner.Min.X, inner.Min.Y, inner.Min.X+1, inner.Max.Y), src, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(inner.Max.X-1, inner.Min.Y, inner.Max.X, inner.Max.Y), src, image.Point{}, draw.Src)
	}
}
