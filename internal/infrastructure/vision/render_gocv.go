//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	panelGray = color.RGBA{R: 211, G: 211, B: 211, A: 255}
	markerRed = color.RGBA{R: 255, A: 255}
	black     = color.RGBA{A: 255}
)

// renderFrame рисует тестовый кадр средствами OpenCV и кодирует его в JPEG.
func renderFrame(width, height int) ([]byte, error) {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), height, width, gocv.MatTypeCV8UC3)
	defer mat.Close()
	if mat.Empty() {
		return nil, errors.New("empty frame")
	}

	gocv.Rectangle(&mat, panelRect, panelGray, -1)
	gocv.Rectangle(&mat, panelRect, black, 1)
	highlight(&mat, markerRect)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// highlight обводит область дефекта и подписывает её.
func highlight(mat *gocv.Mat, r image.Rectangle) {
	gocv.Rectangle(mat, r, markerRed, 2)
	gocv.PutText(mat, "Defect", image.Pt(r.Min.X+10, r.Min.Y+20), gocv.FontHersheySimplex, 0.5, markerRed, 1)
}
