package entity

import (
	"fmt"
	"time"
)

// Типы дефектов, которые умеет различать станция
const (
	DefectScratch       = "Scratch"
	DefectCrack         = "Crack"
	DefectBubble        = "Bubble"
	DefectDiscoloration = "Discoloration"
)

// DefectTypes перечисляет известные типы дефектов стекла.
var DefectTypes = []string{DefectScratch, DefectCrack, DefectBubble, DefectDiscoloration}

// Severity степень серьёзности дефекта
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// DefectArea представляет область с обнаруженным дефектом
type DefectArea struct {
	X      int // координата X левого верхнего угла
	Y      int // координата Y левого верхнего угла
	Width  int // ширина области в пикселях
	Height int // высота области в пикселях
	Area   int // площадь области в пикселях
}

// Center возвращает координаты центра дефекта
func (d DefectArea) Center() (x, y int) {
	return d.X + d.Width/2, d.Y + d.Height/2
}

// DefectRecord запись в локальном журнале дефектов
type DefectRecord struct {
	ID         string
	Seq        int // порядковый номер с момента последней очистки
	Type       string
	Severity   Severity
	DetectedAt time.Time
	Confidence float64 // 0.0–1.0, 0 если неизвестно
	ImagePath  string
}

// Summary возвращает строку для вывода оператору.
func (r *DefectRecord) Summary() string {
	line := fmt.Sprintf("[%d] %s (Severity: %s) %s", r.Seq, r.Type, r.Severity, r.DetectedAt.Format("2006-01-02 15:04:05"))
	if r.Confidence > 0 {
		line += fmt.Sprintf(" %.0f%%", r.Confidence*100)
	}
	return line
}
