package entity

import "time"

// Detection результат срабатывания детектора на одном кадре.
type Detection struct {
	DefectType string
	DetectedAt time.Time
	Confidence float64 // 0.0–1.0
	ImagePath  string  // пусто, если кадр не сохранялся
	Area       DefectArea
}

// Frame кадр предпросмотра.
type Frame struct {
	Width      int
	Height     int
	Image      []byte // JPEG, может быть пустым
	CapturedAt time.Time
	Detection  *Detection // nil, если дефект не найден
}

// HasDefect сообщает, найден ли на кадре дефект.
func (f *Frame) HasDefect() bool {
	return f != nil && f.Detection != nil
}
