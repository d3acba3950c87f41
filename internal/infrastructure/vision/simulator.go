package vision

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"
	"time"

	"glass-station/internal/domain/entity"
	"glass-station/internal/domain/port"
)

const (
	DefaultWidth             = 640
	DefaultHeight            = 480
	DefaultDefectProbability = 0.6
)

// Геометрия тестового кадра: серая панель и рамка найденного дефекта.
var (
	panelRect  = image.Rect(100, 100, 250, 250)
	markerRect = image.Rect(120, 120, 220, 220)
)

// Simulator имитирует камеру: рисует тестовый кадр и случайно «находит» дефект.
type Simulator struct {
	Width             int
	Height            int
	DefectProbability float64
	Types             []string
	Rand              *rand.Rand
	Now               func() time.Time

	mu sync.Mutex
}

// NewSimulator создаёт имитатор с вероятностью срабатывания probability.
func NewSimulator(probability float64) *Simulator {
	return &Simulator{
		Width:             DefaultWidth,
		Height:            DefaultHeight,
		DefectProbability: probability,
		Types:             entity.DefectTypes,
		Rand:              rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		Now:               time.Now,
	}
}

// Capture снимает кадр. С вероятностью DefectProbability кадр содержит детекцию
// со случайным типом и уверенностью 0.75–0.95.
func (s *Simulator) Capture(ctx context.Context) (*entity.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	hit := len(s.Types) > 0 && s.Rand.Float64() < s.DefectProbability
	var defectType string
	var confidence float64
	if hit {
		defectType = s.Types[s.Rand.IntN(len(s.Types))]
		confidence = 0.75 + float64(s.Rand.IntN(100))/500.0
	}
	s.mu.Unlock()

	img, err := renderFrame(s.Width, s.Height)
	if err != nil {
		return nil, fmt.Errorf("render frame: %w", err)
	}

	now := s.Now()
	frame := &entity.Frame{
		Width:      s.Width,
		Height:     s.Height,
		Image:      img,
		CapturedAt: now,
	}
	if hit {
		frame.Detection = &entity.Detection{
			DefectType: defectType,
			DetectedAt: now,
			Confidence: confidence,
			Area:       markerArea(),
		}
	}
	return frame, nil
}

func markerArea() entity.DefectArea {
	return entity.DefectArea{
		X:      markerRect.Min.X,
		Y:      markerRect.Min.Y,
		Width:  markerRect.Dx(),
		Height: markerRect.Dy(),
		Area:   markerRect.Dx() * markerRect.Dy(),
	}
}

var _ port.PreviewSource = (*Simulator)(nil)
