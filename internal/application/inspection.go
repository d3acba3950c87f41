package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"glass-station/internal/domain/entity"
	"glass-station/internal/domain/port"
)

// DefaultCaptureInterval период съёмки в автоматическом режиме.
const DefaultCaptureInterval = 5 * time.Second

// FrameHandler получает кадры автоматической съёмки.
type FrameHandler func(ctx context.Context, frame *entity.Frame)

type InspectionService struct {
	source   port.PreviewSource
	images   port.ImageStore
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewInspectionService создаёт сервис съёмки. images может быть nil, тогда снимки не сохраняются.
func NewInspectionService(source port.PreviewSource, images port.ImageStore, interval time.Duration, logger *zap.Logger) *InspectionService {
	if interval <= 0 {
		interval = DefaultCaptureInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InspectionService{
		source:   source,
		images:   images,
		interval: interval,
		logger:   logger.Named("inspection"),
	}
}

// Capture снимает один кадр. Если найден дефект, снимок сохраняется и путь попадает в детекцию.
func (s *InspectionService) Capture(ctx context.Context) (*entity.Frame, error) {
	if s.source == nil {
		return nil, errors.New("preview source is not configured")
	}

	frame, err := s.source.Capture(ctx)
	if err != nil {
		return nil, err
	}

	if frame.HasDefect() && s.images != nil && len(frame.Image) > 0 {
		path, err := s.images.Save(ctx, *frame.Detection, frame.Image)
		if err != nil {
			// Без снимка отчёт всё равно уходит.
			s.logger.Warn("save defect image", zap.Error(err))
		} else {
			frame.Detection.ImagePath = path
		}
	}
	return frame, nil
}

// StartAuto запускает периодическую съёмку. Повторный вызов ничего не делает.
func (s *InspectionService) StartAuto(onFrame FrameHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.autoLoop(ctx, onFrame)
	s.logger.Info("automatic capture started", zap.Duration("interval", s.interval))
}

// StopAuto останавливает периодическую съёмку, не дожидаясь текущего кадра.
func (s *InspectionService) StopAuto() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.logger.Info("automatic capture stopped")
	}
}

// AutoRunning сообщает, идёт ли автоматическая съёмка.
func (s *InspectionService) AutoRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *InspectionService) autoLoop(ctx context.Context, onFrame FrameHandler) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := s.Capture(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("automatic capture", zap.Error(err))
			continue
		}
		onFrame(ctx, frame)
	}
}
