package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"glass-station/internal/domain/entity"
	"glass-station/internal/domain/port"
	"glass-station/internal/infrastructure/metrics"
)

var (
	ErrNotRunning    = errors.New("station is not running")
	ErrAutomaticMode = errors.New("manual capture is disabled in automatic mode")
	ErrNoDefects     = errors.New("no defects in the log")
)

// StationConfig параметры станции.
type StationConfig struct {
	DeviceID string
	Endpoint string
	Severity entity.Severity
}

// StationService управляет станцией: запуск, режимы, съёмка и журнал дефектов.
// Телеметрия отправляется вне s.mu, поэтому уведомления канала могут брать блокировку.
type StationService struct {
	cfg        StationConfig
	channel    port.TelemetryChannel
	defects    port.DefectLog
	inspection *InspectionService
	supervisor port.ProcessSupervisor
	logger     *zap.Logger
	now        func() time.Time

	// lifecycle упорядочивает Start, Stop и смену режима
	lifecycle sync.Mutex

	mu       sync.Mutex
	station  *entity.Station
	notifier port.DefectNotifier
}

// NewStationService собирает станцию. supervisor может быть nil.
func NewStationService(
	cfg StationConfig,
	channel port.TelemetryChannel,
	defects port.DefectLog,
	inspection *InspectionService,
	supervisor port.ProcessSupervisor,
	logger *zap.Logger,
) *StationService {
	if cfg.Severity == "" {
		cfg.Severity = entity.SeverityMedium
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StationService{
		cfg:        cfg,
		channel:    channel,
		defects:    defects,
		inspection: inspection,
		supervisor: supervisor,
		logger:     logger.Named("station"),
		now:        time.Now,
		station:    entity.NewStation(cfg.DeviceID),
	}
}

// SetNotifier подключает оповещения о дефектах.
func (s *StationService) SetNotifier(n port.DefectNotifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Start запускает станцию в ручном режиме, подключает телеметрию и внешний детектор.
// Недоступность сервера или детектора не мешает работе станции.
func (s *StationService) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.station.Running {
		s.mu.Unlock()
		return nil
	}
	s.station.Start()
	s.mu.Unlock()

	s.logger.Info("starting detection system")
	if err := s.channel.Connect(s.cfg.Endpoint); err != nil {
		s.logger.Error("telemetry connect", zap.Error(err))
	}

	if s.supervisor != nil {
		if err := s.supervisor.Start(ctx); err != nil {
			s.logger.Warn("detector process not started, continuing with telemetry only", zap.Error(err))
		}
	}
	return nil
}

// Stop останавливает съёмку, внешний детектор и телеметрию.
func (s *StationService) Stop(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.station.Running {
		s.mu.Unlock()
		return nil
	}
	s.station.Stop()
	s.mu.Unlock()

	s.logger.Info("stopping detection system")
	s.inspection.StopAuto()
	s.sendStatus(entity.StatusStopping)

	if s.supervisor != nil {
		if err := s.supervisor.Stop(ctx); err != nil {
			s.logger.Warn("stop detector process", zap.Error(err))
		}
	}
	s.channel.Disconnect()
	return nil
}

// SetAutomatic включает периодическую съёмку.
func (s *StationService) SetAutomatic(ctx context.Context) error {
	return s.switchMode(ctx, entity.ModeAutomatic)
}

// SetManual возвращает съёмку по команде.
func (s *StationService) SetManual(ctx context.Context) error {
	return s.switchMode(ctx, entity.ModeManual)
}

func (s *StationService) switchMode(ctx context.Context, mode entity.Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if !s.station.Running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if s.station.Mode == mode {
		s.mu.Unlock()
		return nil
	}
	s.station.SetMode(mode)
	status := s.station.ModeStatus()
	s.mu.Unlock()

	if mode == entity.ModeAutomatic {
		s.inspection.StartAuto(s.handleFrame)
	} else {
		s.inspection.StopAuto()
	}
	s.logger.Info("mode switched", zap.String("mode", string(mode)))
	s.sendStatus(status)
	return nil
}

// Capture снимает кадр по команде оператора.
func (s *StationService) Capture(ctx context.Context) (*entity.Frame, error) {
	s.mu.Lock()
	running, mode := s.station.Running, s.station.Mode
	s.mu.Unlock()

	if !running {
		return nil, ErrNotRunning
	}
	if mode == entity.ModeAutomatic {
		return nil, ErrAutomaticMode
	}

	s.logger.Debug("capture frame requested")
	frame, err := s.inspection.Capture(ctx)
	if err != nil {
		return nil, err
	}
	s.handleFrame(ctx, frame)
	return frame, nil
}

// RequestUpload сообщает серверу о выгрузке журнала.
func (s *StationService) RequestUpload(ctx context.Context) error {
	n, err := s.defects.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoDefects
	}
	s.logger.Info("upload requested, syncing to cloud server", zap.Int("defects", n))
	s.sendStatus(entity.StatusUploadingDefects)
	return nil
}

// RequestDownload сообщает серверу о загрузке журнала.
func (s *StationService) RequestDownload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("download requested, fetching from server")
	s.sendStatus(entity.StatusDownloadingDefects)
	return nil
}

// ClearDefects очищает журнал и возвращает число удалённых записей.
func (s *StationService) ClearDefects(ctx context.Context) (int, error) {
	n, err := s.defects.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNoDefects
	}
	cleared, err := s.defects.Clear(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("defects cleared", zap.Int("count", cleared))
	return cleared, nil
}

// Defects возвращает журнал, новые записи первыми.
func (s *StationService) Defects(ctx context.Context) ([]*entity.DefectRecord, error) {
	return s.defects.List(ctx)
}

// Status возвращает снимок состояния станции.
func (s *StationService) Status(ctx context.Context) entity.StationStatus {
	s.mu.Lock()
	st := entity.StationStatus{
		DeviceID: s.station.DeviceID,
		Running:  s.station.Running,
		Mode:     s.station.Mode,
	}
	s.mu.Unlock()

	st.Connection = s.channel.State()
	if n, err := s.defects.Count(ctx); err == nil {
		st.Defects = n
	}
	return st
}

func (s *StationService) handleFrame(ctx context.Context, frame *entity.Frame) {
	if !frame.HasDefect() {
		return
	}
	det := *frame.Detection

	rec, err := s.defects.Add(ctx, &entity.DefectRecord{
		Type:       det.DefectType,
		Severity:   s.cfg.Severity,
		DetectedAt: det.DetectedAt,
		Confidence: det.Confidence,
		ImagePath:  det.ImagePath,
	})
	if err != nil {
		s.logger.Warn("add defect to log", zap.Error(err))
	}
	metrics.ObserveDefect(det.DefectType)
	s.logger.Info("defect detected",
		zap.String("defect_type", det.DefectType),
		zap.Float64("confidence", det.Confidence),
		zap.String("image_path", det.ImagePath),
	)

	s.channel.Send(entity.NewDefectReport(det, s.cfg.Severity))

	s.mu.Lock()
	notifier := s.notifier
	s.mu.Unlock()
	if notifier != nil && rec != nil {
		if err := notifier.NotifyDefect(ctx, rec, frame.Image); err != nil {
			s.logger.Warn("notify defect", zap.Error(err))
		}
	}
}

func (s *StationService) sendStatus(status entity.Status) {
	s.channel.Send(entity.NewStatusUpdate(status, s.now()))
}

// OnConnected сообщает серверу текущий режим после регистрации.
func (s *StationService) OnConnected() {
	s.mu.Lock()
	running, status := s.station.Running, s.station.ModeStatus()
	s.mu.Unlock()

	s.logger.Info("telemetry connected")
	if running {
		s.sendStatus(status)
	}
}

func (s *StationService) OnDisconnected() {
	s.logger.Warn("telemetry disconnected")
}

func (s *StationService) OnError(reason string) {
	s.logger.Warn("telemetry error", zap.String("reason", reason))
}

func (s *StationService) OnMessage(event entity.InboundEvent) {
	s.logger.Info("telemetry message", zap.String("type", event.Type()))
}

var _ port.TelemetryHandler = (*StationService)(nil)
