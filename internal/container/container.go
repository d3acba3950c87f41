package container

import (
	"fmt"

	"go.uber.org/zap"

	"glass-station/config"
	app "glass-station/internal/application"
	"glass-station/internal/domain/port"
	"glass-station/internal/infrastructure/process"
	"glass-station/internal/infrastructure/storage"
	"glass-station/internal/infrastructure/telemetry"
	"glass-station/internal/infrastructure/vision"
)

type Container struct {
	Channel           *telemetry.Channel
	Defects           *storage.MemoryDefectLog
	InspectionService *app.InspectionService
	StationService    *app.StationService
}

// New собирает сервисы станции по конфигурации.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	channel, err := telemetry.NewChannel(telemetry.Config{
		DeviceID:         cfg.DeviceID,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry channel: %w", err)
	}

	// Без каталога снимки не сохраняются
	var images port.ImageStore
	if cfg.ImageDir != "" {
		store, err := storage.NewFileImageStore(cfg.ImageDir)
		if err != nil {
			return nil, fmt.Errorf("image store: %w", err)
		}
		images = store
	}

	var supervisor port.ProcessSupervisor
	if cfg.DetectorScript != "" {
		supervisor = process.NewSupervisor(process.Config{
			Command:   cfg.DetectorPython,
			Args:      []string{cfg.DetectorScript},
			StopGrace: cfg.StopGrace,
			Logger:    logger,
		})
	}

	defects := storage.NewMemoryDefectLog()
	inspectionService := app.NewInspectionService(vision.NewSimulator(cfg.DefectProbability), images, cfg.CaptureInterval, logger)
	stationService := app.NewStationService(
		app.StationConfig{
			DeviceID: cfg.DeviceID,
			Endpoint: cfg.ServerURL,
			Severity: cfg.Severity,
		},
		channel, defects, inspectionService, supervisor, logger,
	)
	channel.SetHandler(stationService)

	return &Container{
		Channel:           channel,
		Defects:           defects,
		InspectionService: inspectionService,
		StationService:    stationService,
	}, nil
}
