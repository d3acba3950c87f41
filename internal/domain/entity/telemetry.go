package entity

import "time"

// ConnectionState состояние канала телеметрии
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// EventType значение поля "type" в сообщении
type EventType string

const (
	EventDeviceRegister EventType = "device_register"
	EventDefect         EventType = "defect"
	EventStatus         EventType = "status"
)

// Status строка статуса, передаваемая серверу
type Status string

const (
	StatusUploadingDefects   Status = "uploading_defects"
	StatusDownloadingDefects Status = "downloading_defects"
	StatusAutomaticMode      Status = "automatic_mode"
	StatusManualMode         Status = "manual_mode"
	StatusStopping           Status = "stopping"
)

// TimestampLayout формат меток времени на проводе: локальное время без смещения.
const TimestampLayout = "2006-01-02T15:04:05"

// FormatTimestamp приводит время к формату TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// OutboundEvent событие, отправляемое на сервер.
// Реализуется только DeviceRegister, DefectReport и StatusUpdate.
type OutboundEvent interface {
	EventType() EventType
	outbound()
}

// DeviceRegister регистрирует устройство после подключения
type DeviceRegister struct {
	DeviceID string
}

// DefectReport сообщение об обнаруженном дефекте
type DefectReport struct {
	DeviceID   string
	DefectType string
	Timestamp  string // TimestampLayout
	Severity   Severity
	Confidence float64 // не передаётся, если 0
	ImagePath  string  // не передаётся, если пусто
}

// StatusUpdate изменение статуса станции
type StatusUpdate struct {
	DeviceID  string
	Status    Status
	Timestamp string // TimestampLayout
}

func (DeviceRegister) EventType() EventType { return EventDeviceRegister }
func (DefectReport) EventType() EventType   { return EventDefect }
func (StatusUpdate) EventType() EventType   { return EventStatus }

func (DeviceRegister) outbound() {}
func (DefectReport) outbound()   {}
func (StatusUpdate) outbound()   {}

// NewDefectReport собирает отчёт из результата детекции.
func NewDefectReport(det Detection, severity Severity) DefectReport {
	return DefectReport{
		DefectType: det.DefectType,
		Timestamp:  FormatTimestamp(det.DetectedAt),
		Severity:   severity,
		Confidence: det.Confidence,
		ImagePath:  det.ImagePath,
	}
}

// NewStatusUpdate собирает статус с текущей меткой времени.
func NewStatusUpdate(status Status, at time.Time) StatusUpdate {
	return StatusUpdate{Status: status, Timestamp: FormatTimestamp(at)}
}

// InboundEvent произвольный JSON-объект от сервера.
type InboundEvent map[string]any

// Type возвращает поле "type" или пустую строку.
func (e InboundEvent) Type() string {
	s, _ := e["type"].(string)
	return s
}
