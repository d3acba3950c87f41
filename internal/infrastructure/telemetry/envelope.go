package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"

	"glass-station/internal/domain/entity"
)

// ErrNotObject возвращается, если входящий кадр не является JSON-объектом.
var ErrNotObject = errors.New("frame is not a JSON object")

// Поля в структурах идут в порядке, в котором их ожидает сервер.
type registerFrame struct {
	Type     entity.EventType `json:"type"`
	DeviceID string           `json:"device_id"`
}

type defectFrame struct {
	Type       entity.EventType `json:"type"`
	DefectType string           `json:"defect_type"`
	Timestamp  string           `json:"timestamp"`
	Severity   entity.Severity  `json:"severity"`
	DeviceID   string           `json:"device_id"`
	Confidence float64          `json:"confidence,omitempty"`
	ImagePath  string           `json:"image_path,omitempty"`
}

type statusFrame struct {
	Type      entity.EventType `json:"type"`
	Status    entity.Status    `json:"status"`
	DeviceID  string           `json:"device_id"`
	Timestamp string           `json:"timestamp"`
}

// Encode сериализует событие в однострочный JSON. Пустой DeviceID заменяется на deviceID.
func Encode(event entity.OutboundEvent, deviceID string) ([]byte, error) {
	var frame any
	switch e := event.(type) {
	case entity.DeviceRegister:
		frame = registerFrame{
			Type:     e.EventType(),
			DeviceID: pick(e.DeviceID, deviceID),
		}
	case entity.DefectReport:
		frame = defectFrame{
			Type:       e.EventType(),
			DefectType: e.DefectType,
			Timestamp:  e.Timestamp,
			Severity:   e.Severity,
			DeviceID:   pick(e.DeviceID, deviceID),
			Confidence: e.Confidence,
			ImagePath:  e.ImagePath,
		}
	case entity.StatusUpdate:
		frame = statusFrame{
			Type:      e.EventType(),
			Status:    e.Status,
			DeviceID:  pick(e.DeviceID, deviceID),
			Timestamp: e.Timestamp,
		}
	default:
		return nil, fmt.Errorf("encode: unsupported event %T", event)
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Decode разбирает входящий кадр. Принимаются только JSON-объекты.
func Decode(data []byte) (entity.InboundEvent, error) {
	var event entity.InboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if event == nil {
		return nil, ErrNotObject
	}
	return event, nil
}

func pick(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
