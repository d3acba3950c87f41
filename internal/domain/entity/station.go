package entity

// Mode режим работы станции
type Mode string

const (
	ModeManual    Mode = "manual"    // Съёмка по команде оператора
	ModeAutomatic Mode = "automatic" // Периодическая съёмка по таймеру
)

// Station представляет состояние станции контроля
type Station struct {
	DeviceID string // Идентификатор устройства на сервере
	Running  bool   // Запущена ли система детекции
	Mode     Mode   // Текущий режим работы
}

// NewStation создаёт остановленную станцию в ручном режиме
func NewStation(deviceID string) *Station {
	return &Station{
		DeviceID: deviceID,
		Mode:     ModeManual,
	}
}

// Start переводит станцию в рабочее состояние. Запуск всегда начинается с ручного режима.
func (s *Station) Start() {
	s.Running = true
	s.Mode = ModeManual
}

// Stop останавливает станцию
func (s *Station) Stop() {
	s.Running = false
}

// SetMode обновляет режим работы
func (s *Station) SetMode(mode Mode) {
	s.Mode = mode
}

// ModeStatus возвращает статус телеметрии для текущего режима.
func (s *Station) ModeStatus() Status {
	if s.Mode == ModeAutomatic {
		return StatusAutomaticMode
	}
	return StatusManualMode
}

// StationStatus снимок состояния для оператора.
type StationStatus struct {
	DeviceID   string
	Running    bool
	Mode       Mode
	Connection ConnectionState
	Defects    int
}
