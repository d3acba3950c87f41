package port

import "glass-station/internal/domain/entity"

// TelemetryChannel канал событий между станцией и сервером
type TelemetryChannel interface {
	// Connect начинает подключение. Ошибка возвращается только для некорректного адреса,
	// результат подключения приходит через TelemetryHandler.
	Connect(endpoint string) error

	// Disconnect закрывает соединение. Безопасен в любом состоянии.
	Disconnect()

	// Send отправляет событие, если канал подключён, иначе молча отбрасывает его
	Send(event entity.OutboundEvent)

	// IsConnected сообщает, подключён ли канал
	IsConnected() bool

	// State возвращает текущее состояние канала
	State() entity.ConnectionState
}

// TelemetryHandler получает уведомления канала
type TelemetryHandler interface {
	OnConnected()
	OnDisconnected()
	OnError(reason string)
	OnMessage(event entity.InboundEvent)
}
