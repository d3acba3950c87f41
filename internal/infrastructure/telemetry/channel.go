package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"glass-station/internal/domain/entity"
	"glass-station/internal/domain/port"
	"glass-station/internal/infrastructure/metrics"
)

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second

	closeTimeout = time.Second
	sendBuffer   = 16
)

// ErrInvalidEndpoint возвращается для адреса, который не является ws:// или wss:// URI.
var ErrInvalidEndpoint = errors.New("invalid telemetry endpoint")

// Config параметры канала телеметрии.
type Config struct {
	DeviceID         string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Logger           *zap.Logger
}

// Channel канал телеметрии поверх одного WebSocket-соединения.
//
// Все переходы состояния выполняются под mu. Горутины подключения, чтения и записи
// помечены поколением gen: после Disconnect или обрыва поколение меняется,
// и устаревшие горутины завершаются без уведомлений. В сокет пишет только
// горутина записи, Send лишь кладёт кадр в её буфер.
type Channel struct {
	deviceID     string
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	logger       *zap.Logger

	mu      sync.Mutex
	state   entity.ConnectionState
	conn    *websocket.Conn
	out     chan frame
	gen     uint64
	cancel  context.CancelFunc
	handler port.TelemetryHandler
}

// NewChannel создаёт отключённый канал.
func NewChannel(cfg Config) (*Channel, error) {
	if strings.TrimSpace(cfg.DeviceID) == "" {
		return nil, errors.New("device id is required")
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Channel{
		deviceID: cfg.DeviceID,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		writeTimeout: cfg.WriteTimeout,
		logger:       cfg.Logger.Named("telemetry"),
		state:        entity.Disconnected,
	}, nil
}

// ParseEndpoint проверяет, что адрес является WebSocket URI.
func ParseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: scheme must be ws or wss, got %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: host is empty", ErrInvalidEndpoint)
	}
	return u, nil
}

// SetHandler задаёт получателя уведомлений.
func (c *Channel) SetHandler(h port.TelemetryHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// DeviceID возвращает идентификатор устройства канала.
func (c *Channel) DeviceID() string {
	return c.deviceID
}

// State возвращает текущее состояние.
func (c *Channel) State() entity.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected сообщает, подключён ли канал.
func (c *Channel) IsConnected() bool {
	return c.State() == entity.Connected
}

// Connect начинает подключение к endpoint и сразу возвращается.
// Повторный вызов во время подключения или после него ничего не делает.
func (c *Channel) Connect(endpoint string) error {
	u, err := ParseEndpoint(endpoint)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != entity.Disconnected {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("connect ignored", zap.Stringer("state", state))
		return nil
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.setStateLocked(entity.Connecting)
	c.mu.Unlock()

	c.logger.Info("connecting", zap.String("endpoint", u.Redacted()))
	go c.dial(ctx, cancel, gen, u.String())
	return nil
}

// Disconnect закрывает соединение или прерывает подключение. Уведомлений не отправляет.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.state == entity.Disconnected {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	cancel := c.cancel
	c.resetLocked()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
		_ = conn.Close()
	}
	c.logger.Info("disconnected by client")
}

// Send отправляет событие одним текстовым кадром. Если канал не подключён,
// событие молча отбрасывается.
func (c *Channel) Send(event entity.OutboundEvent) {
	data, err := Encode(event, c.deviceID)
	if err != nil {
		metrics.ObserveFrameDropped(metrics.DropEncode)
		c.logger.Warn("dropping unencodable event", zap.Error(err))
		return
	}

	c.mu.Lock()
	if c.state != entity.Connected || c.out == nil {
		state := c.state
		c.mu.Unlock()
		metrics.ObserveFrameDropped(metrics.DropNotConnected)
		c.logger.Debug("dropping event",
			zap.String("type", string(event.EventType())),
			zap.Stringer("state", state),
		)
		return
	}

	select {
	case c.out <- frame{eventType: event.EventType(), data: data}:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		metrics.ObserveFrameDropped(metrics.DropQueueFull)
		c.logger.Warn("dropping event, send buffer is full", zap.String("type", string(event.EventType())))
	}
}

func (c *Channel) dial(ctx context.Context, cancel context.CancelFunc, gen uint64, endpoint string) {
	defer cancel()

	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.resetLocked()
		h := c.handler
		c.mu.Unlock()
		c.fail(h, err)
		return
	}

	c.conn = conn
	c.cancel = nil
	c.out = make(chan frame, sendBuffer)
	c.setStateLocked(entity.Connected)

	// Регистрация ставится в буфер до снятия блокировки, поэтому идёт раньше любых событий вызывающего кода.
	register := entity.DeviceRegister{DeviceID: c.deviceID}
	data, _ := Encode(register, c.deviceID)
	c.out <- frame{eventType: register.EventType(), data: data}
	out := c.out
	h := c.handler
	c.mu.Unlock()

	go c.writeLoop(conn, gen, out)

	c.logger.Info("connected", zap.String("device_id", c.deviceID))
	if h != nil {
		h.OnConnected()
	}

	go c.readLoop(conn, gen)
}

// writeLoop пишет кадры из out, пока буфер не закрыт или запись не сорвалась.
func (c *Channel) writeLoop(conn *websocket.Conn, gen uint64, out <-chan frame) {
	for f := range out {
		c.mu.Lock()
		current := gen == c.gen
		c.mu.Unlock()
		if !current {
			return
		}
		if err := c.write(conn, f); err != nil {
			c.writeFailed(conn, gen, err)
			return
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn, gen uint64) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.lost(conn, gen, err)
			return
		}
		if msgType != websocket.TextMessage {
			c.logger.Debug("dropping non-text frame", zap.Int("message_type", msgType))
			continue
		}

		event, err := Decode(data)
		if err != nil {
			metrics.ObserveFrameReceived(metrics.ResultMalformed)
			c.logger.Debug("dropping malformed frame", zap.Error(err), zap.Int("bytes", len(data)))
			continue
		}
		metrics.ObserveFrameReceived(metrics.ResultOK)

		c.mu.Lock()
		current := gen == c.gen
		h := c.handler
		c.mu.Unlock()
		if !current {
			return
		}
		c.logger.Debug("received", zap.String("type", event.Type()))
		if h != nil {
			h.OnMessage(event)
		}
	}
}

// lost обрабатывает обрыв соединения, замеченный при чтении.
// Закрытие без close-кадра (сброс, EOF) сначала сообщается как ошибка.
func (c *Channel) lost(conn *websocket.Conn, gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	h := c.handler
	c.mu.Unlock()

	_ = conn.Close()
	if closedByPeer(err) {
		c.logger.Info("disconnected by server")
	} else {
		c.fail(h, err)
	}
	if h != nil {
		h.OnDisconnected()
	}
}

// writeFailed обрабатывает ошибку записи как неявное отключение.
func (c *Channel) writeFailed(conn *websocket.Conn, gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	h := c.handler
	c.mu.Unlock()

	_ = conn.Close()
	c.fail(h, err)
}

// closedByPeer сообщает, что сервер закрыл соединение close-кадром.
func closedByPeer(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure
}

func (c *Channel) fail(h port.TelemetryHandler, err error) {
	reason := Reason(err)
	metrics.ObserveConnectError()
	c.logger.Warn("telemetry error", zap.String("reason", reason), zap.Error(err))
	if h != nil {
		h.OnError(reason)
	}
}

type frame struct {
	eventType entity.EventType
	data      []byte
}

func (c *Channel) write(conn *websocket.Conn, f frame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, f.data); err != nil {
		return err
	}
	metrics.ObserveFrameSent(string(f.eventType))
	c.logger.Debug("sent", zap.ByteString("frame", f.data))
	return nil
}

// resetLocked закрывает буфер записи: ожидающие кадры отбрасываются.
func (c *Channel) resetLocked() {
	c.gen++
	if c.out != nil {
		close(c.out)
		c.out = nil
	}
	c.conn = nil
	c.cancel = nil
	c.setStateLocked(entity.Disconnected)
}

func (c *Channel) setStateLocked(state entity.ConnectionState) {
	c.state = state
	metrics.SetConnectionState(int(state))
}

// Reason приводит ошибку сокета к короткому описанию для оператора.
func Reason(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection refused"
	case errors.As(err, &dnsErr):
		return "Host not found"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "Connection timed out"
	case errors.Is(err, websocket.ErrBadHandshake):
		return "Handshake failed"
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE),
		websocket.IsCloseError(err, websocket.CloseAbnormalClosure):
		return "Remote host closed"
	default:
		return err.Error()
	}
}

var _ port.TelemetryChannel = (*Channel)(nil)
