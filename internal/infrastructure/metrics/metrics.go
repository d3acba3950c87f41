package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "station_"

	ResultOK        = "ok"
	ResultMalformed = "malformed"

	DropNotConnected = "not_connected"
	DropEncode       = "encode"
	DropQueueFull    = "queue_full"
)

var (
	registerOnce sync.Once

	framesSent      *prometheus.CounterVec
	framesDropped   *prometheus.CounterVec
	framesReceived  *prometheus.CounterVec
	connectErrors   prometheus.Counter
	connectionState prometheus.Gauge

	defectsDetected *prometheus.CounterVec
	detectorExits   *prometheus.CounterVec
)

// Init регистрирует метрики станции в prometheus.DefaultRegisterer.
func Init() {
	InitWith(prometheus.DefaultRegisterer)
}

// InitWith регистрирует метрики в указанном регистре. Повторные вызовы игнорируются.
func InitWith(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		framesSent = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "telemetry_frames_sent_total",
				Help: "Outbound telemetry frames by event type",
			},
			[]string{"type"},
		)
		framesDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "telemetry_frames_dropped_total",
				Help: "Outbound telemetry events dropped by reason",
			},
			[]string{"reason"},
		)
		framesReceived = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "telemetry_frames_received_total",
				Help: "Inbound telemetry frames by parse result",
			},
			[]string{"result"},
		)
		connectErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "telemetry_errors_total",
				Help: "Telemetry connection errors",
			},
		)
		connectionState = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "telemetry_connection_state",
				Help: "Telemetry connection state (0 disconnected, 1 connecting, 2 connected)",
			},
		)
		defectsDetected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "defects_detected_total",
				Help: "Defects detected by type",
			},
			[]string{"defect_type"},
		)
		detectorExits = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "detector_exits_total",
				Help: "Detector process exits by outcome",
			},
			[]string{"outcome"},
		)

		reg.MustRegister(
			framesSent,
			framesDropped,
			framesReceived,
			connectErrors,
			connectionState,
			defectsDetected,
			detectorExits,
		)
	})
}

// ObserveFrameSent учитывает отправленный кадр.
func ObserveFrameSent(eventType string) {
	if framesSent == nil {
		return
	}
	framesSent.WithLabelValues(eventType).Inc()
}

// ObserveFrameDropped учитывает отброшенное событие.
func ObserveFrameDropped(reason string) {
	if framesDropped == nil {
		return
	}
	framesDropped.WithLabelValues(reason).Inc()
}

// ObserveFrameReceived учитывает входящий кадр.
func ObserveFrameReceived(result string) {
	if framesReceived == nil {
		return
	}
	framesReceived.WithLabelValues(result).Inc()
}

// ObserveConnectError учитывает ошибку соединения.
func ObserveConnectError() {
	if connectErrors == nil {
		return
	}
	connectErrors.Inc()
}

// SetConnectionState публикует состояние канала.
func SetConnectionState(state int) {
	if connectionState == nil {
		return
	}
	connectionState.Set(float64(state))
}

// ObserveDefect учитывает обнаруженный дефект.
func ObserveDefect(defectType string) {
	if defectsDetected == nil {
		return
	}
	defectsDetected.WithLabelValues(defectType).Inc()
}

// ObserveDetectorExit учитывает завершение процесса детекции.
func ObserveDetectorExit(outcome string) {
	if detectorExits == nil {
		return
	}
	detectorExits.WithLabelValues(outcome).Inc()
}
