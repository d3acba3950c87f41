package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectionStateString(t *testing.T) {
	var s ConnectionState
	require.Equal(t, Disconnected, s)
	require.Equal(t, "disconnected", s.String())
	require.Equal(t, "connecting", Connecting.String())
	require.Equal(t, "connected", Connected.String())
	require.Equal(t, "unknown", ConnectionState(42).String())
}

func TestNewDefectReport(t *testing.T) {
	det := Detection{
		DefectType: DefectBubble,
		DetectedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local),
		Confidence: 0.8,
		ImagePath:  "/tmp/a.jpg",
	}
	r := NewDefectReport(det, SeverityMedium)
	require.Equal(t, EventDefect, r.EventType())
	require.Equal(t, "2024-01-01T10:00:00", r.Timestamp)
	require.Equal(t, "Bubble", r.DefectType)
	require.Equal(t, 0.8, r.Confidence)
	require.Equal(t, "/tmp/a.jpg", r.ImagePath)
	require.Empty(t, r.DeviceID)
}

func TestInboundEventType(t *testing.T) {
	require.Equal(t, "ack", InboundEvent{"type": "ack"}.Type())
	require.Equal(t, "", InboundEvent{"type": 5}.Type())
	require.Equal(t, "", InboundEvent{}.Type())
}
