package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveHelpers(t *testing.T) {
	InitWith(prometheus.NewRegistry())

	before := testutil.ToFloat64(framesSent.WithLabelValues("defect"))
	ObserveFrameSent("defect")
	require.Equal(t, before+1, testutil.ToFloat64(framesSent.WithLabelValues("defect")))

	before = testutil.ToFloat64(framesDropped.WithLabelValues(DropNotConnected))
	ObserveFrameDropped(DropNotConnected)
	require.Equal(t, before+1, testutil.ToFloat64(framesDropped.WithLabelValues(DropNotConnected)))

	SetConnectionState(2)
	require.Equal(t, float64(2), testutil.ToFloat64(connectionState))

	before = testutil.ToFloat64(defectsDetected.WithLabelValues("Crack"))
	ObserveDefect("Crack")
	require.Equal(t, before+1, testutil.ToFloat64(defectsDetected.WithLabelValues("Crack")))
}

func TestInitWithIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() {
		InitWith(reg)
		InitWith(reg)
	})
}
