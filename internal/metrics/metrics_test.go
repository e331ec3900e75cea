package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	metrics := []prometheus.Collector{
		BodiesLive,
		BodiesSpawned,
		BodiesEvicted,
		BodiesCulled,
		PhysicsSteps,
		FrameDuration,
		IntakeQueueDepth,
		FeedMessages,
		FeedCharacters,
		FeedReconnects,
		FeedState,
		Viewers,
	}

	for _, metric := range metrics {
		desc := make(chan *prometheus.Desc, 1)
		metric.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterVecMetrics(t *testing.T) {
	tests := []struct {
		name    string
		metric  *prometheus.CounterVec
		labels  prometheus.Labels
		incBy   int
		wantVal float64
	}{
		{
			name:    "spawned per side",
			metric:  BodiesSpawned,
			labels:  prometheus.Labels{"side": "left"},
			incBy:   4,
			wantVal: 4,
		},
		{
			name:    "evicted per reason",
			metric:  BodiesEvicted,
			labels:  prometheus.Labels{"reason": "oldest"},
			incBy:   2,
			wantVal: 2,
		},
		{
			name:    "feed reconnects",
			metric:  FeedReconnects,
			labels:  prometheus.Labels{"feed": "right", "reason": "stale"},
			incBy:   1,
			wantVal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.metric.Reset()

			for range tt.incBy {
				tt.metric.With(tt.labels).Inc()
			}

			assert.Equal(t, tt.wantVal, testutil.ToFloat64(tt.metric.With(tt.labels)))
		})
	}
}

func TestGaugeMetrics(t *testing.T) {
	BodiesLive.Set(17)
	Viewers.Set(3)
	FeedState.WithLabelValues("left").Set(2)

	assert.Equal(t, 17.0, testutil.ToFloat64(BodiesLive))
	assert.Equal(t, 3.0, testutil.ToFloat64(Viewers))
	assert.Equal(t, 2.0, testutil.ToFloat64(FeedState.WithLabelValues("left")))
}

func TestHistogramMetrics(t *testing.T) {
	for _, obs := range []float64{0.001, 0.004, 0.012} {
		FrameDuration.Observe(obs)
	}

	assert.Greater(t, testutil.CollectAndCount(FrameDuration), 0, "histogram should have metrics")
}
