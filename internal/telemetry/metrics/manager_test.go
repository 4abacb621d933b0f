package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Registers(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterSetsCompleted.Inc()
	m.CounterRestTimers.WithLabelValues("started").Add(2)
	m.GaugeActiveSessions.Set(3)
	m.HistogramSessionDuration.Observe(62)

	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	sets := byName["gymsession_test_server_sets_completed"]
	require.NotNil(t, sets)
	assert.Equal(t, dto.MetricType_COUNTER, sets.GetType())
	assert.Equal(t, 1.0, sets.GetMetric()[0].GetCounter().GetValue())

	timers := byName["gymsession_test_server_rest_timer_events"]
	require.NotNil(t, timers)
	assert.Equal(t, "event", timers.GetMetric()[0].GetLabel()[0].GetName())
	assert.Equal(t, 2.0, timers.GetMetric()[0].GetCounter().GetValue())

	active := byName["gymsession_test_server_active_sessions"]
	require.NotNil(t, active)
	assert.Equal(t, dto.MetricType_GAUGE, active.GetType())
	assert.Equal(t, 3.0, active.GetMetric()[0].GetGauge().GetValue())

	duration := byName["gymsession_test_server_session_duration_minutes"]
	require.NotNil(t, duration)
	assert.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())
	assert.Equal(t, 62.0, duration.GetMetric()[0].GetHistogram().GetSampleSum())
}

func TestNewManager_SeparateRegistries(t *testing.T) {
	// two managers never collide on registration
	assert.NotPanics(t, func() {
		NewTestManager()
		NewTestManager()
	})
}

func TestNewRegistry(t *testing.T) {
	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "extra_total", Help: "extra"})
	reg := NewRegistry(extra)
	NewManager("gymsession", "service", reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
	assert.True(t, names["extra_total"])
	assert.True(t, names["gymsession_service_life_signal"])
}
