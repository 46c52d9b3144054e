package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "clinic", "api")

	m.AppointmentsBooked.WithLabelValues("direct").Inc()
	m.SlotConflicts.Inc()
	m.SlotConflicts.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AppointmentsBooked.WithLabelValues("direct")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SlotConflicts))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop()
		NewNop()
	})
}
