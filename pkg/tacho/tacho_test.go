package tacho

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTachometer_RPM(t *testing.T) {
	tests := []struct {
		name           string
		intervalMicros int64
		want           int
	}{
		{"3000 rpm", 20_000, 3000},
		{"60 rpm", 1_000_000, 60},
		{"1 rpm", 60_000_000, 1},
		{"120000 rpm", 500, 120_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tach := New()
			tach.Edge(1_000_000)
			tach.Edge(1_000_000 + tt.intervalMicros)
			tach.Update()
			assert.Equal(t, tt.want, tach.RPM())
		})
	}
}

func TestTachometer_FirstEdgeOnlyArms(t *testing.T) {
	tach := New()
	tach.Edge(1_000_000)
	tach.Update()

	assert.Equal(t, 0, tach.RPM())
	assert.False(t, tach.SignalPresent(1_000_000))
}

func TestTachometer_ZeroIntervalNeverDivides(t *testing.T) {
	tach := New()
	tach.Edge(1_000_000)
	tach.Edge(1_000_000) // duplicate edge, zero interval
	tach.Update()

	assert.Equal(t, 0, tach.RPM())
}

func TestTachometer_HoldsLastValue(t *testing.T) {
	tach := New()
	tach.Edge(0)
	tach.Edge(20_000)
	tach.Update()
	require.Equal(t, 3000, tach.RPM())

	// No further edges: the value holds, but the signal goes stale
	later := int64(20_000 + SignalTimeoutMicros + 1)
	tach.Update()
	assert.Equal(t, 3000, tach.RPM())
	assert.False(t, tach.SignalPresent(later))
}

func TestTachometer_SignalPresent(t *testing.T) {
	tach := New()
	assert.False(t, tach.SignalPresent(0))

	tach.Edge(1_000_000)
	tach.Edge(1_020_000)
	assert.True(t, tach.SignalPresent(1_030_000))
	assert.True(t, tach.SignalPresent(1_020_000+SignalTimeoutMicros))
	assert.False(t, tach.SignalPresent(1_020_000+SignalTimeoutMicros+1))
}

func TestTachometer_Reset(t *testing.T) {
	tach := New()
	tach.Edge(0)
	tach.Edge(20_000)
	tach.Update()
	require.Equal(t, 3000, tach.RPM())

	tach.Reset()
	assert.Equal(t, 0, tach.RPM())
	assert.False(t, tach.SignalPresent(21_000))

	// First edge after reset arms again instead of producing a huge interval
	tach.Edge(5_000_000)
	tach.Update()
	assert.Equal(t, 0, tach.RPM())
}

func TestSimulator_GeneratesEdges(t *testing.T) {
	var count atomic.Int64
	sim := NewSimulator(60_000, func(int64) { count.Add(1) }) // one edge per millisecond

	require.NoError(t, sim.Start())
	assert.Error(t, sim.Start(), "double start must fail")

	time.Sleep(50 * time.Millisecond)
	sim.Stop()

	got := count.Load()
	assert.Greater(t, got, int64(10), "expected a stream of edges")

	// No more edges after stop
	time.Sleep(10 * time.Millisecond)
	assert.LessOrEqual(t, count.Load(), got+1)
}

func TestSimulator_ZeroRPMIdles(t *testing.T) {
	var count atomic.Int64
	sim := NewSimulator(0, func(int64) { count.Add(1) })

	require.NoError(t, sim.Start())
	defer sim.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(0), count.Load())
}
