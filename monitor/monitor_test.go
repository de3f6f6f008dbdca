package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noSleepFn = func(d time.Duration) {}

type reading struct {
	onExternalPower bool
	voltage         float64
	charge          float64
}

// sequenceSensor returns the readings in order, repeating the last one.
type sequenceSensor struct {
	mu       sync.Mutex
	readings []reading
	reads    int
}

func (s *sequenceSensor) Read() (bool, float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.readings[min(s.reads, len(s.readings)-1)]
	s.reads++
	return r.onExternalPower, r.voltage, r.charge
}

func feed(m *BatteryMonitor, readings ...reading) StatusSnapshot {
	var s StatusSnapshot
	for _, r := range readings {
		s = m.computeSnapshot(r.onExternalPower, r.voltage, r.charge)
	}
	return s
}

func TestChargeIsClamped(t *testing.T) {
	m := New(&sequenceSensor{})

	s := feed(m, reading{true, 4.1, 104.5})
	assert.Equal(t, 100.0, s.ChargePercent)
	assert.Equal(t, []float64{100}, m.window.samples)

	s = feed(m, reading{true, 4.1, -3})
	assert.Equal(t, 0.0, s.ChargePercent)
	assert.Equal(t, 0.0, m.window.last())
}

func TestWindowEvictsOldest(t *testing.T) {
	m := New(&sequenceSensor{})
	for i := 0; i < WindowCapacity+1; i++ {
		m.computeSnapshot(true, 4.0, float64(i%100))
	}
	require.Equal(t, WindowCapacity, m.window.len())
	// Sample 0 was evicted, sample 1 is now the oldest.
	assert.Equal(t, 1.0, m.window.first())
	assert.Equal(t, float64(WindowCapacity%100), m.window.last())
}

func TestWindowClearedWhenNotOnBattery(t *testing.T) {
	m := New(&sequenceSensor{})
	for i := 0; i < WindowCapacity; i++ {
		m.computeSnapshot(true, 4.0, 50)
	}
	require.Equal(t, WindowCapacity, m.window.len())

	s := m.computeSnapshot(false, 4.0, 50)
	assert.Equal(t, 0, m.window.len())
	assert.Equal(t, Charging, s.Category)
}

func TestZeroDrainRateUsesPlaceholder(t *testing.T) {
	m := New(&sequenceSensor{})

	s := feed(m, reading{true, 4.0, 80})
	assert.Equal(t, 80/placeholderDrainRate, s.MinutesRemaining)

	// No change in charge also gives a zero drain rate.
	s = feed(m, reading{true, 4.0, 80}, reading{true, 4.0, 80})
	assert.Equal(t, 80/placeholderDrainRate, s.MinutesRemaining)
}

func TestDischargeScenario(t *testing.T) {
	m := New(&sequenceSensor{})
	s := feed(m,
		reading{true, 4.0, 100},
		reading{true, 4.0, 90},
		reading{true, 4.0, 80},
	)
	assert.Equal(t, []float64{100, 90, 80}, m.window.samples)
	assert.InDelta(t, 400.0, m.window.drainRate(), 1e-9)
	assert.InDelta(t, 0.2, s.MinutesRemaining, 1e-9)
	assert.Equal(t, Normal(6), s.Category)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, LowVoltageWarning, Classify(true, 2.99, 50))
	assert.Equal(t, LowVoltageWarning, Classify(false, 2.99, 50))
	assert.Equal(t, Charging, Classify(false, 3.01, 50))
	assert.Equal(t, Normal(4), Classify(true, 3.01, 50))

	// 2.996 rounds up to 3.00 so it is not a warning.
	assert.Equal(t, Normal(7), Classify(true, 2.996, 100))
	assert.Equal(t, Normal(0), Classify(true, 3.5, 0))
}

func TestLevelBounds(t *testing.T) {
	assert.Equal(t, 0, Level(0))
	assert.Equal(t, 0, Level(7))
	assert.Equal(t, 1, Level(10))
	assert.Equal(t, 6, Level(80))
	assert.Equal(t, MaxLevel, Level(100))
	assert.Equal(t, MaxLevel, Level(150))
	assert.Equal(t, 0, Level(-20))
}

func TestCategoryFlapsWithoutHysteresis(t *testing.T) {
	m := New(&sequenceSensor{})
	var got []StatusCategory
	for _, v := range []float64{3.01, 2.99, 3.01, 2.99} {
		got = append(got, m.computeSnapshot(true, v, 50).Category)
	}
	assert.Equal(t, []StatusCategory{Normal(4), LowVoltageWarning, Normal(4), LowVoltageWarning}, got)
}

func TestStartPublishesInOrderUntilStopped(t *testing.T) {
	sleepFn = noSleepFn
	defer func() { sleepFn = time.Sleep }()

	sensor := &sequenceSensor{readings: []reading{
		{true, 4.0, 100},
		{true, 4.0, 90},
		{true, 4.0, 80},
	}}
	m := New(sensor)

	var snapshots []StatusSnapshot
	err := m.Start(func(s StatusSnapshot) {
		snapshots = append(snapshots, s)
		if len(snapshots) == 3 {
			m.Stop()
		}
	}, time.Second)
	require.NoError(t, err)

	require.Len(t, snapshots, 3)
	assert.Equal(t, 100.0, snapshots[0].ChargePercent)
	assert.Equal(t, 90.0, snapshots[1].ChargePercent)
	assert.Equal(t, 80.0, snapshots[2].ChargePercent)
	assert.Equal(t, 3, sensor.reads)

	select {
	case <-m.Done():
	default:
		t.Fatal("done was not closed after the loop exited")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m := New(&sequenceSensor{readings: []reading{{true, 4.0, 50}}})
	published := make(chan StatusSnapshot, 100)

	go m.Start(func(s StatusSnapshot) { published <- s }, 5*time.Millisecond)

	<-published
	m.Stop()
	m.Stop()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	count := len(published)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, count, len(published), "snapshot published after stop")
}

func TestStopBeforeStart(t *testing.T) {
	sensor := &sequenceSensor{readings: []reading{{true, 4.0, 50}}}
	m := New(sensor)
	m.Stop()

	called := false
	require.NoError(t, m.Start(func(StatusSnapshot) { called = true }, time.Millisecond))
	assert.False(t, called)
	assert.Equal(t, 0, sensor.reads)
}

func TestStartTwice(t *testing.T) {
	m := New(&sequenceSensor{readings: []reading{{true, 4.0, 50}}})
	m.Stop()
	require.NoError(t, m.Start(nil, time.Millisecond))
	assert.ErrorIs(t, m.Start(nil, time.Millisecond), ErrAlreadyStarted)
}

func TestBroadcast(t *testing.T) {
	var order []string
	publish := Broadcast(
		func(StatusSnapshot) { order = append(order, "a") },
		nil,
		func(StatusSnapshot) { order = append(order, "b") },
	)
	publish(StatusSnapshot{})
	assert.Equal(t, []string{"a", "b"}, order)
}
