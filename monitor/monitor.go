/*
x728-battery - Battery status for the x728 UPS HAT
Copyright (C) 2024, The Cacophony Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package monitor samples a battery once a tick, estimates the time left from
// a sliding window of charge readings and publishes a StatusSnapshot.
package monitor

import (
	"errors"
	"sync/atomic"
	"time"
)

const (
	DefaultTickPeriod = time.Second

	// placeholderDrainRate stands in for a zero drain rate, e.g. on the first
	// tick, giving a large provisional estimate instead of a division by zero.
	placeholderDrainRate = 0.2
)

var ErrAlreadyStarted = errors.New("battery monitor already started")

var sleepFn = time.Sleep

// SensorSource provides one reading per tick. Reads are expected to be fast and
// to always return usable numbers, any fault handling is up to the source.
type SensorSource interface {
	Read() (onExternalPower bool, voltage, chargePercent float64)
}

// BatteryMonitor polls a SensorSource and publishes a snapshot each tick
// until stopped.
type BatteryMonitor struct {
	sensor  SensorSource
	window  *sampleWindow
	running atomic.Bool
	started atomic.Bool
	done    chan struct{}
}

// New creates a monitor for the given sensor. No I/O is done until Start.
func New(sensor SensorSource) *BatteryMonitor {
	m := &BatteryMonitor{
		sensor: sensor,
		window: newSampleWindow(WindowCapacity),
		done:   make(chan struct{}),
	}
	m.running.Store(true)
	return m
}

// Start runs the polling loop on the calling goroutine until Stop is called.
// onSnapshot is called synchronously once per tick, in tick order.
// A tickPeriod <= 0 uses DefaultTickPeriod.
func (m *BatteryMonitor) Start(onSnapshot func(StatusSnapshot), tickPeriod time.Duration) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if tickPeriod <= 0 {
		tickPeriod = DefaultTickPeriod
	}
	defer close(m.done)

	for m.running.Load() {
		tickStart := time.Now()
		snapshot := m.computeSnapshot(m.sensor.Read())
		if onSnapshot != nil {
			onSnapshot(snapshot)
		}
		if remaining := tickPeriod - time.Since(tickStart); remaining > 0 {
			sleepFn(remaining)
		}
	}
	return nil
}

// Stop asks the loop to exit at the next iteration boundary. It does not wait,
// use Done for that. Calling it more than once has no further effect.
func (m *BatteryMonitor) Stop() {
	m.running.Store(false)
}

// Done is closed once the polling loop has exited.
func (m *BatteryMonitor) Done() <-chan struct{} {
	return m.done
}

func (m *BatteryMonitor) computeSnapshot(onExternalPower bool, voltage, chargePercent float64) StatusSnapshot {
	charge := clampCharge(chargePercent)
	m.window.push(charge)

	drainRate := m.window.drainRate()
	if drainRate == 0 {
		drainRate = placeholderDrainRate
	}
	minutes := charge / drainRate

	// Time remaining only means something while discharging.
	if !onExternalPower {
		m.window.clear()
	}

	return StatusSnapshot{
		OnExternalPower:  onExternalPower,
		Voltage:          voltage,
		ChargePercent:    charge,
		MinutesRemaining: minutes,
		Category:         Classify(onExternalPower, voltage, charge),
	}
}

// Broadcast returns a callback that passes each snapshot to every observer in
// the given order.
func Broadcast(observers ...func(StatusSnapshot)) func(StatusSnapshot) {
	return func(s StatusSnapshot) {
		for _, o := range observers {
			if o != nil {
				o(s)
			}
		}
	}
}
