package indicator

import (
	"time"

	"github.com/TheCacophonyProject/event-reporter/v3/eventclient"
	"github.com/TheCacophonyProject/x728-battery/monitor"
)

const (
	lowVoltageEvent        = "x728LowVoltage"
	voltageRecoveredEvent  = "x728VoltageRecovered"
	powerStateChangedEvent = "x728PowerStateChanged"
)

// eventReporter reports power events when the status changes between ticks.
type eventReporter struct {
	addEvent func(eventclient.Event) error
	previous *monitor.StatusSnapshot
}

func newEventReporter() *eventReporter {
	return &eventReporter{addEvent: eventclient.AddEvent}
}

func (r *eventReporter) observe(s monitor.StatusSnapshot) {
	prev := r.previous
	r.previous = &s

	lowVoltage := s.Category == monitor.LowVoltageWarning
	if prev == nil {
		// Nothing to compare against, only report an existing low voltage.
		if lowVoltage {
			r.report(lowVoltageEvent, s)
		}
		return
	}

	wasLowVoltage := prev.Category == monitor.LowVoltageWarning
	if lowVoltage && !wasLowVoltage {
		r.report(lowVoltageEvent, s)
	} else if !lowVoltage && wasLowVoltage {
		r.report(voltageRecoveredEvent, s)
	}

	if s.OnExternalPower != prev.OnExternalPower {
		r.report(powerStateChangedEvent, s)
	}
}

func (r *eventReporter) report(eventType string, s monitor.StatusSnapshot) {
	log.Infof("Reporting %s", eventType)
	err := r.addEvent(eventclient.Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details: map[string]interface{}{
			"onExternalPower":  s.OnExternalPower,
			"voltage":          s.Voltage,
			"chargePercent":    s.ChargePercent,
			"minutesRemaining": s.MinutesRemaining,
		},
	})
	if err != nil {
		log.Errorf("Error adding event: %v", err)
	}
}
