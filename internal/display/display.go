// Package display turns status snapshots into the text and icons shown to the user.
package display

import (
	"fmt"
	"math"

	"github.com/TheCacophonyProject/x728-battery/monitor"
)

const chargingText = "Charging"

// TimeRemaining formats an estimate in minutes as "N min" under an hour and
// "H:MM hrs" otherwise.
func TimeRemaining(minutes float64) string {
	m := int(math.Abs(math.RoundToEven(minutes)))
	if m < 60 {
		return fmt.Sprintf("%d min", m)
	}
	return fmt.Sprintf("%d:%02d hrs", m/60, m%60)
}

// Tooltip is the one line summary, e.g. "80.0%, 3.95V, 1:20 hrs".
func Tooltip(s monitor.StatusSnapshot) string {
	timeText := chargingText
	if s.OnExternalPower {
		timeText = TimeRemaining(s.MinutesRemaining)
	}
	return fmt.Sprintf("%.1f%%, %.2fV, %s", s.ChargePercent, s.Voltage, timeText)
}

// Title is a short label for trays that show text next to the icon.
func Title(s monitor.StatusSnapshot) string {
	switch s.Category.Kind {
	case monitor.KindLowVoltageWarning:
		return fmt.Sprintf("! %.0f%%", s.ChargePercent)
	case monitor.KindCharging:
		return fmt.Sprintf("+ %.0f%%", s.ChargePercent)
	default:
		return fmt.Sprintf("%.0f%%", s.ChargePercent)
	}
}
