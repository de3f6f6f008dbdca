package monitor

import (
	"fmt"
	"math"
)

const (
	// MaxLevel is the highest charge level, eight levels in total.
	MaxLevel = 7

	// LowVoltageThreshold is the voltage below which the battery is flagged,
	// compared after rounding to two decimal places.
	LowVoltageThreshold = 3.00
)

// CategoryKind identifies which variant a StatusCategory holds.
type CategoryKind uint8

const (
	KindNormal CategoryKind = iota
	KindCharging
	KindLowVoltageWarning
)

func (k CategoryKind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindCharging:
		return "charging"
	case KindLowVoltageWarning:
		return "lowVoltageWarning"
	default:
		return "unknown"
	}
}

// StatusCategory is the discrete status used to pick an icon.
// Level is only meaningful for KindNormal.
type StatusCategory struct {
	Kind  CategoryKind
	Level int
}

func Normal(level int) StatusCategory {
	return StatusCategory{Kind: KindNormal, Level: level}
}

var (
	Charging          = StatusCategory{Kind: KindCharging}
	LowVoltageWarning = StatusCategory{Kind: KindLowVoltageWarning}
)

func (c StatusCategory) String() string {
	if c.Kind == KindNormal {
		return fmt.Sprintf("normal(%d)", c.Level)
	}
	return c.Kind.String()
}

// StatusSnapshot is the status derived from one sensor reading.
type StatusSnapshot struct {
	OnExternalPower  bool
	Voltage          float64
	ChargePercent    float64
	MinutesRemaining float64
	Category         StatusCategory
}

// Classify maps a reading onto its status category. A low voltage overrides
// whatever the power state would otherwise give.
func Classify(onExternalPower bool, voltage, chargePercent float64) StatusCategory {
	if roundTo(voltage, 2) < LowVoltageThreshold {
		return LowVoltageWarning
	}
	if !onExternalPower {
		return Charging
	}
	return Normal(Level(chargePercent))
}

// Level buckets a charge percentage into 0..MaxLevel.
func Level(chargePercent float64) int {
	level := int(math.RoundToEven(chargePercent / (100.0 / MaxLevel)))
	if level < 0 {
		return 0
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}

func clampCharge(c float64) float64 {
	return math.Max(0, math.Min(100, c))
}
