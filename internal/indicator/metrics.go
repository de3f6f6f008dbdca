package indicator

import (
	"github.com/TheCacophonyProject/x728-battery/monitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var batteryVoltage = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "x728",
	Name:      "battery_voltage_volts",
	Help:      "Battery voltage reported by the fuel gauge.",
})

var batteryCharge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "x728",
	Name:      "battery_charge_percent",
	Help:      "Battery charge reported by the fuel gauge, clamped to 0-100.",
})

var batteryMinutesRemaining = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "x728",
	Name:      "battery_minutes_remaining",
	Help:      "Rough linear estimate of battery time remaining.",
})

var externalPower = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "x728",
	Name:      "external_power",
	Help:      "1 when the power loss line is high, 0 otherwise.",
})

var batteryCategory = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "x728",
	Name:      "battery_status",
	Help:      "1 for the current status category, 0 for the others.",
}, []string{"category"})

var batteryLevel = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "x728",
	Name:      "battery_level",
	Help:      "Charge level bucket 0-7 used for the icon.",
})

var snapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "x728",
	Name:      "snapshots_total",
	Help:      "Total battery status snapshots published.",
})

func updateMetrics(s monitor.StatusSnapshot) {
	batteryVoltage.Set(s.Voltage)
	batteryCharge.Set(s.ChargePercent)
	batteryMinutesRemaining.Set(s.MinutesRemaining)
	if s.OnExternalPower {
		externalPower.Set(1)
	} else {
		externalPower.Set(0)
	}
	for _, kind := range []monitor.CategoryKind{monitor.KindNormal, monitor.KindCharging, monitor.KindLowVoltageWarning} {
		v := 0.0
		if s.Category.Kind == kind {
			v = 1
		}
		batteryCategory.WithLabelValues(kind.String()).Set(v)
	}
	batteryLevel.Set(float64(monitor.Level(s.ChargePercent)))
	snapshotsPublished.Inc()
}
