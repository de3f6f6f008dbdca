package x728

import (
	"testing"

	"github.com/TheCacophonyProject/go-utils/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

var testLog = logging.NewLogger("info")

func gaugeOps(voltage, charge []byte) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: FuelGaugeAddress, W: []byte{voltageReg}, R: voltage},
		{Addr: FuelGaugeAddress, W: []byte{capacityReg}, R: charge},
	}
}

func TestConversions(t *testing.T) {
	assert.Equal(t, 4.0, VoltageFromRaw(0xC800))
	assert.Equal(t, 0.0, VoltageFromRaw(0))
	assert.Equal(t, 80.0, ChargeFromRaw(0x5000))
	assert.Equal(t, 100.5, ChargeFromRaw(0x6480))
}

func TestReadRaw(t *testing.T) {
	bus := &i2ctest.Playback{Ops: gaugeOps([]byte{0xC8, 0x00}, []byte{0x50, 0x00})}
	pin := &gpiotest.Pin{N: DefaultPowerLossPin, L: gpio.High}

	s := New(bus, FuelGaugeAddress, pin, testLog)
	r, err := s.ReadRaw()
	require.NoError(t, err)
	assert.True(t, r.OnExternalPower)
	assert.Equal(t, uint16(0xC800), r.VoltageRaw)
	assert.Equal(t, uint16(0x5000), r.ChargeRaw)
	assert.Equal(t, 4.0, r.Voltage())
	assert.Equal(t, 80.0, r.ChargePercent())
	require.NoError(t, bus.Close())
}

func TestReadUsesHighByteFirst(t *testing.T) {
	bus := &i2ctest.Playback{Ops: gaugeOps([]byte{0x12, 0x34}, []byte{0x00, 0x80})}
	pin := &gpiotest.Pin{N: DefaultPowerLossPin, L: gpio.Low}

	power, voltage, charge := New(bus, FuelGaugeAddress, pin, testLog).Read()
	assert.False(t, power)
	assert.Equal(t, VoltageFromRaw(0x1234), voltage)
	assert.Equal(t, 0.5, charge)
}

func TestReadFallsBackToLastGood(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops:       gaugeOps([]byte{0xC8, 0x00}, []byte{0x50, 0x00}),
		DontPanic: true,
	}
	pin := &gpiotest.Pin{N: DefaultPowerLossPin, L: gpio.High}
	s := New(bus, FuelGaugeAddress, pin, testLog)

	power, voltage, charge := s.Read()
	assert.True(t, power)
	assert.Equal(t, 4.0, voltage)
	assert.Equal(t, 80.0, charge)

	// The playback has run out of operations so the bus now errors.
	pin.L = gpio.Low
	power, voltage, charge = s.Read()
	assert.True(t, power)
	assert.Equal(t, 4.0, voltage)
	assert.Equal(t, 80.0, charge)
}

func TestReadBeforeAnyGoodReading(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}
	pin := &gpiotest.Pin{N: DefaultPowerLossPin, L: gpio.High}

	_, err := New(bus, FuelGaugeAddress, pin, testLog).ReadRaw()
	assert.Error(t, err)

	power, voltage, charge := New(bus, FuelGaugeAddress, pin, testLog).Read()
	assert.False(t, power)
	assert.Equal(t, 0.0, voltage)
	assert.Equal(t, 0.0, charge)
}
