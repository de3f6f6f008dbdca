package x728

import (
	"encoding/binary"
	"sync"

	"github.com/TheCacophonyProject/go-utils/logging"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	FuelGaugeAddress = 0x36
	voltageReg       = 0x02
	capacityReg      = 0x04

	// DefaultPowerLossPin is the PLD line, high when external power is lost.
	DefaultPowerLossPin = "GPIO6"
	// DefaultBatteryPin controls the battery, it is driven low on startup.
	DefaultBatteryPin = "GPIO13"
)

// Reading is one raw sample from the HAT.
type Reading struct {
	OnExternalPower bool
	VoltageRaw      uint16
	ChargeRaw       uint16
}

func (r Reading) Voltage() float64 {
	return VoltageFromRaw(r.VoltageRaw)
}

func (r Reading) ChargePercent() float64 {
	return ChargeFromRaw(r.ChargeRaw)
}

// VoltageFromRaw converts the fuel gauge VCELL register to volts.
func VoltageFromRaw(raw uint16) float64 {
	return float64(raw) * 1.25 / 1000 / 16
}

// ChargeFromRaw converts the fuel gauge SOC register to a percentage.
// This is not clamped, the gauge can report a little over 100%.
func ChargeFromRaw(raw uint16) float64 {
	return float64(raw) / 256
}

// Sensor reads the x728 fuel gauge over I2C and the power loss line over GPIO.
type Sensor struct {
	dev *i2c.Dev
	pld gpio.PinIn
	log *logging.Logger

	mu       sync.Mutex
	lastGood Reading
}

func New(bus i2c.Bus, address uint16, pld gpio.PinIn, log *logging.Logger) *Sensor {
	return &Sensor{
		dev: &i2c.Dev{Bus: bus, Addr: address},
		pld: pld,
		log: log,
	}
}

// Open initialises the host drivers, opens the I2C bus and sets up the pins.
// The returned bus must be closed by the caller.
func Open(busName string, address uint16, pldPinName, batteryPinName string, log *logging.Logger) (*Sensor, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to initialise periph host")
	}

	log.Debugf("Initializing pin '%s'", pldPinName)
	pld := gpioreg.ByName(pldPinName)
	if pld == nil {
		return nil, nil, errors.Errorf("GPIO pin %s not found", pldPinName)
	}
	if err := pld.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to set %s as input", pldPinName)
	}

	if batteryPinName != "" {
		log.Debugf("Initializing pin '%s'", batteryPinName)
		batteryPin := gpioreg.ByName(batteryPinName)
		if batteryPin == nil {
			return nil, nil, errors.Errorf("GPIO pin %s not found", batteryPinName)
		}
		if err := batteryPin.Out(gpio.Low); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to set %s low", batteryPinName)
		}
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open I2C bus '%s'", busName)
	}
	return New(bus, address, pld, log), bus, nil
}

// ReadRaw reads the power loss line and both fuel gauge registers.
func (s *Sensor) ReadRaw() (Reading, error) {
	voltage, err := s.readWord(voltageReg)
	if err != nil {
		return Reading{}, errors.Wrap(err, "failed to read voltage")
	}
	charge, err := s.readWord(capacityReg)
	if err != nil {
		return Reading{}, errors.Wrap(err, "failed to read capacity")
	}
	return Reading{
		OnExternalPower: s.pld.Read() == gpio.High,
		VoltageRaw:      voltage,
		ChargeRaw:       charge,
	}, nil
}

// Read returns the latest reading in engineering units. A failed read is
// logged and the last good reading is returned instead.
func (s *Sensor) Read() (bool, float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.ReadRaw()
	if err != nil {
		s.log.Errorf("Error reading x728, using last good reading: %v", err)
		r = s.lastGood
	} else {
		s.lastGood = r
	}
	return r.OnExternalPower, r.Voltage(), r.ChargePercent()
}

// readWord reads a 16 bit register. The gauge sends the high byte first.
func (s *Sensor) readWord(register byte) (uint16, error) {
	data := make([]byte, 2)
	if err := s.dev.Tx([]byte{register}, data); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(data), nil
}
