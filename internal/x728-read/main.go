package read

import (
	"errors"
	"fmt"
	"os"

	"github.com/TheCacophonyProject/go-utils/logging"
	"github.com/TheCacophonyProject/x728-battery/monitor"
	"github.com/TheCacophonyProject/x728-battery/x728"
	"github.com/alexflint/go-arg"
)

var (
	version = "<not set>"
	log     = logging.NewLogger("info")
)

type Args struct {
	I2CBus       string `arg:"--i2c-bus" help:"I2C bus to open, empty for the first available bus"`
	PowerLossPin string `arg:"--power-loss-pin" help:"GPIO pin connected to the power loss line"`
	logging.LogArgs
}

var defaultArgs = Args{
	PowerLossPin: x728.DefaultPowerLossPin,
}

func procArgs(input []string) (Args, error) {
	args := defaultArgs

	parser, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return Args{}, err
	}
	err = parser.Parse(input)
	if errors.Is(err, arg.ErrHelp) {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if errors.Is(err, arg.ErrVersion) {
		fmt.Println(version)
		os.Exit(0)
	}
	return args, err
}

// Run takes a single reading from the x728 and prints it.
func Run(inputArgs []string, ver string) error {
	version = ver
	args, err := procArgs(inputArgs)
	if err != nil {
		return fmt.Errorf("failed to parse args: %v", err)
	}
	log = logging.NewLogger(args.LogLevel)

	// The battery pin is left alone so a running indicator is not disturbed.
	sensor, bus, err := x728.Open(args.I2CBus, x728.FuelGaugeAddress, args.PowerLossPin, "", log)
	if err != nil {
		return err
	}
	defer bus.Close()

	r, err := sensor.ReadRaw()
	if err != nil {
		return err
	}
	log.Println(formatReading(r))
	return nil
}

func formatReading(r x728.Reading) string {
	category := monitor.Classify(r.OnExternalPower, r.Voltage(), r.ChargePercent())
	return fmt.Sprintf("Voltage: %.3fV (0x%04X), Charge: %.2f%% (0x%04X), Power loss line: %t, Status: %s",
		r.Voltage(), r.VoltageRaw, r.ChargePercent(), r.ChargeRaw, r.OnExternalPower, category)
}
