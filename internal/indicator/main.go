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

package indicator

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/TheCacophonyProject/go-utils/logging"
	"github.com/TheCacophonyProject/x728-battery/internal/tray"
	"github.com/TheCacophonyProject/x728-battery/monitor"
	"github.com/TheCacophonyProject/x728-battery/x728"
	"github.com/alexflint/go-arg"
)

var (
	version = "<not set>"
	log     = logging.NewLogger("info")
)

type Args struct {
	I2CBus         string        `arg:"--i2c-bus" help:"I2C bus to open, empty for the first available bus"`
	Address        string        `arg:"--address" help:"Address of the fuel gauge, in hex (0xnn)"`
	PowerLossPin   string        `arg:"--power-loss-pin" help:"GPIO pin connected to the power loss line"`
	BatteryPin     string        `arg:"--battery-pin" help:"GPIO pin controlling the battery, empty to leave it alone"`
	TickPeriod     time.Duration `arg:"--tick" help:"Time between battery readings"`
	StartupDelay   time.Duration `arg:"--startup-delay" help:"Time to wait before touching the hardware"`
	LogRateMinutes int           `arg:"--log-rate" help:"Minutes between status log lines and CSV entries"`
	CSVFile        string        `arg:"--csv-file" help:"File to append readings to, empty to disable"`
	MaxCSVLines    int           `arg:"--max-csv-lines" help:"Number of lines kept in the CSV file"`
	HTTPAddress    string        `arg:"--http-address" help:"Address to serve status and metrics on, empty to disable"`
	NoTray         bool          `arg:"--no-tray" help:"Don't show a system tray icon"`
	NoDbus         bool          `arg:"--no-dbus" help:"Don't start the dbus service"`
	NoEvents       bool          `arg:"--no-events" help:"Don't report power events"`
	logging.LogArgs
}

func (Args) Version() string {
	return version
}

var defaultArgs = Args{
	Address:        fmt.Sprintf("0x%02x", x728.FuelGaugeAddress),
	PowerLossPin:   x728.DefaultPowerLossPin,
	BatteryPin:     x728.DefaultBatteryPin,
	TickPeriod:     monitor.DefaultTickPeriod,
	StartupDelay:   5 * time.Second,
	LogRateMinutes: 5,
	CSVFile:        "/var/log/x728-battery.csv",
	MaxCSVLines:    2000,
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

func Run(inputArgs []string, ver string) error {
	version = ver
	args, err := procArgs(inputArgs)
	if err != nil {
		return fmt.Errorf("failed to parse args: %v", err)
	}

	log = logging.NewLogger(args.LogLevel)

	log.Infof("Running version: %s", version)

	address, err := hexStringToByte(args.Address)
	if err != nil {
		return err
	}

	if args.StartupDelay > 0 {
		log.Infof("Waiting %s before starting", args.StartupDelay)
		time.Sleep(args.StartupDelay)
	}

	sensor, bus, err := x728.Open(args.I2CBus, uint16(address), args.PowerLossPin, args.BatteryPin, log)
	if err != nil {
		return err
	}
	defer bus.Close()

	mon := monitor.New(sensor)
	status := &latestStatus{}
	observers := []func(monitor.StatusSnapshot){
		status.set,
		newStatusLogger(time.Duration(args.LogRateMinutes) * time.Minute).observe,
		updateMetrics,
	}

	if args.CSVFile != "" {
		csvLog, err := newCSVLogger(args.CSVFile, args.MaxCSVLines, time.Duration(args.LogRateMinutes)*time.Minute)
		if err != nil {
			return err
		}
		observers = append(observers, csvLog.observe)
	}

	if !args.NoEvents {
		observers = append(observers, newEventReporter().observe)
	}

	if !args.NoDbus {
		s, err := startService(status)
		if err != nil {
			return err
		}
		observers = append(observers, s.emit)
	}

	if args.HTTPAddress != "" {
		startHTTPServer(args.HTTPAddress, status)
	}

	var indicator *tray.Indicator
	if !args.NoTray {
		indicator = tray.New(mon, log)
		observers = append(observers, indicator.Update)
	}

	go func() {
		log.Infof("Sampling battery every %s", args.TickPeriod)
		if err := mon.Start(monitor.Broadcast(observers...), args.TickPeriod); err != nil {
			log.Error(err)
		}
	}()

	if indicator != nil {
		// Blocks until the tray exits, which stops the monitor.
		indicator.Run()
	} else {
		waitForSignal()
		mon.Stop()
	}

	<-mon.Done()
	log.Info("Battery monitor stopped")
	return nil
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Infof("Received %s, stopping", s)
}

func hexStringToByte(hexStr string) (byte, error) {
	if len(hexStr) != 4 {
		return 0, fmt.Errorf("invalid hex string length: %d", len(hexStr))
	}
	if !strings.HasPrefix(hexStr, "0x") {
		return 0, fmt.Errorf("invalid hex string prefix, should be '0x': %s", hexStr)
	}
	val, err := strconv.ParseUint(hexStr[2:], 16, 8)
	if err != nil {
		return 0, err
	}
	return byte(val), nil
}
