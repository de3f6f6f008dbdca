package main

import (
	"fmt"
	"os"

	"github.com/TheCacophonyProject/go-utils/logging"
	"github.com/TheCacophonyProject/x728-battery/internal/indicator"
	read "github.com/TheCacophonyProject/x728-battery/internal/x728-read"
)

var log *logging.Logger

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

var version = "<not set>"

func runMain() error {
	log = logging.NewLogger("info")
	if len(os.Args) < 2 {
		log.Info("Usage: x728-battery <indicator|read> [args]")
		return fmt.Errorf("no subcommand given")
	}

	subcommand := os.Args[1]
	args := os.Args[2:]

	var err error
	switch subcommand {
	case "indicator":
		err = indicator.Run(args, version)
	case "read":
		err = read.Run(args, version)
	default:
		err = fmt.Errorf("unknown subcommand: %s", subcommand)
	}

	return err
}
