package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/stratisd/internal/client"
	"github.com/GriffinCanCode/stratisd/internal/shared/paths"
	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

const usage = `usage: stratis-min [flags] <command> [args]

commands:
  pool list
  pool create [-raid N] NAME [DEVICE...]
  pool destroy NAME
  volume list POOL
  volume create -mount PATH -quota SIZE POOL NAME...
  volume destroy POOL NAME...
  status

flags:
`

func main() {
	fs := flag.NewFlagSet("stratis-min", flag.ExitOnError)
	busType := fs.String("bus", "system", "Message bus: system or session")
	busName := fs.String("name", paths.ServiceName, "Daemon's well-known bus name")
	statusURL := fs.String("status", "http://127.0.0.1:8700", "Daemon status endpoint")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		out: os.Stdout,
		dialBus: func() (busAPI, error) {
			return client.DialBus(*busType, *busName, paths.BasePath)
		},
		status: func() statusAPI {
			return client.NewStatusClient(*statusURL, client.DefaultStatusConfig())
		},
	}

	err := a.run(ctx, fs.Args())
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fs.Usage()
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "stratis-min: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a daemon reply to the process exit status: 1 for transport
// failures, 10 + code for daemon errors
func exitCode(err error) int {
	var e *status.E
	if errors.As(err, &e) {
		return 10 + int(e.Code)
	}
	return 1
}
