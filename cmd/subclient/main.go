// Command subclient is the interactive client for the subscription service:
// registration with OTP confirmation, login, session inspection, and account
// management against a configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gbaghdasaryan1/subscription-client/internal/cli"
)

func main() {
	flag.Parse()

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, "subclient:", err)
		os.Exit(1)
	}
}

func run(command string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Close(shutdownCtx)
	}()

	return cli.NewRunner(app, os.Stdin, os.Stdout).Run(ctx, command)
}
