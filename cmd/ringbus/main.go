package main

import (
	"context"
	"errors"
	"github.com/saylorsolutions/ringbus/cli"
	"github.com/saylorsolutions/ringbus/signalx"
	"os"
	"syscall"
)

func main() {
	ctx := signalx.SignalExitCtx(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := new(app)
	defer a.Close()

	cmds := cli.NewCommandSet("ringbus")
	cmds.Before(a.setup)
	benchCommand(cmds, a)
	serveCommand(cmds, a)
	sendCommand(cmds, a)

	args := os.Args[1:]
	if cmds.RespondUsage(args, "Runs and exercises a disruptor style event bus.\nSettings are read from RINGBUS_* environment variables and .env, and flags take precedence.") {
		return
	}
	if err := cmds.Exec(ctx, args); err != nil {
		if !errors.Is(err, &cli.UsageError{}) {
			cmds.Printer().Println("Error:", err)
		}
		a.Close()
		os.Exit(1)
	}
}
