package main

import (
	"context"
	"github.com/saylorsolutions/ringbus/cli"
	"github.com/saylorsolutions/ringbus/transport"
	flag "github.com/spf13/pflag"
)

func sendCommand(cmds *cli.CommandSet, a *app) {
	cmd := cmds.AddCommand("send", "Sends messages to a server started with serve")
	cmd.Usage("[FLAGS...] MESSAGE...")
	flags := cmd.Flags()
	addCommonFlags(flags)
	flags.String("addr", "", "Overrides RINGBUS_LISTEN_ADDR as the address to connect to")
	cmd.Does(func(ctx context.Context, flags *flag.FlagSet, printer *cli.Printer) error {
		messages := flags.Args()
		if len(messages) == 0 {
			return cli.NewUsageError("at least one message is required")
		}
		opts, err := a.transportOptions(false)
		if err != nil {
			return err
		}
		dialCtx, cancel := context.WithTimeout(ctx, a.conf.DialTimeout)
		defer cancel()
		ch, err := transport.Dial[string](dialCtx, a.conf.ListenAddr, opts...)
		if err != nil {
			return err
		}
		defer func() {
			_ = ch.Close()
		}()
		for _, msg := range messages {
			if err := ch.Send(ctx, msg); err != nil {
				return err
			}
		}
		printer.Printf("Sent %d message(s) to %s\n", len(messages), a.conf.ListenAddr)
		return nil
	})
}
