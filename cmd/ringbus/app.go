package main

import (
	"context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saylorsolutions/ringbus"
	"github.com/saylorsolutions/ringbus/config"
	"github.com/saylorsolutions/ringbus/httpx"
	flag "github.com/spf13/pflag"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// app holds what every command shares, populated from config and flags before the command runs.
type app struct {
	conf     config.Config
	log      *slog.Logger
	closeLog func() error
}

func addCommonFlags(flags *flag.FlagSet) {
	flags.StringSlice("env", nil, "Loads the given .env files instead of the default .env")
	flags.String("log-level", "", "Overrides RINGBUS_LOG_LEVEL")
	flags.String("log-format", "", "Overrides RINGBUS_LOG_FORMAT, either text or json")
}

// setup loads configuration, letting any flags that were explicitly given override it.
func (a *app) setup(flags *flag.FlagSet) error {
	files, _ := flags.GetStringSlice("env")
	conf, err := config.Load(files...)
	if err != nil {
		return err
	}
	override := func(name string, target any) {
		if !flags.Changed(name) {
			return
		}
		switch t := target.(type) {
		case *string:
			*t, _ = flags.GetString(name)
		case *uint64:
			*t, _ = flags.GetUint64(name)
		case *int:
			*t, _ = flags.GetInt(name)
		}
	}
	override("log-level", &conf.LogLevel)
	override("log-format", &conf.LogFormat)
	override("capacity", &conf.Capacity)
	override("addr", &conf.ListenAddr)
	override("queue-bound", &conf.QueueBound)
	override("metrics-addr", &conf.MetricsAddr)
	override("ws-addr", &conf.WSAddr)
	if err := conf.Validate(); err != nil {
		return err
	}
	log, closeLog, err := conf.Logger(os.Stderr)
	if err != nil {
		return err
	}
	a.conf, a.log, a.closeLog = conf, log, closeLog
	return nil
}

func (a *app) Close() {
	if a.closeLog != nil {
		_ = a.closeLog()
		a.closeLog = nil
	}
}

// newBus creates a [ringbus.Bus] from config, serving its metrics if a metrics address is configured.
func (a *app) newBus(ctx context.Context) (*ringbus.Bus, error) {
	opts := []ringbus.ConfigFunc{
		ringbus.Capacity(a.conf.Capacity),
		ringbus.Logger(a.log),
	}
	if len(a.conf.MetricsAddr) == 0 {
		return ringbus.New(opts...)
	}
	reg := prometheus.NewRegistry()
	bus, err := ringbus.New(append(opts, ringbus.Metrics(reg))...)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go a.serveHTTP(ctx, "metrics", a.conf.MetricsAddr, mux)
	return bus, nil
}

// serveHTTP serves handler on addr until ctx is done, logging failures.
func (a *app) serveHTTP(ctx context.Context, name, addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpx.Wrap(handler, httpx.Recovery(a.log), httpx.Logging(a.log)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.log.Info("Serving HTTP", "server", name, "addr", addr)
	if err := httpx.ListenAndServeCtx(ctx, srv, time.Second); err != nil {
		a.log.Error("HTTP server stopped", "server", name, "error", err)
	}
}
