package main

import (
	"context"
	"fmt"
	"github.com/saylorsolutions/ringbus"
	"github.com/saylorsolutions/ringbus/cli"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"text/tabwriter"
	"time"
)

type benchSettings struct {
	publishers  int
	subscribers int
	events      int
	rate        float64
}

type benchEvent struct {
	publisher int
	n         int
}

type subscriberResult struct {
	received   int
	outOfOrder int
	missed     uint64
}

type benchResult struct {
	elapsed     time.Duration
	published   uint64
	subscribers []subscriberResult
}

func benchCommand(cmds *cli.CommandSet, a *app) {
	cmd := cmds.AddCommand("bench", "Runs publishers and subscribers against a bus and checks delivery", "b")
	cmd.Usage("[FLAGS...]")
	flags := cmd.Flags()
	addCommonFlags(flags)
	flags.Uint64("capacity", 0, "Overrides RINGBUS_CAPACITY, must be a power of two")
	flags.String("metrics-addr", "", "Overrides RINGBUS_METRICS_ADDR")
	flags.IntP("publishers", "p", 4, "Number of concurrent publishers")
	flags.IntP("subscribers", "s", 2, "Number of concurrent subscribers")
	flags.IntP("events", "n", 100_000, "Number of events per publisher")
	flags.Float64("rate", 0, "Events per second per publisher, 0 is unlimited")
	cmd.Does(func(ctx context.Context, flags *flag.FlagSet, printer *cli.Printer) error {
		settings := benchSettings{
			publishers:  cli.MustGet(flags.GetInt("publishers")),
			subscribers: cli.MustGet(flags.GetInt("subscribers")),
			events:      cli.MustGet(flags.GetInt("events")),
			rate:        cli.MustGet(flags.GetFloat64("rate")),
		}
		if settings.publishers < 1 || settings.subscribers < 0 || settings.events < 1 || settings.rate < 0 {
			return cli.NewUsageError("publishers and events must be > 0, subscribers and rate must be >= 0")
		}
		bus, err := a.newBus(ctx)
		if err != nil {
			return err
		}
		defer bus.Close()
		result, err := runBench(ctx, bus, settings)
		if err != nil {
			return err
		}
		printBenchResult(printer, settings, result)
		return nil
	})
}

func runBench(ctx context.Context, bus *ringbus.Bus, settings benchSettings) (benchResult, error) {
	var (
		total   = settings.publishers * settings.events
		results = make([]subscriberResult, settings.subscribers)
		subs    = make([]*ringbus.Subscriber[benchEvent], settings.subscribers)
	)
	for i := range subs {
		sub, err := ringbus.Subscribe[benchEvent](bus)
		if err != nil {
			return benchResult{}, err
		}
		defer sub.Close()
		subs[i] = sub
	}

	start := time.Now()
	grp, ctx := errgroup.WithContext(ctx)
	for i, sub := range subs {
		grp.Go(func() error {
			// Closing stops this subscriber from gating publishers if it returns early.
			defer sub.Close()
			lastSeen := make([]int, settings.publishers)
			for range total {
				read, err := sub.Recv(ctx)
				if err != nil {
					return fmt.Errorf("subscriber %d: %w", i, err)
				}
				event := read.Value()
				read.Release()
				if event.n != lastSeen[event.publisher]+1 {
					results[i].outOfOrder++
				}
				lastSeen[event.publisher] = event.n
				results[i].received++
			}
			results[i].missed = sub.Missed()
			return nil
		})
	}
	for p := range settings.publishers {
		grp.Go(func() error {
			var limiter *rate.Limiter
			if settings.rate > 0 {
				limiter = rate.NewLimiter(rate.Limit(settings.rate), 1)
			}
			for n := 1; n <= settings.events; n++ {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
				}
				if _, err := ringbus.Publish(bus, benchEvent{publisher: p, n: n}); err != nil {
					return fmt.Errorf("publisher %d: %w", p, err)
				}
			}
			return nil
		})
	}
	err := grp.Wait()
	return benchResult{
		elapsed:     time.Since(start),
		published:   bus.Stats().Published,
		subscribers: results,
	}, err
}

func printBenchResult(printer *cli.Printer, settings benchSettings, result benchResult) {
	throughput := float64(result.published) / result.elapsed.Seconds()
	if !printer.IsTerminal() {
		printer.Printf("published=%d elapsed=%s throughput=%.0f\n", result.published, result.elapsed, throughput)
		for i, sub := range result.subscribers {
			printer.Printf("subscriber=%d received=%d out_of_order=%d missed=%d\n", i, sub.received, sub.outOfOrder, sub.missed)
		}
		return
	}
	printer.Printf("Published %d events from %d publishers in %s (%.0f events/s)\n\n",
		result.published, settings.publishers, result.elapsed.Round(time.Millisecond), throughput)
	tw := tabwriter.NewWriter(printer, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SUBSCRIBER\tRECEIVED\tOUT OF ORDER\tMISSED")
	for i, sub := range result.subscribers {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", i, sub.received, sub.outOfOrder, sub.missed)
	}
	_ = tw.Flush()
}
