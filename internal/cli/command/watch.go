package command

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/confkit-go/internal/cli/output"
	"github.com/yndnr/confkit-go/internal/infra/shutdown"
	"github.com/yndnr/confkit-go/pkg/metric"
)

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Print every key, then print changes until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-listen",
				Usage: "Serve Prometheus metrics on this address",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "Time allowed for cleanup on exit",
				Value: 10 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "reveal",
				Usage: "Show values unmasked",
			},
		},
		Action: runWatch,
	}
}

func runWatch(c *cli.Context) error {
	reg := prometheus.NewRegistry()
	rec, err := metric.NewRecorder(reg)
	if err != nil {
		return err
	}

	kit, log, err := openKit(c, rec)
	if err != nil {
		return err
	}

	h := shutdown.NewHandler(c.Duration("shutdown-timeout"), shutdown.WithLogger(log))
	h.OnShutdown("config kit", func(context.Context) error {
		return kit.Close()
	})

	if addr := c.String("metrics-listen"); addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			_ = h.Shutdown()
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metric.Handler(reg))
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
		h.OnShutdown("metrics server", srv.Shutdown)
		log.Info("serving metrics", "address", ln.Addr().String())
	}

	updates := make(chan struct{}, 1)
	sub := kit.OnUpdate(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	reveal := c.Bool("reveal")
	current := resolveAll(c.Context, kit, reveal)
	if err := render(c, entryList(current)); err != nil {
		sub.Unsubscribe()
		_ = h.Shutdown()
		return err
	}

	format := ParseGlobalFlags(c).Output
	changeOut := output.NewFormatter(format)
	if format == output.FormatJSON {
		changeOut = &output.JSONFormatter{Compact: true}
	}

	loopCtx, cancel := context.WithCancel(c.Context)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-updates:
				next := resolveAll(loopCtx, kit, reveal)
				if changes := diffEntries(current, next); len(changes) > 0 {
					if err := changeOut.Format(c.App.Writer, changes); err != nil {
						log.Warn("rendering changes failed", "error", err)
					}
				}
				current = next
			}
		}
	}()
	h.OnShutdown("watch loop", func(ctx context.Context) error {
		sub.Unsubscribe()
		cancel()
		select {
		case <-loopDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	return h.Wait(c.Context)
}
