package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reoring/goform"
	"github.com/reoring/goform/config"
	"github.com/reoring/goform/httpform"
	"github.com/reoring/goform/i18n"
	"github.com/reoring/goform/metrics"
)

func serveCmd(args []string, _ io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var form, addr string
	var watch bool
	fs.StringVar(&form, "form", "", "form definition (YAML)")
	fs.StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	fs.BoolVar(&watch, "watch", false, "reload the definition when the file changes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if form == "" {
		fs.Usage()
		return 2
	}

	holder, err := config.NewHolder(form, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(stderr, "serve: %v\n", err)
		return 1
	}
	defer holder.Stop()

	def := holder.Get()
	logger := config.NewLogger(def.Logging, stderr).With().Str("form", def.Name).Logger()
	if addr == "" {
		addr = def.Server.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, holder, addr, watch, logger); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		return 1
	}
	return 0
}

// serve runs the HTTP binding until ctx is done.
func serve(ctx context.Context, holder *config.Holder, addr string, watch bool, logger zerolog.Logger) error {
	def := holder.Get()

	var collector *metrics.Collector
	var rcfg httpform.RouterConfig
	if def.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector = metrics.New(reg)
		rcfg = httpform.RouterConfig{
			Metrics:        collector,
			MetricsPath:    def.Metrics.Path,
			MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		holder.OnReload(collector.ConfigReloaded)
	}

	build := func(d *config.Definition) (*goform.Form, error) {
		i18n.SetLanguage(d.Language)
		props, err := d.Props()
		if err != nil {
			return nil, err
		}
		opts := []goform.Option{goform.WithLogger(logger)}
		if collector != nil {
			opts = append(opts, goform.WithRecorder(collector))
		}
		return goform.New(ctx, props, opts...)
	}

	f, err := build(def)
	if err != nil {
		return fmt.Errorf("build form: %w", err)
	}
	srv := httpform.NewServer(f, logger)

	if watch {
		holder.OnChange(func(d *config.Definition) {
			next, err := build(d)
			if err != nil {
				logger.Error().Err(err).Msg("reloaded definition rejected")
				return
			}
			srv.Replace(next)
			logger.Info().Msg("form replaced")
		})
		if err := holder.WatchFile(); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           httpform.NewRouter(srv, logger, rcfg),
		ReadTimeout:       def.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      def.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Bool("watch", watch).Msg("serving form")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info().Msg("shutting down")
	return server.Shutdown(shutdownCtx)
}
