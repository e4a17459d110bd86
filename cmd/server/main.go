package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/otelpipe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/otelpipe/internal/server"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/export"
	"github.com/GriffinCanCode/otelpipe/internal/telemetry/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	base, err := logging.New(logging.ConfigFor(cfg.Logging.Level, cfg.Logging.Development))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = base.Sync() }()

	res, err := cfg.App.Resource()
	if err != nil {
		base.Error("invalid service identity", zap.Error(err))
		return 1
	}
	target, err := cfg.Telemetry.Target()
	if err != nil {
		base.Error("invalid telemetry target", zap.Error(err))
		return 1
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(ctx, pipeline.Settings{
		Target:   target,
		Resource: res,
		Spans:    exportConfig("spans", cfg.Telemetry),
		Logs:     exportConfig("logs", cfg.Telemetry),
		Backend:  cfg.Telemetry.Backend,
		Logger:   base.Logger,
		Observer: metrics,
	})
	if err != nil {
		base.Error("failed to start telemetry pipeline", zap.Error(err))
		return 1
	}

	appLogger := logging.Tee(base, logging.NewPipelineCore(p, base.Level()))
	appLogger.Info("starting service",
		zap.String("service", res.ServiceName),
		zap.String("version", res.ServiceVersion),
		zap.String("environment", string(res.Environment)),
		zap.String("addr", cfg.Server.Addr()),
	)

	srv := server.NewServer(cfg, server.Deps{Telemetry: p, Metrics: metrics, Logger: appLogger.Logger})

	failed := make(chan struct{})
	go func() {
		if err := srv.Run(); err != nil {
			appLogger.Error("HTTP server failed", zap.Error(err))
			close(failed)
			p.RequestShutdown()
		}
	}()

	go func() {
		<-ctx.Done()
		p.RequestShutdown()
	}()

	<-p.ShutdownRequested()
	appLogger.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.ShutdownTimeout)
	if err := srv.Shutdown(sctx); err != nil {
		appLogger.Warn("HTTP server did not stop cleanly", zap.Error(err))
	}
	cancel()

	code := p.Run(context.Background(), cfg.Telemetry.ShutdownTimeout)
	select {
	case <-failed:
		return 1
	default:
		return code
	}
}

func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	host := flags.String("host", cfg.Server.Host, "listen host")
	port := flags.String("port", cfg.Server.Port, "listen port")
	traceType := flags.String("trace-type", cfg.Telemetry.Type, "telemetry target: console, otlp or disabled")
	endpoint := flags.String("otlp-endpoint", cfg.Telemetry.Endpoint, "OTLP collector base URL")
	protocol := flags.String("otlp-protocol", cfg.Telemetry.Protocol, "OTLP protocol: http or grpc")
	logLevel := flags.String("log-level", cfg.Logging.Level, "log level: debug, info, warn, error")
	dev := flags.Bool("dev", cfg.Logging.Development, "development logging")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	cfg.Server.Host = *host
	cfg.Server.Port = *port
	cfg.Telemetry.Type = *traceType
	cfg.Telemetry.Endpoint = *endpoint
	cfg.Telemetry.Protocol = *protocol
	cfg.Logging.Level = *logLevel
	cfg.Logging.Development = *dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func exportConfig(name string, t config.TelemetryConfig) export.Config {
	return export.Config{
		Name:               name,
		MaxQueueSize:       t.MaxQueueSize,
		MaxExportBatchSize: t.MaxExportBatchSize,
		FlushInterval:      t.FlushInterval,
		ExportTimeout:      t.ExportTimeout,
	}
}
