// camera-api serves a single RTSP camera over HTTP: connect, status,
// the latest frame as base64 JPEG, snapshots, and prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/teslashibe/camframe/internal/config"
	"github.com/teslashibe/camframe/internal/log"
	"github.com/teslashibe/camframe/pkg/camera"
	"github.com/teslashibe/camframe/pkg/video/opencv"
	"github.com/teslashibe/camframe/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	port := flag.String("port", "", "HTTP listen port (overrides PORT env var)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	noConnect := flag.Bool("no-connect", false, "Skip the startup camera connection")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *noConnect {
		cfg.Camera.AutoConnect = false
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "Error: %s\n", e)
		}
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := append(cfg.SourceOptions(),
		camera.WithLogger(logger),
		camera.WithMetrics(camera.NewMetrics(reg)),
	)
	svc := camera.NewService(opencv.Opener{}, opts...)
	defer svc.Close()

	// A failed startup connection is logged; clients can still POST /api/connect.
	if cfg.AutoConnect() {
		go func() {
			ep := cfg.Endpoint()
			if _, err := svc.Connect(ep); err != nil {
				logger.Warn("camera: startup connection failed", "endpoint", ep, "error", err)
			}
		}()
	}

	srv := web.NewServer(cfg.Server.Port, svc, web.WithLogger(logger), web.WithMetrics(reg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		logger.Error("web: server stopped", "error", err)
		svc.Close()
		os.Exit(1)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	done := make(chan struct{})
	go func() {
		if err := srv.Shutdown(); err != nil {
			logger.Warn("web: shutdown", "error", err)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("web: shutdown timed out")
	}
}
