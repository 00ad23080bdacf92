package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/marcus8448/v5ctl/internal/daemon"
	"github.com/marcus8448/v5ctl/internal/logging"
	"github.com/marcus8448/v5ctl/internal/metrics"
)

// cmdDaemon starts the TCP multiplexing server over one physical brain
// connection, optionally exposing a Prometheus /metrics and /ready surface.
func cmdDaemon(ctx context.Context, cfg *globalConfig, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	metricsAddr := fs.String("metrics-addr", "", "address to serve /metrics and /ready on, empty to disable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	listenAddr := cfg.daemonAddr
	if fs.NArg() == 1 {
		host, _, err := splitDaemonAddr(cfg.daemonAddr)
		if err != nil {
			return err
		}
		listenAddr = host + ":" + fs.Arg(0)
	} else if fs.NArg() > 1 {
		return fmt.Errorf("usage: daemon [port] [-metrics-addr addr]")
	}

	conn, err := connectSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	srv := daemon.NewServer(conn.Brain,
		daemon.WithListenAddr(listenAddr),
		daemon.WithLogger(logging.L()),
	)

	metrics.SetReadinessFunc(func() bool { return srv.Addr() != "" })
	if *metricsAddr != "" {
		metrics.InitBuildInfo("v5ctl", "unknown", "unknown")
		httpSrv := metrics.StartHTTP(*metricsAddr)
		defer func() { _ = httpSrv.Shutdown(context.Background()) }()
	}

	logging.L().Info("daemon_starting", "addr", listenAddr)
	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	return nil
}
