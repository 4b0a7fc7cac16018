package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/engine"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/httpserver"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/sockserv"
	"golang.org/x/sync/errgroup"
)

// runServer starts the socket daemon and, when enabled, the HTTP status API,
// then blocks until a shutdown signal arrives.
func runServer(cfg appConfig) error {
	warnIfJournalNotPersistent()

	eng := engine.New(cfg.JournalctlBin)

	sockServer := sockserv.NewServer(cfg.SocketPath, eng, cfg.MaxClients)
	if err := sockServer.Start(); err != nil {
		return fmt.Errorf("failed to start socket server: %w", err)
	}

	var apiServer *httpserver.Server
	if cfg.APIEnabled {
		apiServer = httpserver.NewServer(cfg.APIAddr, sockServer)
		if err := apiServer.Start(); err != nil {
			sockServer.Stop()
			return fmt.Errorf("failed to start API server: %w", err)
		}
		log.Printf("logtoold: status API on http://%s/api/health", cfg.APIAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("logtoold: ready (version %s)", version)
	<-ctx.Done()
	log.Printf("logtoold: shutting down")

	// Both servers stop in parallel; the socket server drains in-flight
	// workers before returning.
	var g errgroup.Group
	g.Go(func() error {
		sockServer.Stop()
		return nil
	})
	if apiServer != nil {
		g.Go(apiServer.Stop)
	}
	return g.Wait()
}

// warnIfJournalNotPersistent nudges the operator when journald runs with
// volatile storage, since analysis across reboots needs a persistent journal.
func warnIfJournalNotPersistent() {
	if info, err := os.Stat("/var/log/journal"); err == nil && info.IsDir() {
		return
	}
	log.Printf("logtoold: /var/log/journal not found; journal entries may not survive a reboot")
	log.Printf("logtoold: enable persistence with Storage=persistent in /etc/systemd/journald.conf")
}
