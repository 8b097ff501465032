package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// ServerOptions configures Serve.
type ServerOptions struct {
	Bind    string
	Port    int
	Version string
	Profile bool
}

// Serve runs the hub and its HTTP server until ctx is done, then shuts both
// down.
func Serve(ctx context.Context, registry Registry, opts ServerOptions, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	hub := NewHub(registry, log)
	go hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              net.JoinHostPort(opts.Bind, strconv.Itoa(opts.Port)),
		Handler:           NewRouter(hub, RouterOptions{Version: opts.Version, Profile: opts.Profile, Logger: log}),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       10 * time.Minute,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("broker listening", "addr", srv.Addr, "version", opts.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
	case <-ctx.Done():
	}

	log.Info("broker shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websockets are not tracked by Shutdown; stopping the hub
	// closes them.
	stopHub()
	<-hub.Done()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
