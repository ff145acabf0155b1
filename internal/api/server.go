package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rshade/descartecerto/internal/config"
	"github.com/rshade/descartecerto/internal/logging"
)

// NewHTTPServer wraps h in an http.Server tuned from cfg.
func NewHTTPServer(cfg config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

// Serve accepts connections on ln until ctx is cancelled, then shuts srv
// down, giving in-flight requests cfg.ShutdownTimeout to finish.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, cfg config.ServerConfig) error {
	log := logging.FromContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Ctx(ctx).
			Str("component", "api").
			Str("address", ln.Addr().String()).
			Msg("http server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	log.Info().
		Ctx(ctx).
		Str("component", "api").
		Dur("timeout", cfg.ShutdownTimeout).
		Msg("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// ListenAndServe listens on cfg.Address and calls Serve.
func ListenAndServe(ctx context.Context, cfg config.ServerConfig, h http.Handler) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Address, err)
	}
	return Serve(ctx, NewHTTPServer(cfg, h), ln, cfg)
}
