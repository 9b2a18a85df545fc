package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"inkpost/app/config"
	"inkpost/app/routes"

	"go.uber.org/zap"
)

// RunAppServer serves the blog until ctx is cancelled, then shuts down
// gracefully.
func RunAppServer(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.InsecureSecret() {
		log.Warn("session.secret is the development default; set INKPOST_SESSION_SECRET in production")
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	handler, err := routes.Setup(routes.Dependencies{Config: cfg, Store: store, Logger: log})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return err
	}
	srv := newServer(cfg.Server, handler, log)
	log.Info("starting inkpost",
		zap.String("addr", ln.Addr().String()),
		zap.String("driver", store.Driver()),
		zap.String("config", cfg.Source()),
	)
	return serve(ctx, srv, ln, seconds(cfg.Server.ShutdownTimeoutSeconds, 10), log)
}

func newServer(c config.ServerConfig, handler http.Handler, log *zap.Logger) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadTimeout:       seconds(c.ReadTimeoutSeconds, 15),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      seconds(c.WriteTimeoutSeconds, 15),
		IdleTimeout:       60 * time.Second,
		ErrorLog:          zap.NewStdLog(log),
	}
}

// serve runs srv on ln until it fails or ctx is done.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
