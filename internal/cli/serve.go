package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vlmeval/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

// serve runs the HTTP API until ctx is canceled, then shuts down gracefully.
func serve(ctx context.Context, rt *runtime) error {
	cfg := rt.cfg
	httpapi.SetLogger(rt.log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxUploadBytes(int64(cfg.MaxUploadMB) << 20)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	httpapi.SetBaseContext(ctx)

	models := rt.mgr.ListModels(ctx)
	rt.log.Info().Str("backend", cfg.Backend.Kind).Strs("available", models.Models).Bool("fallback", models.Fallback).Msg("backend models")

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(rt.mgr), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		rt.log.Info().Str("addr", cfg.Addr).Msg("vlmeval listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		rt.log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return <-errc
}
