package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"am-client/internal/app"
	"am-client/internal/client"
	"am-client/internal/httputil"
	"am-client/internal/syncbus"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	r := httputil.NewRouter(deps.Log)

	r.Post("/api/ask", askHandler(deps))
	r.Post("/api/ask/stream", askStreamHandler(deps))
	r.Get("/api/status", statusHandler(deps))
	r.Post("/api/sync", syncHandler(deps))
	r.Post("/api/cache/clear", clearCacheHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps.Client.OnStateChange(func(s client.ConnectionState) {
		deps.Log.Info("connection state changed", "state", s)
	})

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Log.Info("gateway listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return runPeriodicSync(ctx, deps)
	})

	if deps.NATS != nil {
		listener := syncbus.NewListener(deps.Log, deps.NATS, deps.Config.SyncSubject, deps.Client.SyncCache)
		g.Go(func() error {
			deps.Log.Info("listening for document updates", "subject", deps.Config.SyncSubject)
			return listener.Listen(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		deps.Log.Error("gateway failed", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("gateway stopped")
}

// runPeriodicSync keeps the document cache warm. The initial sync happens
// immediately so a fresh gateway can serve degraded answers right away.
func runPeriodicSync(ctx context.Context, deps app.Deps) error {
	syncOnce := func() {
		syncCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := deps.Client.SyncCache(syncCtx); err != nil {
			deps.Log.Warn("periodic sync failed", "err", err)
		}
	}

	syncOnce()

	ticker := time.NewTicker(deps.Config.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			syncOnce()
		}
	}
}

type askRequest struct {
	Message      string `json:"message" validate:"required"`
	SessionID    string `json:"session_id"`
	Context      string `json:"context"`
	SkipFallback bool   `json:"skip_fallback"`
}

func askHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := httputil.DecodeAndValidate(r, &req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		answer := deps.Client.Ask(r.Context(), req.Message, client.AskOptions{
			SessionID:    req.SessionID,
			Context:      req.Context,
			SkipFallback: req.SkipFallback,
		})
		httputil.WriteJSON(w, http.StatusOK, answer)
	}
}

func askStreamHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := httputil.DecodeAndValidate(r, &req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httputil.Fail(deps.Log, w, "streaming unsupported", nil, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		emit := func(event string, payload any) {
			writeSSE(w, deps.Log, event, payload)
			flusher.Flush()
		}

		deps.Client.AskStream(r.Context(), req.Message, client.AskOptions{
			SessionID:    req.SessionID,
			Context:      req.Context,
			SkipFallback: req.SkipFallback,
		}, client.StreamCallbacks{
			OnToken: func(token string) {
				emit("token", map[string]string{"token": token})
			},
			OnSources: func(sources []client.AnswerSource) {
				emit("sources", sources)
			},
			OnComplete: func(answer client.Answer) {
				emit("done", answer)
			},
		})
	}
}

func writeSSE(w http.ResponseWriter, log *slog.Logger, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to marshal stream event", "event", event, "err", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func statusHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, deps.Client.Status(r.Context()))
	}
}

func syncHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Client.SyncCache(r.Context()); err != nil {
			httputil.Fail(deps.Log, w, "sync failed", err, http.StatusBadGateway)
			return
		}
		status, err := deps.Store.Status(r.Context())
		if err != nil {
			httputil.Fail(deps.Log, w, "cache status unavailable", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	}
}

func clearCacheHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Client.ClearCache(r.Context()); err != nil {
			httputil.Fail(deps.Log, w, "failed to clear cache", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}
