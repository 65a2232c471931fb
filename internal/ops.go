package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/observability"
)

// OpsServer exposes the operational HTTP surface: liveness, a JSON
// counter snapshot and the Prometheus scrape endpoint. It runs as a
// supervised worker so a bind failure is retried instead of killing
// the chat service.
type OpsServer struct {
	log     *slog.Logger
	metrics *observability.Metrics
	addr    string
}

func NewOpsServer(log *slog.Logger, metrics *observability.Metrics, addr string) *OpsServer {
	return &OpsServer{log: log, metrics: metrics, addr: addr}
}

func (s *OpsServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.metrics.Stats()); err != nil {
			s.log.Warn("Stats encoding failed", "error", err)
		}
	})
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Run serves until ctx is cancelled. A serve error is returned so the
// supervisor can retry after its restart interval.
func (s *OpsServer) Run(ctx context.Context) error {
	server := &http.Server{Addr: s.addr, Handler: s.handler()}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Ops server listening", "address", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errChan:
		return fmt.Errorf("ops server: %w", err)
	}
}
