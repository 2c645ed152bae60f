package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/okanero/flowstudio/pkg/collab/hub"
	"github.com/okanero/flowstudio/pkg/eventbus"
)

const shutdownTimeout = 10 * time.Second

// CollabServer hosts the collaboration hub behind a websocket endpoint.
type CollabServer struct {
	id       string
	logger   *slog.Logger
	eventBus eventbus.EventBus
	hub      *hub.Hub
}

func NewCollabServer(id string, logger *slog.Logger, eventBus eventbus.EventBus) *CollabServer {
	opts := []hub.Option{hub.WithLogger(logger)}
	if eventBus != nil {
		opts = append(opts, hub.WithEventBus(eventBus, id))
	}

	return &CollabServer{
		id:       id,
		logger:   logger,
		eventBus: eventBus,
		hub:      hub.NewHub(opts...),
	}
}

// Start serves the hub until SIGINT/SIGTERM, then drains connections.
func (s *CollabServer) Start(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/ws/workflow", s.hub)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	relayCtx, cancelRelay := context.WithCancel(ctx)
	defer cancelRelay()

	if s.eventBus != nil {
		go func() {
			if err := s.hub.Run(relayCtx); err != nil {
				s.logger.ErrorContext(relayCtx, "Cross-instance relay stopped", "error", err)
			}
		}()
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.InfoContext(ctx, "Collaboration server listening", "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
	}

	s.logger.InfoContext(ctx, "Shutting down collaboration server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
