package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the default prometheus registry over HTTP
type Server struct {
	listener net.Listener
	server   *http.Server
}

// NewServer listens on addr and serves metrics under path plus a /healthz probe.
// Use ":0" to pick a free port.
func NewServer(addr, path string) (*Server, error) {
	r := mux.NewRouter()
	r.Use(instrument)
	r.Handle(path, promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener: listener,
		server: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Addr returns the address the server is bound to
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves in the background until Shutdown
func (s *Server) Start() <-chan error {
	errc := make(chan error, 1)
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	return errc
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
