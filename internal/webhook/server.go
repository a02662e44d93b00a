package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"appforge/internal/ledger"
	"appforge/internal/pipeline"
)

type Ledger interface {
	Get(key string) (ledger.Record, error)
	Count() (int64, error)
}

type Notifier interface {
	Notify(ctx context.Context, url string, rec ledger.Record) error
}

type Scheduler interface {
	Schedule(name string, fn func(ctx context.Context) error) string
}

type RoundRunner interface {
	Run(ctx context.Context, req pipeline.Request) (ledger.Record, error)
}

type Deps struct {
	Secret    string
	Ledger    Ledger
	Notifier  Notifier
	Scheduler Scheduler
	Runner    RoundRunner
	Logger    *slog.Logger
}

// Server is the inbound webhook surface: the intake gate, a health probe,
// and a websocket feed of intake and run lifecycle events.
type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *WSHub
}

func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{deps: deps, mux: http.NewServeMux(), hub: NewWSHub()}
	s.registerIntakeRoutes()
	s.registerSystemRoutes()
	s.mux.HandleFunc("/ws", s.hub.HandleWS)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) publishEvent(topic, task string, payload map[string]any) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(topic, task, payload)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
