package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fsm "github.com/muhammadut/Finite-State-Machine"
	"github.com/muhammadut/Finite-State-Machine/internal/logging"
	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/definition"
	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/modthree"
	"github.com/muhammadut/Finite-State-Machine/pkg/observability"
	"github.com/muhammadut/Finite-State-Machine/pkg/registry"
	"github.com/muhammadut/Finite-State-Machine/pkg/session"
)

// Catalog is the read side of a machine registry. *registry.Registry implements it.
type Catalog interface {
	Names() []string
	Get(name string) (definition.Definition, error)
	Build(name string, opts ...automaton.Option[string, string]) (*automaton.Automaton[string, string], error)
}

// Server serves the automaton API.
type Server struct {
	Machines Catalog
	Sessions *session.Manager
	Streams  *StreamManager

	logger   *slog.Logger
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records automaton events on m and exposes g on GET /metrics.
func WithMetrics(m *observability.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// NewServer creates a Server. sessions may be nil, in which case the session routes are not mounted.
func NewServer(machines Catalog, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Machines: machines,
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates a new HTTP handler for the given machines and sessions.
func NewHandler(machines Catalog, sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(machines, sessions, opts...).Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.GetHealth)
	r.Get("/v1/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/modthree", s.ModThree)

		r.Get("/machines", s.ListMachines)
		r.Get("/machines/{name}", s.GetMachine)
		r.Post("/machines/{name}/run", s.RunMachine)

		if s.Sessions != nil {
			r.Get("/sessions", s.ListSessions)
			r.Post("/sessions", s.StartSession)
			r.Get("/sessions/{id}", s.GetSession)
			r.Delete("/sessions/{id}", s.DeleteSession)
			r.Post("/sessions/{id}/feed", s.FeedSession)
			r.Post("/sessions/{id}/reset", s.ResetSession)
			r.Get("/sessions/{id}/events", s.SubscribeEvents)
		}
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AutomatonOptions returns the hooks applied to every string automaton built for machine.
func (s *Server) AutomatonOptions(machine string) []automaton.Option[string, string] {
	return observability.Options(s.logger, s.metrics)(machine)
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /v1/info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"app":     "fsm-http",
		"version": strings.TrimSpace(fsm.Version),
	})
}

type modThreeRequest struct {
	Input string `json:"input"`
}

type modThreeResponse struct {
	Input     string   `json:"input"`
	Decimal   string   `json:"decimal"`
	Remainder int      `json:"remainder"`
	History   []string `json:"history"`
}

// ModThree handles POST /v1/modthree.
func (s *Server) ModThree(w http.ResponseWriter, r *http.Request) {
	var body modThreeRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := modthree.Validate(body.Input); err != nil {
		s.fail(w, err)
		return
	}

	var opts []automaton.Option[modthree.Remainder, rune]
	if s.metrics != nil {
		opts = append(opts, automaton.WithHooks(observability.Hooks[modthree.Remainder, rune](s.metrics, modthree.DefinitionName)))
	}
	m, err := modthree.New(opts...)
	if err != nil {
		s.fail(w, err)
		return
	}
	remainder, err := m.Remainder(body.Input)
	if err != nil {
		s.fail(w, err)
		return
	}

	decimal, _ := new(big.Int).SetString(body.Input, 2)
	history := make([]string, 0, len(body.Input)+1)
	for _, st := range m.History() {
		history = append(history, st.Name())
	}
	s.respond(w, http.StatusOK, modThreeResponse{
		Input:     body.Input,
		Decimal:   decimal.String(),
		Remainder: remainder,
		History:   history,
	})
}

// ListMachines handles GET /v1/machines.
func (s *Server) ListMachines(w http.ResponseWriter, r *http.Request) {
	names := s.Machines.Names()
	defs := make([]definition.Definition, 0, len(names))
	for _, name := range names {
		def, err := s.Machines.Get(name)
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}
	s.respond(w, http.StatusOK, map[string]any{"machines": defs})
}

// GetMachine handles GET /v1/machines/{name}.
func (s *Server) GetMachine(w http.ResponseWriter, r *http.Request) {
	def, err := s.Machines.Get(chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, def)
}

// symbolsRequest carries input either as explicit symbols or as a string split into one symbol per character.
type symbolsRequest struct {
	Symbols []string `json:"symbols"`
	Input   *string  `json:"input"`
}

func (b symbolsRequest) list() []string {
	if b.Input != nil {
		return strings.Split(*b.Input, "")
	}
	return b.Symbols
}

type runResponse struct {
	Machine   string   `json:"machine"`
	Current   string   `json:"current"`
	Accepting bool     `json:"accepting"`
	History   []string `json:"history"`
}

// RunMachine handles POST /v1/machines/{name}/run. It runs a fresh automaton and keeps nothing.
func (s *Server) RunMachine(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body symbolsRequest
	if !s.decode(w, r, &body) {
		return
	}

	a, err := s.Machines.Build(name, s.AutomatonOptions(name)...)
	if err != nil {
		s.fail(w, err)
		return
	}
	if _, err := a.Run(body.list()); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, runResponse{
		Machine:   name,
		Current:   a.Current(),
		Accepting: a.IsAccepting(),
		History:   a.History(),
	})
}

type startSessionRequest struct {
	ID      string `json:"id"`
	Machine string `json:"machine"`
}

// StartSession handles POST /v1/sessions. A missing id is replaced by a random UUID.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body startSessionRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Machine == "" {
		s.fail(w, badRequest("machine is required"))
		return
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	sess, err := s.Sessions.Start(r.Context(), body.ID, body.Machine)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusCreated, sess)
}

// ListSessions handles GET /v1/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"sessions": ids})
}

// GetSession handles GET /v1/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, sess)
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FeedSession handles POST /v1/sessions/{id}/feed.
// On a rejected symbol the response is 422 and still carries the session, which keeps the applied prefix.
func (s *Server) FeedSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body symbolsRequest
	if !s.decode(w, r, &body) {
		return
	}

	sess, err := s.Sessions.Feed(r.Context(), id, body.list())
	if sess != nil {
		s.broadcast(sess)
	}
	if err != nil {
		status, kind := classify(err)
		s.respond(w, status, errorResponse{Error: err.Error(), Kind: kind, Session: sess})
		return
	}
	s.respond(w, http.StatusOK, sess)
}

// ResetSession handles POST /v1/sessions/{id}/reset.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.broadcast(sess)
	s.respond(w, http.StatusOK, sess)
}

func (s *Server) broadcast(sess *domain.Session) {
	data, err := json.Marshal(sess)
	if err != nil {
		s.logger.Error("session encode failed", "session_id", sess.ID, "err", err)
		return
	}
	s.Streams.Broadcast(sess.ID, string(data))
}

// -- Helpers --

type errorResponse struct {
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
	Session *domain.Session `json:"session,omitempty"`
}

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return errors.Join(errBadRequest, errors.New(msg))
}

// classify maps an error to a status code and a stable kind.
func classify(err error) (int, string) {
	var stepErr *automaton.StepError
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, modthree.ErrEmptyInput):
		return http.StatusBadRequest, "empty_input"
	case errors.Is(err, modthree.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrInvalidSessionID):
		return http.StatusBadRequest, "invalid_session_id"
	case errors.Is(err, registry.ErrDefinitionNotFound):
		return http.StatusNotFound, "machine_not_found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrSessionExists):
		return http.StatusConflict, "session_exists"
	case errors.As(err, &stepErr):
		return http.StatusUnprocessableEntity, automaton.Kind(err)
	case errors.Is(err, automaton.ErrInvalidSnapshot):
		return http.StatusConflict, automaton.Kind(err)
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	} else {
		s.logger.Debug("request rejected", "kind", kind, "err", err)
	}
	s.respond(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.fail(w, badRequest("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
