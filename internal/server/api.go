package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/flushfinder/flushfinder/internal/logging"
	"github.com/flushfinder/flushfinder/internal/store"
)

// DefaultAPIAddr is the default address for the review API.
const DefaultAPIAddr = ":8787"

// maxReviewBody bounds the size of a POST /reviews body.
const maxReviewBody = 64 << 10

// Store is the seed database behind the review API.
type Store interface {
	Buildings(ctx context.Context) ([]store.Building, error)
	Rooms(ctx context.Context, brn string) ([]store.Room, error)
	RoomSummary(ctx context.Context, roomID int64) (store.RoomSummary, error)
	Reviews(ctx context.Context, roomID int64) ([]store.Review, error)
	AddReview(ctx context.Context, roomID int64, userID string, stars int) (store.Review, error)
}

var _ Store = (*store.SQLite)(nil)

const landingPage = `<pre>
Flushfinder API

GET  /building
GET  /rooms?brn=&lt;BUILDING_RECORD_NUMBER&gt;
GET  /rooms/:id/summary
GET  /reviews/:roomId
POST /reviews  body: { room_id, user_id, stars }
</pre>
`

type api struct {
	store  Store
	logger logging.Logger
}

// NewAPIHandler returns the review API routes over s. Every response
// carries permissive CORS headers and OPTIONS requests are answered
// without reaching a route.
func NewAPIHandler(s Store, logger logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &api{store: s, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.landing)
	mux.HandleFunc("GET /building", a.buildings)
	mux.HandleFunc("GET /rooms", a.rooms)
	mux.HandleFunc("GET /rooms/{id}/summary", a.roomSummary)
	mux.HandleFunc("GET /reviews/{roomId}", a.reviews)
	mux.HandleFunc("POST /reviews", a.addReview)
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) landing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(landingPage))
}

func (a *api) buildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := a.store.Buildings(r.Context())
	if err != nil {
		a.dbError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"buildings": buildings})
}

func (a *api) rooms(w http.ResponseWriter, r *http.Request) {
	brn := r.URL.Query().Get("brn")
	if brn == "" {
		writeError(w, http.StatusBadRequest, "Missing brn")
		return
	}

	rooms, err := a.store.Rooms(r.Context(), brn)
	if err != nil {
		a.dbError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (a *api) roomSummary(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseRoomID(w, r.PathValue("id"))
	if !ok {
		return
	}

	summary, err := a.store.RoomSummary(r.Context(), roomID)
	if err != nil {
		a.dbError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *api) reviews(w http.ResponseWriter, r *http.Request) {
	roomID, ok := parseRoomID(w, r.PathValue("roomId"))
	if !ok {
		return
	}

	reviews, err := a.store.Reviews(r.Context(), roomID)
	if err != nil {
		a.dbError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room_id": roomID, "reviews": reviews})
}

// reviewRequest is the POST /reviews body. Numbers may also be sent as
// numeric strings.
type reviewRequest struct {
	RoomID looseInt `json:"room_id"`
	UserID string   `json:"user_id"`
	Stars  looseInt `json:"stars"`
}

func (a *api) addReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReviewBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !req.RoomID.valid || req.RoomID.value <= 0 ||
		strings.TrimSpace(req.UserID) == "" ||
		!req.Stars.valid || req.Stars.value < 1 || req.Stars.value > 5 {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	review, err := a.store.AddReview(r.Context(), req.RoomID.value, req.UserID, int(req.Stars.value))
	if errors.Is(err, store.ErrUnknownRoom) {
		writeError(w, http.StatusNotFound, "Unknown room")
		return
	}
	if err != nil {
		a.dbError(w, r, err)
		return
	}

	a.logger.Info("review added",
		"review_id", review.ID,
		"room_id", review.RoomID,
		"stars", review.Stars)
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": review.ID})
}

func (a *api) dbError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("api request failed",
		"method", r.Method,
		"path", r.URL.Path,
		logging.Status(logging.StatusError),
		logging.Err(err))
	writeError(w, http.StatusInternalServerError, "DB error")
}

func parseRoomID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room id")
		return 0, false
	}
	return id, true
}

// looseInt decodes a JSON number or numeric string holding a whole number.
// Anything else leaves it invalid without failing the decode.
type looseInt struct {
	value int64
	valid bool
}

func (n *looseInt) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	n.value, n.valid = int64(f), true
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// APIServerConfig holds configuration for the review API server.
type APIServerConfig struct {
	// Addr is the address to bind to. Port 0 picks a free port.
	Addr string

	Store Store

	// Health backs the probe endpoints. A new checker is created when nil.
	Health *HealthChecker

	Logger logging.Logger
}

// APIServer serves the review API and health probes.
type APIServer struct {
	service
	store  Store
	health *HealthChecker
}

// NewAPIServer validates config and creates a server. It does not bind.
func NewAPIServer(config APIServerConfig) (*APIServer, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store is required for the API server")
	}
	if config.Addr == "" {
		config.Addr = DefaultAPIAddr
	}
	if config.Health == nil {
		config.Health = NewHealthChecker()
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}

	return &APIServer{
		service: service{name: "API server", addr: config.Addr, logger: config.Logger},
		store:   config.Store,
		health:  config.Health,
	}, nil
}

// Handler returns the API routes plus the health probes, traced with otelhttp.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.health.RegisterHealthEndpoints(mux)
	mux.Handle("/", NewAPIHandler(s.store, s.logger))
	return otelhttp.NewHandler(mux, "flushfinder.api")
}

// Start binds the listener and serves in the background. It returns once
// the port is bound.
func (s *APIServer) Start() error {
	return s.start(s.Handler())
}

// Shutdown marks the process as shutting down and stops the server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.health.MarkShuttingDown()
	return s.shutdown(ctx)
}

// Addr returns the bound address once started, and the configured one before.
func (s *APIServer) Addr() string {
	return s.boundAddr()
}

// Health returns the server's health checker.
func (s *APIServer) Health() *HealthChecker {
	return s.health
}
