package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hazyhaar/constats/pkg/kit"
)

// Options configures the router.
type Options struct {
	Logger *slog.Logger
	// Metrics defaults to a fresh NewMetrics.
	Metrics *Metrics
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// NewRouter returns an http.Handler with all routes.
func NewRouter(svc *Service, opts Options) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	mux := http.NewServeMux()
	h := &handler{eps: newEndpoints(svc, opts.Metrics, opts), svc: svc}

	mux.HandleFunc("GET /v1/match/batch", methodNotAllowed) // prevent GET on batch
	mux.HandleFunc("POST /v1/match/batch", h.handleMatchBatch)
	mux.HandleFunc("GET /v1/match/{name}", h.handleMatch)
	mux.HandleFunc("POST /v1/normalize", h.handleNormalize)
	mux.HandleFunc("GET /v1/communes/{code}", h.handleCommune)
	mux.HandleFunc("GET /v1/gazetteer", h.handleInfo)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	mux.Handle("GET /metrics", opts.Metrics.Handler())

	return cors(requestID(mux))
}

type handler struct {
	eps *endpoints
	svc *Service
}

// --- match one name ---

func (h *handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	resp, err := h.eps.match(r.Context(), &matchReq{Name: r.PathValue("name")})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- match batch ---

type httpBatchRequest struct {
	Names []string `json:"names"`
}

func (h *handler) handleMatchBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
	var req httpBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.eps.batch(r.Context(), &batchReq{Names: req.Names})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- normalize ---

func (h *handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 16*1024)
	var req normalizeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.eps.normalize(r.Context(), &req)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- commune lookup ---

func (h *handler) handleCommune(w http.ResponseWriter, r *http.Request) {
	geometry, _ := strconv.ParseBool(r.URL.Query().Get("geometry"))
	resp, err := h.eps.commune(r.Context(), &communeReq{Code: r.PathValue("code"), Geometry: geometry})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	resp, err := h.eps.info(r.Context(), nil)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status   string `json:"status"`
	Communes int    `json:"communes"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	idx, err := h.svc.Index()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "no gazetteer"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Communes: idx.Len()})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeEndpointError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrInvalidRequest):
		code = http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrNoGazetteer):
		code = http.StatusServiceUnavailable
	}
	writeError(w, code, err.Error())
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID propagates X-Request-ID, generating one when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
