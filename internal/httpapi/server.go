package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"segmentd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
	Predict(ctx context.Context, req types.PredictRequest) (types.PredictResponse, error)
	Prediction(ctx context.Context, id string) (types.Prediction, error)
	Export(ctx context.Context, id string, w io.Writer) error
	Tasks() []types.TaskInfo
	TaskNames() []string
	Status(ctx context.Context) types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5, "application/json"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.upload)
		r.Post("/predict", h.predict)
		r.Get("/predict/{uuid}", h.prediction)
		r.Post("/export", h.export)
		r.Get("/tasks", h.tasks)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status(r.Context()))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("inferer unavailable"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

// tasks godoc
// @Summary      List segmentation tasks
// @Tags         predict
// @Produce      json
// @Success      200  {object}  types.TasksResponse
// @Router       /api/tasks [get]
func (h *handlers) tasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.TasksResponse{Tasks: h.svc.Tasks()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}
