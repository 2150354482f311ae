package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"segmentd/internal/manager"
	"segmentd/pkg/types"
)

// predict godoc
// @Summary      Run a segmentation
// @Description  Queues the inference process for an uploaded volume and returns the prediction identifier.
// @Tags         predict
// @Produce      json
// @Param        task     query  string  true  "Task name"  Enums(3D Segmentation lung lobes, 3D Segmentation lungs covid, 3D Segmentation lungs cancer)
// @Param        data     query  string  true  "Upload identifier"
// @Param        is_crop  query  string  true  "Crop black borders"  Enums(On, Off)
// @Success      201  {object}  types.PredictResponse
// @Failure      400  {object}  types.ErrorResponse
// @Failure      429  {object}  types.ErrorResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /api/predict [post]
func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	var req types.PredictRequest
	q := r.URL.Query()
	errs := decodeQuery(&req, q)
	if errs == nil {
		errs = map[string]string{}
		requireChoice(errs, "task", req.Task, h.svc.TaskNames())
		requireValue(errs, "data", req.Data)
		requireChoice(errs, "is_crop", req.IsCrop, cropChoices)
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	// Join server base context with request context so shutdown releases sync waits too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	resp, err := h.svc.Predict(ctx, req)
	if err != nil {
		switch {
		case manager.IsTooBusy(err):
			IncrementBackpressure("queue_full")
			writeJSONError(w, http.StatusTooManyRequests, err.Error())
		case manager.IsShuttingDown(err):
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeJSONError(w, statusFor(err, http.StatusInternalServerError), "Inferer error "+err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// prediction godoc
// @Summary      Prediction status
// @Tags         predict
// @Produce      json
// @Param        uuid  path  string  true  "Prediction identifier"
// @Success      200  {object}  types.Prediction
// @Failure      404  {object}  types.ErrorResponse
// @Router       /api/predict/{uuid} [get]
func (h *handlers) prediction(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Prediction(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if manager.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}
