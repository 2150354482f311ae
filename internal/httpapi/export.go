package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"segmentd/internal/manager"
	"segmentd/pkg/types"
)

// export godoc
// @Summary      Download prediction results
// @Description  Returns every file of a finished prediction as a zip archive.
// @Tags         export
// @Produce      application/zip
// @Param        predict  query  string  true  "Prediction identifier"
// @Success      200  {file}    binary
// @Failure      400  {object}  types.ErrorResponse
// @Failure      409  {object}  types.ErrorResponse
// @Failure      500  {object}  types.ErrorResponse
// @Router       /api/export [post]
func (h *handlers) export(w http.ResponseWriter, r *http.Request) {
	var req types.ExportRequest
	errs := decodeQuery(&req, r.URL.Query())
	if errs == nil {
		errs = map[string]string{}
		requireValue(errs, "predict", req.Predict)
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), req.Predict, &buf); err != nil {
		status := http.StatusInternalServerError
		if manager.IsPredictionBusy(err) {
			status = http.StatusConflict
		}
		writeJSONError(w, statusFor(err, status), "Export error "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Predict+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		zlog.Warn().Err(err).Str("prediction", req.Predict).Msg("write export")
	}
}
