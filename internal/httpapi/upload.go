package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"segmentd/internal/manager"
	"segmentd/pkg/types"
)

// uploadField is the multipart field carrying the volume.
const uploadField = "data"

const missingUploadParam = "Missing required parameter in an uploaded file"

// upload godoc
// @Summary      Upload a CT volume
// @Description  Stores one .nii.gz file and returns the upload identifier used by /api/predict.
// @Tags         upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        data  formData  file  true  "CT volume (.nii.gz)"
// @Success      201  {object}  types.UploadResponse
// @Failure      400  {object}  types.ErrorResponse
// @Failure      413  {object}  types.ErrorResponse
// @Router       /api/upload [post]
func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		writeValidationError(w, map[string]string{uploadField: missingUploadParam})
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeValidationError(w, map[string]string{uploadField: missingUploadParam})
		return
	}
	defer part.Close()

	id, err := h.svc.Upload(r.Context(), part.FileName(), part)
	if err != nil {
		var mbe *http.MaxBytesError
		switch {
		case manager.IsInvalidUpload(err):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &mbe):
			writeJSONError(w, http.StatusRequestEntityTooLarge, "File too large")
		default:
			writeJSONError(w, statusFor(err, http.StatusInternalServerError), "Upload error "+err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, types.UploadResponse{Message: "Successfully uploaded", UUID: id})
}

// nextFilePart skips ahead to the upload field. Other fields are drained.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		p, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("no upload field")
			}
			return nil, err
		}
		if p.FormName() == uploadField {
			return p, nil
		}
		_, _ = io.Copy(io.Discard, p)
		_ = p.Close()
	}
}
