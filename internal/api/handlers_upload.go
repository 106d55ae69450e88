// handlers_upload.go - Upload workflow handlers
package api

import (
	"errors"
	"net/http"

	"github.com/anugulalokeshreddy-code/deepfake/internal/dashboard"
	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
	"github.com/anugulalokeshreddy-code/deepfake/internal/upload"
	"github.com/labstack/echo/v4"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	dash *dashboard.Dashboard
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(dash *dashboard.Dashboard) UploadHandler {
	return &UploadHandlerImpl{dash: dash}
}

// uploadResponse is returned by HandleUpload
type uploadResponse struct {
	Task upload.Task          `json:"task"`
	View models.DashboardView `json:"view"`
}

// HandleUpload accepts a multipart form from either the file picker or a
// drop, takes its first file and runs the upload workflow on it.
// A form without any file is a no-op.
func (h *UploadHandlerImpl) HandleUpload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("expected multipart/form-data", err)
	}

	fh, err := upload.FirstFile(form)
	if errors.Is(err, upload.ErrNoFile) {
		return c.NoContent(http.StatusNoContent)
	}

	validator := h.dash.Uploads().Validator()
	file, err := upload.ReadCandidate(fh, validator.MaxSize())
	if err != nil {
		return NewBadRequestError("failed to read uploaded file", err)
	}

	task, err := h.dash.Upload(c.Request().Context(), file)
	if err != nil {
		return FromError(err)
	}

	return c.JSON(http.StatusOK, uploadResponse{Task: task, View: h.dash.View()})
}

// HandleCancelUpload aborts the in-flight upload
func (h *UploadHandlerImpl) HandleCancelUpload(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{
		"canceled": h.dash.CancelUpload(),
	})
}

// HandleGetUpload returns the status of an upload task
func (h *UploadHandlerImpl) HandleGetUpload(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id is required")
	}

	task, ok := h.dash.Uploads().Get(id)
	if !ok {
		return NewNotFoundError("upload", id)
	}
	return c.JSON(http.StatusOK, task)
}
