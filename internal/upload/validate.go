package upload

import (
	"github.com/anugulalokeshreddy-code/deepfake/internal/client"
	"github.com/anugulalokeshreddy-code/deepfake/internal/models"
)

// DefaultMaxFileSize is the largest file accepted locally (16 MiB).
const DefaultMaxFileSize int64 = 16 * 1024 * 1024

// DefaultAllowedTypes are the media types accepted locally.
var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp"}

// Validation messages shown in the status region.
const (
	MsgInvalidType = "Please upload a valid image file (JPEG, PNG, GIF, or BMP)"
	MsgTooLarge    = "File size exceeds 16MB limit"
)

// Validator rejects files before any network call. It is a convenience for
// the user; the backend remains the authority on acceptance.
type Validator struct {
	allowed map[string]struct{}
	maxSize int64
}

// NewValidator builds a validator. Empty arguments fall back to the defaults.
func NewValidator(allowedTypes []string, maxSize int64) *Validator {
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = struct{}{}
	}
	return &Validator{allowed: allowed, maxSize: maxSize}
}

// Validate returns nil when file may be transferred. The media type is
// checked before the size.
func (v *Validator) Validate(file *models.CandidateFile) error {
	if file == nil {
		return ErrNoFile
	}
	if _, ok := v.allowed[file.MediaType]; !ok {
		return client.NewValidationError(MsgInvalidType)
	}
	if file.Size > v.maxSize {
		return client.NewValidationError(MsgTooLarge)
	}
	return nil
}

// MaxSize returns the size ceiling in bytes.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}
