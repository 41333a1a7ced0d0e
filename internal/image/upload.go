package image

import (
	"net/http"
	"strings"

	"codeberg.org/snonux/studycards/internal/apperr"
)

// MaxUploadBytes is the largest image accepted for generation (10MB)
const MaxUploadBytes = 10 * 1024 * 1024

// Upload is an image picked by the user for extraction and generation
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewUpload wraps raw image bytes, sniffing the content type when none is given
func NewUpload(filename, contentType string, data []byte) *Upload {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &Upload{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}
}

// Present reports whether the upload carries a file at all
func (u *Upload) Present() bool {
	return u != nil && len(u.Data) > 0
}

// Validate checks the upload is present, is an image and is not too large
func (u *Upload) Validate() error {
	if !u.Present() {
		return apperr.Validation("image", "no image selected")
	}
	if len(u.Data) > MaxUploadBytes {
		return apperr.Validation("image", "image exceeds maximum size of %d bytes", MaxUploadBytes)
	}
	if !strings.HasPrefix(u.ContentType, "image/") {
		return apperr.Validation("image", "file must be an image, got %s", u.ContentType)
	}
	return nil
}
