package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/truonghoc/studio/internal/model"
	"github.com/truonghoc/studio/internal/studio"
)

// parseForm reads a multipart or urlencoded body, bounded by MaxUploadMB.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	limit := int64(h.config.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(limit); err != nil {
			return fmt.Errorf("parse multipart form: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	return nil
}

// formFile reads an uploaded file into memory. It returns nil when the
// field is absent.
func formFile(r *http.Request, field string) (*model.MediaFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return model.MediaFileFromBytes(header.Filename, header.Header.Get("Content-Type"), data), nil
}

// requireFile is formFile for mandatory fields.
func requireFile(r *http.Request, field string) (*model.MediaFile, error) {
	f, err := formFile(r, field)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", studio.ErrMissingInput, field)
	}
	return f, nil
}

func formValue(r *http.Request, field string) string {
	return strings.TrimSpace(r.FormValue(field))
}

func wantsDownload(r *http.Request, param, value string) bool {
	return r.URL.Query().Get(param) == value
}
