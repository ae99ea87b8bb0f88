package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"litrevu/internal/model"
	"litrevu/internal/service"
)

const (
	// maxFormBytes leaves room for the text fields next to one image.
	maxFormBytes = model.MaxImageSizeBytes + 1<<20

	// formMemoryBytes is how much of a multipart body is held in memory;
	// larger file parts spill to temporary files.
	formMemoryBytes = 1 << 20
)

// readForm decodes the request body into dst. JSON bodies are decoded
// directly; multipart and urlencoded forms are handed to fill. The file
// uploaded under field is returned, nil when there is none. On error the
// form is already released; otherwise call closeForm when done.
func readForm(w http.ResponseWriter, r *http.Request, dst interface{}, field string, fill func(form url.Values) error) (img *service.ImageInput, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	defer func() {
		if err != nil {
			closeForm(r, nil)
		}
	}()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(formMemoryBytes); err != nil {
			return nil, bodyError(err)
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return nil, bodyError(err)
		}
		return nil, nil
	}

	if err := fill(r.PostForm); err != nil {
		return nil, err
	}

	if field == "" || r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, bodyError(err)
	}
	if header.Size > model.MaxImageSizeBytes {
		file.Close()
		return nil, model.ErrFileTooLarge
	}
	return &service.ImageInput{File: file, Header: header}, nil
}

// closeForm releases the uploaded file and any temporary files. It is safe
// to call more than once.
func closeForm(r *http.Request, img *service.ImageInput) {
	if img != nil && img.File != nil {
		img.File.Close()
	}
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return model.ErrFileTooLarge
	}
	return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
}

// formBool accepts the values HTML checkboxes and API clients send.
func formBool(form url.Values, key string) bool {
	switch strings.ToLower(strings.TrimSpace(form.Get(key))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// formInt returns nil for an absent field so that required-checks apply.
func formInt(form url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a number", model.ErrInvalidInput, key)
	}
	return &n, nil
}

// pathID reads a numeric URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
