package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litrevu/internal/config"
	"litrevu/internal/model"
	"litrevu/internal/repository/memstore"
	"litrevu/internal/service"
	"litrevu/internal/transport/http/middleware"
)

// attachmentSize is past formMemoryBytes, so the part lands in a temp file.
const attachmentSize = 2 << 20

// multipartRequest builds a form with the given fields and one file part of
// attachmentSize bytes under fileField.
func multipartRequest(t *testing.T, path string, fields map[string]string, fileField string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile(fileField, "cover.jpg")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0xAB}, attachmentSize))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requireReleased asserts the spilled file part is gone from disk.
func requireReleased(t *testing.T, req *http.Request, fileField string) {
	t.Helper()
	require.NotNil(t, req.MultipartForm, "body was parsed as multipart")
	headers := req.MultipartForm.File[fileField]
	require.Len(t, headers, 1)

	f, err := headers[0].Open()
	if err == nil {
		f.Close()
	}
	assert.Error(t, err, "temporary file should have been removed")
}

func TestReadForm_ReleasesTempFilesWhenFillFails(t *testing.T) {
	req := multipartRequest(t, "/tickets/1/reviews", map[string]string{"rating": "abc"}, "image")
	rec := httptest.NewRecorder()

	var dst model.ReviewRequest
	errFill := errors.New("bad rating")
	img, err := readForm(rec, req, &dst, "image", func(form url.Values) error {
		assert.Equal(t, "abc", form.Get("rating"))
		return errFill
	})

	require.ErrorIs(t, err, errFill)
	assert.Nil(t, img)
	requireReleased(t, req, "image")
}

func TestReadForm_KeepsUploadUntilClosed(t *testing.T) {
	req := multipartRequest(t, "/tickets", map[string]string{"title": "Dune"}, "image")
	rec := httptest.NewRecorder()

	var dst model.TicketRequest
	img, err := readForm(rec, req, &dst, "image", func(form url.Values) error {
		dst.Title = form.Get("title")
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "Dune", dst.Title)
	assert.Equal(t, int64(attachmentSize), img.Header.Size)

	f, err := img.Header.Open()
	require.NoError(t, err)
	f.Close()

	closeForm(req, img)
	closeForm(req, img)
	requireReleased(t, req, "image")
}

func TestLogin_ReleasesMultipartForm(t *testing.T) {
	store := memstore.New()
	cfg := &config.Config{JWTSecret: "form-secret", AccessTokenMaxAge: 900, RefreshTokenMaxAge: 3600}
	h := NewAuthHandler(service.NewUserService(store.Users(), nil), service.NewAuthService(store.RefreshTokens(), cfg), cfg)

	req := multipartRequest(t, "/auth/login", map[string]string{
		"username": "nobody",
		"password": "password123",
	}, "attachment")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
	requireReleased(t, req, "attachment")
}

func TestFollow_ReleasesMultipartForm(t *testing.T) {
	store := memstore.New()
	h := NewRelationshipHandler(service.NewRelationshipService(store, store.Users(), store.Follows(), store.Blocks(), nil))

	req := multipartRequest(t, "/follows", map[string]string{"username": "ghost"}, "attachment")
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, int64(1)))
	rec := httptest.NewRecorder()
	h.Follow(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	requireReleased(t, req, "attachment")
}
