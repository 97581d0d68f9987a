package objectstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamtime/ims/internal/errs"
)

func TestDeleteAllForEntity(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "abc123abc123abc123abc123", r.URL.Query().Get("entity_id"))
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, AuthToken: "secret"})
	err := c.DeleteAllForEntity(context.Background(), "abc123abc123abc123abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"/attachments", "/images"}, paths)
}

func TestDeleteAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	err := c.DeleteAllForEntity(context.Background(), "abc123abc123abc123abc123")
	assert.True(t, errs.Is(err, errs.ObjectStorageAuth))
}

func TestDeleteServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	err := c.DeleteAllForEntity(context.Background(), "abc123abc123abc123abc123")
	require.True(t, errs.Is(err, errs.ObjectStorageServer))
	assert.Contains(t, err.Error(), "500")
}

func TestDeleteUnreachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	err := c.DeleteAllForEntity(context.Background(), "abc123abc123abc123abc123")
	assert.True(t, errs.Is(err, errs.ObjectStorageServer))
}
