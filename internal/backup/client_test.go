package backup

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Upload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/me/drive/root:/tools/photo.jpg:/content", r.URL.Path)
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg bytes"), body)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "item-1", "webUrl": "https://drive.example/item-1"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, AccessToken: "token-123", Folder: "tools"})
	require.True(t, c.Enabled())

	ref, err := c.Upload(context.Background(), "photo.jpg", []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://drive.example/item-1", ref)
}

func TestClient_Upload_FallsBackToID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "item-2"}`))
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, AccessToken: "t", Folder: "tools"})
	ref, err := c.Upload(context.Background(), "a.png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "item-2", ref)
}

func TestClient_Upload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, AccessToken: "t", Folder: "tools"})
	_, err := c.Upload(context.Background(), "a.png", []byte("x"))
	assert.ErrorContains(t, err, "507")
}

func TestClient_Disabled(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.Enabled())
	_, err := c.Upload(context.Background(), "a.png", []byte("x"))
	assert.Error(t, err)
}
