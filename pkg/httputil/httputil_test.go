package httputil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusCreated, map[string]int{"count": 3}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body["count"])
}

func TestWriteErrorVariants(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "nope") }, http.StatusBadRequest, "nope"},
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "gone") }, http.StatusNotFound, "gone"},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w, assert.AnError) }, http.StatusInternalServerError, assert.AnError.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestParseJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"path": "/tmp/p"}`))
	var dest struct {
		Path string `json:"path"`
	}
	require.NoError(t, ParseJSON(req, &dest))
	assert.Equal(t, "/tmp/p", dest.Path)

	req = httptest.NewRequest("POST", "/", strings.NewReader("{broken"))
	assert.Error(t, ParseJSON(req, &dest))
}

func TestPathString(t *testing.T) {
	router := mux.NewRouter()
	var got string
	var gotErr error
	router.HandleFunc("/plugins/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = PathString(r, "id")
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/plugins/metrics", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, "metrics", got)

	router.HandleFunc("/none", func(w http.ResponseWriter, r *http.Request) {
		_, gotErr = PathString(r, "id")
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/none", nil))
	assert.Error(t, gotErr)
}
