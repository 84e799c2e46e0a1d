package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hub/pkg/lifecycle"
)

func fakeDaemon(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func writeResult(t *testing.T, w http.ResponseWriter, result lifecycle.Result) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(result))
}

func TestLoadCommand(t *testing.T) {
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/plugins", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.True(t, filepath.IsAbs(body["path"]))

		writeResult(t, w, lifecycle.Result{Kind: lifecycle.OpLoad, PluginID: "echo", Success: true})
	})

	err := runLoad([]string{"-path", ".", "-server", server.URL})
	assert.NoError(t, err)
}

func TestLoadCommandValidationFailureExitCode(t *testing.T) {
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		writeResult(t, w, lifecycle.Result{
			Kind:             lifecycle.OpLoad,
			PluginID:         "echo",
			Success:          false,
			Error:            "plugin echo failed validation with 1 error(s)",
			ValidationErrors: []string{"required gate x is not available"},
		})
	})

	err := runLoad([]string{"-path", ".", "-server", server.URL})
	require.Error(t, err)
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestLoadCommandRequiresPath(t *testing.T) {
	err := runLoad([]string{})
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestUnloadCommand(t *testing.T) {
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/plugins/echo", r.URL.Path)
		writeResult(t, w, lifecycle.Result{Kind: lifecycle.OpUnload, PluginID: "echo", Success: true})
	})

	assert.NoError(t, runUnload([]string{"-id", "echo", "-server", server.URL}))

	err := runUnload([]string{"-server", server.URL})
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
}

func TestUnloadCommandLifecycleFailureExitCode(t *testing.T) {
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		writeResult(t, w, lifecycle.Result{
			Kind:     lifecycle.OpUnload,
			PluginID: "echo",
			Success:  false,
			Error:    "unload echo: boundary not reclaimed",
		})
	})

	err := runUnload([]string{"-id", "echo", "-server", server.URL})
	require.Error(t, err)
	assert.Equal(t, ExitLifecycle, ExitCode(err))
}

func TestReloadCommand(t *testing.T) {
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/plugins/echo/reload", r.URL.Path)
		writeResult(t, w, lifecycle.Result{Kind: lifecycle.OpReload, PluginID: "echo", Success: true})
	})

	assert.NoError(t, runReload([]string{"-id", "echo", "-server", server.URL}))
}

func TestListCommand(t *testing.T) {
	server := fakeDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/plugins", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]lifecycle.PluginInfo{
			{ID: "echo", Name: "echo", Version: "1.0.0", Status: "running"},
		})
	})

	assert.NoError(t, runList([]string{"-server", server.URL}))
	assert.NoError(t, runList([]string{"-server", server.URL, "-json", "true"}))
}

func TestDiscoverCommandScansLocally(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "echo")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	src := `package main

import "github.com/platinummonkey/hub/pkg/contract"

type echo struct{}

func NewEcho() contract.Greeter { return nil }
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.go"), []byte(src), 0o644))

	assert.NoError(t, runDiscover([]string{"-dir", root}))
	assert.NoError(t, runDiscover([]string{"-dir", root, "-json", "true"}))

	err := runDiscover([]string{"-dir", " , "})
	require.Error(t, err)
	assert.Equal(t, ExitUsage, ExitCode(err))
}
