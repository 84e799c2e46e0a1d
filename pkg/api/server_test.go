package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hub/pkg/contract"
	"github.com/platinummonkey/hub/pkg/dependencies"
	"github.com/platinummonkey/hub/pkg/lifecycle"
	"github.com/platinummonkey/hub/pkg/loader"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
	"github.com/platinummonkey/hub/pkg/provider"
)

const pluginSource = `package main

import (
	"context"

	"github.com/platinummonkey/hub/pkg/contract"
	"github.com/platinummonkey/hub/pkg/provider"
)

type greeter struct{}

func (g *greeter) Start(ctx context.Context) error { return nil }
func (g *greeter) Stop(ctx context.Context) error  { return nil }

func (g *greeter) ProviderMetadata() provider.Metadata {
	return provider.Metadata{
		Name:      "echo",
		Priority:  1,
		Platforms: provider.PlatformAll,
		Version:   "1.0.0",
	}
}

func (g *greeter) Greet(ctx context.Context, name string) (string, error) {
	return "hi " + name, nil
}

func NewGreeter() contract.GreeterService {
	return &greeter{}
}
`

type fixture struct {
	server *Server
	root   string
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "echo")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.go"), []byte(pluginSource), 0o644))

	lr := logrus.New()
	lr.SetLevel(logrus.PanicLevel)
	registry := provider.NewRegistry[contract.Greeter]()

	manager := lifecycle.NewManager(lifecycle.Options{
		Discovery: plugins.NewDiscovery([]string{root}, lr),
		Validator: plugins.NewValidator(lr),
		Loader:    loader.NewLoader(lr),
		Bindings:  []lifecycle.Binding{lifecycle.NewRegistryBinding[contract.Greeter](registry)},
		Log:       lr,
	})

	log := observability.NewLogger(observability.ErrorLevel, os.Stderr)
	return &fixture{server: NewServer(manager, log), root: root, dir: dir}
}

func (f *fixture) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestLoadListUnload(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/plugins", map[string]string{"path": f.dir})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result lifecycle.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "echo", result.PluginID)

	rec = f.request(t, http.MethodGet, "/plugins", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []lifecycle.PluginInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "running", infos[0].Status)

	rec = f.request(t, http.MethodGet, "/plugins/echo", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodDelete, "/plugins/echo", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.request(t, http.MethodGet, "/plugins/echo", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadRejectsBadRequest(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/plugins", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/plugins", bytes.NewReader([]byte("not json")))
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidationFailureIs422(t *testing.T) {
	f := newFixture(t)
	manifest := "id: echo\nversion: 1.0.0\nrequired_gates:\n  - missing-gate\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, plugins.ManifestFileName), []byte(manifest), 0o644))

	rec := f.request(t, http.MethodPost, "/plugins", map[string]string{"path": f.dir})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var result lifecycle.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ValidationErrors)
}

func TestUnloadUnknownIs500(t *testing.T) {
	f := newFixture(t)
	rec := f.request(t, http.MethodDelete, "/plugins/ghost", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReloadEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/plugins", map[string]string{"path": f.dir})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(t, http.MethodPost, "/plugins/echo/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result lifecycle.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, lifecycle.OpReload, result.Kind)
	assert.True(t, result.Success)
}

func TestDiscoveryEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/discovery", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metas []*plugins.Metadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metas))
	require.Len(t, metas, 1)
	assert.Equal(t, "echo", metas[0].ID)
}

func TestQuarantineEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/quarantine", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "{}", rec.Body.String())

	rec = f.request(t, http.MethodDelete, "/quarantine/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDependentsEndpoint(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.request(t, http.MethodPost, "/plugins", map[string]string{"path": f.dir}).Code)

	rec := f.request(t, http.MethodGet, "/plugins/echo/dependents", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var impact dependencies.Impact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &impact))
	assert.Equal(t, "echo", impact.ID)
	assert.Zero(t, impact.Total)

	rec = f.request(t, http.MethodGet, "/plugins/ghost/dependents", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
