package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/hub/pkg/httputil"
	"github.com/platinummonkey/hub/pkg/lifecycle"
	"github.com/platinummonkey/hub/pkg/observability"
)

// Server exposes the plugin lifecycle manager over HTTP.
type Server struct {
	manager *lifecycle.Manager
	log     *observability.Logger
	router  *mux.Router
}

// NewServer creates the API server and registers its routes.
func NewServer(manager *lifecycle.Manager, log *observability.Logger) *Server {
	s := &Server{
		manager: manager,
		log:     log,
		router:  mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/plugins", s.loadPlugin).Methods("POST")
	s.router.HandleFunc("/plugins", s.listPlugins).Methods("GET")
	s.router.HandleFunc("/plugins/{id}", s.getPlugin).Methods("GET")
	s.router.HandleFunc("/plugins/{id}", s.unloadPlugin).Methods("DELETE")
	s.router.HandleFunc("/plugins/{id}/reload", s.reloadPlugin).Methods("POST")
	s.router.HandleFunc("/plugins/{id}/dependents", s.pluginDependents).Methods("GET")

	s.router.HandleFunc("/discovery", s.discover).Methods("GET")

	s.router.HandleFunc("/quarantine", s.listQuarantine).Methods("GET")
	s.router.HandleFunc("/quarantine/{id}", s.clearQuarantine).Methods("DELETE")
}

// ServeHTTP implements http.Handler, tagging every request with an id.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := observability.WithRequestID(r.Context(), uuid.NewString())
	s.router.ServeHTTP(w, r.WithContext(ctx))
}

type loadRequest struct {
	Path string `json:"path"`
}

func (s *Server) loadPlugin(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := httputil.ParseJSON(r, &req); err != nil || req.Path == "" {
		httputil.WriteBadRequest(w, "request body must carry a plugin path")
		return
	}

	result := s.manager.Load(r.Context(), req.Path)
	s.logResult(r, result)
	httputil.WriteJSON(w, resultStatus(result), result)
}

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.manager.ListLoaded())
}

func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	info, ok := s.manager.Get(id)
	if !ok {
		httputil.WriteNotFound(w, "plugin "+id+" is not loaded")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, info)
}

func (s *Server) unloadPlugin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result := s.manager.Unload(r.Context(), id)
	s.logResult(r, result)
	httputil.WriteJSON(w, resultStatus(result), result)
}

func (s *Server) reloadPlugin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result := s.manager.Reload(r.Context(), id)
	s.logResult(r, result)
	httputil.WriteJSON(w, resultStatus(result), result)
}

func (s *Server) pluginDependents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	impact, ok := s.manager.Impact(id)
	if !ok {
		httputil.WriteNotFound(w, "plugin "+id+" is not loaded")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, impact)
}

func (s *Server) discover(w http.ResponseWriter, r *http.Request) {
	metas, err := s.manager.Discover(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, metas)
}

func (s *Server) listQuarantine(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.manager.Quarantined())
}

func (s *Server) clearQuarantine(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.manager.ClearQuarantine(id) {
		httputil.WriteNotFound(w, "plugin "+id+" is not quarantined")
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) logResult(r *http.Request, result *lifecycle.Result) {
	log := observability.FromContext(observability.WithLogger(r.Context(), s.log)).
		WithField("operation", string(result.Kind)).
		WithField("plugin_id", result.PluginID).
		WithField("elapsed", result.Elapsed.String())
	if result.Success {
		log.Info("Operation succeeded")
	} else {
		log.WithField("error", result.Error).Warn("Operation failed")
	}
}

// resultStatus maps a lifecycle result to an HTTP status: success is 200,
// validation rejections are 422, everything else is 500.
func resultStatus(result *lifecycle.Result) int {
	switch {
	case result.Success:
		return http.StatusOK
	case len(result.ValidationErrors) > 0:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
