package api

import (
	"net/http"

	"org-directory/api/middleware"

	"github.com/gorilla/mux"
)

// RouterConfig holds what the router needs beyond the handlers.
type RouterConfig struct {
	APIKey         string
	AllowedOrigins []string
}

// NewRouter wires every route. Only / and /health are reachable
// without the API key.
func (h *Handlers) NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFoundRoute)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// Public routes
	router.HandleFunc("/", h.Root).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.APIKeyAuth(cfg.APIKey))

	secured.HandleFunc("/activities", h.ListActivities).Methods(http.MethodGet)
	secured.HandleFunc("/activities", h.CreateActivity).Methods(http.MethodPost)
	secured.HandleFunc("/activities/{id}", h.GetActivity).Methods(http.MethodGet)

	secured.HandleFunc("/buildings", h.ListBuildings).Methods(http.MethodGet)
	secured.HandleFunc("/buildings", h.CreateBuilding).Methods(http.MethodPost)
	secured.HandleFunc("/buildings/{id}", h.GetBuilding).Methods(http.MethodGet)

	secured.HandleFunc("/organizations", h.ListOrganizations).Methods(http.MethodGet)
	secured.HandleFunc("/organizations", h.CreateOrganization).Methods(http.MethodPost)
	secured.HandleFunc("/organizations/{id}", h.GetOrganization).Methods(http.MethodGet)
	secured.HandleFunc("/organizations/{id}", h.UpdateOrganization).Methods(http.MethodPut, http.MethodPatch)

	secured.HandleFunc("/search/rectangle", h.SearchRectangle).Methods(http.MethodPost)
	secured.HandleFunc("/search/radius", h.SearchRadius).Methods(http.MethodPost)

	var handler http.Handler = router
	handler = middleware.CORS(cfg.AllowedOrigins)(handler)
	handler = middleware.RequestLogger(h.logger)(handler)
	return handler
}
