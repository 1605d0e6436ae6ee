package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"org-directory/api/services"
	"org-directory/db"
	"org-directory/pkg/logging"
	"org-directory/pkg/shared"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck() error
}

type Options struct {
	DB        *db.Service
	Publisher services.EventPublisher // nil disables events
	NATS      HealthChecker           // nil when NATS is disabled
	Logger    *logrus.Logger
}

type Handlers struct {
	activityService     *services.ActivityService
	buildingService     *services.BuildingService
	organizationService *services.OrganizationService
	searchService       *services.SearchService
	db                  *db.Service
	nats                HealthChecker
	logger              *logrus.Logger
	startedAt           time.Time
}

func NewHandlers(opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handlers{
		activityService:     services.NewActivityService(opts.DB, opts.Publisher, logger),
		buildingService:     services.NewBuildingService(opts.DB, opts.Publisher, logger),
		organizationService: services.NewOrganizationService(opts.DB, opts.Publisher, logger),
		searchService:       services.NewSearchService(opts.DB, logger),
		db:                  opts.DB,
		nats:                opts.NATS,
		logger:              logger,
		startedAt:           time.Now(),
	}
}

func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, http.StatusOK, map[string]string{
		"service": shared.ServiceName,
		"version": shared.ServiceVersion,
	})
}

// HealthCheck reports database and, when enabled, NATS health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := shared.HealthStatus{
		Status:    "healthy",
		Service:   shared.ServiceName,
		Version:   shared.ServiceVersion,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Details:   make(map[string]string),
	}

	if err := h.db.Health(); err != nil {
		health.Status = "unhealthy"
		health.Details["database"] = "unhealthy: " + err.Error()
	} else {
		health.Details["database"] = "healthy"
	}

	if h.nats != nil {
		if err := h.nats.HealthCheck(); err != nil {
			health.Status = "unhealthy"
			health.Details["nats"] = "unhealthy: " + err.Error()
		} else {
			health.Details["nats"] = "healthy"
		}
	} else {
		health.Details["nats"] = "disabled"
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	sendSuccess(w, statusCode, health)
}

// Helper functions
func sendSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := shared.Response{
		Success: true,
		Data:    data,
	}

	json.NewEncoder(w).Encode(response)
}

func sendError(w http.ResponseWriter, statusCode int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := shared.Response{
		Success: false,
		Error: &shared.Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// sendAppError maps a service error onto the envelope. Internal errors
// are logged and their cause is not echoed to the client.
func (h *Handlers) sendAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *shared.AppError
	if !errors.As(err, &appErr) {
		appErr = &shared.AppError{Code: shared.CodeInternal, Message: "internal error", Err: err}
	}

	status := shared.HTTPStatus(appErr.Code)
	message := appErr.Message
	if appErr.Code == shared.CodeInternal {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		message = "internal server error"
	}

	sendError(w, status, string(appErr.Code), message, appErr.Details)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return shared.Validation("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.Validation("invalid id %q", raw)
	}
	return id, nil
}

// queryInt64 returns nil when the parameter is absent.
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, shared.Validation("query parameter '%s' must be an integer", name)
	}
	return &v, nil
}

func pageRequest(r *http.Request) (shared.PageRequest, error) {
	page, size := shared.DefaultPage, shared.DefaultPageSize
	for name, dst := range map[string]*int{"page": &page, "size": &size} {
		v, err := queryInt64(r, name)
		if err != nil {
			return shared.PageRequest{}, err
		}
		if v != nil {
			*dst = clampInt(*v)
		}
	}
	return shared.NewPageRequest(page, size), nil
}

// clampInt keeps absurd query values from overflowing int on 32-bit.
func clampInt(v int64) int {
	const limit = 1 << 30
	switch {
	case v > limit:
		return limit
	case v < -limit:
		return -limit
	}
	return int(v)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	sendError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", fmt.Sprintf("method %s not allowed", r.Method), nil)
}

func notFoundRoute(w http.ResponseWriter, r *http.Request) {
	sendError(w, http.StatusNotFound, string(shared.CodeNotFound), fmt.Sprintf("no route for %s", r.URL.Path), nil)
}
