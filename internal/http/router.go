package httpserver

import (
	"net/http"

	"chargegrid/internal/http/handlers"
	"chargegrid/internal/http/middleware"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Stations      *handlers.StationsHandlers
	Sessions      *handlers.SessionsHandlers
	Notifications *handlers.NotificationsHandler
	Health        http.HandlerFunc
}

// NewRouter wires HTTP routes. Everything under /api requires a
// verified user.
func NewRouter(deps RouterDeps, auth middleware.Middleware) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", deps.Health)

	authenticated := func(handler http.HandlerFunc) http.Handler {
		return middleware.Chain(handler, auth)
	}

	mux.Handle("GET /api/stations/nearby", authenticated(deps.Stations.Nearby))
	mux.Handle("GET /api/stations/{id}", authenticated(deps.Stations.Detail))
	mux.Handle("GET /api/stations/{id}/availability", authenticated(deps.Stations.Availability))

	mux.Handle("POST /api/sessions/start", authenticated(deps.Sessions.Start))
	mux.Handle("POST /api/sessions/{id}/stop", authenticated(deps.Sessions.Stop))
	mux.Handle("GET /api/sessions/{id}/status", authenticated(deps.Sessions.Status))
	mux.Handle("GET /api/sessions/active", authenticated(deps.Sessions.Active))
	mux.Handle("GET /api/sessions/history", authenticated(deps.Sessions.History))

	mux.Handle("GET /api/notifications/stream", authenticated(deps.Notifications.Stream))

	return mux
}
