package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (app *application) routes() http.Handler {
	mux := chi.NewRouter()

	mux.NotFound(app.notFound)
	mux.MethodNotAllowed(app.methodNotAllowed)

	mux.Use(app.traceID)
	mux.Use(app.logAccess)
	mux.Use(app.recoverPanic)

	mux.Use(app.CORS)

	mux.Get("/api/status", app.handleStatus)

	mux.Post("/api/register", app.handleRegister)
	mux.Post("/api/login", app.handleLogin)
	mux.Post("/api/logout", app.handleLogout)

	// Administrative endpoints are gated by their shared keys, not by a
	// session.
	mux.Post("/api/import-data", app.handleImportData)
	mux.Post("/api/migrate-database", app.handleMigrateDatabase)
	mux.Post("/api/recreate-database", app.handleRecreateDatabase)

	mux.Group(func(mux chi.Router) {
		mux.Use(app.requireAuth)

		mux.Get("/api/check-auth", app.handleCheckAuth)

		mux.Get("/api/clients", app.handleListClients)
		mux.Post("/api/clients", app.handleCreateClient)
		mux.Get("/api/clients/preview-id", app.handlePreviewClientID)
		mux.Get("/api/clients/{clientId}", app.handleGetClient)
		mux.Put("/api/clients/{clientId}", app.handleUpdateClient)
		mux.Delete("/api/clients/{clientId}", app.handleDeleteClient)
	})

	app.logger.Debug("routes configured", "routes", chiRoutesToStrings(mux.Routes()))

	return mux
}

func chiRoutesToStrings(routes []chi.Route) []string {
	parsedRoutes := make([]string, 0, len(routes))
	for _, route := range routes {
		parsedRoutes = append(parsedRoutes, route.Pattern)
	}
	return parsedRoutes
}
