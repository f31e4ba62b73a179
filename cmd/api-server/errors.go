package main

import (
	"net/http"

	"github.com/protomem/mini-crm/internal/ctxstore"
	"github.com/protomem/mini-crm/internal/response"
)

func (app *application) reportServerError(r *http.Request, err error) {
	tid, _ := ctxstore.From[string](r.Context(), _traceIDKey)
	app.logger.Error(err.Error(),
		"method", r.Method,
		"url", r.URL.String(),
		_traceIDKey.String(), tid,
	)
}

// serverError logs the underlying error and answers with a generic message,
// never the error itself.
func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.reportServerError(r, err)
	app.errorMessage(w, r, http.StatusInternalServerError, "server error")
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	app.errorMessage(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.errorMessage(w, r, http.StatusNotFound, "not found")
}

func (app *application) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	app.errorMessage(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func (app *application) errorMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	err := response.JSON(w, status, response.JSONObject{"error": message})
	if err != nil {
		app.reportServerError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}
