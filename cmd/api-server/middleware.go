package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/protomem/mini-crm/internal/ctxstore"
	"github.com/protomem/mini-crm/internal/database"
	"github.com/protomem/mini-crm/internal/model"
	"github.com/protomem/mini-crm/internal/response"
	"github.com/rs/cors"

	"github.com/tomasen/realip"
)

const (
	_traceIDKey = ctxstore.Key("traceId")
	_userKey    = ctxstore.Key("user")
)

func (app *application) traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tid := genTraceID()
		ctx := ctxstore.With(r.Context(), _traceIDKey, tid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err != nil {
				app.serverError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (app *application) logAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := response.NewMetricsResponseWriter(w)
		next.ServeHTTP(mw, r)

		var (
			ip     = realip.FromRequest(r)
			method = r.Method
			url    = r.URL.String()
			proto  = r.Proto
			tid    = ctxstore.MustFrom[string](r.Context(), _traceIDKey)
		)

		userAttrs := slog.Group("user", "ip", ip)
		requestAttrs := slog.Group("request", "method", method, "url", url, "proto", proto, _traceIDKey.String(), tid)
		responseAttrs := slog.Group("response", "status", mw.StatusCode, "size", mw.BytesCount)

		app.serverLogger().Info("access", userAttrs, requestAttrs, responseAttrs)
	})
}

func (app *application) CORS(next http.Handler) http.Handler {
	return cors.AllowAll().Handler(next)
}

// requireAuth resolves the session cookie to an account and stores it in the
// request context. Unauthenticated requests are redirected to the login
// page, matching the original contract.
func (app *application) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cookie, err := r.Cookie(_sessionCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		sessionDAO := database.NewSessionDAO(app.logger, app.db)

		session, err := sessionDAO.GetByToken(ctx, cookie.Value)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				clearSessionCookie(w)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			app.serverError(w, r, err)
			return
		}

		userDAO := database.NewUserDAO(app.logger, app.db, app.hasher)

		user, err := userDAO.Get(ctx, session.UserID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				clearSessionCookie(w)
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			app.serverError(w, r, err)
			return
		}

		ctx = ctxstore.With(ctx, _userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func genTraceID() string {
	id, _ := uuid.NewRandom()
	return id.String()
}
