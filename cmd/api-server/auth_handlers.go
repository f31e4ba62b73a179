package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/protomem/mini-crm/internal/ctxstore"
	"github.com/protomem/mini-crm/internal/database"
	"github.com/protomem/mini-crm/internal/model"
	"github.com/protomem/mini-crm/internal/request"
	"github.com/protomem/mini-crm/internal/response"
	"github.com/protomem/mini-crm/internal/validator"
)

const _sessionCookieName = "crm_session"

func (app *application) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := response.JSON(w, http.StatusOK, response.JSONObject{"status": "OK"}); err != nil {
		app.serverError(w, r, err)
	}
}

type requestCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (app *application) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input requestCredentials
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.authFailure(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var v validator.Validator
	validateCredentials(&v, input.Username, input.Password)
	if v.HasErrors() {
		app.authFailure(w, r, http.StatusBadRequest, v.Errors[0])
		return
	}

	dao := database.NewUserDAO(app.logger, app.db, app.hasher)

	if _, err := dao.Register(ctx, input.Username, input.Password); err != nil {
		if errors.Is(err, model.ErrExists) {
			// Registration names the cause; login deliberately does not.
			app.authFailure(w, r, http.StatusBadRequest, "username already taken")
			return
		}

		app.serverError(w, r, err)
		return
	}

	app.serverLogger().Info("user registered", "username", input.Username)

	err := response.JSON(w, http.StatusOK, response.JSONObject{
		"success": true,
		"message": "registration successful",
	})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input requestCredentials
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.authFailure(w, r, http.StatusOK, "username and password are required")
		return
	}

	if input.Username == "" || input.Password == "" {
		app.authFailure(w, r, http.StatusOK, "username and password are required")
		return
	}

	userDAO := database.NewUserDAO(app.logger, app.db, app.hasher)

	user, err := userDAO.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			app.authFailure(w, r, http.StatusOK, model.ErrInvalidCredentials.Error())
			return
		}

		app.serverError(w, r, err)
		return
	}

	sessionDAO := database.NewSessionDAO(app.logger, app.db)

	if err := sessionDAO.DeleteExpired(ctx); err != nil {
		app.reportServerError(r, err)
	}

	token, err := sessionDAO.Insert(ctx, database.InsertSessionDTO{
		UserID: user.ID,
		TTL:    app.config.session.ttl,
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	setSessionCookie(w, token, app.config.session.ttl)

	err = response.JSON(w, http.StatusOK, response.JSONObject{
		"success": true,
		"message": "login successful",
	})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(_sessionCookieName); err == nil && cookie.Value != "" {
		dao := database.NewSessionDAO(app.logger, app.db)
		if err := dao.DeleteByToken(ctx, cookie.Value); err != nil {
			app.reportServerError(r, err)
		}
	}

	clearSessionCookie(w)

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"success": true}); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	user := ctxstore.MustFrom[model.User](r.Context(), _userKey)

	err := response.JSON(w, http.StatusOK, response.JSONObject{
		"success": true,
		"user": response.JSONObject{
			"id":       user.ID,
			"username": user.Username,
		},
	})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) authFailure(w http.ResponseWriter, r *http.Request, status int, message string) {
	err := response.JSON(w, status, response.JSONObject{
		"success": false,
		"message": message,
	})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     _sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     _sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
