package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/protomem/mini-crm/internal/database"
	"github.com/protomem/mini-crm/internal/model"
	"github.com/protomem/mini-crm/internal/request"
	"github.com/protomem/mini-crm/internal/response"
	"github.com/protomem/mini-crm/internal/validator"
)

type requestClientFields struct {
	ProjectName   string   `json:"project_name"`
	ClientContact string   `json:"client_contact"`
	TechnicalTask *string  `json:"technical_task"`
	Status        string   `json:"status"`
	Price         *float64 `json:"price"`
	DeadlineDays  *int64   `json:"deadline_days"`
	Notes         *string  `json:"notes"`
}

func (app *application) handleListClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dao := database.NewClientDAO(app.logger, app.db)

	clients, err := dao.List(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, clients); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleGetClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := clientIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, errors.New("invalid client id"))
		return
	}

	dao := database.NewClientDAO(app.logger, app.db)

	client, err := dao.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, "client not found")
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, client); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handlePreviewClientID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dao := database.NewClientDAO(app.logger, app.db)

	previewID, err := dao.PreviewClientID(ctx, time.Now().UTC().Year())
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	err = response.JSON(w, http.StatusOK, response.JSONObject{
		"success":    true,
		"preview_id": previewID,
	})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input requestClientFields
	if err := request.DecodeJSON(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	validateClientFields(&v, input)
	if v.HasErrors() {
		app.badRequest(w, r, errors.New(strings.Join(v.Errors, "; ")))
		return
	}

	dao := database.NewClientDAO(app.logger, app.db)

	id, clientID, err := dao.Insert(ctx, database.InsertClientDTO{
		ProjectName:   input.ProjectName,
		ClientContact: input.ClientContact,
		TechnicalTask: input.TechnicalTask,
		Status:        model.ClientStatus(input.Status),
		Price:         input.Price,
		DeadlineDays:  input.DeadlineDays,
		Notes:         input.Notes,
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	err = response.JSON(w, http.StatusOK, response.JSONObject{
		"success":   true,
		"id":        id,
		"client_id": clientID,
	})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := clientIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, errors.New("invalid client id"))
		return
	}

	var input requestClientFields
	if err := request.DecodeJSON(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	var v validator.Validator
	validateClientFields(&v, input)
	if v.HasErrors() {
		app.badRequest(w, r, errors.New(strings.Join(v.Errors, "; ")))
		return
	}

	dao := database.NewClientDAO(app.logger, app.db)

	err = dao.Update(ctx, id, database.UpdateClientDTO{
		ProjectName:   input.ProjectName,
		ClientContact: input.ClientContact,
		TechnicalTask: input.TechnicalTask,
		Status:        model.ClientStatus(input.Status),
		Price:         input.Price,
		DeadlineDays:  input.DeadlineDays,
		Notes:         input.Notes,
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			app.errorMessage(w, r, http.StatusNotFound, "client not found")
			return
		}

		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"success": true}); err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := clientIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, errors.New("invalid client id"))
		return
	}

	dao := database.NewClientDAO(app.logger, app.db)

	// Idempotent: deleting an id that is already gone still succeeds.
	if _, err := dao.Delete(ctx, id); err != nil {
		app.serverError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, response.JSONObject{"success": true}); err != nil {
		app.serverError(w, r, err)
	}
}
