package main

import (
	"errors"
	"net/http"

	"github.com/protomem/mini-crm/internal/database"
	"github.com/protomem/mini-crm/internal/model"
	"github.com/protomem/mini-crm/internal/request"
	"github.com/protomem/mini-crm/internal/response"
)

var errNoImportData = errors.New("no data to import")

// checkAdminKey gates an administrative endpoint on its shared secret.
// An unset key means the endpoint is disabled; there are no default secrets.
func (app *application) checkAdminKey(w http.ResponseWriter, r *http.Request, provided, configured string) bool {
	if configured == "" || provided != configured {
		app.errorMessage(w, r, http.StatusUnauthorized, "invalid key")
		return false
	}
	return true
}

type importUser struct {
	Username  string  `json:"username"`
	Password  string  `json:"password"` // exported rows carry the hash, not plaintext
	CreatedAt string  `json:"created_at"`
	FullName  *string `json:"full_name"`
}

type importClient struct {
	ClientID      *string  `json:"client_id"`
	ProjectName   string   `json:"project_name"`
	ClientContact string   `json:"client_contact"`
	TechnicalTask *string  `json:"technical_task"`
	Status        string   `json:"status"`
	Price         *float64 `json:"price"`
	DeadlineDays  *int64   `json:"deadline_days"`
	Notes         *string  `json:"notes"`
	DateCreated   string   `json:"date_created"`
	DaysPassed    int64    `json:"days_passed"`
}

type requestImportData struct {
	Users     []importUser   `json:"users"`
	Clients   []importClient `json:"clients"`
	ImportKey string         `json:"importKey"`
}

func (app *application) handleImportData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input requestImportData
	if err := request.DecodeJSON(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	if !app.checkAdminKey(w, r, input.ImportKey, app.config.admin.importKey) {
		return
	}

	if input.Users == nil || input.Clients == nil {
		app.badRequest(w, r, errNoImportData)
		return
	}

	userDAO := database.NewUserDAO(app.logger, app.db, app.hasher)
	clientDAO := database.NewClientDAO(app.logger, app.db)

	var usersImported, clientsImported int

	for _, user := range input.Users {
		inserted, err := userDAO.ImportInsert(ctx, database.ImportUserDTO{
			Username:  user.Username,
			Password:  user.Password,
			CreatedAt: user.CreatedAt,
			FullName:  user.FullName,
		})
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		if inserted {
			usersImported++
		}
	}

	for _, client := range input.Clients {
		inserted, err := clientDAO.ImportInsert(ctx, database.ImportClientDTO{
			ClientID:      client.ClientID,
			ProjectName:   client.ProjectName,
			ClientContact: client.ClientContact,
			TechnicalTask: client.TechnicalTask,
			Status:        model.ClientStatus(client.Status),
			Price:         client.Price,
			DeadlineDays:  client.DeadlineDays,
			Notes:         client.Notes,
			DateCreated:   client.DateCreated,
			DaysPassed:    client.DaysPassed,
		})
		if err != nil {
			app.serverError(w, r, err)
			return
		}
		if inserted {
			clientsImported++
		}
	}

	app.serverLogger().Info("data imported",
		"usersImported", usersImported,
		"clientsImported", clientsImported,
	)

	err := response.JSON(w, http.StatusOK, response.JSONObject{
		"success":          true,
		"users_imported":   usersImported,
		"clients_imported": clientsImported,
	})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleMigrateDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input struct {
		MigrateKey string `json:"migrateKey"`
	}
	if err := request.DecodeJSON(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	if !app.checkAdminKey(w, r, input.MigrateKey, app.config.admin.migrateKey) {
		return
	}

	report, err := app.db.Migrate(ctx)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	err = response.JSON(w, http.StatusOK, response.JSONObject{
		"success":    true,
		"migrations": report,
	})
	if err != nil {
		app.serverError(w, r, err)
	}
}

func (app *application) handleRecreateDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input struct {
		RecreateKey string `json:"recreateKey"`
	}
	if err := request.DecodeJSON(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	if !app.checkAdminKey(w, r, input.RecreateKey, app.config.admin.recreateKey) {
		return
	}

	if err := app.db.Recreate(ctx); err != nil {
		app.serverError(w, r, err)
		return
	}

	app.serverLogger().Warn("database recreated, all data dropped")

	err := response.JSON(w, http.StatusOK, response.JSONObject{
		"success": true,
		"message": "database recreated",
	})
	if err != nil {
		app.serverError(w, r, err)
	}
}
