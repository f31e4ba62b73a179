package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/protomem/mini-crm/internal/model"
)

func clientIDFromRequest(r *http.Request) (model.ID, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "clientId"), 10, 64)
	return model.ID(id), err
}
