package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/keygate/keygate/pkg/storage/database/models"
)

type endpointSpec struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

type themeResponse struct {
	ID        uint           `json:"id"`
	UserID    uint           `json:"user_id"`
	Name      string         `json:"name"`
	Endpoints []endpointSpec `json:"endpoints"`
}

func toThemeResponse(theme models.Theme) themeResponse {
	rc := themeResponse{
		ID:        theme.ID,
		UserID:    theme.UserID,
		Name:      theme.Name,
		Endpoints: make([]endpointSpec, 0, len(theme.Endpoints)),
	}
	for _, ep := range theme.Endpoints {
		rc.Endpoints = append(rc.Endpoints, endpointSpec{Path: ep.Path, Method: ep.Method})
	}
	return rc
}

func (a *KeyGateAPI) CreateTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    uint           `json:"user_id"`
		Name      string         `json:"name"`
		Endpoints []endpointSpec `json:"endpoints"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	theme := models.Theme{UserID: req.UserID, Name: req.Name}
	for _, ep := range req.Endpoints {
		theme.Endpoints = append(theme.Endpoints, models.Endpoint{Path: ep.Path, Method: ep.Method})
	}

	if err := a.storageServices.Database.CreateTheme(r.Context(), &theme); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, toThemeResponse(theme))
}

func (a *KeyGateAPI) ListThemes(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	themes, err := a.storageServices.Database.GetThemes(r.Context(), uint(userID))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rc := make([]themeResponse, 0, len(themes))
	for _, theme := range themes {
		rc = append(rc, toThemeResponse(theme))
	}
	render.JSON(w, r, rc)
}

// UpdateTheme replaces a theme's endpoint set wholesale. Keys attached to
// the theme pick up the new endpoints on their next request.
func (a *KeyGateAPI) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	themeID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid theme id", http.StatusBadRequest)
		return
	}

	var req struct {
		UserID    uint           `json:"user_id"`
		Endpoints []endpointSpec `json:"endpoints"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	endpoints := make([]models.Endpoint, 0, len(req.Endpoints))
	for _, ep := range req.Endpoints {
		endpoints = append(endpoints, models.Endpoint{Path: ep.Path, Method: ep.Method})
	}

	err = a.storageServices.Database.UpdateThemeEndpoints(r.Context(), req.UserID, uint(themeID), endpoints)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			http.Error(w, "theme not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	theme, err := a.storageServices.Database.GetTheme(r.Context(), req.UserID, uint(themeID))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, toThemeResponse(theme))
}

func (a *KeyGateAPI) DeleteTheme(w http.ResponseWriter, r *http.Request) {
	themeID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid theme id", http.StatusBadRequest)
		return
	}

	userID, err := strconv.ParseUint(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	err = a.storageServices.Database.DeleteTheme(r.Context(), uint(userID), uint(themeID))
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			http.Error(w, "theme not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, render.M{"deleted": true})
}
