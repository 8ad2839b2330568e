package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/keygate/keygate/pkg/keys"
	"github.com/keygate/keygate/pkg/storage/database/models"
)

type createKeyRequest struct {
	UserID             uint                       `json:"user_id"`
	Kind               models.KeyKind             `json:"kind"`
	Name               string                     `json:"name"`
	ThemeIDs           []uint                     `json:"theme_ids"`
	GraphQLPermissions []models.GraphQLPermission `json:"graphql_permissions"`
	Topics             []string                   `json:"topics"`
}

// CreateKey issues a new key. The returned bearer token is computable
// exactly here and never again; losing it means reissuing.
func (a *KeyGateAPI) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := a.issuer.Issue(r.Context(), req.UserID, req.Kind, req.Name, keys.Scope{
		ThemeIDs:           req.ThemeIDs,
		GraphQLPermissions: req.GraphQLPermissions,
		Topics:             req.Topics,
	})
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			http.Error(w, "unknown user", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	render.JSON(w, r, render.M{"key": token})
}

type keyResponse struct {
	UUID       string         `json:"uuid"`
	Name       string         `json:"name"`
	Kind       models.KeyKind `json:"kind"`
	UserID     uint           `json:"user_id"`
	CreatedAt  string         `json:"created_at"`
	ExpiryDays int            `json:"expiry_days"`
	Enabled    bool           `json:"enabled"`

	ThemeIDs           []uint                     `json:"theme_ids,omitempty"`
	GraphQLPermissions []models.GraphQLPermission `json:"graphql_permissions,omitempty"`
	Topics             []string                   `json:"topics,omitempty"`
}

func toKeyResponse(record models.APIKey) keyResponse {
	rc := keyResponse{
		UUID:       record.UUID,
		Name:       record.Name,
		Kind:       record.Kind,
		UserID:     record.UserID,
		CreatedAt:  record.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		ExpiryDays: record.ExpiryDays,
		Enabled:    record.Enabled,
	}

	switch record.Kind {
	case models.RestKey:
		for _, theme := range record.Themes {
			rc.ThemeIDs = append(rc.ThemeIDs, theme.ID)
		}
	case models.GraphQLKey:
		rc.GraphQLPermissions = record.GraphQLPermissions.Data()
	case models.KafkaKey:
		rc.Topics = record.Topics.Data()
	}

	return rc
}

func (a *KeyGateAPI) ListKeys(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	records, err := a.storageServices.Database.GetAPIKeys(r.Context(), uint(userID))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rc := make([]keyResponse, 0, len(records))
	for _, record := range records {
		rc = append(rc, toKeyResponse(record))
	}
	render.JSON(w, r, rc)
}

func (a *KeyGateAPI) ToggleKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := a.issuer.SetEnabled(r.Context(), chi.URLParam(r, "uuid"), req.Enabled)
	if err != nil {
		if errors.Is(err, keys.ErrNotFound) {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, render.M{"enabled": req.Enabled})
}

func (a *KeyGateAPI) DeleteKey(w http.ResponseWriter, r *http.Request) {
	err := a.issuer.Delete(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, keys.ErrNotFound) {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, render.M{"deleted": true})
}
