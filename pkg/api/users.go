package api

import (
	"net/http"

	"github.com/go-chi/render"
)

// CreateUser provisions a principal and pins it to a tenant. Creation is
// idempotent on email; re-posting an existing email returns the existing
// user and leaves its binding untouched.
func (a *KeyGateAPI) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Tenant string `json:"tenant"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Tenant == "" {
		http.Error(w, "email and tenant are required", http.StatusBadRequest)
		return
	}

	user, err := a.storageServices.Database.CreateUser(r.Context(), req.Email, req.Tenant)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.issuer.NotifyUserBound(user.ID)

	render.JSON(w, r, render.M{
		"id":     user.ID,
		"email":  user.Email,
		"tenant": user.TenantName,
	})
}
