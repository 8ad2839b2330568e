package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/keygate/keygate/pkg/keys"
	"github.com/keygate/keygate/pkg/storage/database/models"
	"github.com/keygate/keygate/pkg/tenants"
)

const apiKeyHeader = "X-API-KEY"
const apiKeyQuery = "api_key"

type contextKey string

const keyRecordContextKey contextKey = "keyRecord"
const tenantContextKey contextKey = "tenantStore"

func getAPIKey(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key
	}
	return r.URL.Query().Get(apiKeyQuery)
}

// AdminAuthMiddleware guards the management plane with the static admin
// keys from config, compared by hash.
func (a *KeyGateAPI) AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := getAPIKey(r)
		hashedKey := a.storageServices.Database.Hash(apiKey)

		if !a.storageServices.Database.VerifyAdminAPIKey(r.Context(), hashedKey) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// KeyAuthMiddleware guards the data plane with issued bearer keys:
// validate the token, enforce the REST scope against the exact request
// path and method, then resolve the owning user's tenant store into the
// request context.
func (a *KeyGateAPI) KeyAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := getAPIKey(r)

		record, err := a.validator.Validate(r.Context(), token)
		if err != nil {
			a.denyRequest(w, r, err)
			return
		}

		if err := keys.AuthorizeRest(record, r.URL.Path, r.Method); err != nil {
			a.denyRequest(w, r, err)
			return
		}

		store, err := a.tenantManager.ResolveKey(r.Context(), record)
		if err != nil {
			a.denyRequest(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), keyRecordContextKey, record)
		ctx = context.WithValue(ctx, tenantContextKey, store)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// denyRequest maps the typed outcome onto the wire. Denial reasons stay
// differentiated in logs and metrics but are collapsed outward: bad or
// dead credentials are all 401, out-of-scope is 403, everything else is
// an internal failure.
func (a *KeyGateAPI) denyRequest(w http.ResponseWriter, r *http.Request, err error) {
	authzDenials.WithLabelValues(denialLabel(err)).Inc()

	switch {
	case errors.Is(err, keys.ErrMalformed),
		errors.Is(err, keys.ErrNotFound),
		errors.Is(err, keys.ErrHashMismatch),
		errors.Is(err, keys.ErrDisabled),
		errors.Is(err, keys.ErrExpired):
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Key rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, keys.ErrForbidden):
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Scope denied")
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Authorization failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func denialLabel(err error) string {
	switch {
	case errors.Is(err, keys.ErrMalformed):
		return "malformed"
	case errors.Is(err, keys.ErrNotFound):
		return "not_found"
	case errors.Is(err, keys.ErrHashMismatch):
		return "hash_mismatch"
	case errors.Is(err, keys.ErrDisabled):
		return "disabled"
	case errors.Is(err, keys.ErrExpired):
		return "expired"
	case errors.Is(err, keys.ErrForbidden):
		return "forbidden"
	case errors.Is(err, keys.ErrTenantUnresolved):
		return "tenant_unresolved"
	default:
		return "internal"
	}
}

func keyFromContext(ctx context.Context) (models.APIKey, bool) {
	record, ok := ctx.Value(keyRecordContextKey).(models.APIKey)
	return record, ok
}

func tenantFromContext(ctx context.Context) (tenants.Store, bool) {
	store, ok := ctx.Value(tenantContextKey).(tenants.Store)
	return store, ok
}
