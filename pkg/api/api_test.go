package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage"
	"github.com/keygate/keygate/pkg/tenants"
)

const adminKey = "test-admin-key"

func newTestMux(t *testing.T) *chi.Mux {
	t.Helper()

	conf := config.KeyGateConfig{
		Database: config.Database{Type: "memory"},
		Queue:    config.Queue{Type: "memory"},
		Cache:    config.Cache{Type: "memory"},
		Tenants: []config.Tenant{
			{Name: "acme", Type: "memory"},
		},
		Crypto:       config.Crypto{TokenSecret: "test-secret"},
		Keys:         config.Keys{DefaultExpiryDays: 30},
		AdminAPIKeys: []config.AdminAPIKey{{Key: adminKey}},
	}

	services, err := storage.New(conf)
	require.NoError(t, err)

	manager := tenants.NewManager(services.Vault, services.Database, services.Cache)
	t.Cleanup(manager.Close)

	apiFunctions, err := NewKeyGateAPI(conf, services, manager)
	require.NoError(t, err)

	return CreateMux(apiFunctions)
}

func doRequest(t *testing.T, mux *chi.Mux, method, path, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if apiKey != "" {
		req.Header.Set("X-API-KEY", apiKey)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func createUser(t *testing.T, mux *chi.Mux, email, tenant string) uint {
	t.Helper()

	body := fmt.Sprintf(`{"email": %q, "tenant": %q}`, email, tenant)
	w := doRequest(t, mux, "POST", "/api/admin/users", adminKey, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ID uint `json:"id"`
	}
	decodeBody(t, w, &resp)
	return resp.ID
}

func createTheme(t *testing.T, mux *chi.Mux, userID uint, name string, endpoints string) uint {
	t.Helper()

	body := fmt.Sprintf(`{"user_id": %d, "name": %q, "endpoints": %s}`, userID, name, endpoints)
	w := doRequest(t, mux, "POST", "/api/admin/themes", adminKey, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		ID uint `json:"id"`
	}
	decodeBody(t, w, &resp)
	return resp.ID
}

func createKey(t *testing.T, mux *chi.Mux, body string) string {
	t.Helper()

	w := doRequest(t, mux, "POST", "/api/admin/keys", adminKey, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Key string `json:"key"`
	}
	decodeBody(t, w, &resp)
	require.NotEmpty(t, resp.Key)
	return resp.Key
}

func TestHealthcheck(t *testing.T) {
	mux := newTestMux(t)

	w := doRequest(t, mux, "GET", "/healthcheck", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestAdminAuth(t *testing.T) {
	mux := newTestMux(t)

	t.Run("no key", func(t *testing.T) {
		w := doRequest(t, mux, "GET", "/api/admin/keys?user_id=1", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		w := doRequest(t, mux, "GET", "/api/admin/keys?user_id=1", "nope", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid key", func(t *testing.T) {
		w := doRequest(t, mux, "GET", "/api/admin/keys?user_id=1", adminKey, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("key via query param", func(t *testing.T) {
		w := doRequest(t, mux, "GET", "/api/admin/keys?user_id=1&api_key="+adminKey, "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestDataPlane(t *testing.T) {
	mux := newTestMux(t)

	userID := createUser(t, mux, "data@example.com", "acme")
	themeID := createTheme(t, mux, userID, "events-rw", `[
		{"path": "/api/data/insert/events", "method": "POST"},
		{"path": "/api/data/query", "method": "GET"}
	]`)

	token := createKey(t, mux, fmt.Sprintf(
		`{"user_id": %d, "kind": "rest", "name": "events", "theme_ids": [%d]}`, userID, themeID))

	t.Run("insert and query", func(t *testing.T) {
		w := doRequest(t, mux, "POST", "/api/data/insert/events", token,
			`[{"value": 1}, {"value": 2}]`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = doRequest(t, mux, "GET", "/api/data/query?query=select+*+from+events", token, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var rows []map[string]any
		decodeBody(t, w, &rows)
		assert.Len(t, rows, 2)
	})

	t.Run("method outside theme", func(t *testing.T) {
		w := doRequest(t, mux, "POST", "/api/data/query", token, `{"query": "select * from events"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("bogus token", func(t *testing.T) {
		w := doRequest(t, mux, "GET", "/api/data/query?query=select+*+from+events", "garbage", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := doRequest(t, mux, "GET", "/api/data/query?query=select+*+from+events", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestKeyLifecycleOverHTTP(t *testing.T) {
	mux := newTestMux(t)

	userID := createUser(t, mux, "lifecycle@example.com", "acme")
	themeID := createTheme(t, mux, userID, "query-only", `[
		{"path": "/api/data/query", "method": "GET"}
	]`)
	token := createKey(t, mux, fmt.Sprintf(
		`{"user_id": %d, "kind": "rest", "name": "short-lived", "theme_ids": [%d]}`, userID, themeID))

	var listed []struct {
		UUID    string `json:"uuid"`
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	w := doRequest(t, mux, "GET", fmt.Sprintf("/api/admin/keys?user_id=%d", userID), adminKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "short-lived", listed[0].Name)
	assert.True(t, listed[0].Enabled)

	keyUUID := listed[0].UUID
	queryPath := "/api/data/query?query=select+*+from+events"

	t.Run("disable blocks the data plane", func(t *testing.T) {
		w := doRequest(t, mux, "POST", "/api/admin/keys/"+keyUUID+"/toggle", adminKey, `{"enabled": false}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, mux, "GET", queryPath, token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("re-enable restores access", func(t *testing.T) {
		w := doRequest(t, mux, "POST", "/api/admin/keys/"+keyUUID+"/toggle", adminKey, `{"enabled": true}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, mux, "GET", queryPath, token, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete is terminal", func(t *testing.T) {
		w := doRequest(t, mux, "DELETE", "/api/admin/keys/"+keyUUID, adminKey, "")
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, mux, "GET", queryPath, token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("toggle unknown uuid", func(t *testing.T) {
		w := doRequest(t, mux, "POST", "/api/admin/keys/no-such-uuid/toggle", adminKey, `{"enabled": true}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuthorizeGraphQL(t *testing.T) {
	mux := newTestMux(t)

	userID := createUser(t, mux, "graphql@example.com", "acme")
	token := createKey(t, mux, fmt.Sprintf(
		`{"user_id": %d, "kind": "graphql", "name": "reader", "graphql_permissions": [
			{"operation": "getUser", "allowed_fields": ["id", "name"]}
		]}`, userID))

	authorize := func(t *testing.T, apiKey, query string) *httptest.ResponseRecorder {
		body := fmt.Sprintf(`{"query": %q}`, query)
		return doRequest(t, mux, "POST", "/api/authorize/graphql", apiKey, body)
	}

	t.Run("allowed subset", func(t *testing.T) {
		w := authorize(t, token, "{ getUser { id } }")
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("typename is always allowed", func(t *testing.T) {
		w := authorize(t, token, "{ getUser { id __typename } }")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("field outside scope", func(t *testing.T) {
		w := authorize(t, token, "{ getUser { id email } }")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown operation", func(t *testing.T) {
		w := authorize(t, token, "{ listOrders { id } }")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("key in body", func(t *testing.T) {
		body := fmt.Sprintf(`{"api_key": %q, "query": "{ getUser { name } }"}`, token)
		w := doRequest(t, mux, "POST", "/api/authorize/graphql", "", body)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("missing query", func(t *testing.T) {
		w := doRequest(t, mux, "POST", "/api/authorize/graphql", token, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthorizeTopic(t *testing.T) {
	mux := newTestMux(t)

	userID := createUser(t, mux, "kafka@example.com", "acme")
	token := createKey(t, mux, fmt.Sprintf(
		`{"user_id": %d, "kind": "kafka", "name": "producer", "topics": ["orders", "refunds"]}`, userID))

	t.Run("member topic", func(t *testing.T) {
		w := doRequest(t, mux, "POST", "/api/authorize/topic", token, `{"topic": "orders"}`)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("non-member topic", func(t *testing.T) {
		w := doRequest(t, mux, "POST", "/api/authorize/topic", token, `{"topic": "payments"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("rest key is the wrong kind", func(t *testing.T) {
		restToken := createKey(t, mux, fmt.Sprintf(
			`{"user_id": %d, "kind": "rest", "name": "not-kafka"}`, userID))
		w := doRequest(t, mux, "POST", "/api/authorize/topic", restToken, `{"topic": "orders"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestThemeManagement(t *testing.T) {
	mux := newTestMux(t)

	userID := createUser(t, mux, "themes@example.com", "acme")
	themeID := createTheme(t, mux, userID, "reports", `[
		{"path": "/api/data/query", "method": "GET"}
	]`)

	t.Run("list", func(t *testing.T) {
		w := doRequest(t, mux, "GET", fmt.Sprintf("/api/admin/themes?user_id=%d", userID), adminKey, "")
		require.Equal(t, http.StatusOK, w.Code)

		var themes []struct {
			ID        uint   `json:"id"`
			Name      string `json:"name"`
			Endpoints []struct {
				Path   string `json:"path"`
				Method string `json:"method"`
			} `json:"endpoints"`
		}
		decodeBody(t, w, &themes)
		require.Len(t, themes, 1)
		assert.Equal(t, "reports", themes[0].Name)
		require.Len(t, themes[0].Endpoints, 1)
	})

	t.Run("update replaces endpoints", func(t *testing.T) {
		body := fmt.Sprintf(`{"user_id": %d, "endpoints": [
			{"path": "/api/data/query", "method": "POST"}
		]}`, userID)
		w := doRequest(t, mux, "PUT", fmt.Sprintf("/api/admin/themes/%d", themeID), adminKey, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var theme struct {
			Endpoints []struct {
				Method string `json:"method"`
			} `json:"endpoints"`
		}
		decodeBody(t, w, &theme)
		require.Len(t, theme.Endpoints, 1)
		assert.Equal(t, "POST", theme.Endpoints[0].Method)
	})

	t.Run("delete", func(t *testing.T) {
		w := doRequest(t, mux, "DELETE", fmt.Sprintf("/api/admin/themes/%d?user_id=%d", themeID, userID), adminKey, "")
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(t, mux, "GET", fmt.Sprintf("/api/admin/themes?user_id=%d", userID), adminKey, "")
		require.Equal(t, http.StatusOK, w.Code)

		var themes []any
		decodeBody(t, w, &themes)
		assert.Empty(t, themes)
	})
}

func TestCreateKeyValidation(t *testing.T) {
	mux := newTestMux(t)

	t.Run("unknown user", func(t *testing.T) {
		w := doRequest(t, mux, "POST", "/api/admin/keys", adminKey,
			`{"user_id": 9999, "kind": "rest", "name": "orphan"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown tenant blocks the data plane", func(t *testing.T) {
		body := `{"email": "lost@example.com", "tenant": "nowhere"}`
		w := doRequest(t, mux, "POST", "/api/admin/users", adminKey, body)
		require.Equal(t, http.StatusOK, w.Code)

		var user struct {
			ID uint `json:"id"`
		}
		decodeBody(t, w, &user)

		themeID := createTheme(t, mux, user.ID, "all-query", `[
			{"path": "/api/data/query", "method": "GET"}
		]`)
		token := createKey(t, mux, fmt.Sprintf(
			`{"user_id": %d, "kind": "rest", "name": "lost", "theme_ids": [%d]}`, user.ID, themeID))

		w = doRequest(t, mux, "GET", "/api/data/query?query=select+*+from+events", token, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
