package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func CreateMux(apiFunctions *KeyGateAPI) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Use(PrometheusMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"User-Agent", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthcheck", apiFunctions.Healthcheck)
	r.Handle("/metrics", promhttp.Handler())

	// Management plane, guarded by admin keys from config.
	admin := chi.NewRouter()
	admin.Use(apiFunctions.AdminAuthMiddleware)
	admin.Post("/users", apiFunctions.CreateUser)
	admin.Post("/keys", apiFunctions.CreateKey)
	admin.Get("/keys", apiFunctions.ListKeys)
	admin.Post("/keys/{uuid}/toggle", apiFunctions.ToggleKey)
	admin.Delete("/keys/{uuid}", apiFunctions.DeleteKey)
	admin.Post("/themes", apiFunctions.CreateTheme)
	admin.Get("/themes", apiFunctions.ListThemes)
	admin.Put("/themes/{id}", apiFunctions.UpdateTheme)
	admin.Delete("/themes/{id}", apiFunctions.DeleteTheme)

	// Data plane, guarded by issued bearer keys. REST scopes are
	// enforced against the exact request path and method.
	data := chi.NewRouter()
	data.Use(apiFunctions.KeyAuthMiddleware)
	data.Get("/data/query", apiFunctions.Select)
	data.Post("/data/query", apiFunctions.Select)
	data.Post("/data/insert/{table}", apiFunctions.Insert)

	// Decision endpoints consumed by the GraphQL and Kafka-side
	// collaborators; they validate the key themselves but enforcement
	// happens here.
	authz := chi.NewRouter()
	authz.Post("/graphql", apiFunctions.AuthorizeGraphQL)
	authz.Post("/topic", apiFunctions.AuthorizeTopic)

	r.Mount("/api/admin", admin)
	r.Mount("/api", data)
	r.Mount("/api/authorize", authz)

	return r
}
