package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/crypto"
	"github.com/keygate/keygate/pkg/keys"
	"github.com/keygate/keygate/pkg/storage"
	"github.com/keygate/keygate/pkg/tenants"
)

type KeyGateAPI struct {
	config          config.API
	storageServices *storage.Services
	tenantManager   *tenants.Manager
	issuer          *keys.Issuer
	validator       *keys.Validator
}

func NewKeyGateAPI(c config.KeyGateConfig, services *storage.Services, tenantManager *tenants.Manager) (*KeyGateAPI, error) {
	codec, err := crypto.NewCodec(c.Crypto.TokenSecret)
	if err != nil {
		return nil, err
	}

	issuer, err := keys.NewIssuer(codec, services.Database, services.Queue, c.Keys.DefaultExpiryDays)
	if err != nil {
		return nil, err
	}

	return &KeyGateAPI{
		config:          c.API,
		storageServices: services,
		tenantManager:   tenantManager,
		issuer:          issuer,
		validator:       keys.NewValidator(codec, services.Database),
	}, nil
}

func RunAPI(ctx context.Context, c config.API, mux *chi.Mux) {
	log.Debug().Int("port", c.Port).Msg("Starting API")

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", c.Port),
		Handler: mux,
	}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("Error serving API")
			serverStopCtx()
		}
	}()

	go func() {
		<-ctx.Done()

		log.Debug().Msg("Stopping API")

		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error shutting down API")
		}
		cancel()

		serverStopCtx()
	}()

	<-serverCtx.Done()
	log.Debug().Msg("API server stopped")
}
