package database

import (
	"context"
	"errors"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage/database/gorm"
	"github.com/keygate/keygate/pkg/storage/database/memory"
	"github.com/keygate/keygate/pkg/storage/database/models"
)

type Database interface {
	Hash(s string) string
	VerifyAdminAPIKey(ctx context.Context, hashedAPIKey string) bool

	CreateUser(ctx context.Context, email string, tenantName string) (*models.User, error)
	GetUser(ctx context.Context, userID uint) (models.User, error)
	GetTenantName(ctx context.Context, userID uint) (string, error)

	// CreateAPIKey persists the record and its theme links in one
	// transaction; the key must not be validatable before the write is
	// durable.
	CreateAPIKey(ctx context.Context, key *models.APIKey, themeIDs []uint) error
	GetAPIKeyByUUID(ctx context.Context, uuid string) (models.APIKey, error)
	GetAPIKeys(ctx context.Context, userID uint) ([]models.APIKey, error)
	SetAPIKeyEnabled(ctx context.Context, uuid string, enabled bool) error
	DeleteAPIKey(ctx context.Context, uuid string) error

	CreateTheme(ctx context.Context, theme *models.Theme) error
	GetTheme(ctx context.Context, userID uint, themeID uint) (models.Theme, error)
	GetThemes(ctx context.Context, userID uint) ([]models.Theme, error)
	UpdateThemeEndpoints(ctx context.Context, userID uint, themeID uint, endpoints []models.Endpoint) error
	DeleteTheme(ctx context.Context, userID uint, themeID uint) error
}

func NewConnection(conf config.Database, adminKeys []config.AdminAPIKey) (Database, error) {
	switch conf.Type {
	case "memory":
		return memory.NewMemoryDatabase(adminKeys), nil
	case "sqlite", "postgres":
		return gorm.NewGorm(conf, adminKeys)
	}

	return nil, errors.New("unable to connect to any database")
}
