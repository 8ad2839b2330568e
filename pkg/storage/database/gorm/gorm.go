package gorm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage/database/models"
	"github.com/keygate/keygate/pkg/util"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Gorm struct {
	DSN string `mapstructure:"dsn"`

	db        *gorm.DB
	adminKeys map[string]bool
}

func NewGorm(conf config.Database, adminKeys []config.AdminAPIKey) (*Gorm, error) {
	rc := util.ConfigToStruct[Gorm](conf.Settings)

	var (
		db  *gorm.DB
		err error
	)
	switch conf.Type {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(rc.DSN), &gorm.Config{})
	case "postgres":
		db, err = gorm.Open(postgres.Open(rc.DSN), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unknown database type: %s", conf.Type)
	}
	if err != nil {
		return nil, err
	}

	rc.db = db

	err = db.AutoMigrate(
		&models.User{},
		&models.Theme{},
		&models.Endpoint{},
		&models.APIKey{},
	)
	if err != nil {
		return nil, err
	}

	rc.adminKeys = make(map[string]bool)
	for _, k := range adminKeys {
		rc.adminKeys[rc.Hash(k.Key)] = true
	}

	return rc, nil
}

func (s *Gorm) Hash(str string) string {
	hash := sha256.Sum256([]byte(str))
	return hex.EncodeToString(hash[:])
}

func (s *Gorm) VerifyAdminAPIKey(ctx context.Context, hashedAPIKey string) bool {
	return s.adminKeys[hashedAPIKey]
}

func (s *Gorm) CreateUser(ctx context.Context, email string, tenantName string) (*models.User, error) {
	user := &models.User{
		Email:      email,
		TenantName: tenantName,
	}

	res := s.db.WithContext(ctx).Where(models.User{Email: email}).FirstOrCreate(user)
	if res.Error != nil {
		return nil, res.Error
	}

	return user, nil
}

func (s *Gorm) GetUser(ctx context.Context, userID uint) (models.User, error) {
	var user models.User
	res := s.db.WithContext(ctx).First(&user, userID)
	if res.Error != nil {
		return models.User{}, notFound(res.Error)
	}
	return user, nil
}

func (s *Gorm) GetTenantName(ctx context.Context, userID uint) (string, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.TenantName, nil
}

func (s *Gorm) CreateAPIKey(ctx context.Context, key *models.APIKey, themeIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if res := tx.Create(key); res.Error != nil {
			return res.Error
		}

		if len(themeIDs) == 0 {
			return nil
		}

		var themes []models.Theme
		res := tx.Where("user_id = ? AND id IN ?", key.UserID, themeIDs).Find(&themes)
		if res.Error != nil {
			return res.Error
		}
		if len(themes) != len(themeIDs) {
			return models.ErrRecordNotFound
		}

		return tx.Model(key).Association("Themes").Append(toPointers(themes))
	})
}

func (s *Gorm) GetAPIKeyByUUID(ctx context.Context, uuid string) (models.APIKey, error) {
	var key models.APIKey
	res := s.db.WithContext(ctx).
		Preload("Themes.Endpoints").
		First(&key, "uuid = ?", uuid)
	if res.Error != nil {
		return models.APIKey{}, notFound(res.Error)
	}
	return key, nil
}

func (s *Gorm) GetAPIKeys(ctx context.Context, userID uint) ([]models.APIKey, error) {
	var keys []models.APIKey
	res := s.db.WithContext(ctx).
		Preload("Themes.Endpoints").
		Where("user_id = ?", userID).
		Find(&keys)
	if res.Error != nil {
		return nil, res.Error
	}
	return keys, nil
}

func (s *Gorm) SetAPIKeyEnabled(ctx context.Context, uuid string, enabled bool) error {
	res := s.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("uuid = ?", uuid).
		Update("enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrRecordNotFound
	}
	return nil
}

func (s *Gorm) DeleteAPIKey(ctx context.Context, uuid string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var key models.APIKey
		if res := tx.First(&key, "uuid = ?", uuid); res.Error != nil {
			return notFound(res.Error)
		}

		if err := tx.Model(&key).Association("Themes").Clear(); err != nil {
			return err
		}

		// Unscoped: the hash must be gone for good, not soft-deleted.
		return tx.Unscoped().Delete(&key).Error
	})
}

func (s *Gorm) CreateTheme(ctx context.Context, theme *models.Theme) error {
	res := s.db.WithContext(ctx).Create(theme)
	return res.Error
}

func (s *Gorm) GetTheme(ctx context.Context, userID uint, themeID uint) (models.Theme, error) {
	var theme models.Theme
	res := s.db.WithContext(ctx).
		Preload("Endpoints").
		First(&theme, "user_id = ? AND id = ?", userID, themeID)
	if res.Error != nil {
		return models.Theme{}, notFound(res.Error)
	}
	return theme, nil
}

func (s *Gorm) GetThemes(ctx context.Context, userID uint) ([]models.Theme, error) {
	var themes []models.Theme
	res := s.db.WithContext(ctx).
		Preload("Endpoints").
		Where("user_id = ?", userID).
		Find(&themes)
	if res.Error != nil {
		return nil, res.Error
	}
	return themes, nil
}

func (s *Gorm) UpdateThemeEndpoints(ctx context.Context, userID uint, themeID uint, endpoints []models.Endpoint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var theme models.Theme
		if res := tx.First(&theme, "user_id = ? AND id = ?", userID, themeID); res.Error != nil {
			return notFound(res.Error)
		}

		if res := tx.Unscoped().Where("theme_id = ?", theme.ID).Delete(&models.Endpoint{}); res.Error != nil {
			return res.Error
		}

		for i := range endpoints {
			endpoints[i].ThemeID = theme.ID
		}
		if len(endpoints) == 0 {
			return nil
		}
		return tx.Create(&endpoints).Error
	})
}

func (s *Gorm) DeleteTheme(ctx context.Context, userID uint, themeID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var theme models.Theme
		if res := tx.First(&theme, "user_id = ? AND id = ?", userID, themeID); res.Error != nil {
			return notFound(res.Error)
		}

		if err := tx.Model(&theme).Association("Keys").Clear(); err != nil {
			return err
		}
		if res := tx.Unscoped().Where("theme_id = ?", theme.ID).Delete(&models.Endpoint{}); res.Error != nil {
			return res.Error
		}
		return tx.Unscoped().Delete(&theme).Error
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrRecordNotFound
	}
	return err
}

func toPointers(themes []models.Theme) []*models.Theme {
	rc := make([]*models.Theme, len(themes))
	for i := range themes {
		rc[i] = &themes[i]
	}
	return rc
}
