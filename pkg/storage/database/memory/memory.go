// Package memory implements the database contract with plain maps. Used
// by tests and single-process setups without a durable store.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/keygate/keygate/pkg/config"
	"github.com/keygate/keygate/pkg/storage/database/models"
)

type MemoryDatabase struct {
	mu sync.Mutex

	nextID    uint
	users     map[uint]models.User
	themes    map[uint]models.Theme
	keys      map[string]models.APIKey // by UUID
	keyThemes map[string][]uint        // key UUID -> theme IDs

	adminKeys map[string]bool
}

func NewMemoryDatabase(adminKeys []config.AdminAPIKey) *MemoryDatabase {
	rc := &MemoryDatabase{
		users:     map[uint]models.User{},
		themes:    map[uint]models.Theme{},
		keys:      map[string]models.APIKey{},
		keyThemes: map[string][]uint{},
		adminKeys: map[string]bool{},
	}
	for _, k := range adminKeys {
		rc.adminKeys[rc.Hash(k.Key)] = true
	}
	return rc
}

func (m *MemoryDatabase) Hash(str string) string {
	hash := sha256.Sum256([]byte(str))
	return hex.EncodeToString(hash[:])
}

func (m *MemoryDatabase) VerifyAdminAPIKey(ctx context.Context, hashedAPIKey string) bool {
	return m.adminKeys[hashedAPIKey]
}

func (m *MemoryDatabase) nextIDLocked() uint {
	m.nextID++
	return m.nextID
}

func (m *MemoryDatabase) CreateUser(ctx context.Context, email string, tenantName string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			existing := u
			return &existing, nil
		}
	}

	user := models.User{
		Email:      email,
		TenantName: tenantName,
	}
	user.ID = m.nextIDLocked()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return &user, nil
}

func (m *MemoryDatabase) GetUser(ctx context.Context, userID uint) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return models.User{}, models.ErrRecordNotFound
	}
	return user, nil
}

func (m *MemoryDatabase) GetTenantName(ctx context.Context, userID uint) (string, error) {
	user, err := m.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.TenantName, nil
}

func (m *MemoryDatabase) CreateAPIKey(ctx context.Context, key *models.APIKey, themeIDs []uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range themeIDs {
		theme, ok := m.themes[id]
		if !ok || theme.UserID != key.UserID {
			return models.ErrRecordNotFound
		}
	}

	key.ID = m.nextIDLocked()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	m.keys[key.UUID] = *key
	m.keyThemes[key.UUID] = append([]uint(nil), themeIDs...)
	return nil
}

func (m *MemoryDatabase) GetAPIKeyByUUID(ctx context.Context, uuid string) (models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[uuid]
	if !ok {
		return models.APIKey{}, models.ErrRecordNotFound
	}
	return m.withThemesLocked(key), nil
}

func (m *MemoryDatabase) GetAPIKeys(ctx context.Context, userID uint) ([]models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rc := []models.APIKey{}
	for _, key := range m.keys {
		if key.UserID == userID {
			rc = append(rc, m.withThemesLocked(key))
		}
	}
	return rc, nil
}

func (m *MemoryDatabase) SetAPIKeyEnabled(ctx context.Context, uuid string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[uuid]
	if !ok {
		return models.ErrRecordNotFound
	}
	key.Enabled = enabled
	m.keys[uuid] = key
	return nil
}

func (m *MemoryDatabase) DeleteAPIKey(ctx context.Context, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[uuid]; !ok {
		return models.ErrRecordNotFound
	}
	delete(m.keys, uuid)
	delete(m.keyThemes, uuid)
	return nil
}

func (m *MemoryDatabase) CreateTheme(ctx context.Context, theme *models.Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	theme.ID = m.nextIDLocked()
	theme.CreatedAt = time.Now()
	for i := range theme.Endpoints {
		theme.Endpoints[i].ID = m.nextIDLocked()
		theme.Endpoints[i].ThemeID = theme.ID
	}
	m.themes[theme.ID] = *theme
	return nil
}

func (m *MemoryDatabase) GetTheme(ctx context.Context, userID uint, themeID uint) (models.Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	theme, ok := m.themes[themeID]
	if !ok || theme.UserID != userID {
		return models.Theme{}, models.ErrRecordNotFound
	}
	return theme, nil
}

func (m *MemoryDatabase) GetThemes(ctx context.Context, userID uint) ([]models.Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rc := []models.Theme{}
	for _, theme := range m.themes {
		if theme.UserID == userID {
			rc = append(rc, theme)
		}
	}
	return rc, nil
}

func (m *MemoryDatabase) UpdateThemeEndpoints(ctx context.Context, userID uint, themeID uint, endpoints []models.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	theme, ok := m.themes[themeID]
	if !ok || theme.UserID != userID {
		return models.ErrRecordNotFound
	}
	for i := range endpoints {
		endpoints[i].ID = m.nextIDLocked()
		endpoints[i].ThemeID = theme.ID
	}
	theme.Endpoints = endpoints
	m.themes[themeID] = theme
	return nil
}

func (m *MemoryDatabase) DeleteTheme(ctx context.Context, userID uint, themeID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	theme, ok := m.themes[themeID]
	if !ok || theme.UserID != userID {
		return models.ErrRecordNotFound
	}
	delete(m.themes, themeID)
	for uuid, ids := range m.keyThemes {
		kept := ids[:0]
		for _, id := range ids {
			if id != themeID {
				kept = append(kept, id)
			}
		}
		m.keyThemes[uuid] = kept
	}
	return nil
}

// withThemesLocked resolves the key's theme links against the live theme
// records, so theme edits retroactively change what a key may reach.
func (m *MemoryDatabase) withThemesLocked(key models.APIKey) models.APIKey {
	themes := []*models.Theme{}
	for _, id := range m.keyThemes[key.UUID] {
		if theme, ok := m.themes[id]; ok {
			copied := theme
			themes = append(themes, &copied)
		}
	}
	key.Themes = themes
	return key
}
